// Command pricesync reconciles a card catalog against marketplace listings
// and keeps the price store current.
//
// Subcommands:
//
//	sync       run a reconciliation (optionally one set or a card substring)
//	override   list, confirm, or revert manual card-to-product overrides
//	history    show daily price snapshots for a product
//	runs       list recent reconciliation runs
//	config     write a sample config or validate the current one
package main
