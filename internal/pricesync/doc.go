// Package pricesync writes reconciliation output to the price store in
// fixed-size batches.
//
// Each batch is one store transaction. A failing batch is logged and counted
// and the remaining batches still run, so one bad row costs at most one batch.
// Rows sharing a key are collapsed before writing; the later row wins.
package pricesync
