// Package catalog models the card records produced by the publisher-site
// scraper and loads them from the JSON file the scraper writes.
//
// Cards are read-only input for reconciliation: this package never mutates or
// persists them. A missing or unreadable catalog is the one input error that
// aborts a run, reported as ErrCatalogMissing or a wrapped decode error.
package catalog
