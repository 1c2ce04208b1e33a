// Package reconcile drives one price reconciliation run: load the catalog,
// walk the configured sets in order, fetch marketplace candidates per set,
// match every card, persist mappings and daily snapshots, then attach
// last-sold data.
//
// Only an unreadable catalog, unreadable overrides, or a failure to record the
// run aborts it. Marketplace and write failures are recovered locally and
// surface as Summary counters. A run holds the run lock for its whole
// duration and can be interrupted between sets through its context.
package reconcile
