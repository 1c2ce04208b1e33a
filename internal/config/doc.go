// Package config loads, normalizes, and validates pricesync configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// PRICESYNC_CATALOG and PRICESYNC_POSTGRES_DSN. The Config type centralizes
// every knob the reconciliation driver and CLI need: where the scraped card
// catalog lives, which store backs the price tables, how the marketplace is
// paced, and the lookup tables (set aliases, variant styles, manga and wanted
// allowlists) the matching engine consults.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
