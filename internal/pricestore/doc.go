// Package pricestore persists card-to-product mappings, daily price snapshots,
// and reconciliation run records.
//
// The store runs on SQLite (modernc.org/sqlite, the default) or Postgres (pgx
// through database/sql). Schema changes ship as embedded, per-dialect SQL
// migrations recorded in schema_migrations. Queries are written with `?`
// placeholders and rebound for Postgres.
//
// Mapping writes are idempotent upserts. The upsert statement itself refuses to
// move a manually mapped card to a different product or to clear its manual
// flag; only ConfirmOverride and RevertOverride change a manual mapping.
package pricestore
