// Package logging assembles structured slog loggers and formatting helpers used
// across pricesync.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, stamps every record with the run id when one is given, and exposes
// context-aware helpers so driver code can tag log lines with the set being
// reconciled. The package also provides a no-op logger for tests and wiring
// code that cannot fail, and a progress sampler that keeps per-card progress
// lines readable.
//
// Prefer these constructors over hand-rolled slog setup to ensure new
// components emit data with the same shape and routing guarantees as the rest
// of the system.
package logging
