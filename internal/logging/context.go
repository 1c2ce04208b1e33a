package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID is the standardized structured logging key for reconciliation run identifiers.
	FieldRunID = "run_id"
	// FieldSet is the standardized structured logging key for publisher set ids.
	FieldSet = "set"
	// FieldCardID is the standardized structured logging key for catalog card ids.
	FieldCardID = "card_id"
	// FieldProductID is the standardized structured logging key for marketplace product ids.
	FieldProductID = "product_id"
	// FieldAlias is the standardized structured logging key for marketplace set aliases.
	FieldAlias = "alias"
	// FieldEventType classifies warnings and errors for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint suggests the next step an operator should take.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldAlert flags warnings or anomalies that should stand out in structured logs.
	FieldAlert = "alert"
)

type contextKey int

const (
	runIDKey contextKey = iota
	setKey
)

// WithRunID returns a context carrying the reconciliation run id to use.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// RunIDFromContext returns the run id stored by WithRunID.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(runIDKey).(string)
	return id, ok && id != ""
}

// WithSet returns a context carrying the publisher set currently being reconciled.
func WithSet(ctx context.Context, setID string) context.Context {
	return context.WithValue(ctx, setKey, setID)
}

// SetFromContext returns the set id stored by WithSet.
func SetFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(setKey).(string)
	return id, ok && id != ""
}

// ContextFields extracts standardized slog attributes from the provided context.
// The run id is not included; loggers built with Options.RunID stamp it.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 1)
	if set, ok := SetFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldSet, set))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
