package pricesync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"pricesync/internal/logging"
	"pricesync/internal/pricestore"
)

// DefaultBatchSize is the number of rows written per transaction.
const DefaultBatchSize = 500

// Store is the persistence surface the writer needs.
type Store interface {
	UpsertMappings(ctx context.Context, rows []pricestore.Mapping) error
	UpsertSnapshots(ctx context.Context, rows []pricestore.Snapshot) error
	ApplyLastSales(ctx context.Context, sales []pricestore.LastSale) (int, error)
}

// Stats summarizes one batched write.
type Stats struct {
	Written       int
	Failed        int
	Batches       int
	FailedBatches int
}

// Add accumulates other into s.
func (s *Stats) Add(other Stats) {
	s.Written += other.Written
	s.Failed += other.Failed
	s.Batches += other.Batches
	s.FailedBatches += other.FailedBatches
}

// Writer batches rows into store transactions.
type Writer struct {
	store     Store
	batchSize int
	logger    *slog.Logger
}

// NewWriter creates a writer. A non-positive batchSize uses DefaultBatchSize.
func NewWriter(store Store, batchSize int, logger *slog.Logger) *Writer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Writer{
		store:     store,
		batchSize: batchSize,
		logger:    logging.NewComponentLogger(logger, "writer"),
	}
}

// UpsertMappings writes mapping rows, one card per row.
func (w *Writer) UpsertMappings(ctx context.Context, rows []pricestore.Mapping) (Stats, error) {
	rows = dedupe(rows, func(m pricestore.Mapping) string { return m.CardID })
	return writeBatches(ctx, w, "mappings", rows, w.store.UpsertMappings)
}

// UpsertHistory writes daily snapshots, one per product and day.
func (w *Writer) UpsertHistory(ctx context.Context, rows []pricestore.Snapshot) (Stats, error) {
	days := make([]pricestore.Snapshot, len(rows))
	for i, row := range rows {
		row.RecordedDate = pricestore.Day(row.RecordedDate)
		days[i] = row
	}
	rows = dedupe(days, func(s pricestore.Snapshot) string {
		return strconv.FormatInt(s.ProductID, 10) + "|" + s.RecordedDate.Format("2006-01-02")
	})
	return writeBatches(ctx, w, "history", rows, w.store.UpsertSnapshots)
}

// ApplyLastSales writes last-sold data for cards still mapped to the sold product.
func (w *Writer) ApplyLastSales(ctx context.Context, sales []pricestore.LastSale) (Stats, error) {
	sales = dedupe(sales, func(s pricestore.LastSale) string { return s.CardID })
	return writeBatches(ctx, w, "last_sales", sales, func(ctx context.Context, batch []pricestore.LastSale) error {
		_, err := w.store.ApplyLastSales(ctx, batch)
		return err
	})
}

func writeBatches[T any](ctx context.Context, w *Writer, kind string, rows []T, write func(context.Context, []T) error) (Stats, error) {
	var (
		stats Stats
		errs  []error
	)
	for start := 0; start < len(rows); start += w.batchSize {
		if err := ctx.Err(); err != nil {
			stats.Failed += len(rows) - start
			errs = append(errs, err)
			break
		}
		end := min(start+w.batchSize, len(rows))
		batch := rows[start:end]
		stats.Batches++
		if err := write(ctx, batch); err != nil {
			stats.Failed += len(batch)
			stats.FailedBatches++
			errs = append(errs, fmt.Errorf("%s batch %d: %w", kind, stats.Batches, err))
			logging.WarnWithContext(w.logger, "batch write failed", "batch_write_failed",
				logging.String("kind", kind),
				logging.Int("batch", stats.Batches),
				logging.Int("rows", len(batch)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check store connectivity and disk space"),
				logging.String(logging.FieldImpact, "rows in this batch keep their previous values"),
			)
			continue
		}
		stats.Written += len(batch)
	}
	if stats.Batches > 0 {
		w.logger.Debug("batched write complete",
			logging.String("kind", kind),
			logging.Int("written", stats.Written),
			logging.Int("failed", stats.Failed),
			logging.Int("batches", stats.Batches),
		)
	}
	return stats, errors.Join(errs...)
}

// dedupe keeps one row per key: the last one, at the position of the first.
func dedupe[T any](rows []T, key func(T) string) []T {
	index := make(map[string]int, len(rows))
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		k := key(row)
		if i, ok := index[k]; ok {
			out[i] = row
			continue
		}
		index[k] = len(out)
		out = append(out, row)
	}
	return out
}
