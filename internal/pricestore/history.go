package pricestore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"pricesync/internal/marketplace"
)

const upsertSnapshotSQL = `INSERT INTO card_price_history (
    tcgplayer_product_id, recorded_date, market_price, lowest_price, median_price, total_listings
) VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (tcgplayer_product_id, recorded_date) DO UPDATE SET
    market_price = excluded.market_price,
    lowest_price = excluded.lowest_price,
    median_price = excluded.median_price,
    total_listings = excluded.total_listings`

// UpsertSnapshots writes daily snapshots in a single transaction. A second
// write for the same product and day replaces the first.
func (s *Store) UpsertSnapshots(ctx context.Context, rows []Snapshot) error {
	if len(rows) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, s.q(upsertSnapshotSQL))
		if err != nil {
			return fmt.Errorf("prepare snapshot upsert: %w", err)
		}
		defer stmt.Close()
		for _, row := range rows {
			if _, err := stmt.ExecContext(ctx,
				row.ProductID,
				Day(row.RecordedDate).Format(dateLayout),
				row.Prices.Market,
				row.Prices.Lowest,
				row.Prices.Median,
				nullableListings(row.Prices.Listings),
			); err != nil {
				return fmt.Errorf("upsert snapshot %d: %w", row.ProductID, err)
			}
		}
		return nil
	})
}

// History returns the most recent snapshots of a product, newest first.
func (s *Store) History(ctx context.Context, productID int64, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 30
	}
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT tcgplayer_product_id, recorded_date, market_price, lowest_price, median_price, total_listings
        FROM card_price_history WHERE tcgplayer_product_id = ?
        ORDER BY recorded_date DESC LIMIT ?`), productID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var (
			snap     Snapshot
			recorded dbTime
			market   decimal.NullDecimal
			lowest   decimal.NullDecimal
			median   decimal.NullDecimal
			listings sql.NullInt64
		)
		if err := rows.Scan(&snap.ProductID, &recorded, &market, &lowest, &median, &listings); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snap.RecordedDate = recorded.Time
		snap.Prices = marketplace.Prices{Market: market, Lowest: lowest, Median: median, Listings: listingsFrom(listings)}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return out, nil
}
