package pricestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// upsertMappingSQL refreshes a card's mapping. The WHERE clause skips the
// update when the stored row is manually mapped to a different product, and
// the manual flag can only be carried forward, never cleared. Last-sold data
// survives only while the product is unchanged; a missing name or URL keeps
// the stored one.
const upsertMappingSQL = `INSERT INTO card_prices (
    card_id, tcgplayer_product_id, tcgplayer_product_name, tcgplayer_url,
    market_price, lowest_price, median_price, total_listings,
    manually_mapped, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (card_id) DO UPDATE SET
    tcgplayer_product_name = COALESCE(excluded.tcgplayer_product_name, card_prices.tcgplayer_product_name),
    tcgplayer_url = COALESCE(excluded.tcgplayer_url, card_prices.tcgplayer_url),
    market_price = excluded.market_price,
    lowest_price = excluded.lowest_price,
    median_price = excluded.median_price,
    total_listings = excluded.total_listings,
    last_sold_price = CASE WHEN card_prices.tcgplayer_product_id = excluded.tcgplayer_product_id
        THEN card_prices.last_sold_price ELSE NULL END,
    last_sold_date = CASE WHEN card_prices.tcgplayer_product_id = excluded.tcgplayer_product_id
        THEN card_prices.last_sold_date ELSE NULL END,
    tcgplayer_product_id = excluded.tcgplayer_product_id,
    manually_mapped = (card_prices.manually_mapped OR excluded.manually_mapped),
    updated_at = excluded.updated_at
WHERE NOT card_prices.manually_mapped
   OR card_prices.tcgplayer_product_id = excluded.tcgplayer_product_id`

// UpsertMappings writes rows in a single transaction.
func (s *Store) UpsertMappings(ctx context.Context, rows []Mapping) error {
	if len(rows) == 0 {
		return nil
	}
	now := time.Now().UTC()
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, s.q(upsertMappingSQL))
		if err != nil {
			return fmt.Errorf("prepare mapping upsert: %w", err)
		}
		defer stmt.Close()
		for _, row := range rows {
			if row.CardID == "" {
				return errors.New("mapping card id required")
			}
			updated := row.UpdatedAt
			if updated.IsZero() {
				updated = now
			}
			if _, err := stmt.ExecContext(ctx,
				row.CardID,
				row.ProductID,
				nullableString(row.ProductName),
				nullableString(row.ProductURL),
				row.Prices.Market,
				row.Prices.Lowest,
				row.Prices.Median,
				nullableListings(row.Prices.Listings),
				row.ManuallyMapped,
				formatTime(updated),
			); err != nil {
				return fmt.Errorf("upsert mapping %s: %w", row.CardID, err)
			}
		}
		return nil
	})
}

// ApplyLastSales records last-sold data for cards still mapped to the sale's
// product. It returns the number of rows updated.
func (s *Store) ApplyLastSales(ctx context.Context, sales []LastSale) (int, error) {
	if len(sales) == 0 {
		return 0, nil
	}
	updated := 0
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, s.q(`UPDATE card_prices
            SET last_sold_price = ?, last_sold_date = ?
            WHERE card_id = ? AND tcgplayer_product_id = ?`))
		if err != nil {
			return fmt.Errorf("prepare last sale update: %w", err)
		}
		defer stmt.Close()
		for _, sale := range sales {
			res, err := stmt.ExecContext(ctx, sale.Price, formatTime(sale.Date), sale.CardID, sale.ProductID)
			if err != nil {
				return fmt.Errorf("update last sale %s: %w", sale.CardID, err)
			}
			if n, err := res.RowsAffected(); err == nil {
				updated += int(n)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

// GetMapping returns the mapping of a card, or nil when none is stored.
func (s *Store) GetMapping(ctx context.Context, cardID string) (*Mapping, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+mappingColumns+` FROM card_prices WHERE card_id = ?`), cardID)
	m, err := scanMapping(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get mapping: %w", err)
	}
	return m, nil
}

// ListMappings returns stored mappings ordered by card id.
func (s *Store) ListMappings(ctx context.Context) ([]*Mapping, error) {
	return s.queryMappings(ctx, `SELECT `+mappingColumns+` FROM card_prices ORDER BY card_id`)
}

func (s *Store) queryMappings(ctx context.Context, query string, args ...any) ([]*Mapping, error) {
	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query mappings: %w", err)
	}
	defer rows.Close()
	var out []*Mapping
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, fmt.Errorf("scan mapping: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mappings: %w", err)
	}
	return out, nil
}
