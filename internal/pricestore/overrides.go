package pricestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// LoadConfirmed returns card id -> product id for every manually mapped card.
func (s *Store) LoadConfirmed(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT card_id, tcgplayer_product_id FROM card_prices WHERE manually_mapped = ?`), true)
	if err != nil {
		return nil, fmt.Errorf("query overrides: %w", err)
	}
	defer rows.Close()
	out := make(map[string]int64)
	for rows.Next() {
		var (
			cardID    string
			productID int64
		)
		if err := rows.Scan(&cardID, &productID); err != nil {
			return nil, fmt.Errorf("scan override: %w", err)
		}
		out[cardID] = productID
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate overrides: %w", err)
	}
	return out, nil
}

// ListOverrides returns the manually mapped rows ordered by card id.
func (s *Store) ListOverrides(ctx context.Context) ([]*Mapping, error) {
	return s.queryMappings(ctx, `SELECT `+mappingColumns+` FROM card_prices WHERE manually_mapped = ? ORDER BY card_id`, true)
}

// RevertOverride deletes a card's manual mapping so the next run matches it
// automatically. It reports whether a manual row existed.
func (s *Store) RevertOverride(ctx context.Context, cardID string) (bool, error) {
	cardID = strings.TrimSpace(cardID)
	if cardID == "" {
		return false, errors.New("card id required")
	}
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM card_prices WHERE card_id = ? AND manually_mapped = ?`), cardID, true)
	if err != nil {
		return false, fmt.Errorf("revert override: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("revert override rows: %w", err)
	}
	return n > 0, nil
}

// ConfirmOverride pins a card to a product as a human correction. Prices and
// last-sold data are cleared when the product changes; the next run refreshes them.
func (s *Store) ConfirmOverride(ctx context.Context, cardID string, productID int64, productName string) error {
	cardID = strings.TrimSpace(cardID)
	if cardID == "" {
		return errors.New("card id required")
	}
	if productID <= 0 {
		return fmt.Errorf("invalid product id %d", productID)
	}
	const query = `INSERT INTO card_prices (
    card_id, tcgplayer_product_id, tcgplayer_product_name, manually_mapped, updated_at
) VALUES (?, ?, ?, ?, ?)
ON CONFLICT (card_id) DO UPDATE SET
    tcgplayer_product_name = CASE
        WHEN excluded.tcgplayer_product_name IS NOT NULL THEN excluded.tcgplayer_product_name
        WHEN card_prices.tcgplayer_product_id = excluded.tcgplayer_product_id THEN card_prices.tcgplayer_product_name
        ELSE NULL END,
    tcgplayer_url = CASE WHEN card_prices.tcgplayer_product_id = excluded.tcgplayer_product_id
        THEN card_prices.tcgplayer_url ELSE NULL END,
    market_price = CASE WHEN card_prices.tcgplayer_product_id = excluded.tcgplayer_product_id
        THEN card_prices.market_price ELSE NULL END,
    lowest_price = CASE WHEN card_prices.tcgplayer_product_id = excluded.tcgplayer_product_id
        THEN card_prices.lowest_price ELSE NULL END,
    median_price = CASE WHEN card_prices.tcgplayer_product_id = excluded.tcgplayer_product_id
        THEN card_prices.median_price ELSE NULL END,
    total_listings = CASE WHEN card_prices.tcgplayer_product_id = excluded.tcgplayer_product_id
        THEN card_prices.total_listings ELSE NULL END,
    last_sold_price = CASE WHEN card_prices.tcgplayer_product_id = excluded.tcgplayer_product_id
        THEN card_prices.last_sold_price ELSE NULL END,
    last_sold_date = CASE WHEN card_prices.tcgplayer_product_id = excluded.tcgplayer_product_id
        THEN card_prices.last_sold_date ELSE NULL END,
    tcgplayer_product_id = excluded.tcgplayer_product_id,
    manually_mapped = excluded.manually_mapped,
    updated_at = excluded.updated_at`
	_, err := s.db.ExecContext(ctx, s.q(query),
		cardID,
		productID,
		nullableString(strings.TrimSpace(productName)),
		true,
		formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("confirm override: %w", err)
	}
	return nil
}
