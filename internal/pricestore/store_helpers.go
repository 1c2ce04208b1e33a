package pricestore

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"pricesync/internal/marketplace"
)

const (
	dateLayout = "2006-01-02"
	// fixed width keeps text timestamps sortable
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullableTime(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return formatTime(*t)
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableListings(listings *int) sql.NullInt64 {
	if listings == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*listings), Valid: true}
}

func listingsFrom(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

// dbTime scans timestamps stored as text (SQLite) or native types (Postgres).
type dbTime struct {
	Time  time.Time
	Valid bool
}

func (t *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*t = dbTime{}
		return nil
	case time.Time:
		*t = dbTime{Time: v.UTC(), Valid: true}
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	default:
		return fmt.Errorf("unsupported time value %T", src)
	}
}

func (t *dbTime) parse(value string) error {
	if value == "" {
		*t = dbTime{}
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, dateLayout, "2006-01-02 15:04:05"} {
		if parsed, err := time.Parse(layout, value); err == nil {
			*t = dbTime{Time: parsed.UTC(), Valid: true}
			return nil
		}
	}
	return fmt.Errorf("parse time %q", value)
}

func (t dbTime) ptr() *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

const mappingColumns = "card_id, tcgplayer_product_id, tcgplayer_product_name, tcgplayer_url, market_price, lowest_price, median_price, total_listings, manually_mapped, last_sold_price, last_sold_date, updated_at"

func scanMapping(scanner interface{ Scan(dest ...any) error }) (*Mapping, error) {
	var (
		m         Mapping
		name      sql.NullString
		url       sql.NullString
		market    decimal.NullDecimal
		lowest    decimal.NullDecimal
		median    decimal.NullDecimal
		listings  sql.NullInt64
		lastPrice decimal.NullDecimal
		lastDate  dbTime
		updated   dbTime
	)
	if err := scanner.Scan(
		&m.CardID,
		&m.ProductID,
		&name,
		&url,
		&market,
		&lowest,
		&median,
		&listings,
		&m.ManuallyMapped,
		&lastPrice,
		&lastDate,
		&updated,
	); err != nil {
		return nil, err
	}
	m.ProductName = name.String
	m.ProductURL = url.String
	m.Prices = marketplace.Prices{Market: market, Lowest: lowest, Median: median, Listings: listingsFrom(listings)}
	m.LastSoldPrice = lastPrice
	m.LastSoldDate = lastDate.ptr()
	m.UpdatedAt = updated.Time
	return &m, nil
}
