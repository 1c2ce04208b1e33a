package main

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"pricesync/internal/marketplace"
	"pricesync/internal/pricestore"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatMoney(value decimal.NullDecimal) string {
	if !value.Valid {
		return "-"
	}
	return value.Decimal.StringFixed(2)
}

func formatListings(listings *int) string {
	if listings == nil {
		return "-"
	}
	return strconv.Itoa(*listings)
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02")
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func formatProductID(id int64) string {
	if id <= 0 {
		return "-"
	}
	return strconv.FormatInt(id, 10)
}

// jsonPrices carries money as decimal strings so no precision is lost.
type jsonPrices struct {
	Market   *string `json:"market_price"`
	Lowest   *string `json:"lowest_price"`
	Median   *string `json:"median_price"`
	Listings *int    `json:"total_listings"`
}

func pricesJSON(p marketplace.Prices) jsonPrices {
	return jsonPrices{
		Market:   moneyJSON(p.Market),
		Lowest:   moneyJSON(p.Lowest),
		Median:   moneyJSON(p.Median),
		Listings: p.Listings,
	}
}

func moneyJSON(value decimal.NullDecimal) *string {
	if !value.Valid {
		return nil
	}
	s := value.Decimal.String()
	return &s
}

type jsonMapping struct {
	CardID         string     `json:"card_id"`
	ProductID      int64      `json:"product_id,omitempty"`
	ProductName    string     `json:"product_name,omitempty"`
	ProductURL     string     `json:"product_url,omitempty"`
	ManuallyMapped bool       `json:"manually_mapped"`
	LastSoldPrice  *string    `json:"last_sold_price"`
	LastSoldDate   *string    `json:"last_sold_date"`
	UpdatedAt      time.Time  `json:"updated_at"`
	Prices         jsonPrices `json:"prices"`
}

func mappingJSON(m *pricestore.Mapping) jsonMapping {
	out := jsonMapping{
		CardID:         m.CardID,
		ProductID:      m.ProductID,
		ProductName:    m.ProductName,
		ProductURL:     m.ProductURL,
		ManuallyMapped: m.ManuallyMapped,
		LastSoldPrice:  moneyJSON(m.LastSoldPrice),
		UpdatedAt:      m.UpdatedAt,
		Prices:         pricesJSON(m.Prices),
	}
	if m.LastSoldDate != nil {
		date := formatDate(m.LastSoldDate)
		out.LastSoldDate = &date
	}
	return out
}
