package marketplace

import (
	"time"

	"github.com/shopspring/decimal"
)

// Prices holds the marketplace price fields of a product. Any field may be absent.
type Prices struct {
	Market   decimal.NullDecimal
	Lowest   decimal.NullDecimal
	Median   decimal.NullDecimal
	Listings *int
}

// Product is one sellable marketplace listing, distinct per art-style variant.
type Product struct {
	ProductID  int64
	Name       string
	CardNumber string
	SetName    string
	URLSlug    string
	Prices     Prices
}

// Sale is the most recent completed sale of a product.
type Sale struct {
	Price decimal.Decimal
	Date  time.Time
}
