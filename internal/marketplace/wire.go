package marketplace

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type searchRequest struct {
	Algorithm     string          `json:"algorithm"`
	From          int             `json:"from"`
	Size          int             `json:"size"`
	Filters       searchFilters   `json:"filters"`
	ListingSearch listingSearch   `json:"listingSearch"`
	Context       searchContext   `json:"context"`
	Settings      searchSettings  `json:"settings"`
	Sort          json.RawMessage `json:"sort"`
}

type searchFilters struct {
	Term  map[string][]string `json:"term"`
	Range map[string]any      `json:"range"`
	Match map[string]any      `json:"match"`
}

type listingSearch struct {
	Context searchContext  `json:"context"`
	Filters listingFilters `json:"filters"`
}

type listingFilters struct {
	Term    map[string]any `json:"term"`
	Range   map[string]any `json:"range"`
	Exclude map[string]int `json:"exclude"`
}

type searchContext struct {
	Cart            map[string]any `json:"cart"`
	ShippingCountry string         `json:"shippingCountry,omitempty"`
}

type searchSettings struct {
	UseFuzzySearch bool           `json:"useFuzzySearch"`
	DidYouMean     map[string]any `json:"didYouMean"`
}

func newSearchRequest(productLine, alias string, from, size int) searchRequest {
	return searchRequest{
		Algorithm: "sales_dismax",
		From:      from,
		Size:      size,
		Filters: searchFilters{
			Term: map[string][]string{
				"productLineName": {productLine},
				"setName":         {alias},
			},
			Range: map[string]any{},
			Match: map[string]any{},
		},
		ListingSearch: listingSearch{
			Context: searchContext{Cart: map[string]any{}},
			Filters: listingFilters{
				Term:    map[string]any{"sellerStatus": "Live", "channelId": 0},
				Range:   map[string]any{"quantity": map[string]int{"gte": 1}},
				Exclude: map[string]int{"channelExclusion": 0},
			},
		},
		Context:  searchContext{Cart: map[string]any{}, ShippingCountry: "US"},
		Settings: searchSettings{DidYouMean: map[string]any{}},
		Sort:     json.RawMessage(`{}`),
	}
}

type searchResponse struct {
	Results []struct {
		TotalResults int          `json:"totalResults"`
		Results      []rawProduct `json:"results"`
	} `json:"results"`
}

type rawProduct struct {
	ProductID        float64             `json:"productId"`
	ProductName      string              `json:"productName"`
	SetName          string              `json:"setName"`
	ProductURLName   string              `json:"productUrlName"`
	CustomAttributes rawAttributes       `json:"customAttributes"`
	MarketPrice      decimal.NullDecimal `json:"marketPrice"`
	LowestPrice      decimal.NullDecimal `json:"lowestPrice"`
	MedianPrice      decimal.NullDecimal `json:"medianPrice"`
	TotalListings    *float64            `json:"totalListings"`
	// older endpoint version
	LowPrice decimal.NullDecimal `json:"lowPrice"`
	MidPrice decimal.NullDecimal `json:"midPrice"`
}

type rawAttributes struct {
	Number string `json:"number"`
}

// UnmarshalJSON tolerates non-string attribute values, which the marketplace
// emits for some sealed products.
func (a *rawAttributes) UnmarshalJSON(data []byte) error {
	var attrs map[string]json.RawMessage
	if err := json.Unmarshal(data, &attrs); err != nil {
		return nil
	}
	raw, ok := attrs["number"]
	if !ok {
		return nil
	}
	var number string
	if err := json.Unmarshal(raw, &number); err == nil {
		a.Number = strings.TrimSpace(number)
		return nil
	}
	a.Number = strings.Trim(string(bytes.TrimSpace(raw)), `"`)
	if a.Number == "null" {
		a.Number = ""
	}
	return nil
}

func (r rawProduct) toProduct() Product {
	prices := Prices{
		Market: r.MarketPrice,
		Lowest: r.LowestPrice,
		Median: r.MedianPrice,
	}
	if !prices.Lowest.Valid {
		prices.Lowest = r.LowPrice
	}
	if !prices.Median.Valid {
		prices.Median = r.MidPrice
	}
	if r.TotalListings != nil {
		listings := int(*r.TotalListings)
		prices.Listings = &listings
	}
	return Product{
		ProductID:  int64(r.ProductID),
		Name:       strings.TrimSpace(r.ProductName),
		CardNumber: r.CustomAttributes.Number,
		SetName:    strings.TrimSpace(r.SetName),
		URLSlug:    strings.TrimSpace(r.ProductURLName),
		Prices:     prices,
	}
}

type salesRequest struct {
	Conditions  []int  `json:"conditions"`
	Languages   []int  `json:"languages"`
	Variants    []int  `json:"variants"`
	ListingType string `json:"listingType"`
	Offset      int    `json:"offset"`
	Limit       int    `json:"limit"`
}

type rawSale struct {
	PurchasePrice decimal.NullDecimal `json:"purchasePrice"`
	OrderDate     string              `json:"orderDate"`
}

// decodeSales accepts a bare array of sales or an object with a data array.
func decodeSales(body []byte) ([]rawSale, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, nil
	}
	if body[0] == '[' {
		var sales []rawSale
		if err := json.Unmarshal(body, &sales); err != nil {
			return nil, fmt.Errorf("decode sales array: %w", err)
		}
		return sales, nil
	}
	var wrapped struct {
		Data []rawSale `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("decode sales object: %w", err)
	}
	return wrapped.Data, nil
}

var orderDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseOrderDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	for _, layout := range orderDateLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}
