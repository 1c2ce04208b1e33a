package testsupport

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// Paths served by FakeMarketplace.
const (
	SearchPath = "/v1/search/request"
	SalesPath  = "/v2/product"
)

// FakeProduct is a product listed by FakeMarketplace.
type FakeProduct struct {
	ID       int64
	Name     string
	Number   string
	Market   string
	Lowest   string
	Median   string
	Listings int
}

type fakeSale struct {
	price string
	date  time.Time
}

// FakeMarketplace serves paginated search and latest-sales responses from
// in-memory fixtures.
type FakeMarketplace struct {
	server *httptest.Server

	mu        sync.Mutex
	listings  map[string][]FakeProduct
	htmlPages map[string]int
	sales     map[int64]fakeSale
	searches  []string
}

// NewFakeMarketplace starts a fake marketplace closed at test cleanup.
func NewFakeMarketplace(t testing.TB) *FakeMarketplace {
	t.Helper()
	f := &FakeMarketplace{
		listings:  make(map[string][]FakeProduct),
		htmlPages: make(map[string]int),
		sales:     make(map[int64]fakeSale),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+SearchPath, f.handleSearch)
	mux.HandleFunc("POST "+SalesPath+"/{id}/latestsales", f.handleSales)
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

// URL returns the base URL of the fake.
func (f *FakeMarketplace) URL() string {
	return f.server.URL
}

// AddProducts lists products under a set alias, in API order.
func (f *FakeMarketplace) AddProducts(alias string, products ...FakeProduct) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listings[alias] = append(f.listings[alias], products...)
}

// FailPage makes the given zero-based page of alias answer with an HTML interstitial.
func (f *FakeMarketplace) FailPage(alias string, page int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.htmlPages[alias] = page
}

// SetSale registers the latest sale of a product.
func (f *FakeMarketplace) SetSale(productID int64, price string, date time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sales[productID] = fakeSale{price: price, date: date}
}

// Searches returns the aliases of every search request received, in order.
func (f *FakeMarketplace) Searches() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.searches...)
}

func (f *FakeMarketplace) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		From    int `json:"from"`
		Size    int `json:"size"`
		Filters struct {
			Term map[string][]string `json:"term"`
		} `json:"filters"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	alias := ""
	if names := req.Filters.Term["setName"]; len(names) > 0 {
		alias = names[0]
	}
	size := max(req.Size, 1)

	f.mu.Lock()
	f.searches = append(f.searches, alias)
	products := f.listings[alias]
	failPage, fails := f.htmlPages[alias]
	f.mu.Unlock()

	if fails && req.From/size == failPage {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, "<html><body>Please slow down</body></html>")
		return
	}

	start := min(req.From, len(products))
	end := min(start+size, len(products))
	items := make([]string, 0, end-start)
	for _, p := range products[start:end] {
		items = append(items, productJSON(p))
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = fmt.Fprintf(w, `{"errors":[],"results":[{"totalResults":%d,"results":[%s]}]}`, len(products), strings.Join(items, ","))
}

func (f *FakeMarketplace) handleSales(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "bad id", http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	sale, ok := f.sales[id]
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if !ok {
		_, _ = io.WriteString(w, `{"data":[]}`)
		return
	}
	_, _ = fmt.Fprintf(w, `{"data":[{"purchasePrice":%s,"orderDate":%q}]}`, sale.price, sale.date.UTC().Format(time.RFC3339))
}

func productJSON(p FakeProduct) string {
	price := func(v string) string {
		if v == "" {
			return "null"
		}
		return v
	}
	return fmt.Sprintf(`{"productId":%d.0,"productName":%q,"setName":"fixture","productUrlName":%q,"customAttributes":{"number":%q},"marketPrice":%s,"lowestPrice":%s,"medianPrice":%s,"totalListings":%d.0}`,
		p.ID, p.Name, slug(p.Name), p.Number, price(p.Market), price(p.Lowest), price(p.Median), p.Listings)
}

func slug(name string) string {
	fields := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return (r < 'a' || r > 'z') && (r < '0' || r > '9')
	})
	return strings.Join(fields, "-")
}
