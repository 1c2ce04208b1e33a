package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"pricesync/internal/config"
	"pricesync/internal/logging"
)

const (
	maxBodyBytes          = 16 << 20
	fallbackPageSize      = 50
	fallbackMaxPages      = 40
	fallbackTimeout       = 15 * time.Second
	fallbackSalesBatchLen = 5
)

// Options configures a Client.
type Options struct {
	SearchURL       string
	SalesURL        string
	ProductURL      string
	ProductLine     string
	UserAgent       string
	PageSize        int
	MaxPages        int
	RequestDelay    time.Duration
	Timeout         time.Duration
	SalesBatchSize  int
	SalesBatchDelay time.Duration
}

// OptionsFromConfig maps marketplace configuration onto client options.
func OptionsFromConfig(m config.Marketplace) Options {
	return Options{
		SearchURL:       m.SearchURL,
		SalesURL:        m.SalesURL,
		ProductURL:      m.ProductURL,
		ProductLine:     m.ProductLine,
		UserAgent:       m.UserAgent,
		PageSize:        m.PageSize,
		MaxPages:        m.MaxPages,
		RequestDelay:    m.RequestDelay(),
		Timeout:         m.Timeout(),
		SalesBatchSize:  m.SalesBatchSize,
		SalesBatchDelay: m.SalesBatchDelay(),
	}
}

// Client provides access to the marketplace search and sales endpoints.
type Client struct {
	opts       Options
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates a marketplace client.
func New(opts Options, logger *slog.Logger, extra ...Option) (*Client, error) {
	opts.SearchURL = strings.TrimRight(strings.TrimSpace(opts.SearchURL), "/")
	if opts.SearchURL == "" {
		return nil, errors.New("marketplace search url required")
	}
	opts.SalesURL = strings.TrimRight(strings.TrimSpace(opts.SalesURL), "/")
	opts.ProductURL = strings.TrimRight(strings.TrimSpace(opts.ProductURL), "/")
	opts.ProductLine = strings.TrimSpace(opts.ProductLine)
	if opts.ProductLine == "" {
		return nil, errors.New("marketplace product line required")
	}
	if opts.PageSize <= 0 {
		opts.PageSize = fallbackPageSize
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = fallbackMaxPages
	}
	if opts.Timeout <= 0 {
		opts.Timeout = fallbackTimeout
	}
	if opts.SalesBatchSize <= 0 {
		opts.SalesBatchSize = fallbackSalesBatchLen
	}
	if opts.RequestDelay < 0 {
		opts.RequestDelay = 0
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	limit := rate.Inf
	if opts.RequestDelay > 0 {
		limit = rate.Every(opts.RequestDelay)
	}
	client := &Client{
		opts:       opts,
		httpClient: &http.Client{Timeout: opts.Timeout},
		limiter:    rate.NewLimiter(limit, 1),
		logger:     logging.NewComponentLogger(logger, "marketplace"),
	}
	for _, opt := range extra {
		opt(client)
	}
	return client, nil
}

// ProductURL returns the public listing URL of a product.
func (c *Client) ProductURL(p Product) string {
	base := fmt.Sprintf("%s/%d", c.opts.ProductURL, p.ProductID)
	if slug := strings.Trim(p.URLSlug, "/"); slug != "" {
		return base + "/" + slug
	}
	return base
}

// FetchCandidates returns every product listed under any of the aliases,
// de-duplicated by product id in first-seen order. Alias failures are joined
// into the returned error; the products gathered so far are always returned.
func (c *Client) FetchCandidates(ctx context.Context, aliases []string) ([]Product, error) {
	var (
		products []Product
		errs     []error
	)
	seen := make(map[int64]struct{})
	for _, alias := range aliases {
		alias = strings.TrimSpace(alias)
		if alias == "" {
			continue
		}
		got, err := c.fetchAlias(ctx, alias)
		for _, p := range got {
			if _, dup := seen[p.ProductID]; dup {
				continue
			}
			seen[p.ProductID] = struct{}{}
			products = append(products, p)
		}
		if err == nil {
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return products, ctxErr
		}
		var aliasErr *AliasError
		page := 0
		if errors.As(err, &aliasErr) {
			page = aliasErr.Page
		}
		logging.WarnWithContext(c.logger, "alias pagination stopped early", "alias_fetch_failed",
			logging.Alias(alias),
			logging.Int("page", page),
			logging.Int("products_kept", len(got)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "marketplace may be throttling; rerun the set later"),
			logging.String(logging.FieldImpact, "cards listed on later pages may be reported as not found"),
		)
		errs = append(errs, err)
	}
	return products, errors.Join(errs...)
}

func (c *Client) fetchAlias(ctx context.Context, alias string) ([]Product, error) {
	var products []Product
	for page := 0; page < c.opts.MaxPages; page++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return products, &AliasError{Alias: alias, Page: page, Err: err}
		}
		got, sent, err := c.searchPage(ctx, alias, page*c.opts.PageSize)
		if err != nil {
			return products, &AliasError{Alias: alias, Page: page, Err: err}
		}
		products = append(products, got...)
		c.logger.Debug("fetched search page",
			logging.Alias(alias),
			logging.Int("page", page),
			logging.Int("results", len(got)),
		)
		if sent < c.opts.PageSize {
			return products, nil
		}
	}
	return products, &AliasError{Alias: alias, Page: c.opts.MaxPages, Err: ErrMaxPages}
}

// searchPage returns the usable products of one page along with the number of
// results the API sent, which decides whether another page follows.
func (c *Client) searchPage(ctx context.Context, alias string, from int) ([]Product, int, error) {
	payload, err := json.Marshal(newSearchRequest(c.opts.ProductLine, alias, from, c.opts.PageSize))
	if err != nil {
		return nil, 0, fmt.Errorf("encode search request: %w", err)
	}
	body, err := c.post(ctx, c.opts.SearchURL, payload)
	if err != nil {
		return nil, 0, err
	}
	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, 0, fmt.Errorf("decode search response: %w", err)
	}
	if len(resp.Results) == 0 {
		return nil, 0, nil
	}
	raw := resp.Results[0].Results
	products := make([]Product, 0, len(raw))
	for _, r := range raw {
		p := r.toProduct()
		if p.ProductID <= 0 {
			continue
		}
		products = append(products, p)
	}
	return products, len(raw), nil
}

// FetchLastSale returns the most recent sale of a product, or nil when the
// marketplace has none or declines to answer.
func (c *Client) FetchLastSale(ctx context.Context, productID int64) (*Sale, error) {
	if c.opts.SalesURL == "" {
		return nil, errors.New("marketplace sales url not configured")
	}
	payload, err := json.Marshal(salesRequest{
		Conditions:  []int{},
		Languages:   []int{},
		Variants:    []int{},
		ListingType: "All",
		Offset:      0,
		Limit:       1,
	})
	if err != nil {
		return nil, fmt.Errorf("encode sales request: %w", err)
	}
	endpoint := c.opts.SalesURL + "/" + strconv.FormatInt(productID, 10) + "/latestsales"
	body, err := c.post(ctx, endpoint, payload)
	if err != nil {
		var statusErr *StatusError
		if errors.Is(err, ErrHTMLResponse) || errors.As(err, &statusErr) {
			logging.WarnWithContext(c.logger, "last sale unavailable", "last_sale_unavailable",
				logging.ProductID(productID),
				logging.Error(err),
				logging.String(logging.FieldImpact, "last sold price left empty for this product"),
			)
			return nil, nil
		}
		return nil, err
	}
	sales, err := decodeSales(body)
	if err != nil {
		return nil, err
	}
	for _, s := range sales {
		if !s.PurchasePrice.Valid {
			continue
		}
		date, ok := parseOrderDate(s.OrderDate)
		if !ok {
			continue
		}
		c.logger.Debug("last sale fetched",
			logging.ProductID(productID),
			logging.Money("price", s.PurchasePrice),
			logging.String("date", date.Format(time.DateOnly)),
		)
		return &Sale{Price: s.PurchasePrice.Decimal, Date: date}, nil
	}
	return nil, nil
}

// FetchLastSales fetches last sales in fixed-size concurrent batches. Products
// whose lookup fails are absent from the result.
func (c *Client) FetchLastSales(ctx context.Context, productIDs []int64) map[int64]Sale {
	ids := uniqueIDs(productIDs)
	results := make(map[int64]Sale, len(ids))
	var mu sync.Mutex
	for start := 0; start < len(ids); start += c.opts.SalesBatchSize {
		if start > 0 {
			if err := sleep(ctx, c.opts.SalesBatchDelay); err != nil {
				return results
			}
		}
		end := min(start+c.opts.SalesBatchSize, len(ids))
		g, gctx := errgroup.WithContext(ctx)
		for _, id := range ids[start:end] {
			g.Go(func() error {
				sale, err := c.FetchLastSale(gctx, id)
				if err != nil {
					c.logger.Debug("last sale lookup failed",
						logging.ProductID(id),
						logging.Error(err),
					)
					return nil
				}
				if sale == nil {
					return nil
				}
				mu.Lock()
				results[id] = *sale
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()
		if ctx.Err() != nil {
			return results
		}
	}
	return results
}

func (c *Client) post(ctx context.Context, endpoint string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.opts.UserAgent != "" {
		req.Header.Set("User-Agent", c.opts.UserAgent)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("marketplace request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode}
	}
	if looksLikeHTML(resp.Header.Get("Content-Type"), body) {
		return nil, ErrHTMLResponse
	}
	return body, nil
}

func looksLikeHTML(contentType string, body []byte) bool {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil && mediaType == "text/html" {
		return true
	}
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) > 0 && trimmed[0] == '<'
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
