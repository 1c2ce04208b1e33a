package config

const (
	// DriverSQLite stores prices in a local SQLite file.
	DriverSQLite = "sqlite"
	// DriverPostgres stores prices in a Postgres database reached through PostgresDSN.
	DriverPostgres = "postgres"
)

const (
	defaultDataDir            = "~/.local/share/pricesync"
	defaultLogDir             = "~/.local/share/pricesync/logs"
	defaultCatalogFile        = "~/.local/share/pricesync/cards.json"
	defaultStoreDriver        = DriverSQLite
	defaultSQLiteFile         = "prices.db"
	defaultBatchSize          = 500
	defaultSearchURL          = "https://mp-search-api.tcgplayer.com/v1/search/request"
	defaultSalesURL           = "https://mpapi.tcgplayer.com/v2/product"
	defaultProductURL         = "https://www.tcgplayer.com/product"
	defaultProductLine        = "one-piece-card-game"
	defaultUserAgent          = "pricesync/dev"
	defaultPageSize           = 50
	defaultMaxPages           = 40
	defaultRequestDelayMillis = 100
	defaultRequestTimeout     = 15
	defaultSalesBatchSize     = 5
	defaultSalesBatchDelayMs  = 500
	defaultSetDelayMillis     = 250
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:     defaultDataDir,
			LogDir:      defaultLogDir,
			CatalogFile: defaultCatalogFile,
		},
		Store: Store{
			Driver:    defaultStoreDriver,
			BatchSize: defaultBatchSize,
		},
		Marketplace: Marketplace{
			SearchURL:          defaultSearchURL,
			SalesURL:           defaultSalesURL,
			ProductURL:         defaultProductURL,
			ProductLine:        defaultProductLine,
			UserAgent:          defaultUserAgent,
			PageSize:           defaultPageSize,
			MaxPages:           defaultMaxPages,
			RequestDelayMillis: defaultRequestDelayMillis,
			RequestTimeout:     defaultRequestTimeout,
			FetchLastSales:     true,
			SalesBatchSize:     defaultSalesBatchSize,
			SalesBatchDelayMs:  defaultSalesBatchDelayMs,
			SetDelayMillis:     defaultSetDelayMillis,
		},
		Matching: Matching{
			VariantStyles: defaultVariantStyles(),
		},
		Sets: defaultSets(),
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

func defaultVariantStyles() map[string]string {
	return map[string]string{
		"p1": "alternate",
		"p2": "super",
		"p3": "red-super",
		"p4": "wanted",
	}
}

func defaultSets() []Set {
	return []Set{
		{ID: "OP01", Name: "Romance Dawn", Aliases: []string{"romance-dawn"}},
		{ID: "OP02", Name: "Paramount War", Aliases: []string{"paramount-war"}},
		{ID: "OP03", Name: "Pillars of Strength", Aliases: []string{"pillars-of-strength"}},
		{ID: "OP04", Name: "Kingdoms of Intrigue", Aliases: []string{"kingdoms-of-intrigue"}},
		{ID: "OP05", Name: "Awakening of the New Era", Aliases: []string{"awakening-of-the-new-era"}},
		{ID: "OP06", Name: "Wings of the Captain", Aliases: []string{"wings-of-the-captain"}},
		{ID: "OP07", Name: "500 Years in the Future", Aliases: []string{"500-years-in-the-future"}},
		{ID: "OP08", Name: "Two Legends", Aliases: []string{"two-legends"}},
		{ID: "OP09", Name: "Emperors in the New World", Aliases: []string{"emperors-in-the-new-world"}},
		{ID: "OP10", Name: "Royal Blood", Aliases: []string{"royal-blood"}},
		{ID: "OP11", Name: "A Fist of Divine Speed", Aliases: []string{"a-fist-of-divine-speed"}},
		{ID: "OP12", Name: "Legacy of the Master", Aliases: []string{"legacy-of-the-master"}},
		{ID: "OP13", Name: "Carrying On His Will", Aliases: []string{"carrying-on-his-will", "carrying-on-his-will-pre-release-cards"}},
		{ID: "EB01", Name: "Memorial Collection", Aliases: []string{"extra-booster-memorial-collection"}},
		{ID: "PRB01", Name: "Premium Booster The Best", Aliases: []string{"premium-booster-the-best"}, Reprint: true},
	}
}
