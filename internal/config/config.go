package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config represents the application configuration
type Config struct {
	Database DatabaseConfig `json:"database"`
	Cache    CacheConfig    `json:"cache"`
	Market   MarketConfig   `json:"market"`
	Sources  SourcesConfig  `json:"sources"`
	Catalog  CatalogConfig  `json:"catalog"`
	Logging  LoggingConfig  `json:"logging"`

	// DataMode selects live marketplace adapters or the deterministic
	// test source ("live" or "test").
	DataMode string `json:"data_mode"`
}

// DatabaseConfig represents PostgreSQL configuration
type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
}

// CacheConfig represents Redis configuration
type CacheConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Password string `json:"password"`
	Database int    `json:"database"`
}

// CatalogConfig points to the static Tonie catalog dataset.
type CatalogConfig struct {
	Path string `json:"path"`
}

// LoggingConfig represents logger configuration
type LoggingConfig struct {
	File  string `json:"file"`
	Level string `json:"level"`
}

// MarketConfig holds the pricing and ingestion tuning constants.
//
// The numeric values are hand-tuned against observed marketplace data rather
// than derived, and live in configuration so they can be recalibrated against
// labeled ground truth without a code change.
type MarketConfig struct {
	CacheTTLMinutes     int     `json:"cache_ttl_minutes"`
	ResultTTLMinutes    int     `json:"result_ttl_minutes"`
	HistoryDays         int     `json:"history_days"`
	TimeWindowDays      int     `json:"time_window_days"`
	MinSamples          int     `json:"min_samples"`
	MinEffectiveSamples float64 `json:"min_effective_samples"`

	PriceMin     float64 `json:"price_min"`
	PriceMax     float64 `json:"price_max"`
	RawPriceMax  float64 `json:"raw_price_max"`
	RarePriceMax float64 `json:"rare_price_max"`

	OutlierIQRFactor float64 `json:"outlier_iqr_factor"`

	DefaultSourceWeight float64            `json:"default_source_weight"`
	SourceWeights       map[string]float64 `json:"source_weights"`
	HighTrustMinWeight  float64            `json:"high_trust_min_weight"`

	InstantMinRatio float64 `json:"instant_min_ratio"`
	InstantMinGap   float64 `json:"instant_min_gap"`

	QueryVariantLimit int `json:"query_variant_limit"`
	RefreshDelayMs    int `json:"refresh_delay_ms"`
	RefreshMaxItems   int `json:"refresh_max_items"`
}

// SourcesConfig configures the marketplace source adapters.
type SourcesConfig struct {
	SoldPages   SoldPagesConfig   `json:"sold_pages"`
	BrowseAPI   BrowseAPIConfig   `json:"browse_api"`
	Classifieds ClassifiedsConfig `json:"classifieds"`
}

// SoldPagesConfig configures the scraped completed-sales source.
type SoldPagesConfig struct {
	Enabled        bool    `json:"enabled"`
	BaseURL        string  `json:"base_url"`
	TimeoutSeconds float64 `json:"timeout_seconds"`
	Retries        int     `json:"retries"`
	RatePerSecond  float64 `json:"rate_per_second"`
}

// BrowseAPIConfig configures the OAuth marketplace API source.
type BrowseAPIConfig struct {
	Enabled        bool    `json:"enabled"`
	BaseURL        string  `json:"base_url"`
	IdentityURL    string  `json:"identity_url"`
	ClientID       string  `json:"client_id"`
	ClientSecret   string  `json:"client_secret"`
	Scope          string  `json:"scope"`
	MarketplaceID  string  `json:"marketplace_id"`
	TimeoutSeconds float64 `json:"timeout_seconds"`
	Retries        int     `json:"retries"`
}

// ClassifiedsConfig configures the scraped classifieds-offer source.
type ClassifiedsConfig struct {
	Enabled        bool    `json:"enabled"`
	BaseURL        string  `json:"base_url"`
	TimeoutSeconds float64 `json:"timeout_seconds"`
	Retries        int     `json:"retries"`
	RatePerSecond  float64 `json:"rate_per_second"`
}

// Default returns the configuration defaults used when the config file omits
// a field.
func Default() Config {
	return Config{
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "tonie",
			Password: "tonie",
			Database: "tonie_app",
			SSLMode:  "disable",
		},
		Cache: CacheConfig{
			Enabled:  false,
			Host:     "localhost",
			Port:     6379,
			Database: 0,
		},
		Market: MarketConfig{
			CacheTTLMinutes:     360,
			ResultTTLMinutes:    30,
			HistoryDays:         180,
			TimeWindowDays:      90,
			MinSamples:          5,
			MinEffectiveSamples: 5.0,
			PriceMin:            3.0,
			PriceMax:            250.0,
			RawPriceMax:         500.0,
			RarePriceMax:        400.0,
			OutlierIQRFactor:    1.8,
			DefaultSourceWeight: 1.0,
			SourceWeights: map[string]float64{
				"sold_pages":        1.0,
				"browse_api":        1.0,
				"classifieds_offer": 0.35,
			},
			HighTrustMinWeight: 0.8,
			InstantMinRatio:    0.65,
			InstantMinGap:      0.5,
			QueryVariantLimit:  8,
			RefreshDelayMs:     200,
			RefreshMaxItems:    80,
		},
		Sources: SourcesConfig{
			SoldPages: SoldPagesConfig{
				Enabled:        true,
				BaseURL:        "https://www.ebay.de",
				TimeoutSeconds: 15,
				Retries:        2,
				RatePerSecond:  2,
			},
			BrowseAPI: BrowseAPIConfig{
				Enabled:        false,
				BaseURL:        "https://api.ebay.com",
				IdentityURL:    "https://api.ebay.com",
				Scope:          "https://api.ebay.com/oauth/api_scope",
				MarketplaceID:  "EBAY_DE",
				TimeoutSeconds: 15,
				Retries:        2,
			},
			Classifieds: ClassifiedsConfig{
				Enabled:        true,
				BaseURL:        "https://www.kleinanzeigen.de",
				TimeoutSeconds: 15,
				Retries:        1,
				RatePerSecond:  2,
			},
		},
		Catalog: CatalogConfig{
			Path: "data/catalog.json",
		},
		Logging: LoggingConfig{
			File:  "tonie-app.log",
			Level: "info",
		},
		DataMode: "live",
	}
}

// Load loads configuration from file, falling back to defaults for any field
// the file does not set.
func Load() (*Config, error) {
	configFile := "configs/config.json"
	fromEnv := os.Getenv("CONFIG_FILE")
	if fromEnv != "" {
		configFile = fromEnv
	}

	config := Default()

	data, err := os.ReadFile(configFile)
	if err != nil {
		if os.IsNotExist(err) && fromEnv == "" {
			// No config file present: defaults are a complete configuration.
			return &config, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate() error {
	if c.Market.MinSamples < 1 {
		return fmt.Errorf("config: market.min_samples must be >= 1")
	}
	if c.Market.PriceMin <= 0 || c.Market.PriceMax <= c.Market.PriceMin {
		return fmt.Errorf("config: market price bounds are invalid")
	}
	if c.Market.InstantMinRatio <= 0 || c.Market.InstantMinRatio >= 1 {
		return fmt.Errorf("config: market.instant_min_ratio must be in (0, 1)")
	}
	if c.Sources.BrowseAPI.Enabled {
		if c.Sources.BrowseAPI.ClientID == "" || c.Sources.BrowseAPI.ClientSecret == "" {
			return fmt.Errorf("config: browse_api enabled but client credentials are missing")
		}
	}
	switch c.DataMode {
	case "live", "test":
	default:
		return fmt.Errorf("config: data_mode must be live or test, got %q", c.DataMode)
	}
	return nil
}

// SourceWeight returns the trust weight for a marketplace source.
func (m MarketConfig) SourceWeight(source string) float64 {
	if w, ok := m.SourceWeights[source]; ok {
		return max(0, w)
	}
	return max(0, m.DefaultSourceWeight)
}

// HighTrust reports whether a source is trusted enough to anchor an estimate
// on its own.
func (m MarketConfig) HighTrust(source string) bool {
	return m.SourceWeight(source) >= m.HighTrustMinWeight
}
