package models

import "time"

// Canonical source names. Stored with every listing and used for trust
// weight lookup, so they must stay stable across releases.
const (
	SourceSoldPages   = "sold_pages"
	SourceBrowseAPI   = "browse_api"
	SourceClassifieds = "classifieds_offer"
)

// MarketListing represents one observed price point from a marketplace
type MarketListing struct {
	ID        int64      `json:"id,omitempty"`
	ItemID    string     `json:"item_id,omitempty"`
	Source    string     `json:"source"`
	Title     string     `json:"title"`
	Price     float64    `json:"price_eur"`
	URL       string     `json:"url"`
	SoldAt    *time.Time `json:"sold_at,omitempty"`
	FetchedAt time.Time  `json:"fetched_at"`
}

// PriceSample is a listing reduced to the fields the aggregation needs
type PriceSample struct {
	Source string  `json:"source"`
	Price  float64 `json:"price_eur"`
}

// PriceResult is a confidence-scored price triple for one item and condition
type PriceResult struct {
	Instant  float64 `json:"instant"`
	Fair     float64 `json:"fair"`
	Patience float64 `json:"patience"`

	SampleSize          int     `json:"sample_size"`
	EffectiveSampleSize float64 `json:"effective_sample_size"`

	// SourceTag is a provenance contract string; downstream quality
	// monitoring keys off it verbatim.
	SourceTag string `json:"source_tag"`
}

// PricingEvent is the telemetry record written for every price computation
type PricingEvent struct {
	ItemID     string    `json:"item_id"`
	Condition  string    `json:"condition"`
	SourceTag  string    `json:"source_tag"`
	SampleSize int       `json:"sample_size"`
	LatencyMs  int64     `json:"latency_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// RunStatus represents the state of a refresh run
type RunStatus string

const (
	RunStatusIdle                RunStatus = "idle"
	RunStatusRunning             RunStatus = "running"
	RunStatusCompleted           RunStatus = "completed"
	RunStatusCompletedWithErrors RunStatus = "completed_with_errors"
)

// RefreshRun tracks one catalog-wide market refresh
type RefreshRun struct {
	RunID      string     `json:"run_id"`
	Status     RunStatus  `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	Total      int `json:"total"`
	Processed  int `json:"processed"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
	SavedRows  int `json:"saved_rows"`
	PrunedRows int `json:"pruned_rows"`

	Limit    int `json:"limit"`
	DelayMs  int `json:"delay_ms"`
	MaxItems int `json:"max_items"`

	Failures []string `json:"failures"`
}

// CoverageRow summarizes fresh market data coverage for one catalog item
type CoverageRow struct {
	ItemID           string  `json:"item_id"`
	Title            string  `json:"title"`
	RawSamples       int     `json:"raw_samples"`
	EffectiveSamples float64 `json:"effective_samples"`
	MeetsTarget      bool    `json:"meets_target"`
}
