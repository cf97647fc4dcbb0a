// Package ports defines the interfaces the use cases depend on. Adapters
// implement them; use cases never import an adapter directly.
package ports

import (
	"context"
	"time"

	"github.com/FalkoBaeker/tonie-app/internal/domain/models"
)

// StoragePort persists market listings, refresh run state and telemetry.
type StoragePort interface {
	// SaveListings upserts listings for one item and source. A listing is
	// identified by (item, source, url, price); re-saving refreshes its
	// fetched_at timestamp. Returns the number of rows written.
	SaveListings(ctx context.Context, itemID, source string, listings []models.MarketListing) (int, error)

	// GetListings returns listings for the item, newest first, up to limit.
	// maxAge <= 0 means no age bound.
	GetListings(ctx context.Context, itemID string, maxAge time.Duration, limit int) ([]models.MarketListing, error)

	// ListListingsForSource returns all stored listings for one source,
	// across items. Used by hygiene cleanup.
	ListListingsForSource(ctx context.Context, source string) ([]models.MarketListing, error)

	// DeleteListingsByID removes the listings with the given row IDs and
	// returns how many were deleted.
	DeleteListingsByID(ctx context.Context, ids []int64) (int, error)

	// PruneOlderThan deletes listings fetched before the cutoff.
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int, error)

	// RecordRunState persists a refresh run snapshot, replacing any prior
	// snapshot for the same run ID.
	RecordRunState(ctx context.Context, run models.RefreshRun) error

	// GetRunState returns the most recent refresh run snapshot, or nil
	// when no run has ever been recorded.
	GetRunState(ctx context.Context) (*models.RefreshRun, error)

	// FreshSampleCounts returns per item and source the number of
	// listings fetched within maxAge. Keyed by item ID.
	FreshSampleCounts(ctx context.Context, maxAge time.Duration) (map[string]map[string]int, error)

	Close() error
}

// CachePort caches computed price results.
type CachePort interface {
	// GetPriceResult returns the cached result for (item, condition), or
	// nil on a miss. Cache errors degrade to a miss.
	GetPriceResult(ctx context.Context, itemID, condition string) (*models.PriceResult, error)

	// SetPriceResult stores a result with the given TTL.
	SetPriceResult(ctx context.Context, itemID, condition string, result models.PriceResult, ttl time.Duration) error

	Close() error
}

// SourcePort fetches listings from one marketplace for one search query.
type SourcePort interface {
	// Name is the stable source identifier stored with each listing and
	// used for weight lookup.
	Name() string

	// Fetch returns listings matching the query, at most maxItems.
	Fetch(ctx context.Context, query string, maxItems int) ([]models.MarketListing, error)
}

// TelemetryPort records one event per price computation.
type TelemetryPort interface {
	RecordPricingEvent(ctx context.Context, event models.PricingEvent) error
}
