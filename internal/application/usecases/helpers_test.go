package usecases

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/FalkoBaeker/tonie-app/internal/catalog"
	"github.com/FalkoBaeker/tonie-app/internal/domain/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCatalog() *catalog.Catalog {
	return catalog.New([]catalog.Item{
		{
			ID:     "tn_001",
			Title:  "Benjamin Blümchen - Gute Nacht Geschichten",
			Series: "Benjamin Blümchen",
		},
		{
			ID:      "tn_002",
			Title:   "Bibi & Tina - Der verschwundene Schatz",
			Series:  "Bibi und Tina",
			Aliases: []string{"Bibi und Tina Schatz"},
		},
		{
			ID:     "tn_003",
			Title:  "Bibi & Tina - Das Fohlen",
			Series: "Bibi und Tina",
		},
	})
}

// schatzTitle passes the strict relevance gate for tn_002.
const schatzTitle = "Tonie Bibi und Tina Der verschwundene Schatz"

func soldListings(prices ...float64) []models.MarketListing {
	out := make([]models.MarketListing, 0, len(prices))
	for i, p := range prices {
		out = append(out, models.MarketListing{
			Source: models.SourceSoldPages,
			Title:  schatzTitle,
			Price:  p,
			URL:    fmt.Sprintf("https://www.ebay.de/itm/90000000%04d", i),
		})
	}
	return out
}

func offerListings(prices ...float64) []models.MarketListing {
	out := make([]models.MarketListing, 0, len(prices))
	for i, p := range prices {
		out = append(out, models.MarketListing{
			Source: models.SourceClassifieds,
			Title:  schatzTitle,
			Price:  p,
			URL:    fmt.Sprintf("https://www.kleinanzeigen.de/s-anzeige/tonie/80000000%04d", i),
		})
	}
	return out
}

// fakeSource returns its fixed rows for every query.
type fakeSource struct {
	name string
	rows []models.MarketListing
	err  error

	mu    sync.Mutex
	calls int
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Fetch(ctx context.Context, query string, maxItems int) ([]models.MarketListing, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	rows := f.rows
	if len(rows) > maxItems {
		rows = rows[:maxItems]
	}
	return append([]models.MarketListing(nil), rows...), nil
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// staleStorage serves listings only for unbounded-age reads, simulating a
// store whose every row has aged past the fresh TTL.
type staleStorage struct {
	listings []models.MarketListing
}

func (s *staleStorage) SaveListings(ctx context.Context, itemID, source string, listings []models.MarketListing) (int, error) {
	return 0, nil
}

func (s *staleStorage) GetListings(ctx context.Context, itemID string, maxAge time.Duration, limit int) ([]models.MarketListing, error) {
	if maxAge > 0 {
		return nil, nil
	}
	return append([]models.MarketListing(nil), s.listings...), nil
}

func (s *staleStorage) ListListingsForSource(ctx context.Context, source string) ([]models.MarketListing, error) {
	return nil, nil
}

func (s *staleStorage) DeleteListingsByID(ctx context.Context, ids []int64) (int, error) {
	return 0, nil
}

func (s *staleStorage) PruneOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	return 0, nil
}

func (s *staleStorage) RecordRunState(ctx context.Context, run models.RefreshRun) error { return nil }

func (s *staleStorage) GetRunState(ctx context.Context) (*models.RefreshRun, error) { return nil, nil }

func (s *staleStorage) FreshSampleCounts(ctx context.Context, maxAge time.Duration) (map[string]map[string]int, error) {
	return map[string]map[string]int{}, nil
}

func (s *staleStorage) Close() error { return nil }
