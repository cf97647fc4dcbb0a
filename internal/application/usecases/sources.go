// Package usecases contains the application services: market data ingestion,
// price computation, refresh orchestration, coverage reporting and stored
// data hygiene. They depend on ports only, never on adapters.
package usecases

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/FalkoBaeker/tonie-app/internal/application/ports"
	"github.com/FalkoBaeker/tonie-app/internal/catalog"
	"github.com/FalkoBaeker/tonie-app/internal/config"
	"github.com/FalkoBaeker/tonie-app/internal/domain/models"
	"github.com/FalkoBaeker/tonie-app/internal/relevance"
)

// FetchMulti runs the query variants against one source in order, merging
// and deduplicating the results. The first strong query often already gives
// enough data, so it stops as soon as maxItems deduped listings exist.
// Query-level failures are expected occasionally (rate limits, challenges)
// and are skipped, not propagated.
func FetchMulti(ctx context.Context, logger *slog.Logger, src ports.SourcePort, queries []string, maxItems int) []models.MarketListing {
	if maxItems <= 0 {
		maxItems = 80
	}

	var merged []models.MarketListing
	for _, query := range queries {
		query = strings.TrimSpace(query)
		if query == "" {
			continue
		}
		if ctx.Err() != nil {
			break
		}

		rows, err := src.Fetch(ctx, query, maxItems)
		if err != nil {
			logger.Debug("source query failed", "source", src.Name(), "query", query, "error", err)
			continue
		}
		if len(rows) == 0 {
			continue
		}

		merged = relevance.Dedupe(append(merged, rows...))
		if len(merged) >= maxItems {
			return merged[:maxItems]
		}
	}

	if len(merged) > maxItems {
		merged = merged[:maxItems]
	}
	return merged
}

// ApplyTimeWindow keeps listings whose sale date is unknown or within the
// window. Sources without sale dates rely on ingestion freshness instead.
func ApplyTimeWindow(listings []models.MarketListing, days int) []models.MarketListing {
	if days <= 0 {
		return listings
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)

	out := make([]models.MarketListing, 0, len(listings))
	for _, l := range listings {
		if l.SoldAt == nil || !l.SoldAt.Before(cutoff) {
			out = append(out, l)
		}
	}
	return out
}

// Ingester fetches market data for one catalog item from every configured
// source and persists it.
type Ingester struct {
	storage ports.StoragePort
	sources []ports.SourcePort
	market  config.MarketConfig
	logger  *slog.Logger
}

func NewIngester(storage ports.StoragePort, sources []ports.SourcePort, market config.MarketConfig, logger *slog.Logger) *Ingester {
	return &Ingester{
		storage: storage,
		sources: sources,
		market:  market,
		logger:  logger,
	}
}

// IngestItem fetches all sources concurrently for one item and upserts the
// results. A single failing source does not fail the item; the item fails
// only when every source errors out.
func (in *Ingester) IngestItem(ctx context.Context, item catalog.Item, maxItems int) (int, error) {
	queries := relevance.BuildQueryVariants(item, in.market.QueryVariantLimit)
	if len(queries) == 0 {
		return 0, nil
	}
	if maxItems <= 0 {
		maxItems = in.market.RefreshMaxItems
	}

	var (
		mu     sync.Mutex
		saved  int
		errs   []error
		failed int
		wg     sync.WaitGroup
	)

	for _, src := range in.sources {
		wg.Add(1)
		go func(src ports.SourcePort) {
			defer wg.Done()

			rows := FetchMulti(ctx, in.logger, src, queries, maxItems)
			rows = ApplyTimeWindow(rows, in.market.TimeWindowDays)

			keep := rows[:0]
			for _, l := range rows {
				if l.Price > 0 {
					keep = append(keep, l)
				}
			}

			n, err := in.storage.SaveListings(ctx, item.ID, src.Name(), keep)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				errs = append(errs, err)
				in.logger.Warn("listing persistence failed", "source", src.Name(), "item_id", item.ID, "error", err)
				return
			}
			saved += n
		}(src)
	}
	wg.Wait()

	if len(in.sources) > 0 && failed == len(in.sources) {
		return saved, errors.Join(errs...)
	}
	return saved, nil
}

// Sources exposes the configured source ports.
func (in *Ingester) Sources() []ports.SourcePort {
	return in.sources
}
