package usecases

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/FalkoBaeker/tonie-app/internal/application/ports"
	"github.com/FalkoBaeker/tonie-app/internal/catalog"
	"github.com/FalkoBaeker/tonie-app/internal/config"
	"github.com/FalkoBaeker/tonie-app/internal/domain/models"
	"github.com/FalkoBaeker/tonie-app/internal/pricing"
	"github.com/FalkoBaeker/tonie-app/internal/relevance"
)

// filterScopedSources are the sources whose stored titles are re-checked
// against the target item before aggregation. Asking-price portals mix
// product categories in search results, so their rows need the strict gate.
var filterScopedSources = map[string]struct{}{
	models.SourceClassifieds: {},
}

// contextRequiredSources must mention the product context in the title.
var contextRequiredSources = map[string]struct{}{
	models.SourceClassifieds: {},
	models.SourceBrowseAPI:   {},
	models.SourceSoldPages:   {},
}

// PricingService computes price triples through a tier cascade: fresh stored
// data, live API data, live scraped data, offer-derived estimate, stale
// stored data, deterministic fallback. The first tier with sufficient data
// wins.
type PricingService struct {
	catalog   *catalog.Catalog
	storage   ports.StoragePort
	cache     ports.CachePort
	telemetry ports.TelemetryPort
	ingester  *Ingester
	engine    *pricing.Engine
	market    config.MarketConfig
	logger    *slog.Logger
}

func NewPricingService(
	cat *catalog.Catalog,
	storage ports.StoragePort,
	cache ports.CachePort,
	telemetry ports.TelemetryPort,
	ingester *Ingester,
	engine *pricing.Engine,
	market config.MarketConfig,
	logger *slog.Logger,
) *PricingService {
	return &PricingService{
		catalog:   cat,
		storage:   storage,
		cache:     cache,
		telemetry: telemetry,
		ingester:  ingester,
		engine:    engine,
		market:    market,
		logger:    logger,
	}
}

// Price returns the price triple for one item and condition.
func (s *PricingService) Price(ctx context.Context, itemID string, condition pricing.Condition) (models.PriceResult, error) {
	started := time.Now()

	if s.cache != nil {
		if cached, err := s.cache.GetPriceResult(ctx, itemID, string(condition)); err == nil && cached != nil {
			return *cached, nil
		} else if err != nil {
			s.logger.Debug("result cache read failed", "item_id", itemID, "error", err)
		}
	}

	item, ok := s.catalog.ByID(itemID)
	if !ok {
		return s.finish(ctx, itemID, condition, s.engine.Fallback(itemID, condition), started, false), nil
	}

	bounds := s.engine.BoundsForItem(item)

	// Tier 1: fresh stored listings.
	if result, ok := s.storedResult(ctx, item, condition, bounds, time.Duration(s.market.CacheTTLMinutes)*time.Minute, pricing.TagSoldCached); ok {
		return s.finish(ctx, itemID, condition, result, started, true), nil
	}

	// Tiers 2-4: live acquisition.
	if result, ok := s.liveResult(ctx, item, condition, bounds); ok {
		return s.finish(ctx, itemID, condition, result, started, true), nil
	}

	// Tier 5: stored listings of any age.
	if result, ok := s.storedResult(ctx, item, condition, bounds, 0, pricing.TagSoldStale); ok {
		return s.finish(ctx, itemID, condition, result, started, true), nil
	}

	return s.finish(ctx, itemID, condition, s.engine.Fallback(itemID, condition), started, false), nil
}

func (s *PricingService) storedResult(ctx context.Context, item catalog.Item, condition pricing.Condition, bounds pricing.Bounds, maxAge time.Duration, baseTag string) (models.PriceResult, bool) {
	listings, err := s.storage.GetListings(ctx, item.ID, maxAge, 400)
	if err != nil {
		s.logger.Warn("stored listings read failed", "item_id", item.ID, "error", err)
		return models.PriceResult{}, false
	}

	listings = relevance.FilterForTarget(listings, item, filterScopedSources, contextRequiredSources)

	weighted := s.engine.WeightSamples(toSamples(listings), bounds)
	if !s.engine.Sufficient(weighted) {
		return models.PriceResult{}, false
	}

	tag := s.engine.CachedTag(baseTag, weighted)
	return s.engine.ResultFromWeighted(weighted, condition, tag), true
}

func (s *PricingService) liveResult(ctx context.Context, item catalog.Item, condition pricing.Condition, bounds pricing.Bounds) (models.PriceResult, bool) {
	queries := relevance.BuildQueryVariants(item, s.market.QueryVariantLimit)
	if len(queries) == 0 {
		return models.PriceResult{}, false
	}

	// Tier 2: API listings alone, when they already carry enough signal.
	apiRows := s.fetchAndSave(ctx, item, models.SourceBrowseAPI, queries, s.market.RefreshMaxItems)
	if len(apiRows) > 0 {
		weighted := s.engine.WeightSamples(toSamples(apiRows), bounds)
		if s.engine.Sufficient(weighted) {
			return s.engine.ResultFromWeighted(weighted, condition, pricing.TagAPILiveWeighted), true
		}
	}

	// Tier 3: scraped sold pages and classifieds offers, fetched in parallel.
	var (
		wg        sync.WaitGroup
		soldRows  []models.MarketListing
		offerRows []models.MarketListing
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		soldRows = s.fetchAndSave(ctx, item, models.SourceSoldPages, queries, s.market.RefreshMaxItems)
	}()
	go func() {
		defer wg.Done()
		offerRows = s.fetchAndSave(ctx, item, models.SourceClassifieds, queries, min(60, s.market.RefreshMaxItems))
	}()
	wg.Wait()

	if len(apiRows)+len(soldRows)+len(offerRows) > 0 {
		cutoff := time.Now().UTC().AddDate(0, 0, -s.market.HistoryDays)
		if pruned, err := s.storage.PruneOlderThan(ctx, cutoff); err != nil {
			s.logger.Debug("prune after live fetch failed", "error", err)
		} else if pruned > 0 {
			s.logger.Debug("pruned stale listings", "rows", pruned)
		}
	}

	offerRows = relevance.FilterForTarget(offerRows, item, filterScopedSources, contextRequiredSources)

	// Sold listings alone are the strongest signal; no weighting needed.
	soldPrices := s.engine.CleanSamples(prices(soldRows), bounds)
	if len(soldPrices) >= s.market.MinSamples {
		return s.engine.ResultFromPrices(soldPrices, condition, pricing.TagSoldLive), true
	}

	live := make([]models.MarketListing, 0, len(apiRows)+len(soldRows)+len(offerRows))
	live = append(live, apiRows...)
	live = append(live, soldRows...)
	live = append(live, offerRows...)

	weighted := s.engine.WeightSamples(toSamples(live), bounds)
	if s.engine.Sufficient(weighted) {
		tag := pricing.TagLiveOfferOnly
		if weighted.HasHighTrust(s.market) {
			tag = pricing.TagLiveBlended
		}
		return s.engine.ResultFromWeighted(weighted, condition, tag), true
	}

	// Tier 4: discounted estimate from asking prices alone.
	if estimate := s.engine.OfferEstimate(prices(offerRows), condition, bounds, models.SourceClassifieds); estimate != nil {
		return *estimate, true
	}

	return models.PriceResult{}, false
}

func (s *PricingService) fetchAndSave(ctx context.Context, item catalog.Item, sourceName string, queries []string, maxItems int) []models.MarketListing {
	src := s.sourceByName(sourceName)
	if src == nil {
		return nil
	}

	rows := FetchMulti(ctx, s.logger, src, queries, maxItems)
	rows = ApplyTimeWindow(rows, s.market.TimeWindowDays)
	if len(rows) == 0 {
		return nil
	}

	if _, err := s.storage.SaveListings(ctx, item.ID, sourceName, rows); err != nil {
		s.logger.Warn("live listing persistence failed", "source", sourceName, "item_id", item.ID, "error", err)
	}
	return rows
}

func (s *PricingService) sourceByName(name string) ports.SourcePort {
	if s.ingester == nil {
		return nil
	}
	for _, src := range s.ingester.Sources() {
		if src.Name() == name {
			return src
		}
	}
	return nil
}

// finish records telemetry and caches market-derived results. Fallback
// results are never cached; the next call should try the market again.
func (s *PricingService) finish(ctx context.Context, itemID string, condition pricing.Condition, result models.PriceResult, started time.Time, cacheable bool) models.PriceResult {
	latency := time.Since(started).Milliseconds()

	if s.telemetry != nil {
		event := models.PricingEvent{
			ItemID:     itemID,
			Condition:  string(condition),
			SourceTag:  result.SourceTag,
			SampleSize: result.SampleSize,
			LatencyMs:  latency,
			CreatedAt:  time.Now().UTC(),
		}
		if err := s.telemetry.RecordPricingEvent(ctx, event); err != nil {
			s.logger.Warn("pricing telemetry write failed", "item_id", itemID, "error", err)
		}
	}

	if result.SourceTag == pricing.TagFallback {
		s.logger.Warn("pricing fallback used", "item_id", itemID, "condition", condition, "latency_ms", latency)
	}

	if cacheable && s.cache != nil {
		ttl := time.Duration(s.market.ResultTTLMinutes) * time.Minute
		if err := s.cache.SetPriceResult(ctx, itemID, string(condition), result, ttl); err != nil {
			s.logger.Debug("result cache write failed", "item_id", itemID, "error", err)
		}
	}

	return result
}

func toSamples(listings []models.MarketListing) []models.PriceSample {
	out := make([]models.PriceSample, 0, len(listings))
	for _, l := range listings {
		out = append(out, models.PriceSample{Source: l.Source, Price: l.Price})
	}
	return out
}

func prices(listings []models.MarketListing) []float64 {
	out := make([]float64, 0, len(listings))
	for _, l := range listings {
		out = append(out, l.Price)
	}
	return out
}
