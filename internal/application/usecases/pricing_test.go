package usecases

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cachemem "github.com/FalkoBaeker/tonie-app/internal/adapters/cache/memory"
	storagemem "github.com/FalkoBaeker/tonie-app/internal/adapters/storage/memory"
	"github.com/FalkoBaeker/tonie-app/internal/application/ports"
	"github.com/FalkoBaeker/tonie-app/internal/config"
	"github.com/FalkoBaeker/tonie-app/internal/domain/models"
	"github.com/FalkoBaeker/tonie-app/internal/pricing"
)

func newPricingService(storage *storagemem.Storage, cache *cachemem.Cache, sources ...ports.SourcePort) *PricingService {
	market := config.Default().Market
	ingester := NewIngester(storage, sources, market, testLogger())
	return NewPricingService(
		testCatalog(), storage, cache, storage, ingester,
		pricing.NewEngine(market), market, testLogger(),
	)
}

func TestPriceUsesFreshStoredListings(t *testing.T) {
	ctx := context.Background()
	storage := storagemem.New()
	cache := cachemem.New()

	_, err := storage.SaveListings(ctx, "tn_002", models.SourceSoldPages, soldListings(18, 19, 20, 21, 22))
	require.NoError(t, err)

	svc := newPricingService(storage, cache)

	result, err := svc.Price(ctx, "tn_002", pricing.ConditionVeryGood)
	require.NoError(t, err)

	assert.Equal(t, "sold_cached", result.SourceTag)
	assert.Equal(t, 18.75, result.Instant)
	assert.Equal(t, 20.0, result.Fair)
	assert.Equal(t, 21.25, result.Patience)
	assert.Equal(t, 5, result.SampleSize)
	assert.Len(t, storage.PricingEvents(), 1)

	// Second call is served from the result cache; no new telemetry event.
	again, err := svc.Price(ctx, "tn_002", pricing.ConditionVeryGood)
	require.NoError(t, err)
	assert.Equal(t, result, again)
	assert.Len(t, storage.PricingEvents(), 1)
}

func TestPriceUnknownItemFallsBack(t *testing.T) {
	ctx := context.Background()
	storage := storagemem.New()
	cache := cachemem.New()
	svc := newPricingService(storage, cache)

	result, err := svc.Price(ctx, "tn_999", pricing.ConditionGood)
	require.NoError(t, err)
	assert.Equal(t, "fallback_no_market_data", result.SourceTag)
	assert.Equal(t, 0, result.SampleSize)

	// Fallback results are never cached; the next call recomputes.
	_, err = svc.Price(ctx, "tn_999", pricing.ConditionGood)
	require.NoError(t, err)
	assert.Len(t, storage.PricingEvents(), 2)
}

func TestPriceLiveSoldListings(t *testing.T) {
	ctx := context.Background()
	storage := storagemem.New()
	cache := cachemem.New()
	src := &fakeSource{name: models.SourceSoldPages, rows: soldListings(18, 19, 20, 21, 22, 23)}

	svc := newPricingService(storage, cache, src)

	result, err := svc.Price(ctx, "tn_002", pricing.ConditionVeryGood)
	require.NoError(t, err)

	assert.Equal(t, "sold_live", result.SourceTag)
	assert.Equal(t, 6, result.SampleSize)
	assert.Equal(t, 20.5, result.Fair)

	// The live rows were persisted and the result cached.
	stored, err := storage.GetListings(ctx, "tn_002", 0, 100)
	require.NoError(t, err)
	assert.Len(t, stored, 6)

	cached, err := cache.GetPriceResult(ctx, "tn_002", string(pricing.ConditionVeryGood))
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, result, *cached)
}

func TestPriceBlendsSoldAndOfferListings(t *testing.T) {
	ctx := context.Background()
	storage := storagemem.New()
	sold := &fakeSource{name: models.SourceSoldPages, rows: soldListings(18, 19, 20, 21)}
	offers := &fakeSource{name: models.SourceClassifieds, rows: offerListings(22, 23, 24, 25)}

	svc := newPricingService(storage, cachemem.New(), sold, offers)

	result, err := svc.Price(ctx, "tn_002", pricing.ConditionVeryGood)
	require.NoError(t, err)

	assert.Equal(t, "live_blended_weighted", result.SourceTag)
	assert.Equal(t, 8, result.SampleSize)
	assert.InDelta(t, 4*1.0+4*0.35, result.EffectiveSampleSize, 1e-9)
}

func TestPriceOfferEstimateWhenOnlyAskingPrices(t *testing.T) {
	ctx := context.Background()
	storage := storagemem.New()
	offers := &fakeSource{name: models.SourceClassifieds, rows: offerListings(18, 19, 20, 21, 22, 23)}

	svc := newPricingService(storage, cachemem.New(), offers)

	result, err := svc.Price(ctx, "tn_002", pricing.ConditionVeryGood)
	require.NoError(t, err)

	assert.Equal(t, "offer_estimate_v1", result.SourceTag)
	assert.Equal(t, 6, result.SampleSize)
	assert.InDelta(t, 2.1, result.EffectiveSampleSize, 1e-9)
	assert.Less(t, result.Fair, 20.5)
}

func TestPriceFallsBackToStaleStoredListings(t *testing.T) {
	ctx := context.Background()
	storage := &staleStorage{listings: soldListings(18, 19, 20, 21, 22)}
	market := config.Default().Market

	svc := NewPricingService(
		testCatalog(), storage, nil, nil, nil,
		pricing.NewEngine(market), market, testLogger(),
	)

	result, err := svc.Price(ctx, "tn_002", pricing.ConditionVeryGood)
	require.NoError(t, err)
	assert.Equal(t, "sold_stale", result.SourceTag)
	assert.Equal(t, 5, result.SampleSize)
}
