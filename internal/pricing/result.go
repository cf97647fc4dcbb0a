package pricing

import (
	"github.com/FalkoBaeker/tonie-app/internal/domain/models"
)

// Source tags carried on every price result. Downstream quality monitoring
// keys off these strings verbatim, treat them as a wire contract.
const (
	TagSoldCached      = "sold_cached"
	TagSoldStale       = "sold_stale"
	TagAPILiveWeighted = "api_live_weighted"
	TagSoldLive        = "sold_live"
	TagLiveBlended     = "live_blended_weighted"
	TagLiveOfferOnly   = "live_offer_only_weighted"
	TagOfferEstimate   = "offer_estimate_v1"
	TagFallback        = "fallback_no_market_data"

	tagSuffixBlended   = "_blended"
	tagSuffixOfferOnly = "_offer_only"
)

// CachedTag qualifies a cache-tier base tag with the trust mix of the
// contributing sources.
func (e *Engine) CachedTag(base string, w WeightedSamples) string {
	highTrust, other := false, false
	for src := range w.Sources {
		if e.cfg.HighTrust(src) {
			highTrust = true
		} else {
			other = true
		}
	}
	switch {
	case highTrust && other:
		return base + tagSuffixBlended
	case highTrust:
		return base
	default:
		return base + tagSuffixOfferOnly
	}
}

// ResultFromPrices builds a triple from equally trusted prices.
func (e *Engine) ResultFromPrices(prices []float64, condition Condition, tag string) models.PriceResult {
	q25 := Quantile(prices, 0.25)
	q50 := Quantile(prices, 0.50)
	q75 := Quantile(prices, 0.75)
	q25, q50, q75 = e.ApplyGuardrail(q25, q50, q75)

	factor := ConditionFactor(condition)
	return models.PriceResult{
		Instant:             round2(q25 * factor),
		Fair:                round2(q50 * factor),
		Patience:            round2(q75 * factor),
		SampleSize:          len(prices),
		EffectiveSampleSize: round2(float64(len(prices))),
		SourceTag:           tag,
	}
}

// ResultFromWeighted builds a triple from a weighted sample set.
func (e *Engine) ResultFromWeighted(w WeightedSamples, condition Condition, tag string) models.PriceResult {
	q25 := WeightedQuantile(w.Points, 0.25)
	q50 := WeightedQuantile(w.Points, 0.50)
	q75 := WeightedQuantile(w.Points, 0.75)
	q25, q50, q75 = e.ApplyGuardrail(q25, q50, q75)

	factor := ConditionFactor(condition)
	return models.PriceResult{
		Instant:             round2(q25 * factor),
		Fair:                round2(q50 * factor),
		Patience:            round2(q75 * factor),
		SampleSize:          w.RawSampleSize,
		EffectiveSampleSize: round2(w.EffectiveSampleSize),
		SourceTag:           tag,
	}
}

// OfferEstimate derives a sold-price triple from classifieds asking prices.
// Asking prices include negotiation headroom, so the samples are discounted
// before the quantiles are taken; thin or volatile samples are discounted
// harder. Returns nil when fewer than max(4, minSamples-1) cleaned samples.
func (e *Engine) OfferEstimate(prices []float64, condition Condition, bounds Bounds, offerSource string) *models.PriceResult {
	cleaned := e.CleanSamples(prices, bounds)

	minNeeded := e.cfg.MinSamples - 1
	if minNeeded < 4 {
		minNeeded = 4
	}
	if len(cleaned) < minNeeded {
		return nil
	}

	q25 := Quantile(cleaned, 0.25)
	q50 := Quantile(cleaned, 0.50)
	q75 := Quantile(cleaned, 0.75)

	iqr := q75 - q25
	if iqr < 0 {
		iqr = 0
	}
	spreadRatio := iqr / max(1.0, q50)

	const negotiationDiscount = 0.84
	liquidity := min(1.0, 0.92+float64(min(len(cleaned), 20))*0.004)
	volatility := max(0.86, 1.0-min(0.5, spreadRatio)*0.22)
	adjustment := negotiationDiscount * liquidity * volatility

	adjusted := make([]float64, len(cleaned))
	for i, p := range cleaned {
		adjusted[i] = p * adjustment
	}

	result := e.ResultFromPrices(adjusted, condition, TagOfferEstimate)
	result.SampleSize = len(cleaned)
	result.EffectiveSampleSize = round2(float64(len(cleaned)) * e.cfg.SourceWeight(offerSource))
	return &result
}

// Fallback is the deterministic last resort when no market data exists at
// all. The base price derives from the item ID alone so repeated calls agree.
func (e *Engine) Fallback(itemID string, condition Condition) models.PriceResult {
	sum := 0
	for _, c := range []byte(itemID) {
		sum += int(c)
	}
	seed := float64(sum%1500)/100 + 10

	fair := round2(seed * ConditionFactor(condition))
	return models.PriceResult{
		Instant:             round2(fair * 0.85),
		Fair:                fair,
		Patience:            round2(fair * 1.15),
		SampleSize:          0,
		EffectiveSampleSize: 0,
		SourceTag:           TagFallback,
	}
}
