package pricing

import (
	"math"
	"sort"
	"strings"

	"github.com/FalkoBaeker/tonie-app/internal/catalog"
	"github.com/FalkoBaeker/tonie-app/internal/config"
	"github.com/FalkoBaeker/tonie-app/internal/domain/models"
)

// Bounds is the plausible price corridor for one item.
type Bounds struct {
	Min float64
	Max float64
}

// Engine aggregates cleaned, weighted samples into price triples using the
// market tuning from config.
type Engine struct {
	cfg config.MarketConfig
}

func NewEngine(cfg config.MarketConfig) *Engine {
	return &Engine{cfg: cfg}
}

// BoundsForItem widens the upper price bound for discontinued figures, whose
// collector prices legitimately exceed the regular corridor.
func (e *Engine) BoundsForItem(item catalog.Item) Bounds {
	b := Bounds{Min: e.cfg.PriceMin, Max: e.cfg.PriceMax}
	if item.Discontinued() && e.cfg.RarePriceMax > b.Max {
		b.Max = e.cfg.RarePriceMax
	}
	return b
}

// CleanSamples bounds the prices to the corridor, then trims IQR outliers.
// Samples below eight points are kept as-is since trimming them is unstable,
// and trimming never discards more than half the bounded data.
func (e *Engine) CleanSamples(prices []float64, bounds Bounds) []float64 {
	bounded := make([]float64, 0, len(prices))
	for _, p := range prices {
		if isFinite(p) && p >= bounds.Min && p <= bounds.Max {
			bounded = append(bounded, p)
		}
	}
	if len(bounded) == 0 {
		return nil
	}
	sort.Float64s(bounded)

	if len(bounded) < 8 {
		return bounded
	}

	q1 := Quantile(bounded, 0.25)
	q3 := Quantile(bounded, 0.75)
	iqr := q3 - q1
	if iqr <= 0 {
		return bounded
	}

	low := math.Max(bounds.Min, q1-e.cfg.OutlierIQRFactor*iqr)
	high := math.Min(bounds.Max, q3+e.cfg.OutlierIQRFactor*iqr)

	filtered := bounded[:0:0]
	for _, p := range bounded {
		if p >= low && p <= high {
			filtered = append(filtered, p)
		}
	}

	minKeep := e.cfg.MinSamples
	if half := (len(bounded) + 1) / 2; half > minKeep {
		minKeep = half
	}
	if len(filtered) < minKeep {
		return bounded
	}
	return filtered
}

// WeightedSamples is the cleaned, source-weighted form of a sample set.
type WeightedSamples struct {
	Points              []WeightedPoint
	RawSampleSize       int
	EffectiveSampleSize float64
	Sources             map[string]struct{}
}

// HasHighTrust reports whether any contributing source meets the high-trust
// weight floor.
func (w WeightedSamples) HasHighTrust(cfg config.MarketConfig) bool {
	for src := range w.Sources {
		if cfg.HighTrust(src) {
			return true
		}
	}
	return false
}

// WeightSamples groups the samples by source, cleans each source's prices
// independently, and attaches the configured source weights. Per-source
// cleaning matters: one source's outliers must not shift another's quartiles.
func (e *Engine) WeightSamples(samples []models.PriceSample, bounds Bounds) WeightedSamples {
	bySource := make(map[string][]float64)
	for _, s := range samples {
		if s.Price <= 0 {
			continue
		}
		src := strings.ToLower(strings.TrimSpace(s.Source))
		if src == "" {
			src = "unknown"
		}
		bySource[src] = append(bySource[src], s.Price)
	}

	out := WeightedSamples{Sources: make(map[string]struct{})}
	for src, prices := range bySource {
		cleaned := e.CleanSamples(prices, bounds)
		if len(cleaned) == 0 {
			continue
		}
		weight := e.cfg.SourceWeight(src)
		if weight <= 0 {
			continue
		}

		out.Sources[src] = struct{}{}
		out.RawSampleSize += len(cleaned)
		out.EffectiveSampleSize += float64(len(cleaned)) * weight
		for _, p := range cleaned {
			out.Points = append(out.Points, WeightedPoint{Value: p, Weight: weight})
		}
	}
	return out
}

// MinEffective is the effective-sample floor a result must clear. Sample sets
// without any high-trust source get a reduced floor so that offer-only
// estimates remain possible, but never below 1.5.
func (e *Engine) MinEffective(hasHighTrust bool) float64 {
	base := math.Max(0.1, e.cfg.MinEffectiveSamples)
	if hasHighTrust {
		return base
	}
	return math.Max(1.5, base*0.45)
}

// Sufficient reports whether a weighted sample set clears both the raw and
// the effective sample floors.
func (e *Engine) Sufficient(w WeightedSamples) bool {
	return w.RawSampleSize >= e.cfg.MinSamples &&
		w.EffectiveSampleSize >= e.MinEffective(w.HasHighTrust(e.cfg))
}

// ApplyGuardrail clamps an implausibly low q25 up to the configured ratio of
// q50. Residual listing pollution concentrates in the low quantile; a fair
// median with a collapsed instant price is the signature of that pollution.
// The clamp is idempotent and leaves q50 and q75 untouched.
func (e *Engine) ApplyGuardrail(q25, q50, q75 float64) (float64, float64, float64) {
	if q50 > 0 && q50-q25 > e.cfg.InstantMinGap {
		if floor := q50 * e.cfg.InstantMinRatio; q25 < floor {
			q25 = floor
		}
	}
	if q25 > q50 {
		q25 = q50
	}
	if q75 < q50 {
		q75 = q50
	}
	return q25, q50, q75
}
