// Package pricing turns cleaned market samples into the instant/fair/patience
// price triple. It owns quantile math, outlier trimming, source weighting,
// the pollution guardrail and the deterministic fallback.
package pricing

import (
	"math"
	"sort"
)

// WeightedPoint is one price sample carrying its source trust weight.
type WeightedPoint struct {
	Value  float64
	Weight float64
}

// Quantile returns the linearly interpolated quantile of values, matching the
// numpy default: position (n-1)*q between the sorted neighbors.
func Quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}
	if len(values) == 1 {
		return values[0]
	}

	xs := make([]float64, len(values))
	copy(xs, values)
	sort.Float64s(xs)

	q = clamp01(q)
	pos := float64(len(xs)-1) * q
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return xs[lo]
	}
	w := pos - float64(lo)
	return xs[lo]*(1-w) + xs[hi]*w
}

// WeightedQuantile returns the weighted quantile of the points under the
// cumulative-midpoint convention: each point sits at probability
// (cum_i - w_i/2) / total, and the result interpolates between neighbors.
// With equal weights the q=0.5 result equals the unweighted median, which
// keeps weighted and unweighted aggregation consistent on uniform data.
func WeightedQuantile(points []WeightedPoint, q float64) float64 {
	xs := make([]WeightedPoint, 0, len(points))
	for _, p := range points {
		if !isFinite(p.Value) || !isFinite(p.Weight) || p.Weight <= 0 {
			continue
		}
		xs = append(xs, p)
	}
	if len(xs) == 0 {
		return 0
	}
	if len(xs) == 1 {
		return xs[0].Value
	}

	sort.Slice(xs, func(i, j int) bool { return xs[i].Value < xs[j].Value })

	total := 0.0
	for _, p := range xs {
		total += p.Weight
	}
	if total <= 0 {
		values := make([]float64, len(xs))
		for i, p := range xs {
			values[i] = p.Value
		}
		return Quantile(values, q)
	}

	q = clamp01(q)

	cum := 0.0
	probs := make([]float64, len(xs))
	for i, p := range xs {
		cum += p.Weight
		probs[i] = (cum - p.Weight/2) / total
	}

	if q <= probs[0] {
		return xs[0].Value
	}
	if q >= probs[len(xs)-1] {
		return xs[len(xs)-1].Value
	}

	for i := 1; i < len(xs); i++ {
		if q > probs[i] {
			continue
		}
		span := probs[i] - probs[i-1]
		if span <= 0 {
			return xs[i].Value
		}
		local := (q - probs[i-1]) / span
		return xs[i-1].Value + (xs[i].Value-xs[i-1].Value)*local
	}
	return xs[len(xs)-1].Value
}

func clamp01(q float64) float64 {
	return math.Max(0, math.Min(1, q))
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
