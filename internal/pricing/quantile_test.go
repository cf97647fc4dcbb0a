package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuantileLinearInterpolation(t *testing.T) {
	values := []float64{10, 20, 30}
	assert.Equal(t, 15.0, Quantile(values, 0.25))
	assert.Equal(t, 20.0, Quantile(values, 0.50))
	assert.Equal(t, 25.0, Quantile(values, 0.75))

	assert.Equal(t, 2.5, Quantile([]float64{1, 2, 3, 4}, 0.5))
	assert.Equal(t, 7.0, Quantile([]float64{7}, 0.5))
	assert.Equal(t, 0.0, Quantile(nil, 0.5))
}

func TestQuantileDoesNotMutateInput(t *testing.T) {
	values := []float64{3, 1, 2}
	Quantile(values, 0.5)
	assert.Equal(t, []float64{3, 1, 2}, values)
}

func TestWeightedQuantileEqualWeightsMatchesUnweighted(t *testing.T) {
	points := []WeightedPoint{
		{Value: 15, Weight: 1},
		{Value: 16, Weight: 1},
		{Value: 17, Weight: 1},
	}
	assert.InDelta(t, 15.25, WeightedQuantile(points, 0.25), 1e-9)
	assert.InDelta(t, 16.0, WeightedQuantile(points, 0.50), 1e-9)
	assert.InDelta(t, 16.75, WeightedQuantile(points, 0.75), 1e-9)
}

func TestWeightedQuantileHeavierWeightPullsMedian(t *testing.T) {
	points := []WeightedPoint{
		{Value: 10, Weight: 1},
		{Value: 20, Weight: 3},
	}
	assert.InDelta(t, 17.5, WeightedQuantile(points, 0.5), 1e-9)
}

func TestWeightedQuantileIgnoresInvalidPoints(t *testing.T) {
	points := []WeightedPoint{
		{Value: 10, Weight: 0},
		{Value: 99, Weight: -1},
		{Value: 20, Weight: 1},
	}
	assert.Equal(t, 20.0, WeightedQuantile(points, 0.5))
	assert.Equal(t, 0.0, WeightedQuantile(nil, 0.5))
}

func TestWeightedQuantileMonotonicInQ(t *testing.T) {
	points := []WeightedPoint{
		{Value: 12, Weight: 0.35},
		{Value: 18, Weight: 1},
		{Value: 19, Weight: 1},
		{Value: 21, Weight: 0.35},
		{Value: 24, Weight: 1},
		{Value: 40, Weight: 0.35},
	}
	prev := WeightedQuantile(points, 0)
	for i := 1; i <= 20; i++ {
		q := float64(i) / 20
		cur := WeightedQuantile(points, q)
		assert.GreaterOrEqual(t, cur, prev, "q=%v", q)
		prev = cur
	}
}

func TestWeightedQuantileClampsEnds(t *testing.T) {
	points := []WeightedPoint{
		{Value: 10, Weight: 1},
		{Value: 20, Weight: 1},
	}
	assert.Equal(t, 10.0, WeightedQuantile(points, 0.0))
	assert.Equal(t, 20.0, WeightedQuantile(points, 1.0))
}
