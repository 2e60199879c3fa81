package strategy

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowEvictsOldest(t *testing.T) {
	w := NewWindow(3)
	assert.False(t, w.Full())
	assert.Zero(t, w.Last())

	for _, v := range []float64{1, 2, 3, 4} {
		w.Push(v)
	}

	require.True(t, w.Full())
	assert.Equal(t, 3, w.Len())
	assert.Equal(t, []float64{2, 3, 4}, w.Values())
	assert.Equal(t, 4.0, w.Last())
	assert.Equal(t, 3.0, w.At(1))
	assert.Equal(t, 2.0, w.At(2))
}

func TestWindowStats(t *testing.T) {
	w := NewWindow(4)
	for _, v := range []float64{2, 4, 4, 6} {
		w.Push(v)
	}
	assert.InDelta(t, 4, w.Mean(), 1e-12)
	// Population stddev of {2,4,4,6} is sqrt(2).
	assert.InDelta(t, math.Sqrt(2), w.StdDev(), 1e-12)

	assert.Equal(t, []float64{4, 6}, w.Tail(2))
	assert.Equal(t, []float64{2, 4, 4, 6}, w.Tail(10))
}

func TestEMASeriesSeedsWithFirstValue(t *testing.T) {
	s := emaSeries([]float64{10, 20}, 3)
	require.Len(t, s, 2)
	assert.Equal(t, 10.0, s[0])
	// alpha = 2/(3+1) = 0.5 -> 0.5*20 + 0.5*10.
	assert.InDelta(t, 15, s[1], 1e-12)

	assert.InDelta(t, 15, ema([]float64{10, 20}, 3), 1e-12)
	assert.Zero(t, ema(nil, 3))
}

func TestDiffs(t *testing.T) {
	assert.Nil(t, diffs([]float64{1}))
	assert.Equal(t, []float64{1, -3}, diffs([]float64{2, 3, 0}))
}

func TestSmoothedRSIBounds(t *testing.T) {
	assert.Equal(t, 50.0, smoothedRSI([]float64{1}, 14), "no differences defaults to neutral")

	up := smoothedRSI([]float64{1, 2, 3, 4, 5}, 4)
	down := smoothedRSI([]float64{5, 4, 3, 2, 1}, 4)
	assert.Greater(t, up, down, "rising series scores above falling series")
	assert.Greater(t, up, 0.0)
	assert.Less(t, down, 0.0)

	// Flat differences mean zero relative strength.
	flat := smoothedRSI([]float64{3, 3, 3, 3}, 4)
	assert.InDelta(t, 0, flat, 1e-6)
}

func TestParamHelpersTolerateTOMLTypes(t *testing.T) {
	params := map[string]any{
		"f64":    2.5,
		"i64":    int64(7),
		"int":    3,
		"string": "nope",
	}
	assert.Equal(t, 2.5, paramFloat(params, "f64", 0))
	assert.Equal(t, 7.0, paramFloat(params, "i64", 0))
	assert.Equal(t, 1.5, paramFloat(params, "missing", 1.5))
	assert.Equal(t, 9.0, paramFloat(params, "string", 9))

	assert.Equal(t, 7, paramInt(params, "i64", 0))
	assert.Equal(t, 3, paramInt(params, "int", 0))
	assert.Equal(t, 2, paramInt(params, "f64", 0))
	assert.Equal(t, 4, paramInt(params, "missing", 4))
}

func TestCrossPairs(t *testing.T) {
	cfg := Config{
		Reference: "fiat",
		Pairs:     []string{"a/fiat", "b/fiat", "weird"},
	}
	assert.ElementsMatch(t, []string{"a/b", "b/a"}, crossPairs(cfg))
}

func TestConfigQty(t *testing.T) {
	cfg := Config{
		Quantities: map[string]float64{"a/fiat": 2},
		Params:     map[string]any{"order_qty": 0.5},
	}
	assert.Equal(t, 2.0, cfg.Qty("a/fiat"))
	assert.Equal(t, 0.5, cfg.Qty("b/fiat"))
	assert.Equal(t, 0.01, Config{}.Qty("b/fiat"))
}
