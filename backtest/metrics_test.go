package backtest

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func curve(values ...float64) []EquityPoint {
	out := make([]EquityPoint, len(values))
	for i, v := range values {
		out[i] = EquityPoint{Time: day0.AddDate(0, 0, i), Cash: v, PortfolioValue: v}
	}
	return out
}

func TestMaxDrawdown(t *testing.T) {
	assert.InDelta(t, -0.25, MaxDrawdown([]float64{100, 120, 90, 130}), 1e-12)
	assert.Equal(t, 0.0, MaxDrawdown([]float64{100, 100, 101, 150}))
	assert.Equal(t, 0.0, MaxDrawdown(nil))

	for _, b := range []int{50, 200, 400} {
		assert.LessOrEqual(t, MaxDrawdown(closesOf(b)), 0.0)
	}
}

func closesOf(n int) []float64 {
	bars := wave(n)
	out := make([]float64, n)
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

func TestReturns(t *testing.T) {
	assert.Nil(t, Returns([]float64{100}))
	got := Returns([]float64{100, 110, 99})
	require.Len(t, got, 2)
	assert.InDelta(t, 0.10, got[0], 1e-12)
	assert.InDelta(t, -0.10, got[1], 1e-12)
}

func TestSharpe(t *testing.T) {
	s, ok := Sharpe([]float64{0.01, -0.01, 0.02}, TradingDaysPerYear)
	require.True(t, ok)
	assert.InDelta(t, 4*math.Sqrt(3), s, 1e-9)

	_, ok = Sharpe([]float64{0.01}, TradingDaysPerYear)
	assert.False(t, ok)

	_, ok = Sharpe([]float64{0, 0, 0}, TradingDaysPerYear)
	assert.False(t, ok)
}

func TestComputeMetricsFlatCurve(t *testing.T) {
	m := ComputeMetrics(curve(100, 100, 100, 100), 100, 0)

	assert.Equal(t, 100.0, m.FinalPortfolioValue)
	assert.Equal(t, 0.0, m.TotalReturn)
	assert.Equal(t, 0.0, m.MaxDrawdown)
	assert.Nil(t, m.SharpeRatio)
	require.NotNil(t, m.AnnualizedReturn)
	assert.Equal(t, 0.0, *m.AnnualizedReturn)
}

func TestComputeMetricsSingleBar(t *testing.T) {
	m := ComputeMetrics(curve(100), 100, 0)
	assert.Nil(t, m.AnnualizedReturn)
	assert.Nil(t, m.SharpeRatio)
}

func TestComputeMetricsAnnualized(t *testing.T) {
	eq := curve(100, 110)
	eq[1].Time = day0.AddDate(0, 0, 365)
	m := ComputeMetrics(eq, 100, 2)

	assert.InDelta(t, 0.10, m.TotalReturn, 1e-12)
	require.NotNil(t, m.AnnualizedReturn)
	assert.InDelta(t, 0.10, *m.AnnualizedReturn, 1e-12)
	assert.Equal(t, 2, m.NumberOfTrades)
}

func TestComputeMetricsDropsNonFiniteValues(t *testing.T) {
	// a curve that ends below zero has no real annualized return
	m := ComputeMetrics(curve(100, 50, -220, -220), 100, 2)

	assert.InDelta(t, -3.2, m.TotalReturn, 1e-12)
	assert.Nil(t, m.AnnualizedReturn)
	if m.SharpeRatio != nil {
		assert.False(t, math.IsNaN(*m.SharpeRatio))
	}

	_, err := json.Marshal(m)
	assert.NoError(t, err)
}

func TestFinite(t *testing.T) {
	assert.Nil(t, finite(math.NaN()))
	assert.Nil(t, finite(math.Inf(1)))
	assert.Nil(t, finite(math.Inf(-1)))
	require.NotNil(t, finite(0.5))
	assert.Equal(t, 0.5, *finite(0.5))
}

func TestElapsedDays(t *testing.T) {
	assert.Equal(t, 0, ElapsedDays(day0, day0.Add(23*time.Hour)))
	assert.Equal(t, 3, ElapsedDays(day0, day0.AddDate(0, 0, 3)))
}
