package backtest

import (
	"math"
	"time"
)

// TradingDaysPerYear annualizes the Sharpe ratio of per-bar returns.
const TradingDaysPerYear = 252

// Metrics summarises one run. AnnualizedReturn and SharpeRatio are nil
// when undefined (zero elapsed days, zero volatility, non-finite result).
type Metrics struct {
	InitialCapital      float64  `json:"initial_capital"`
	FinalPortfolioValue float64  `json:"final_portfolio_value"`
	TotalReturn         float64  `json:"total_return"`
	AnnualizedReturn    *float64 `json:"annualized_return"`
	MaxDrawdown         float64  `json:"max_drawdown"`
	SharpeRatio         *float64 `json:"sharpe_ratio"`
	NumberOfTrades      int      `json:"number_of_trades"`
}

// ComputeMetrics derives Metrics from the equity curve and the ledger size.
func ComputeMetrics(equity []EquityPoint, initialCapital float64, trades int) Metrics {
	m := Metrics{
		InitialCapital:      initialCapital,
		FinalPortfolioValue: initialCapital,
		NumberOfTrades:      trades,
	}
	if len(equity) == 0 {
		return m
	}

	values := make([]float64, len(equity))
	for i, p := range equity {
		values[i] = p.PortfolioValue
	}

	m.FinalPortfolioValue = values[len(values)-1]
	if initialCapital > 0 {
		m.TotalReturn = m.FinalPortfolioValue/initialCapital - 1
	}

	days := ElapsedDays(equity[0].Time, equity[len(equity)-1].Time)
	if days > 0 {
		m.AnnualizedReturn = finite(math.Pow(1+m.TotalReturn, 365.0/float64(days)) - 1)
	}

	m.MaxDrawdown = MaxDrawdown(values)

	if s, ok := Sharpe(Returns(values), TradingDaysPerYear); ok {
		m.SharpeRatio = finite(s)
	}
	return m
}

// finite returns &v, or nil for NaN and ±Inf so Metrics always marshals.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// ElapsedDays is the whole-day span from first to last.
func ElapsedDays(first, last time.Time) int {
	return int(last.Sub(first) / (24 * time.Hour))
}

// MaxDrawdown is min over t of (v[t]-peak[t])/peak[t]. It is never
// positive and is 0 for a curve that never falls below its running peak.
func MaxDrawdown(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	peak := values[0]
	dd := 0.0
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak <= 0 {
			continue
		}
		if d := (v - peak) / peak; d < dd {
			dd = d
		}
	}
	return dd
}

// Returns are the simple per-bar returns v[t]/v[t-1]-1. Steps from a zero
// value are skipped.
func Returns(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] == 0 {
			continue
		}
		out = append(out, values[i]/values[i-1]-1)
	}
	return out
}

// Sharpe is mean/stdev × sqrt(periods) with a zero risk-free rate and the
// sample standard deviation. ok is false when fewer than two returns exist
// or the deviation is zero.
func Sharpe(returns []float64, periods int) (float64, bool) {
	n := len(returns)
	if n < 2 {
		return 0, false
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(n)

	ss := 0.0
	for _, r := range returns {
		d := r - mean
		ss += d * d
	}
	sd := math.Sqrt(ss / float64(n-1))
	if sd == 0 || math.IsNaN(sd) {
		return 0, false
	}
	return mean / sd * math.Sqrt(float64(periods)), true
}
