package backtest

import (
	"math"
	"testing"
	"time"

	"github.com/rustyeddy/smacross/ledger"
	"github.com/rustyeddy/smacross/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wave(n int) []market.Bar {
	closes := make([]float64, n)
	for i := range closes {
		x := float64(i)
		closes[i] = 100 + 10*math.Sin(x/7) + 3*math.Sin(x/2.3) + 0.01*x
	}
	return market.DailyBars(day0, closes...)
}

func TestReconstructEquityFlatLedger(t *testing.T) {
	bars := market.DailyBars(day0, 10, 11, 12)
	eq := ReconstructEquity(bars, nil, 500)

	require.Len(t, eq, 3)
	for i, p := range eq {
		assert.True(t, p.Time.Equal(bars[i].Time))
		assert.Equal(t, 500.0, p.Cash)
		assert.Equal(t, int64(0), p.Quantity)
		assert.Equal(t, 500.0, p.PortfolioValue)
	}
	assert.Nil(t, ReconstructEquity(nil, nil, 500))
}

func TestReconstructEquityMarksOpenPosition(t *testing.T) {
	bars := market.DailyBars(day0, 10, 10, 12, 9)
	events := []ledger.TradeEvent{
		{Time: bars[1].Time, Symbol: "T", Side: ledger.Buy, Price: 10, Quantity: 5},
	}
	eq := ReconstructEquity(bars, events, 100)

	assert.Equal(t, 100.0, eq[0].PortfolioValue)
	assert.Equal(t, 50.0, eq[1].Cash)
	assert.Equal(t, 50.0, eq[1].MarkValue)
	assert.Equal(t, 110.0, eq[2].PortfolioValue)
	assert.Equal(t, 95.0, eq[3].PortfolioValue)
	assert.Equal(t, int64(5), eq[3].Quantity)
}

func TestReconstructEquityCashRoundTrip(t *testing.T) {
	cfg := testConfig()
	cfg.Params.ShortWindow, cfg.Params.LongWindow = 5, 20
	cfg.Params.StopLossPct, cfg.Params.TakeProfitPct = 0.03, 0.08
	cfg.Params.AllocationSize = 1000

	res, err := Run(wave(400), cfg)
	require.NoError(t, err)
	require.NotEmpty(t, res.Trades)

	want := cfg.Capital()
	var qty int64
	for _, e := range res.Trades {
		if e.Side == ledger.Buy {
			want -= e.Notional()
			qty += e.Quantity
		} else {
			want += e.Notional()
			qty -= e.Quantity
		}
	}

	last := res.Equity[len(res.Equity)-1]
	assert.InDelta(t, want, last.Cash, 1e-6)
	assert.Equal(t, qty, last.Quantity)
	assert.InDelta(t, last.Cash+float64(qty)*res.Bars[len(res.Bars)-1].Close, last.PortfolioValue, 1e-9)
}

func TestReconstructEquitySnapsToNearestBar(t *testing.T) {
	bars := market.DailyBars(day0, 10, 10, 10, 10, 10)
	events := []ledger.TradeEvent{
		// exactly between bar 1 and bar 2: earlier bar wins
		{Time: bars[1].Time.Add(12 * time.Hour), Symbol: "T", Side: ledger.Buy, Price: 10, Quantity: 5},
		{Time: bars[3].Time.Add(13 * time.Hour), Symbol: "T", Side: ledger.Sell, Price: 10, Quantity: 5},
	}
	eq := ReconstructEquity(bars, events, 100)

	assert.Equal(t, int64(0), eq[0].Quantity)
	assert.Equal(t, int64(5), eq[1].Quantity)
	assert.Equal(t, 50.0, eq[1].Cash)
	assert.Equal(t, int64(5), eq[3].Quantity)
	assert.Equal(t, int64(0), eq[4].Quantity)
	assert.Equal(t, 100.0, eq[4].Cash)
}

func TestNearestBar(t *testing.T) {
	times := market.Times(market.DailyBars(day0, 1, 1, 1))
	tests := []struct {
		name  string
		t     time.Time
		idx   int
		exact bool
	}{
		{"exact first", day0, 0, true},
		{"exact last", day0.AddDate(0, 0, 2), 2, true},
		{"before range", day0.Add(-time.Hour), 0, false},
		{"after range", day0.AddDate(0, 0, 5), 2, false},
		{"closer to next", day0.Add(20 * time.Hour), 1, false},
		{"closer to prev", day0.Add(3 * time.Hour), 0, false},
		{"tie", day0.Add(12 * time.Hour), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, exact := nearestBar(times, tt.t)
			assert.Equal(t, tt.idx, idx)
			assert.Equal(t, tt.exact, exact)
		})
	}
}
