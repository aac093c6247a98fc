package replay

import (
	"context"
	"testing"
	"time"

	"github.com/rustyeddy/smacross/backtest"
	"github.com/rustyeddy/smacross/ledger"
	"github.com/rustyeddy/smacross/market"
	"github.com/rustyeddy/smacross/strategies"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func params() strategies.Params {
	return strategies.Params{
		Symbol:         "TEST",
		Timeframe:      "1d",
		ShortWindow:    2,
		LongWindow:     3,
		StopLossPct:    0.10,
		TakeProfitPct:  0.20,
		AllocationSize: 100,
	}
}

func TestReplayMatchesBacktest(t *testing.T) {
	bars := market.DailyBars(day0, 10, 10, 9, 11, 12, 8, 9, 11, 13, 12, 15, 11)

	var seen []ledger.TradeEvent
	live, err := Bars(context.Background(), params(), bars, Options{
		OnTrade: func(e ledger.TradeEvent) { seen = append(seen, e) },
	})
	require.NoError(t, err)

	res, err := backtest.Run(bars, backtest.Config{Params: params()})
	require.NoError(t, err)

	assert.Equal(t, res.Trades, live.Ledger().Events())
	assert.Equal(t, res.Trades, seen)
	assert.Equal(t, res.FinalState, live.State())
}

func TestReplayWithDelay(t *testing.T) {
	bars := market.DailyBars(day0, 10, 10, 9, 11, 12, 8)

	start := time.Now()
	live, err := Bars(context.Background(), params(), bars, Options{Delay: 5 * time.Millisecond})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)
	assert.Equal(t, 2, live.Ledger().Len())
}

func TestReplayCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	live, err := Bars(ctx, params(), market.DailyBars(day0, 10, 11), Options{})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, live)
	assert.Zero(t, live.Ledger().Len())
}

func TestReplayRejectsBadInput(t *testing.T) {
	p := params()
	p.ShortWindow = 0
	_, err := Bars(context.Background(), p, nil, Options{})
	assert.Error(t, err)

	bars := market.DailyBars(day0, 10, 11, 12)
	bars[2].Time = bars[0].Time
	_, err = Bars(context.Background(), params(), bars, Options{})
	assert.ErrorIs(t, err, market.ErrUnorderedSeries)
}
