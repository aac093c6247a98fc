package strategies

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rustyeddy/smacross/indicators"
	"github.com/rustyeddy/smacross/ledger"
	"github.com/rustyeddy/smacross/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func testParams() Params {
	return Params{
		Symbol:         "TEST",
		Timeframe:      "1d",
		ShortWindow:    2,
		LongWindow:     3,
		StopLossPct:    0.10,
		TakeProfitPct:  0.20,
		AllocationSize: 100,
	}
}

// fold runs Signals + Step over bars the way a batch driver does.
func fold(t *testing.T, bars []market.Bar, p Params) []ledger.TradeEvent {
	t.Helper()
	var st PositionState
	var out []ledger.TradeEvent
	for i, sig := range Signals(market.Closes(bars), p) {
		var ev *ledger.TradeEvent
		st, ev, _ = Step(st, p, sig, bars[i])
		if ev != nil {
			out = append(out, *ev)
		}
	}
	return out
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*Params)
		field string
	}{
		{"valid", func(*Params) {}, ""},
		{"missing symbol", func(p *Params) { p.Symbol = " " }, "symbol"},
		{"missing timeframe", func(p *Params) { p.Timeframe = "" }, "timeframe"},
		{"zero short", func(p *Params) { p.ShortWindow = 0 }, "short_window"},
		{"negative long", func(p *Params) { p.LongWindow = -3 }, "long_window"},
		{"equal windows", func(p *Params) { p.ShortWindow = 3 }, "short_window"},
		{"inverted windows", func(p *Params) { p.ShortWindow, p.LongWindow = 5, 3 }, "short_window"},
		{"zero stop", func(p *Params) { p.StopLossPct = 0 }, "stop_loss_pct"},
		{"nan take", func(p *Params) { p.TakeProfitPct = math.NaN() }, "take_profit_pct"},
		{"negative size", func(p *Params) { p.AllocationSize = -1 }, "allocation_size"},
		{"inf size", func(p *Params) { p.AllocationSize = math.Inf(1) }, "allocation_size"},
		{"bad ma", func(p *Params) { p.MAType = "wma" }, "ma_type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testParams()
			tt.edit(&p)
			err := p.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var ce *ConfigurationError
			require.True(t, errors.As(err, &ce), "want ConfigurationError, got %v", err)
			assert.Equal(t, tt.field, ce.Field)
			assert.Contains(t, err.Error(), "invalid configuration")
		})
	}
}

func TestClassify(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		name           string
		ps, pl, cs, cl float64
		want           Signal
	}{
		{"bullish from equal", 10, 10, 11, 10, BullishCross},
		{"bullish from below", 9, 10, 11, 10, BullishCross},
		{"bearish from equal", 10, 10, 9, 10, BearishCross},
		{"bearish from above", 11, 10, 9, 10, BearishCross},
		{"stays above", 11, 10, 12, 10, None},
		{"touches", 9, 10, 10, 10, None},
		{"undefined prev", nan, 10, 11, 10, None},
		{"undefined cur", 9, 10, 11, nan, None},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.ps, tt.pl, tt.cs, tt.cl))
		})
	}
}

func TestSignalsScenario(t *testing.T) {
	closes := []float64{10, 10, 9, 11, 12, 8}
	got := SignalSeries(closes, testParams())

	assert.Equal(t, []Signal{None, None, None, None, BullishCross, BearishCross}, got)
}

func TestSignalsLazyAndRestartable(t *testing.T) {
	seq := Signals([]float64{10, 10, 9, 11, 12, 8}, testParams())

	var first []int
	for i := range seq {
		first = append(first, i)
		if i == 2 {
			break
		}
	}
	assert.Equal(t, []int{0, 1, 2}, first)

	n := 0
	for range seq {
		n++
	}
	assert.Equal(t, 6, n)
}

func TestSignalsShortSeries(t *testing.T) {
	for _, s := range SignalSeries([]float64{10, 11, 12}, testParams()) {
		assert.Equal(t, None, s)
	}
	assert.Empty(t, SignalSeries(nil, testParams()))
}

func TestScenarioDefaultOrderBearishCrossWins(t *testing.T) {
	bars := market.DailyBars(day0, 10, 10, 9, 11, 12, 8)
	events := fold(t, bars, testParams())

	require.Len(t, events, 2)
	assert.Equal(t, ledger.Buy, events[0].Side)
	assert.Equal(t, 12.0, events[0].Price)
	assert.Equal(t, int64(8), events[0].Quantity)
	assert.True(t, events[0].Time.Equal(bars[4].Time))

	assert.Equal(t, ledger.Sell, events[1].Side)
	assert.Equal(t, 8.0, events[1].Price)
	assert.Equal(t, int64(8), events[1].Quantity)
}

func TestScenarioRiskExitsFirstStopsOut(t *testing.T) {
	p := testParams()
	p.RiskExitsFirst = true
	bars := market.DailyBars(day0, 10, 10, 9, 11, 12, 8)
	events := fold(t, bars, p)

	require.Len(t, events, 2)
	assert.Equal(t, ledger.Buy, events[0].Side)
	assert.Equal(t, ledger.SellStopLoss, events[1].Side)
	assert.True(t, events[1].Time.Equal(bars[5].Time))
}

func TestStopLossWithoutBearishCross(t *testing.T) {
	bars := market.DailyBars(day0, 10, 10, 10, 13, 11.6)
	events := fold(t, bars, testParams())

	require.Len(t, events, 2)
	assert.Equal(t, ledger.Buy, events[0].Side)
	assert.Equal(t, int64(7), events[0].Quantity)
	assert.Equal(t, ledger.SellStopLoss, events[1].Side)
	assert.Equal(t, int64(7), events[1].Quantity)
}

func TestTakeProfit(t *testing.T) {
	bars := market.DailyBars(day0, 10, 10, 10, 12, 15)
	events := fold(t, bars, testParams())

	require.Len(t, events, 2)
	assert.Equal(t, ledger.SellTakeProfit, events[1].Side)
	assert.Equal(t, 15.0, events[1].Price)
}

func TestStepBoundariesAreInclusive(t *testing.T) {
	p := testParams()
	long := PositionState{Status: Long, EntryPrice: 10, Quantity: 10}

	st, ev, out := Step(long, p, None, market.Bar{Time: day0, Close: 9})
	require.NotNil(t, ev)
	assert.Equal(t, ledger.SellStopLoss, ev.Side)
	assert.Equal(t, Exited, out)
	assert.Equal(t, PositionState{Status: Flat}, st)

	_, ev, _ = Step(long, p, None, market.Bar{Time: day0, Close: 12})
	require.NotNil(t, ev)
	assert.Equal(t, ledger.SellTakeProfit, ev.Side)

	st, ev, out = Step(long, p, None, market.Bar{Time: day0, Close: 10.5})
	assert.Nil(t, ev)
	assert.Equal(t, Held, out)
	assert.Equal(t, long, st)
}

func TestStepIgnoresSignalsThatDoNotApply(t *testing.T) {
	p := testParams()
	flat := PositionState{}
	long := PositionState{Status: Long, EntryPrice: 10, Quantity: 10}

	st, ev, _ := Step(flat, p, BearishCross, market.Bar{Time: day0, Close: 10})
	assert.Nil(t, ev)
	assert.Equal(t, flat, st)

	st, ev, _ = Step(long, p, BullishCross, market.Bar{Time: day0, Close: 10})
	assert.Nil(t, ev)
	assert.Equal(t, long, st)
}

func TestStepInsufficientCapital(t *testing.T) {
	p := testParams()
	p.AllocationSize = 5

	st, ev, out := Step(PositionState{}, p, BullishCross, market.Bar{Time: day0, Close: 12})
	assert.Nil(t, ev)
	assert.Equal(t, SkippedNoCapital, out)
	assert.False(t, st.IsLong())
}

func TestQuantity(t *testing.T) {
	assert.Equal(t, int64(8), Quantity(100, 12))
	assert.Equal(t, int64(10), Quantity(100, 10))
	assert.Equal(t, int64(0), Quantity(100, 101))
	assert.Equal(t, int64(0), Quantity(100, 0))
}

func wave(n int) []market.Bar {
	closes := make([]float64, n)
	for i := range closes {
		x := float64(i)
		closes[i] = 100 + 10*math.Sin(x/7) + 3*math.Sin(x/2.3) + 0.01*x
	}
	return market.DailyBars(day0, closes...)
}

func TestLiveMatchesBatch(t *testing.T) {
	bars := wave(300)

	for _, kind := range []indicators.MAType{indicators.SMAType, indicators.EMAType} {
		t.Run(string(kind), func(t *testing.T) {
			p := testParams()
			p.ShortWindow, p.LongWindow = 5, 20
			p.StopLossPct, p.TakeProfitPct = 0.03, 0.08
			p.AllocationSize = 1000
			p.MAType = kind

			want := fold(t, bars, p)
			require.NotEmpty(t, want)

			live, err := NewLive(p)
			require.NoError(t, err)
			var got []ledger.TradeEvent
			for _, b := range bars {
				ev, err := live.OnBar(b)
				require.NoError(t, err)
				if ev != nil {
					got = append(got, *ev)
				}
			}

			assert.Equal(t, want, got)
			assert.Equal(t, want, live.Ledger().Events())

			buys, exits := live.Ledger().Counts()
			assert.True(t, buys == exits || buys == exits+1)
			assert.Equal(t, live.State().IsLong(), buys == exits+1)
		})
	}
}

func TestLiveRejectsBadBars(t *testing.T) {
	live, err := NewLive(testParams())
	require.NoError(t, err)

	_, err = live.OnBar(market.Bar{Time: day0, Close: 10})
	require.NoError(t, err)

	_, err = live.OnBar(market.Bar{Time: day0, Close: 10})
	assert.ErrorIs(t, err, market.ErrUnorderedSeries)

	_, err = live.OnBar(market.Bar{Time: day0.Add(time.Hour), Close: 0})
	assert.ErrorIs(t, err, market.ErrBadPrice)
}

func TestNewLiveValidates(t *testing.T) {
	p := testParams()
	p.LongWindow = 1
	_, err := NewLive(p)
	var ce *ConfigurationError
	assert.ErrorAs(t, err, &ce)
}
