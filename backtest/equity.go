package backtest

import (
	"math"
	"sort"
	"time"

	"github.com/rustyeddy/smacross/internal/logging"
	"github.com/rustyeddy/smacross/ledger"
	"github.com/rustyeddy/smacross/market"
	"github.com/shopspring/decimal"
)

// EquityPoint is the account at the close of one bar.
type EquityPoint struct {
	Time           time.Time `json:"timestamp"`
	Cash           float64   `json:"cash"`
	Quantity       int64     `json:"quantity"`
	MarkValue      float64   `json:"mark_value"`
	PortfolioValue float64   `json:"portfolio_value"`
}

// ReconstructEquity replays events against bars and returns one point per
// bar: cash plus quantity marked at the close.
//
// A BUY takes price×qty out of cash, any exit puts it back; the held
// quantity carries forward until the next trade. Cash is accumulated in
// decimal.
//
// An event whose timestamp is not a bar timestamp is moved to the nearest
// bar (ties go to the earlier bar) with a warning.
func ReconstructEquity(bars []market.Bar, events []ledger.TradeEvent, initialCapital float64) []EquityPoint {
	if len(bars) == 0 {
		return nil
	}

	times := market.Times(bars)
	byBar := make(map[int][]ledger.TradeEvent, len(events))
	for _, e := range events {
		idx, exact := nearestBar(times, e.Time)
		if !exact {
			logging.For("equity").Warn("trade timestamp not on a bar, snapping to nearest",
				"symbol", e.Symbol, "side", e.Side, "trade_time", e.Time, "bar_time", times[idx])
		}
		byBar[idx] = append(byBar[idx], e)
	}

	cash := decimal.NewFromFloat(initialCapital)
	var qty int64
	last := initialCapital

	out := make([]EquityPoint, len(bars))
	for i, b := range bars {
		for _, e := range byBar[i] {
			notional := decimal.NewFromFloat(e.Price).Mul(decimal.NewFromInt(e.Quantity))
			if e.Side == ledger.Buy {
				qty += e.Quantity
				cash = cash.Sub(notional)
			} else {
				qty -= e.Quantity
				cash = cash.Add(notional)
			}
		}

		c := cash.InexactFloat64()
		mark := float64(qty) * b.Close
		value := c + mark
		if math.IsNaN(value) {
			value = last
		}
		last = value

		out[i] = EquityPoint{
			Time:           b.Time,
			Cash:           c,
			Quantity:       qty,
			MarkValue:      mark,
			PortfolioValue: value,
		}
	}
	return out
}

// nearestBar returns the index of the bar at t, or of the closest bar by
// absolute distance with ties going to the earlier one. times must be
// sorted ascending and non-empty.
func nearestBar(times []time.Time, t time.Time) (idx int, exact bool) {
	i := sort.Search(len(times), func(i int) bool { return !times[i].Before(t) })
	if i < len(times) && times[i].Equal(t) {
		return i, true
	}
	switch {
	case i == 0:
		return 0, false
	case i == len(times):
		return len(times) - 1, false
	}
	before := t.Sub(times[i-1])
	after := times[i].Sub(t)
	if after < before {
		return i, false
	}
	return i - 1, false
}
