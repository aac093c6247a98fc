// Package strategies implements the moving-average crossover rule with
// stop-loss and take-profit exits.
//
// The rule is a pure transition function, Step, from (PositionState, Signal,
// Bar) to a new PositionState and at most one trade. The batch backtester
// folds it over a whole series; Live calls it once per incoming bar.
package strategies

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/rustyeddy/smacross/ledger"
	"github.com/rustyeddy/smacross/market"
)

type Status int

const (
	Flat Status = iota
	Long
)

func (s Status) String() string {
	if s == Long {
		return "LONG"
	}
	return "FLAT"
}

// PositionState is the one position a run may hold. EntryPrice and Quantity
// are only meaningful while Long and are cleared together on exit.
type PositionState struct {
	Status     Status  `json:"status"`
	EntryPrice float64 `json:"entry_price,omitempty"`
	Quantity   int64   `json:"quantity"`
}

func (s PositionState) IsLong() bool { return s.Status == Long }

// Outcome says what Step did, for logging and tests.
type Outcome int

const (
	Held Outcome = iota
	Entered
	Exited
	SkippedNoCapital
)

func (o Outcome) String() string {
	switch o {
	case Entered:
		return "entered"
	case Exited:
		return "exited"
	case SkippedNoCapital:
		return "skipped-no-capital"
	default:
		return "held"
	}
}

// Quantity is floor(allocation / price).
func Quantity(allocation, price float64) int64 {
	if price <= 0 {
		return 0
	}
	return int64(math.Floor(allocation / price))
}

// Unrealized is the fractional move of price from entry.
func Unrealized(entry, price float64) float64 {
	return (price - entry) / entry
}

// Step applies one bar. Conditions are checked in a fixed priority order
// since several can hold on the same bar:
//
//  1. flat + bullish cross: buy floor(allocation/close); zero quantity is a no-op
//  2. long + bearish cross: sell (after 3 when p.RiskExitsFirst)
//  3. long: unrealized <= -stop_loss sells at stop, >= take_profit sells at target
//
// Comparisons are inclusive. The bar's close is the fill price.
func Step(st PositionState, p Params, sig Signal, bar market.Bar) (PositionState, *ledger.TradeEvent, Outcome) {
	price := bar.Close

	if !st.IsLong() {
		if sig != BullishCross {
			return st, nil, Held
		}
		qty := Quantity(p.AllocationSize, price)
		if qty == 0 {
			return st, nil, SkippedNoCapital
		}
		next := PositionState{Status: Long, EntryPrice: price, Quantity: qty}
		return next, event(p, bar, ledger.Buy, qty), Entered
	}

	if sig == BearishCross && !p.RiskExitsFirst {
		return exit(st, p, bar, ledger.Sell)
	}

	u := Unrealized(st.EntryPrice, price)
	switch {
	case u <= -p.StopLossPct:
		return exit(st, p, bar, ledger.SellStopLoss)
	case u >= p.TakeProfitPct:
		return exit(st, p, bar, ledger.SellTakeProfit)
	case sig == BearishCross:
		return exit(st, p, bar, ledger.Sell)
	}
	return st, nil, Held
}

func exit(st PositionState, p Params, bar market.Bar, side ledger.Side) (PositionState, *ledger.TradeEvent, Outcome) {
	return PositionState{Status: Flat}, event(p, bar, side, st.Quantity), Exited
}

func event(p Params, bar market.Bar, side ledger.Side, qty int64) *ledger.TradeEvent {
	return &ledger.TradeEvent{
		Time:     bar.Time,
		Symbol:   p.Symbol,
		Side:     side,
		Price:    bar.Close,
		Quantity: qty,
	}
}

// Apply runs Step, appends any trade to l and logs the transition. Both the
// batch engine and Live go through here.
func Apply(log *slog.Logger, l *ledger.Ledger, st PositionState, p Params, sig Signal, bar market.Bar) (PositionState, *ledger.TradeEvent, error) {
	prev := st
	next, ev, outcome := Step(st, p, sig, bar)

	switch outcome {
	case SkippedNoCapital:
		log.Warn("insufficient capital, skipping buy",
			"symbol", p.Symbol, "time", bar.Time, "price", bar.Close, "allocation", p.AllocationSize)
	case Entered, Exited:
		if err := l.Append(*ev); err != nil {
			return prev, nil, fmt.Errorf("%s at %s: %w", ev.Side, bar.Time, err)
		}
		args := []any{"symbol", ev.Symbol, "side", ev.Side, "qty", ev.Quantity, "price", ev.Price, "time", ev.Time}
		if outcome == Exited {
			args = append(args, "entry", prev.EntryPrice, "unrealized", Unrealized(prev.EntryPrice, bar.Close))
		}
		log.Debug("trade", args...)
	}
	return next, ev, nil
}
