// Package ledger records the trades a strategy run emits.
//
// A Ledger is append-only: events come out in bar order and are never edited
// or removed, so it is the single source of truth for rebuilding cash and
// holdings after the fact.
package ledger

import (
	"errors"
	"fmt"
	"time"
)

type Side string

const (
	Buy            Side = "BUY"
	Sell           Side = "SELL"
	SellStopLoss   Side = "SELL_STOPLOSS"
	SellTakeProfit Side = "SELL_TAKEPROFIT"
)

// IsExit reports whether s closes a position.
func (s Side) IsExit() bool {
	return s == Sell || s == SellStopLoss || s == SellTakeProfit
}

func (s Side) Valid() bool {
	return s == Buy || s.IsExit()
}

// TradeEvent is one fill. Quantity is always positive; Side gives direction.
type TradeEvent struct {
	Time     time.Time `json:"timestamp"`
	Symbol   string    `json:"symbol"`
	Side     Side      `json:"side"`
	Price    float64   `json:"price"`
	Quantity int64     `json:"qty"`
}

// Notional is price × quantity.
func (e TradeEvent) Notional() float64 {
	return e.Price * float64(e.Quantity)
}

var (
	ErrOutOfOrder  = errors.New("trade timestamp must be after the previous trade")
	ErrNotFlat     = errors.New("buy while a position is open")
	ErrNotLong     = errors.New("sell without an open position")
	ErrBadQuantity = errors.New("trade quantity must be positive")
	ErrUnknownSide = errors.New("unknown trade side")
	ErrWrongSymbol = errors.New("trade symbol does not match ledger")
	ErrQtyMismatch = errors.New("exit quantity must equal the open quantity")
)

// Ledger is the ordered trade sequence of one (symbol, run).
type Ledger struct {
	symbol  string
	events  []TradeEvent
	openQty int64
}

func New(symbol string) *Ledger {
	return &Ledger{symbol: symbol}
}

func (l *Ledger) Symbol() string { return l.symbol }

// Append adds e after checking the single-position invariants: a BUY only
// when flat, an exit only when long and for the full held quantity, and
// strictly increasing timestamps.
func (l *Ledger) Append(e TradeEvent) error {
	if !e.Side.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownSide, e.Side)
	}
	if e.Quantity <= 0 {
		return fmt.Errorf("%w: %d", ErrBadQuantity, e.Quantity)
	}
	if l.symbol != "" && e.Symbol != l.symbol {
		return fmt.Errorf("%w: %q != %q", ErrWrongSymbol, e.Symbol, l.symbol)
	}
	if n := len(l.events); n > 0 && !e.Time.After(l.events[n-1].Time) {
		return ErrOutOfOrder
	}

	switch {
	case e.Side == Buy && l.openQty != 0:
		return ErrNotFlat
	case e.Side.IsExit() && l.openQty == 0:
		return ErrNotLong
	case e.Side.IsExit() && e.Quantity != l.openQty:
		return fmt.Errorf("%w: sold %d of %d", ErrQtyMismatch, e.Quantity, l.openQty)
	}

	if e.Side == Buy {
		l.openQty = e.Quantity
	} else {
		l.openQty = 0
	}
	l.events = append(l.events, e)
	return nil
}

// Events returns a copy of the recorded events.
func (l *Ledger) Events() []TradeEvent {
	out := make([]TradeEvent, len(l.events))
	copy(out, l.events)
	return out
}

func (l *Ledger) Len() int { return len(l.events) }

// OpenQuantity is the quantity held after the last event.
func (l *Ledger) OpenQuantity() int64 { return l.openQty }

// Counts returns the number of BUY events and of exit events.
func (l *Ledger) Counts() (buys, exits int) {
	return CountSides(l.events)
}

// CountSides is Counts for a plain slice.
func CountSides(events []TradeEvent) (buys, exits int) {
	for _, e := range events {
		if e.Side == Buy {
			buys++
		} else if e.Side.IsExit() {
			exits++
		}
	}
	return buys, exits
}
