package strategies

import (
	"fmt"
	"math"
	"time"

	"github.com/rustyeddy/smacross/indicators"
	"github.com/rustyeddy/smacross/internal/logging"
	"github.com/rustyeddy/smacross/ledger"
	"github.com/rustyeddy/smacross/market"
)

// Live drives the crossover rule one bar at a time, for a paper or live
// trading loop that receives closed bars from a feed. It keeps the close
// history it needs and emits the same TradeEvents as the batch backtester
// would for the same series.
//
// Live is not safe for concurrent use; run one per symbol.
type Live struct {
	params Params

	closes []float64
	last   time.Time

	state  PositionState
	ledger *ledger.Ledger
}

func NewLive(p Params) (*Live, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Live{
		params: p,
		ledger: ledger.New(p.Symbol),
	}, nil
}

// OnBar consumes the next closed bar and returns the trade it caused, if
// any. Bars must arrive in strictly increasing time order.
func (l *Live) OnBar(bar market.Bar) (*ledger.TradeEvent, error) {
	if bar.Close <= 0 || math.IsNaN(bar.Close) || math.IsInf(bar.Close, 0) {
		return nil, fmt.Errorf("%s: %w", bar.Time.Format(time.RFC3339), market.ErrBadPrice)
	}
	if !l.last.IsZero() && !bar.Time.After(l.last) {
		return nil, fmt.Errorf("%s: %w", bar.Time.Format(time.RFC3339), market.ErrUnorderedSeries)
	}
	l.last = bar.Time

	l.closes = append(l.closes, bar.Close)
	l.trim()

	sig := lastSignal(l.closes, l.params)

	next, ev, err := Apply(logging.For("live"), l.ledger, l.state, l.params, sig, bar)
	if err != nil {
		return nil, err
	}
	l.state = next
	return ev, nil
}

// trim keeps only what the next signal needs. An SMA only looks at its
// window; an EMA depends on the whole history so nothing is dropped.
func (l *Live) trim() {
	if l.params.MAType == indicators.EMAType {
		return
	}
	keep := l.params.MinBars()
	if n := len(l.closes); n > keep {
		l.closes = append(l.closes[:0], l.closes[n-keep:]...)
	}
}

func (l *Live) State() PositionState { return l.state }

func (l *Live) Ledger() *ledger.Ledger { return l.ledger }

func (l *Live) Params() Params { return l.params }
