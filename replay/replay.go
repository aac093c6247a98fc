// Package replay feeds a recorded bar series through the incremental
// strategy driver one bar at a time, the way a live feed would.
package replay

import (
	"context"
	"time"

	"github.com/rustyeddy/smacross/internal/logging"
	"github.com/rustyeddy/smacross/ledger"
	"github.com/rustyeddy/smacross/market"
	"github.com/rustyeddy/smacross/strategies"
)

// Options controls pacing and notification.
type Options struct {
	// Delay is waited between bars. Zero replays as fast as possible.
	Delay time.Duration

	// OnTrade, if set, is called for every trade as it happens.
	OnTrade func(ledger.TradeEvent)
}

// Bars replays bars through a fresh Live driver for p and returns it, so the
// caller can inspect the final state and ledger. Replay stops early when
// ctx is cancelled; the driver is returned with what was processed so far.
func Bars(ctx context.Context, p strategies.Params, bars []market.Bar, opts Options) (*strategies.Live, error) {
	live, err := strategies.NewLive(p)
	if err != nil {
		return nil, err
	}
	log := logging.For("replay").With("symbol", p.Symbol)

	var tick <-chan time.Time
	if opts.Delay > 0 {
		t := time.NewTicker(opts.Delay)
		defer t.Stop()
		tick = t.C
	}

	for i, b := range bars {
		if i > 0 && tick != nil {
			select {
			case <-ctx.Done():
				return live, ctx.Err()
			case <-tick:
			}
		} else if err := ctx.Err(); err != nil {
			return live, err
		}

		ev, err := live.OnBar(b)
		if err != nil {
			return live, err
		}
		if ev != nil && opts.OnTrade != nil {
			opts.OnTrade(*ev)
		}
	}

	buys, exits := live.Ledger().Counts()
	log.Info("replay complete", "bars", len(bars), "buys", buys, "exits", exits, "open", live.State().IsLong())
	return live, nil
}
