package backtest

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/rustyeddy/smacross/internal/logging"
	"github.com/rustyeddy/smacross/market"
	"golang.org/x/sync/errgroup"
)

// Recorder persists a finished run and returns an identifier for it
// (a database row id or a file path).
type Recorder interface {
	RecordRun(ctx context.Context, res *Result) (string, error)
}

// RunOutcome is the result of one symbol in a multi-symbol run.
type RunOutcome struct {
	Symbol string
	Result *Result
	Err    error

	// RunIDs holds one identifier per Recorder that succeeded.
	RunIDs []string
	// PersistErr is set when any Recorder failed. The run itself still counts.
	PersistErr error
}

// Runner backtests a list of symbols against one parameter set. Each
// symbol runs in its own goroutine with its own engine state.
type Runner struct {
	Source    market.BarSource
	Recorders []Recorder

	// Concurrency caps the number of symbols in flight. Zero means GOMAXPROCS.
	Concurrency int
}

// Run loads bars and backtests every symbol. Outcomes are returned in the
// order of symbols. A failing symbol does not stop the others; the returned
// error joins every per-symbol failure. Recorder failures are logged and
// attached to the outcome but are not returned as errors.
func (r *Runner) Run(ctx context.Context, base Config, symbols []string) ([]RunOutcome, error) {
	if r.Source == nil {
		return nil, fmt.Errorf("backtest: Source is required")
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("backtest: no symbols")
	}

	cfgs := make([]Config, len(symbols))
	for i, sym := range symbols {
		cfgs[i] = base
		cfgs[i].Params.Symbol = sym
		if err := cfgs[i].Validate(); err != nil {
			return nil, err
		}
	}

	log := logging.For("runner")
	limit := r.Concurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	outcomes := make([]RunOutcome, len(symbols))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i := range symbols {
		g.Go(func() error {
			// Per-symbol failures are kept on the outcome; only
			// cancellation of the parent stops the group.
			outcomes[i] = r.runOne(gctx, cfgs[i])
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return outcomes, err
	}

	var errs []error
	for _, o := range outcomes {
		if o.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", o.Symbol, o.Err))
		}
	}
	log.Info("runner finished", "symbols", len(symbols), "failed", len(errs))
	return outcomes, errors.Join(errs...)
}

func (r *Runner) runOne(ctx context.Context, cfg Config) RunOutcome {
	sym := cfg.Params.Symbol
	out := RunOutcome{Symbol: sym}
	log := logging.For("runner").With("symbol", sym)

	if err := ctx.Err(); err != nil {
		out.Err = err
		return out
	}

	bars, err := r.Source.Bars(ctx, sym, cfg.Params.Timeframe)
	if err != nil {
		log.Error("load bars", "err", err)
		out.Err = err
		return out
	}

	res, err := NewEngine(bars, cfg).Run()
	if err != nil {
		log.Error("backtest failed", "err", err)
		out.Err = err
		return out
	}
	out.Result = res

	var perrs []error
	for _, rec := range r.Recorders {
		id, err := rec.RecordRun(ctx, res)
		if err != nil {
			log.Warn("persist run failed", "err", err)
			perrs = append(perrs, err)
			continue
		}
		out.RunIDs = append(out.RunIDs, id)
	}
	out.PersistErr = errors.Join(perrs...)
	return out
}
