// Package backtest runs the crossover strategy over a historical series and
// scores the result.
package backtest

import (
	"fmt"
	"math"
	"time"

	"github.com/rustyeddy/smacross/internal/logging"
	"github.com/rustyeddy/smacross/ledger"
	"github.com/rustyeddy/smacross/market"
	"github.com/rustyeddy/smacross/strategies"
)

type Config struct {
	Params strategies.Params `json:"params"`

	// InitialCapital is the starting cash. Zero means Params.AllocationSize;
	// otherwise it must cover one allocation.
	InitialCapital float64 `json:"initial_capital,omitempty"`
}

// Capital resolves the starting cash.
func (c Config) Capital() float64 {
	if c.InitialCapital == 0 {
		return c.Params.AllocationSize
	}
	return c.InitialCapital
}

func (c Config) Validate() error {
	if err := c.Params.Validate(); err != nil {
		return err
	}
	if c.InitialCapital < 0 || math.IsNaN(c.InitialCapital) || math.IsInf(c.InitialCapital, 0) {
		return &strategies.ConfigurationError{Field: "initial_capital", Reason: "must be positive"}
	}
	// an entry spends up to AllocationSize; less cash would mean borrowing
	if c.InitialCapital != 0 && c.InitialCapital < c.Params.AllocationSize {
		return &strategies.ConfigurationError{
			Field:  "initial_capital",
			Reason: fmt.Sprintf("(%g) must be at least allocation_size (%g)", c.InitialCapital, c.Params.AllocationSize),
		}
	}
	return nil
}

// Result is everything one run produces. Trades is the unit of truth;
// Equity and Metrics are derived from it.
type Result struct {
	Config Config `json:"config"`

	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	Bars       []market.Bar             `json:"-"`
	Trades     []ledger.TradeEvent      `json:"trades"`
	Equity     []EquityPoint            `json:"-"`
	Metrics    Metrics                  `json:"metrics"`
	FinalState strategies.PositionState `json:"final_state"`

	// InsufficientData is set when the series is shorter than
	// long_window+1 bars; the ledger is then empty.
	InsufficientData bool `json:"insufficient_data,omitempty"`
}

func (r *Result) Symbol() string { return r.Config.Params.Symbol }

// Engine is a single-symbol batch backtest. An Engine owns no state beyond
// its inputs, so Run may be called repeatedly and returns identical results.
type Engine struct {
	bars []market.Bar
	cfg  Config
}

func NewEngine(bars []market.Bar, cfg Config) *Engine {
	return &Engine{bars: bars, cfg: cfg}
}

// Run validates the configuration and series, then folds every bar through
// the strategy, rebuilds the equity curve and computes metrics.
func (e *Engine) Run() (*Result, error) {
	p := e.cfg.Params
	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}
	if len(e.bars) > 0 {
		if err := market.ValidateSeries(e.bars); err != nil {
			return nil, fmt.Errorf("backtest %s: %w", p.Symbol, err)
		}
	}

	log := logging.For("backtest").With("symbol", p.Symbol, "timeframe", p.Timeframe)
	res := &Result{
		Config: e.cfg,
		Bars:   e.bars,
	}
	if n := len(e.bars); n > 0 {
		res.Start = e.bars[0].Time
		res.End = e.bars[n-1].Time
	}
	if len(e.bars) < p.MinBars() {
		res.InsufficientData = true
		log.Info("not enough bars for a signal", "bars", len(e.bars), "need", p.MinBars())
	}

	l := ledger.New(p.Symbol)
	var st strategies.PositionState
	for i, sig := range strategies.Signals(market.Closes(e.bars), p) {
		next, _, err := strategies.Apply(log, l, st, p, sig, e.bars[i])
		if err != nil {
			return nil, fmt.Errorf("backtest %s: %w", p.Symbol, err)
		}
		st = next
	}

	capital := e.cfg.Capital()
	res.Trades = l.Events()
	res.FinalState = st
	res.Equity = ReconstructEquity(e.bars, res.Trades, capital)
	res.Metrics = ComputeMetrics(res.Equity, capital, len(res.Trades))

	log.Info("backtest complete",
		"bars", len(e.bars),
		"trades", len(res.Trades),
		"final_value", res.Metrics.FinalPortfolioValue,
		"total_return", res.Metrics.TotalReturn)
	return res, nil
}

// Run is NewEngine(bars, cfg).Run().
func Run(bars []market.Bar, cfg Config) (*Result, error) {
	return NewEngine(bars, cfg).Run()
}
