package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/smacross/backtest"
	"github.com/rustyeddy/smacross/config"
	"github.com/rustyeddy/smacross/journal"
	"github.com/rustyeddy/smacross/market"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Backtest the crossover strategy over one or more symbols",
	Long: `Run the moving-average crossover strategy over CSV bars for each symbol.

Bars are read from <data-dir>/<SYMBOL>_<timeframe>.csv. Every symbol runs
concurrently with the same parameters; finished runs go to the journal.

Examples:
  smacross backtest --symbols AAPL,MSFT --data-dir ./data
  smacross backtest -c smacross.yaml --short 10 --long 30 --ma ema
  smacross backtest --symbols TSLA --journal none --json`,
	RunE: runBacktest,
}

var (
	btSymbols        []string
	btDataDir        string
	btFrom, btTo     string
	btShort, btLong  int
	btStop, btTake   float64
	btSize, btCap    float64
	btTimeframe      string
	btMA             string
	btRiskExitsFirst bool
	btJournal        string
	btDB, btOutDir   string
	btSaveBars       bool
	btConcurrency    int
	btJSON           bool
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	f := backtestCmd.Flags()
	f.StringSliceVar(&btSymbols, "symbols", nil, "comma separated symbols")
	f.StringVar(&btDataDir, "data-dir", "", "directory holding <SYMBOL>_<timeframe>.csv files")
	f.StringVar(&btFrom, "from", "", "first bar date, inclusive (YYYY-MM-DD)")
	f.StringVar(&btTo, "to", "", "last bar date, exclusive (YYYY-MM-DD)")
	f.IntVar(&btShort, "short", 0, "short moving-average window")
	f.IntVar(&btLong, "long", 0, "long moving-average window")
	f.Float64Var(&btStop, "stop-loss", 0, "stop-loss fraction, e.g. 0.01")
	f.Float64Var(&btTake, "take-profit", 0, "take-profit fraction, e.g. 0.5")
	f.Float64Var(&btSize, "size", 0, "cash allocated to each entry")
	f.Float64Var(&btCap, "capital", 0, "initial capital (default: --size)")
	f.StringVar(&btTimeframe, "timeframe", "", "bar timeframe, e.g. 1d or 1h")
	f.StringVar(&btMA, "ma", "", "moving average: sma or ema")
	f.BoolVar(&btRiskExitsFirst, "risk-exits-first", false, "check stop-loss/take-profit before the bearish cross")
	f.StringVar(&btJournal, "journal", "", "sqlite, csv, both or none")
	f.StringVar(&btDB, "db", "", "SQLite journal path")
	f.StringVar(&btOutDir, "out-dir", "", "directory for JSON/CSV results")
	f.BoolVar(&btSaveBars, "save-bars", false, "store bars in the journal")
	f.IntVar(&btConcurrency, "concurrency", 0, "symbols in flight (default GOMAXPROCS)")
	f.BoolVar(&btJSON, "json", false, "print metrics as JSON instead of a report")
}

// applyBacktestFlags overrides config values with flags the user set.
func applyBacktestFlags(cmd *cobra.Command, cfg *config.Config) {
	set := cmd.Flags().Changed
	if set("symbols") {
		cfg.Backtest.Symbols = btSymbols
	}
	if set("data-dir") {
		cfg.Backtest.DataDir = btDataDir
	}
	if set("from") {
		cfg.Backtest.From = btFrom
	}
	if set("to") {
		cfg.Backtest.To = btTo
	}
	if set("short") {
		cfg.Strategy.ShortWindow = btShort
	}
	if set("long") {
		cfg.Strategy.LongWindow = btLong
	}
	if set("stop-loss") {
		cfg.Strategy.StopLossPct = btStop
	}
	if set("take-profit") {
		cfg.Strategy.TakeProfitPct = btTake
	}
	if set("size") {
		cfg.Strategy.AllocationSize = btSize
	}
	if set("capital") {
		cfg.Backtest.InitialCapital = btCap
	}
	if set("timeframe") {
		cfg.Strategy.Timeframe = btTimeframe
	}
	if set("ma") {
		cfg.Strategy.MAType = btMA
	}
	if set("risk-exits-first") {
		cfg.Strategy.RiskExitsFirst = btRiskExitsFirst
	}
	if set("journal") {
		cfg.Journal.Type = btJournal
	}
	if set("db") {
		cfg.Journal.DBPath = btDB
	}
	if set("out-dir") {
		cfg.Journal.OutDir = btOutDir
	}
	if set("save-bars") {
		cfg.Journal.SaveBars = btSaveBars
	}
	if set("concurrency") {
		cfg.Backtest.Concurrency = btConcurrency
	}
}

// recorders opens the journal sinks selected by cfg. The returned func
// closes them.
func recorders(cfg *config.Config) ([]backtest.Recorder, func(), error) {
	var out []backtest.Recorder
	closer := func() {}

	t := cfg.Journal.Type
	if t == "sqlite" || t == "both" {
		j, err := journal.NewSQLite(cfg.Journal.DBPath)
		if err != nil {
			return nil, closer, fmt.Errorf("open journal: %w", err)
		}
		j.SaveBars = cfg.Journal.SaveBars
		out = append(out, j)
		closer = func() { j.Close() }
	}
	if t == "csv" || t == "both" {
		out = append(out, journal.NewFileExporter(cfg.Journal.OutDir))
	}
	return out, closer, nil
}

// barSource reads CSV bars from dir, or backtest.data_dir when dir is
// empty, limited to the configured date range.
func barSource(cfg *config.Config, dir string) (market.CSVSource, error) {
	from, to, err := cfg.Range()
	if err != nil {
		return market.CSVSource{}, fmt.Errorf("invalid config: %w", err)
	}
	if dir == "" {
		dir = cfg.Backtest.DataDir
	}
	return market.CSVSource{Dir: dir, From: from, To: to}, nil
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyBacktestFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	src, err := barSource(cfg, "")
	if err != nil {
		return err
	}
	recs, closeRecs, err := recorders(cfg)
	if err != nil {
		return err
	}
	defer closeRecs()

	runner := &backtest.Runner{
		Source:      src,
		Recorders:   recs,
		Concurrency: cfg.Backtest.Concurrency,
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	outcomes, runErr := runner.Run(ctx, cfg.BacktestConfig(), cfg.Symbols())
	if outcomes == nil {
		return runErr
	}

	out := cmd.OutOrStdout()
	if btJSON {
		if err := printOutcomesJSON(cmd, outcomes); err != nil {
			return err
		}
	} else {
		for _, o := range outcomes {
			backtest.PrintResult(out, o)
		}
	}

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
		}
	}
	if failed == len(outcomes) {
		return fmt.Errorf("all %d backtests failed: %w", failed, runErr)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if failed > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d symbols failed: %s\n", failed, len(outcomes), strings.ReplaceAll(runErr.Error(), "\n", "; "))
	}
	return nil
}

type outcomeJSON struct {
	Symbol           string            `json:"symbol"`
	Metrics          *backtest.Metrics `json:"metrics,omitempty"`
	InsufficientData bool              `json:"insufficient_data,omitempty"`
	RunIDs           []string          `json:"run_ids,omitempty"`
	Error            string            `json:"error,omitempty"`
}

func printOutcomesJSON(cmd *cobra.Command, outcomes []backtest.RunOutcome) error {
	rows := make([]outcomeJSON, 0, len(outcomes))
	for _, o := range outcomes {
		row := outcomeJSON{Symbol: o.Symbol, RunIDs: o.RunIDs}
		if o.Err != nil {
			row.Error = o.Err.Error()
		}
		if o.Result != nil {
			m := o.Result.Metrics
			row.Metrics = &m
			row.InsufficientData = o.Result.InsufficientData
		}
		rows = append(rows, row)
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}
