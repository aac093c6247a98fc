package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/smacross/ledger"
	"github.com/rustyeddy/smacross/replay"
)

var replayCmd = &cobra.Command{
	Use:   "replay <SYMBOL>",
	Short: "Replay a symbol's bars one at a time through the live driver",
	Long: `Replay historical bars for one symbol through the incremental strategy
driver, printing each trade as it happens. Uses the strategy section of the
configuration; --delay paces the feed like a live market.

Examples:
  smacross replay AAPL --data-dir ./data
  smacross replay TSLA -c smacross.yaml --delay 200ms`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

var (
	replayDataDir string
	replayDelay   time.Duration
)

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().StringVar(&replayDataDir, "data-dir", "", "directory holding <SYMBOL>_<timeframe>.csv (default backtest.data_dir)")
	replayCmd.Flags().DurationVar(&replayDelay, "delay", 0, "wait between bars, e.g. 250ms")
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	src, err := barSource(cfg, replayDataDir)
	if err != nil {
		return err
	}
	p := cfg.Params(args[0])

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	bars, err := src.Bars(ctx, p.Symbol, p.Timeframe)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	live, err := replay.Bars(ctx, p, bars, replay.Options{
		Delay: replayDelay,
		OnTrade: func(e ledger.TradeEvent) {
			fmt.Fprintf(out, "%s  %-15s %6d @ %.4f\n", e.Time.Format(time.RFC3339), e.Side, e.Quantity, e.Price)
		},
	})
	if err != nil {
		return err
	}

	buys, exits := live.Ledger().Counts()
	fmt.Fprintf(out, "%s: %d bars, %d entries, %d exits", p.Symbol, len(bars), buys, exits)
	if st := live.State(); st.IsLong() {
		fmt.Fprintf(out, ", open %d @ %.4f", st.Quantity, st.EntryPrice)
	}
	fmt.Fprintln(out)
	return nil
}
