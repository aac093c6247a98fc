package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/smacross/config"
	"github.com/rustyeddy/smacross/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "smacross",
	Short: "Moving-average crossover backtester",
	Long: `smacross backtests a long-only moving-average crossover strategy with
stop-loss and take-profit exits over daily or intraday bars.

It provides tools for:
  - Running one parameter set over many symbols concurrently
  - Recording runs, trades and equity curves in a SQLite journal
  - Exporting metrics and trade ledgers as JSON and CSV
  - Serving the journal as a JSON API for charting`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if logLevel != "" {
			logging.SetLevel(logLevel)
		}
	},
}

var (
	cfgFile  string
	logLevel string
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides log.level)")
}

// loadConfig reads --config (or defaults plus SMACROSS_* env) and applies
// the configured log level unless --log-level was given.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if logLevel == "" {
		logging.SetLevel(cfg.Log.Level)
	}
	return cfg, nil
}

// signalContext is cancelled on SIGINT/SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
