package cmd

import (
	"github.com/spf13/cobra"

	"github.com/rustyeddy/smacross/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the run journal as a JSON API",
	Long: `Serve recorded runs over HTTP:

  GET /runs                 runs, newest first
  GET /runs/:id             one run with config and metrics
  GET /runs/:id/trades      the run's trade ledger
  GET /runs/:id/bars        bars, when recorded with --save-bars
  GET /runs/:id/equity      the run's equity curve
  GET /healthz

Example:
  smacross serve --db smacross.db --addr :8000`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var (
	serveDBPath string
	serveAddr   string
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveDBPath, "db", "d", "", "path to SQLite journal (default journal.db_path)")
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dbPath := cfg.Journal.DBPath
	if serveDBPath != "" {
		dbPath = serveDBPath
	}
	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	j, err := openJournal(dbPath)
	if err != nil {
		return err
	}
	defer j.Close()

	srv, err := server.New(addr, j)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()
	return srv.Start(ctx)
}
