package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/smacross/journal"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Query recorded backtest runs",
	Long: `Query backtest runs stored in the SQLite journal.

Subcommands:
  list            - List runs, newest first
  show <run-id>   - Print a run as an Org-mode entry
  trades <run-id> - Print a run's trades as CSV
  delete <run-id> - Remove a run and its trades, bars and equity

Examples:
  smacross runs list --db smacross.db
  smacross runs show 01HV3K8Y6N5Q0J8M2W1Z4R7T9C`,
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs",
	Args:  cobra.NoArgs,
	RunE:  runRunsList,
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a run as an Org-mode entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

var runsTradesCmd = &cobra.Command{
	Use:   "trades <run-id>",
	Short: "Print a run's trades as CSV",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsTrades,
}

var runsDeleteCmd = &cobra.Command{
	Use:   "delete <run-id>",
	Short: "Delete a run",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsDelete,
}

var runsDBPath string

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsTradesCmd)
	runsCmd.AddCommand(runsDeleteCmd)

	runsCmd.PersistentFlags().StringVarP(&runsDBPath, "db", "d", "", "path to SQLite journal (default journal.db_path)")
}

func openJournal(flagPath string) (*journal.SQLite, error) {
	path := flagPath
	if path == "" {
		cfg, err := loadConfig()
		if err != nil {
			return nil, err
		}
		path = cfg.Journal.DBPath
	}
	j, err := journal.NewSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return j, nil
}

func runRunsList(cmd *cobra.Command, args []string) error {
	j, err := openJournal(runsDBPath)
	if err != nil {
		return err
	}
	defer j.Close()

	runs, err := j.ListRuns(cmd.Context())
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSYMBOL\tTF\tTRADES\tRETURN\tMAX DD\tCREATED")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.2f%%\t%.2f%%\t%s\n",
			r.ID, r.Symbol, r.Timeframe, r.Metrics.NumberOfTrades,
			r.Metrics.TotalReturn*100, r.Metrics.MaxDrawdown*100,
			r.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	j, err := openJournal(runsDBPath)
	if err != nil {
		return err
	}
	defer j.Close()

	run, err := j.GetRun(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("get run: %w", err)
	}
	trades, err := j.ListTrades(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("list trades: %w", err)
	}

	org, err := journal.FormatRunOrg(run, trades)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), org)
	return nil
}

func runRunsTrades(cmd *cobra.Command, args []string) error {
	j, err := openJournal(runsDBPath)
	if err != nil {
		return err
	}
	defer j.Close()

	trades, err := j.ListTrades(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("list trades: %w", err)
	}
	return journal.WriteTradesCSV(cmd.OutOrStdout(), trades)
}

func runRunsDelete(cmd *cobra.Command, args []string) error {
	j, err := openJournal(runsDBPath)
	if err != nil {
		return err
	}
	defer j.Close()

	if err := j.DeleteRun(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", args[0])
	return nil
}
