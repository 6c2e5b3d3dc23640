package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/velahq/vela/internal/app"
	"github.com/velahq/vela/internal/logger"
	"github.com/velahq/vela/internal/report"
	"github.com/velahq/vela/internal/storage/run"
	"go.uber.org/zap"
)

var (
	runsSymbol   string
	runsStrategy string
	runsLimit    int
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Manage archived backtest runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived runs",
	RunE:  runRunsList,
}

var runsShowCmd = &cobra.Command{
	Use:   "show [run-id]",
	Short: "Show one archived run in full",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

var runsDeleteCmd = &cobra.Command{
	Use:   "delete [run-id]",
	Short: "Delete an archived run",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsDelete,
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsDeleteCmd)

	runsListCmd.Flags().StringVar(&runsSymbol, "symbol", "", "Filter by symbol")
	runsListCmd.Flags().StringVar(&runsStrategy, "strategy", "", "Filter by strategy")
	runsListCmd.Flags().IntVar(&runsLimit, "limit", 0, "Maximum runs to list")
}

// withRunStore handles the shared store setup for the runs commands.
func withRunStore(fn func(store run.Store, log *zap.Logger) error) error {
	log := logger.Must(debug)
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	runner := app.New(cfg, log)
	if err := runner.SetupStorage(); err != nil {
		return fmt.Errorf("setting up storage: %w", err)
	}
	return fn(runner.Store(), log)
}

func runRunsList(cmd *cobra.Command, args []string) error {
	return withRunStore(func(store run.Store, log *zap.Logger) error {
		summaries, err := store.List(context.Background(), run.Filter{
			Symbol:   runsSymbol,
			Strategy: runsStrategy,
			Limit:    runsLimit,
		})
		if err != nil {
			return fmt.Errorf("listing runs: %w", err)
		}

		if len(summaries) == 0 {
			fmt.Println("No archived runs found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "RUN ID\tSTRATEGY\tSYMBOL\tINTERVAL\tRETURN\tMAX DD\tTRADES\tCREATED\t")
		fmt.Fprintln(w, "------\t--------\t------\t--------\t------\t------\t------\t-------\t")

		for _, s := range summaries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f%%\t%.2f%%\t%d\t%s\t\n",
				s.RunID, s.Strategy, s.Symbol, s.Interval,
				s.TotalReturn*100, s.MaxDrawdown*100, s.TotalTrades,
				s.CreatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	})
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	return withRunStore(func(store run.Store, log *zap.Logger) error {
		res, err := store.Get(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("loading run: %w", err)
		}

		report.WriteSummary(os.Stdout, res)
		fmt.Println()
		report.WriteTrades(os.Stdout, res.Trades)
		return nil
	})
}

func runRunsDelete(cmd *cobra.Command, args []string) error {
	return withRunStore(func(store run.Store, log *zap.Logger) error {
		if err := store.Delete(context.Background(), args[0]); err != nil {
			return fmt.Errorf("deleting run: %w", err)
		}
		fmt.Printf("Deleted run %s\n", args[0])
		return nil
	})
}
