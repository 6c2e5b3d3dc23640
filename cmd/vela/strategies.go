package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/velahq/vela/internal/app"
	"github.com/velahq/vela/internal/logger"
)

var strategiesCmd = &cobra.Command{
	Use:   "strategies",
	Short: "List available strategies",
	RunE:  runStrategies,
}

func init() {
	rootCmd.AddCommand(strategiesCmd)
}

func runStrategies(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug)
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	runner := app.New(cfg, log)
	if err := runner.SetupStrategies(); err != nil {
		return fmt.Errorf("setting up strategies: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDESCRIPTION\tBARS NEEDED\t")
	fmt.Fprintln(w, "----\t-----------\t-----------\t")

	for _, name := range runner.Strategies().Names() {
		s, ok := runner.Strategies().Get(name)
		if !ok {
			continue
		}
		req := s.RequiredData()
		fmt.Fprintf(w, "%s\t%s\t%d\t\n", s.Name(), s.Description(), req.PriceHistory)
	}
	return w.Flush()
}
