package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/velahq/vela/internal/core"
	"github.com/velahq/vela/internal/perf"
	"github.com/velahq/vela/internal/report"
)

var (
	analyzeEquity   string
	analyzeTrades   string
	analyzeInterval string
	analyzeCapital  float64
	analyzeRiskFree float64
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze an existing equity curve",
	Long: `Compute a performance report from CSV artifacts without rerunning
the backtest. The equity CSV needs time and value columns; the
optional trades CSV adds trade statistics.`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeEquity, "equity", "", "Equity curve CSV path (required)")
	analyzeCmd.Flags().StringVar(&analyzeTrades, "trades", "", "Trades CSV path")
	analyzeCmd.Flags().StringVar(&analyzeInterval, "interval", "1d", "Bar interval the curve was sampled at")
	analyzeCmd.Flags().Float64Var(&analyzeCapital, "capital", 0, "Initial capital (default: first curve value)")
	analyzeCmd.Flags().Float64Var(&analyzeRiskFree, "risk-free", 0.065, "Annual risk-free rate")

	analyzeCmd.MarkFlagRequired("equity")

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	iv := core.Interval(analyzeInterval)
	if !iv.IsValid() {
		return fmt.Errorf("unsupported interval %q", analyzeInterval)
	}

	ef, err := os.Open(analyzeEquity)
	if err != nil {
		return fmt.Errorf("opening equity curve: %w", err)
	}
	defer ef.Close()

	curve, err := report.ReadEquityCSV(ef)
	if err != nil {
		return fmt.Errorf("reading equity curve: %w", err)
	}

	var trades []perf.Trade
	if analyzeTrades != "" {
		tf, err := os.Open(analyzeTrades)
		if err != nil {
			return fmt.Errorf("opening trades: %w", err)
		}
		defer tf.Close()

		trades, err = report.ReadTradesCSV(tf)
		if err != nil {
			return fmt.Errorf("reading trades: %w", err)
		}
	}

	cfg := perf.ConfigForInterval(iv)
	cfg.RiskFreeRate = analyzeRiskFree
	switch {
	case analyzeCapital > 0:
		cfg.InitialCapital = analyzeCapital
	case len(curve) > 0:
		cfg.InitialCapital = curve[0].Value
	}

	rep, err := perf.Analyze(cfg, curve, trades)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	report.WriteReport(os.Stdout, rep)
	return nil
}
