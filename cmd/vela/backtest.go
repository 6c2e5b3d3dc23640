package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/velahq/vela/internal/app"
	"github.com/velahq/vela/internal/core"
	"github.com/velahq/vela/internal/logger"
	"github.com/velahq/vela/internal/report"
)

var (
	backtestSymbol     string
	backtestFrom       string
	backtestTo         string
	backtestInterval   string
	backtestCapital    float64
	backtestCommission float64
	backtestSlippage   float64
	backtestRiskFree   float64
	backtestFast       int
	backtestSlow       int
	backtestPeriod     int
	backtestParams     []string
	backtestSave       bool
	backtestTrades     bool
)

var backtestCmd = &cobra.Command{
	Use:   "backtest [strategy]",
	Short: "Run a backtest on a strategy",
	Long: `Run a strategy against historical data and show performance
statistics. Data is served from the local bar cache when available,
otherwise fetched from the collector for the symbol's market.`,
	Args: cobra.ExactArgs(1),
	RunE: runBacktest,
}

func init() {
	backtestCmd.Flags().StringVar(&backtestSymbol, "symbol", "", "Symbol to backtest (required)")
	backtestCmd.Flags().StringVar(&backtestFrom, "from", "", "Start date YYYY-MM-DD (default: one year ago)")
	backtestCmd.Flags().StringVar(&backtestTo, "to", "", "End date YYYY-MM-DD (default: today)")
	backtestCmd.Flags().StringVar(&backtestInterval, "interval", "", "Bar interval (default: configured)")
	backtestCmd.Flags().Float64Var(&backtestCapital, "capital", 0, "Initial capital override")
	backtestCmd.Flags().Float64Var(&backtestCommission, "commission", -1, "Per-side commission rate override")
	backtestCmd.Flags().Float64Var(&backtestSlippage, "slippage", -1, "Per-side slippage rate override")
	backtestCmd.Flags().Float64Var(&backtestRiskFree, "risk-free", -1, "Annual risk-free rate override")
	backtestCmd.Flags().IntVar(&backtestFast, "fast", 0, "Fast period (ma_crossover)")
	backtestCmd.Flags().IntVar(&backtestSlow, "slow", 0, "Slow period (ma_crossover)")
	backtestCmd.Flags().IntVar(&backtestPeriod, "period", 0, "Lookback period (rsi, bollinger)")
	backtestCmd.Flags().StringArrayVar(&backtestParams, "param", nil, "Strategy parameter as key=value (repeatable)")
	backtestCmd.Flags().BoolVar(&backtestSave, "save", false, "Archive the run to the configured storage")
	backtestCmd.Flags().BoolVar(&backtestTrades, "trades", false, "Print the trade list")

	backtestCmd.MarkFlagRequired("symbol")

	rootCmd.AddCommand(backtestCmd)
}

func runBacktest(cmd *cobra.Command, args []string) error {
	strategyName := args[0]

	log := logger.Must(debug)
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	// Flag overrides on top of the configured simulation parameters.
	if backtestCapital > 0 {
		cfg.Backtest.InitialCapital = backtestCapital
	}
	if backtestCommission >= 0 {
		cfg.Backtest.Commission = backtestCommission
	}
	if backtestSlippage >= 0 {
		cfg.Backtest.Slippage = backtestSlippage
	}
	if backtestRiskFree >= 0 {
		cfg.Analysis.RiskFreeRate = backtestRiskFree
	}

	interval := backtestInterval
	if interval == "" {
		interval = cfg.Data.DefaultInterval
	}
	iv := core.Interval(interval)
	if !iv.IsValid() {
		return fmt.Errorf("unsupported interval %q", interval)
	}

	end := time.Now()
	if backtestTo != "" {
		end, err = time.Parse("2006-01-02", backtestTo)
		if err != nil {
			return fmt.Errorf("invalid to date (expected YYYY-MM-DD): %w", err)
		}
	}
	start := end.AddDate(-1, 0, 0)
	if backtestFrom != "" {
		start, err = time.Parse("2006-01-02", backtestFrom)
		if err != nil {
			return fmt.Errorf("invalid from date (expected YYYY-MM-DD): %w", err)
		}
	}
	if !start.Before(end) {
		return fmt.Errorf("start date must be before end date")
	}

	params, err := strategyParams()
	if err != nil {
		return err
	}

	runner := app.New(cfg, log)
	if err := runner.SetupCollectors(); err != nil {
		return fmt.Errorf("setting up collectors: %w", err)
	}
	if err := runner.SetupStrategies(); err != nil {
		return fmt.Errorf("setting up strategies: %w", err)
	}
	if backtestSave {
		if err := runner.SetupStorage(); err != nil {
			return fmt.Errorf("setting up storage: %w", err)
		}
	} else if cfg.Data.Dir != "" {
		// Without --save only the bar cache is wanted, not the archive.
		if err := runner.SetupCache(); err != nil {
			return fmt.Errorf("setting up bar cache: %w", err)
		}
	}

	res, err := runner.Backtest(context.Background(), app.BacktestParams{
		Symbol:   backtestSymbol,
		Strategy: strategyName,
		Interval: iv,
		Start:    start,
		End:      end,
		Params:   params,
	})
	if err != nil {
		return fmt.Errorf("backtest failed: %w", err)
	}

	report.WriteSummary(os.Stdout, res)
	if backtestTrades {
		fmt.Println()
		report.WriteTrades(os.Stdout, res.Trades)
	}
	if backtestSave {
		fmt.Printf("\nRun archived as %s\n", res.RunID)
	}
	return nil
}

// strategyParams folds the named tuning flags and the generic --param
// pairs into one parameter map.
func strategyParams() (map[string]any, error) {
	params := make(map[string]any)
	if backtestFast > 0 {
		params["fast_period"] = backtestFast
	}
	if backtestSlow > 0 {
		params["slow_period"] = backtestSlow
	}
	if backtestPeriod > 0 {
		params["period"] = backtestPeriod
	}

	for _, pair := range backtestParams {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --param %q (expected key=value)", pair)
		}
		params[key] = paramValue(value)
	}
	return params, nil
}

// paramValue types a CLI parameter the way YAML decoding would:
// int, then float, then bool, falling back to the raw string.
func paramValue(s string) any {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}
