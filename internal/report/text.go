// Package report renders backtest results and performance reports as
// terminal text and CSV artifacts.
package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/velahq/vela/internal/backtest"
	"github.com/velahq/vela/internal/perf"
)

const bannerWidth = 60

func banner(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("=", bannerWidth))
}

// pct renders a fraction as a percentage with two decimals.
func pct(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

// pctMetric renders a fractional metric as a percentage, passing
// through the n/a and inf sentinels untouched.
func pctMetric(m perf.Metric) string {
	v, ok := m.Value()
	if !ok {
		return m.Format(2)
	}
	return pct(v)
}

// WriteSummary writes the full result of a backtest run: header,
// capital, and the performance report body.
func WriteSummary(w io.Writer, res *backtest.Result) {
	banner(w)
	fmt.Fprintf(w, "BACKTEST RESULTS FOR %s\n", res.Symbol)
	banner(w)
	fmt.Fprintf(w, "Strategy:  %s\n", res.Strategy)
	fmt.Fprintf(w, "Interval:  %s\n", res.Interval)
	fmt.Fprintf(w, "Period:    %s to %s\n",
		res.StartDate.Format("2006-01-02"), res.EndDate.Format("2006-01-02"))
	fmt.Fprintf(w, "Run ID:    %s\n", res.RunID)

	if res.Report != nil {
		writeBody(w, res.Report)
	}
	banner(w)
}

// WriteReport writes a standalone performance analysis summary, for
// reports built from an existing equity curve rather than a fresh run.
func WriteReport(w io.Writer, rep *perf.Report) {
	banner(w)
	fmt.Fprintln(w, "PERFORMANCE ANALYSIS SUMMARY")
	banner(w)
	writeBody(w, rep)
	banner(w)
}

func writeBody(w io.Writer, rep *perf.Report) {
	fmt.Fprintln(w, "\nCapital:")
	fmt.Fprintf(w, "  %-24s %.2f\n", "Initial Capital:", rep.InitialEquity)
	fmt.Fprintf(w, "  %-24s %.2f\n", "Final Equity:", rep.FinalEquity)
	fmt.Fprintf(w, "  %-24s %.2f\n", "Net Profit:", rep.NetProfit)

	fmt.Fprintln(w, "\nReturns:")
	fmt.Fprintf(w, "  %-24s %s\n", "Total Return:", pct(rep.TotalReturn))
	fmt.Fprintf(w, "  %-24s %s\n", "Annual Return:", pctMetric(rep.AnnualizedReturn))
	fmt.Fprintf(w, "  %-24s %s\n", "Volatility (Annual):", pctMetric(rep.Volatility))

	fmt.Fprintln(w, "\nRisk-Adjusted Metrics:")
	fmt.Fprintf(w, "  %-24s %s\n", "Sharpe Ratio:", rep.SharpeRatio.Format(2))
	fmt.Fprintf(w, "  %-24s %s\n", "Sortino Ratio:", rep.SortinoRatio.Format(2))
	fmt.Fprintf(w, "  %-24s %s\n", "Calmar Ratio:", rep.CalmarRatio.Format(2))

	fmt.Fprintln(w, "\nDrawdown Metrics:")
	fmt.Fprintf(w, "  %-24s %s\n", "Max Drawdown:", pct(rep.MaxDrawdown))
	fmt.Fprintf(w, "  %-24s %d\n", "Max DD Duration (bars):", rep.MaxDrawdownBars)
	fmt.Fprintf(w, "  %-24s %s\n", "Recovery Factor:", rep.RecoveryFactor.Format(2))

	fmt.Fprintln(w, "\nTrade Statistics:")
	fmt.Fprintf(w, "  %-24s %d\n", "Total Trades:", rep.TotalTrades)
	fmt.Fprintf(w, "  %-24s %d\n", "Winning Trades:", rep.WinningTrades)
	fmt.Fprintf(w, "  %-24s %d\n", "Losing Trades:", rep.LosingTrades)
	fmt.Fprintf(w, "  %-24s %s\n", "Win Rate:", pct(rep.WinRate))
	fmt.Fprintf(w, "  %-24s %s\n", "Profit Factor:", rep.ProfitFactor.Format(2))
	fmt.Fprintf(w, "  %-24s %.2f\n", "Gross Profit:", rep.GrossProfit)
	fmt.Fprintf(w, "  %-24s %.2f\n", "Gross Loss:", rep.GrossLoss)
	fmt.Fprintf(w, "  %-24s %.2f\n", "Total Commission:", rep.TotalCommission)

	fmt.Fprintln(w, "\nBar Range:")
	fmt.Fprintf(w, "  %-24s %s\n", "Best Bar:", pctMetric(rep.BestBar))
	fmt.Fprintf(w, "  %-24s %s\n", "Worst Bar:", pctMetric(rep.WorstBar))
}

// WriteTrades writes the trade list as an aligned table.
func WriteTrades(w io.Writer, trades []perf.Trade) {
	if len(trades) == 0 {
		fmt.Fprintln(w, "No trades.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tENTRY\tEXIT\tSIDE\tQTY\tENTRY PRICE\tEXIT PRICE\tNET P&L\t")
	fmt.Fprintln(tw, "-\t-----\t----\t----\t---\t-----------\t----------\t-------\t")
	for i, tr := range trades {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.0f\t%.2f\t%.2f\t%.2f\t\n",
			i+1,
			tr.EntryTime.Format("2006-01-02 15:04"),
			tr.ExitTime.Format("2006-01-02 15:04"),
			tr.Side,
			tr.Size,
			tr.EntryPrice,
			tr.ExitPrice,
			tr.NetPnL)
	}
	tw.Flush()
}
