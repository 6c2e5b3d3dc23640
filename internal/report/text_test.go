package report

import (
	"strings"
	"testing"
	"time"

	"github.com/velahq/vela/internal/backtest"
	"github.com/velahq/vela/internal/core"
	"github.com/velahq/vela/internal/perf"
)

var testBase = time.Date(2024, 1, 2, 15, 30, 0, 0, time.UTC)

func testCurve(values ...float64) []perf.EquityPoint {
	curve := make([]perf.EquityPoint, len(values))
	for i, v := range values {
		curve[i] = perf.EquityPoint{Time: testBase.AddDate(0, 0, i), Value: v}
	}
	return curve
}

func testTrade(net float64) perf.Trade {
	return perf.Trade{
		EntryTime:  testBase,
		ExitTime:   testBase.AddDate(0, 0, 2),
		EntryPrice: 100,
		ExitPrice:  100 + net/100,
		Size:       100,
		Side:       perf.SideLong,
		GrossPnL:   net,
		NetPnL:     net,
	}
}

func sampleResult(t *testing.T) *backtest.Result {
	t.Helper()

	curve := testCurve(100000, 110000, 95000, 120000)
	trades := []perf.Trade{testTrade(500)}

	rep, err := perf.Analyze(perf.DefaultConfig(), curve, trades)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	return &backtest.Result{
		RunID:          "run-123",
		Strategy:       "ma_crossover",
		Symbol:         "RELIANCE.NS",
		Market:         core.MarketIN,
		Interval:       core.Interval1d,
		StartDate:      testBase,
		EndDate:        testBase.AddDate(0, 0, 3),
		InitialCapital: 100000,
		FinalEquity:    120000,
		Trades:         trades,
		EquityCurve:    curve,
		Report:         rep,
	}
}

func TestWriteSummary(t *testing.T) {
	var buf strings.Builder
	WriteSummary(&buf, sampleResult(t))
	out := buf.String()

	want := []string{
		"BACKTEST RESULTS FOR RELIANCE.NS",
		"Strategy:  ma_crossover",
		"Interval:  1d",
		"Run ID:    run-123",
		"Total Return:",
		"20.00%",
		"Max Drawdown:",
		"13.64%",
		"Win Rate:",
		"100.00%",
	}
	for _, s := range want {
		if !strings.Contains(out, s) {
			t.Errorf("summary missing %q\n%s", s, out)
		}
	}

	// One winning trade and no losers leaves the profit factor infinite.
	if !strings.Contains(out, "Profit Factor:           inf") {
		t.Errorf("summary should render infinite profit factor as inf\n%s", out)
	}
	// A single losing bar leaves Sortino undefined.
	if !strings.Contains(out, "Sortino Ratio:           n/a") {
		t.Errorf("summary should render undefined Sortino as n/a\n%s", out)
	}
}

func TestWriteReport_FlatCurve(t *testing.T) {
	rep, err := perf.Analyze(perf.DefaultConfig(), testCurve(100000, 100000, 100000), nil)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	var buf strings.Builder
	WriteReport(&buf, rep)
	out := buf.String()

	if !strings.Contains(out, "PERFORMANCE ANALYSIS SUMMARY") {
		t.Errorf("missing banner title\n%s", out)
	}
	if !strings.Contains(out, "Sharpe Ratio:            n/a") {
		t.Errorf("flat curve Sharpe should be n/a\n%s", out)
	}
	if !strings.Contains(out, "Volatility (Annual):     0.00%") {
		t.Errorf("flat curve volatility should be 0.00%%\n%s", out)
	}
	if !strings.Contains(out, "Max Drawdown:            0.00%") {
		t.Errorf("flat curve drawdown should be 0.00%%\n%s", out)
	}
}

func TestWriteTrades(t *testing.T) {
	var buf strings.Builder
	WriteTrades(&buf, []perf.Trade{testTrade(500), testTrade(-200)})
	out := buf.String()

	for _, s := range []string{"ENTRY PRICE", "NET P&L", "long", "500.00", "-200.00"} {
		if !strings.Contains(out, s) {
			t.Errorf("trades table missing %q\n%s", s, out)
		}
	}
}

func TestWriteTrades_Empty(t *testing.T) {
	var buf strings.Builder
	WriteTrades(&buf, nil)
	if !strings.Contains(buf.String(), "No trades.") {
		t.Errorf("empty trade list output = %q", buf.String())
	}
}
