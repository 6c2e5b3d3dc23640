package perf

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/velahq/vela/internal/core"
)

func dailyCurve(values ...float64) []EquityPoint {
	base := time.Date(2024, 1, 1, 15, 30, 0, 0, time.UTC)
	curve := make([]EquityPoint, len(values))
	for i, v := range values {
		curve[i] = EquityPoint{Time: base.AddDate(0, 0, i), Value: v}
	}
	return curve
}

func closedTrade(net float64) Trade {
	entry := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	return Trade{
		EntryTime:  entry,
		ExitTime:   entry.Add(48 * time.Hour),
		EntryPrice: 100,
		ExitPrice:  100 + net,
		Size:       1,
		Side:       SideLong,
		GrossPnL:   net,
		NetPnL:     net,
	}
}

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestAnalyzer_RecoveringCurve(t *testing.T) {
	curve := dailyCurve(100000, 110000, 95000, 120000)
	a, err := New(DefaultConfig(), curve, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if got := a.TotalReturn(); !almostEqual(got, 0.20, 1e-9) {
		t.Errorf("TotalReturn() = %f, want 0.20", got)
	}

	dd := a.MaxDrawdown()
	if !almostEqual(dd.Max, 15000.0/110000.0, 1e-9) {
		t.Errorf("MaxDrawdown().Max = %f, want %f", dd.Max, 15000.0/110000.0)
	}
	if dd.Start != 1 || dd.End != 2 || dd.Bars != 1 {
		t.Errorf("drawdown interval = [%d, %d] bars %d, want [1, 2] bars 1", dd.Start, dd.End, dd.Bars)
	}

	wantAnnual := math.Pow(1.20, 252.0/3.0) - 1
	if got := a.AnnualizedReturn(); !almostEqual(got.Or(-1), wantAnnual, wantAnnual*1e-9) {
		t.Errorf("AnnualizedReturn() = %s, want %f", got, wantAnnual)
	}

	if got := a.Volatility(); !almostEqual(got.Or(-1), 3.1888, 1e-4) {
		t.Errorf("Volatility() = %s, want ~3.1888", got)
	}
	if got := a.SharpeRatio(); !almostEqual(got.Or(-1), 5.954, 1e-3) {
		t.Errorf("SharpeRatio() = %s, want ~5.954", got)
	}

	// Only one losing bar, so downside deviation has a single sample.
	if got := a.SortinoRatio(); !got.IsUndefined() {
		t.Errorf("SortinoRatio() = %s, want n/a with one losing bar", got)
	}

	if got := a.RecoveryFactor(); !almostEqual(got.Or(-1), 0.20/(15000.0/110000.0), 1e-9) {
		t.Errorf("RecoveryFactor() = %s, want ~1.4667", got)
	}
	if got := a.BestBar(); !almostEqual(got.Or(-1), 25000.0/95000.0, 1e-9) {
		t.Errorf("BestBar() = %s, want %f", got, 25000.0/95000.0)
	}
	if got := a.WorstBar(); !almostEqual(got.Or(1), -15000.0/110000.0, 1e-9) {
		t.Errorf("WorstBar() = %s, want %f", got, -15000.0/110000.0)
	}
}

func TestAnalyzer_TradeStats(t *testing.T) {
	trades := []Trade{
		closedTrade(500),
		closedTrade(-200),
		closedTrade(300),
		closedTrade(-100),
	}
	a, err := New(DefaultConfig(), dailyCurve(100000, 100500), trades)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if got := a.WinRate(); got != 0.5 {
		t.Errorf("WinRate() = %f, want 0.5", got)
	}
	if got := a.ProfitFactor(); !almostEqual(got.Or(-1), 800.0/300.0, 1e-9) {
		t.Errorf("ProfitFactor() = %s, want ~2.667", got)
	}

	report := a.BuildReport()
	if report.TotalTrades != 4 || report.WinningTrades != 2 || report.LosingTrades != 2 {
		t.Errorf("trade counts = %d/%d/%d, want 4/2/2",
			report.TotalTrades, report.WinningTrades, report.LosingTrades)
	}
	if report.GrossProfit != 800 || report.GrossLoss != 300 {
		t.Errorf("gross = %f/%f, want 800/300", report.GrossProfit, report.GrossLoss)
	}
}

func TestAnalyzer_FlatCurve(t *testing.T) {
	a, err := New(DefaultConfig(), dailyCurve(100000, 100000, 100000), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if got := a.TotalReturn(); got != 0 {
		t.Errorf("TotalReturn() = %f, want 0", got)
	}
	if got := a.Volatility(); !got.IsDefined() || got.Or(-1) != 0 {
		t.Errorf("Volatility() = %s, want 0", got)
	}
	if got := a.SharpeRatio(); !got.IsUndefined() {
		t.Errorf("SharpeRatio() = %s, want n/a at zero volatility", got)
	}
	if dd := a.MaxDrawdown(); dd.Max != 0 || dd.Bars != 0 {
		t.Errorf("MaxDrawdown() = %+v, want zeros", dd)
	}
	if got := a.CalmarRatio(); !got.IsUndefined() {
		t.Errorf("CalmarRatio() = %s, want n/a at zero drawdown", got)
	}
	if got := a.RecoveryFactor(); !got.IsUndefined() {
		t.Errorf("RecoveryFactor() = %s, want n/a at zero drawdown", got)
	}
	if got := a.ProfitFactor(); !got.IsUndefined() {
		t.Errorf("ProfitFactor() = %s, want n/a with no trades", got)
	}
}

func TestAnalyzer_ProfitFactorAllWinners(t *testing.T) {
	trades := []Trade{closedTrade(500), closedTrade(300)}
	a, err := New(DefaultConfig(), dailyCurve(100000, 100800), trades)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if got := a.ProfitFactor(); !got.IsInfinite() {
		t.Errorf("ProfitFactor() = %s, want inf with no losers", got)
	}
	if got := a.WinRate(); got != 1.0 {
		t.Errorf("WinRate() = %f, want 1.0", got)
	}
}

func TestAnalyzer_ProfitFactorAllLosers(t *testing.T) {
	trades := []Trade{closedTrade(-500), closedTrade(-300)}
	a, err := New(DefaultConfig(), dailyCurve(100000, 99200), trades)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if got := a.ProfitFactor(); !got.IsDefined() || got.Or(-1) != 0 {
		t.Errorf("ProfitFactor() = %s, want 0 with no winners", got)
	}
	if got := a.WinRate(); got != 0 {
		t.Errorf("WinRate() = %f, want 0", got)
	}
}

func TestAnalyzer_SortinoDefined(t *testing.T) {
	// Two distinct losing bars give the downside a measurable spread.
	a, err := New(DefaultConfig(), dailyCurve(100000, 98000, 99000, 96000, 101000), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	got := a.SortinoRatio()
	if !got.IsDefined() {
		t.Fatalf("SortinoRatio() = %s, want a defined value", got)
	}
	sharpe := a.SharpeRatio()
	if !sharpe.IsDefined() {
		t.Fatalf("SharpeRatio() = %s, want a defined value", sharpe)
	}
}

func TestAnalyzer_InsufficientData(t *testing.T) {
	for _, values := range [][]float64{nil, {100000}} {
		_, err := New(DefaultConfig(), dailyCurve(values...), nil)
		if !errors.Is(err, core.ErrInsufficientData) {
			t.Errorf("New() with %d points: error = %v, want ErrInsufficientData", len(values), err)
		}
	}
}

func TestAnalyzer_RejectsInvalidCurve(t *testing.T) {
	curve := dailyCurve(100000, 110000)
	curve[1].Time = curve[0].Time // timestamps must strictly increase
	if _, err := New(DefaultConfig(), curve, nil); !errors.Is(err, core.ErrEquityCurveInvalid) {
		t.Errorf("New() error = %v, want ErrEquityCurveInvalid", err)
	}

	if _, err := New(DefaultConfig(), dailyCurve(100000, -5), nil); !errors.Is(err, core.ErrEquityCurveInvalid) {
		t.Errorf("New() with negative equity: error = %v, want ErrEquityCurveInvalid", err)
	}
}

func TestAnalyzer_RejectsInvalidTrade(t *testing.T) {
	bad := closedTrade(500)
	bad.NetPnL = 9999 // breaks net = gross - commission
	_, err := New(DefaultConfig(), dailyCurve(100000, 100500), []Trade{bad})
	if !errors.Is(err, core.ErrTradeInvalid) {
		t.Errorf("New() error = %v, want ErrTradeInvalid", err)
	}

	swapped := closedTrade(500)
	swapped.EntryTime, swapped.ExitTime = swapped.ExitTime, swapped.EntryTime
	_, err = New(DefaultConfig(), dailyCurve(100000, 100500), []Trade{swapped})
	if !errors.Is(err, core.ErrTradeInvalid) {
		t.Errorf("New() with exit before entry: error = %v, want ErrTradeInvalid", err)
	}
}

func TestAnalyzer_ConfigValidation(t *testing.T) {
	curve := dailyCurve(100000, 110000)
	bad := []Config{
		{InitialCapital: 0, RiskFreeRate: 0.065, PeriodsPerYear: 252},
		{InitialCapital: 100000, RiskFreeRate: -0.01, PeriodsPerYear: 252},
		{InitialCapital: 100000, RiskFreeRate: 0.065, PeriodsPerYear: 0},
	}
	for i, cfg := range bad {
		if _, err := New(cfg, curve, nil); !errors.Is(err, core.ErrConfigInvalid) {
			t.Errorf("config %d: error = %v, want ErrConfigInvalid", i, err)
		}
	}
}

func TestAnalyzer_ReportDeterministic(t *testing.T) {
	trades := []Trade{closedTrade(500), closedTrade(-200)}
	a, err := New(DefaultConfig(), dailyCurve(100000, 110000, 95000, 120000), trades)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	first := a.BuildReport()
	second := a.BuildReport()
	if !reflect.DeepEqual(first, second) {
		t.Error("repeated BuildReport() calls should yield identical reports")
	}

	data1, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	data2, err := json.Marshal(second)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data1) != string(data2) {
		t.Error("report JSON should be byte-identical across builds")
	}
}

func TestAnalyze_Convenience(t *testing.T) {
	report, err := Analyze(DefaultConfig(), dailyCurve(100000, 120000), nil)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if report.Bars != 1 {
		t.Errorf("Bars = %d, want 1", report.Bars)
	}
	if !almostEqual(report.TotalReturn, 0.20, 1e-9) {
		t.Errorf("TotalReturn = %f, want 0.20", report.TotalReturn)
	}
	if report.InitialEquity != 100000 || report.FinalEquity != 120000 {
		t.Errorf("equity = %f -> %f, want 100000 -> 120000", report.InitialEquity, report.FinalEquity)
	}
	if report.RiskFreeRate != 0.065 || report.PeriodsPerYear != 252 {
		t.Errorf("assumptions = %f/%f, want 0.065/252", report.RiskFreeRate, report.PeriodsPerYear)
	}
}

func TestConfigForInterval(t *testing.T) {
	cfg := ConfigForInterval(core.Interval1h)
	want := core.TradingDaysPerYear * core.TradingHoursPerDay
	if cfg.PeriodsPerYear != want {
		t.Errorf("PeriodsPerYear = %f, want %f", cfg.PeriodsPerYear, want)
	}
}

func TestSampleStdDev(t *testing.T) {
	got := sampleStdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	want := math.Sqrt(32.0 / 7.0)
	if !almostEqual(got, want, 1e-12) {
		t.Errorf("sampleStdDev = %f, want %f", got, want)
	}
}
