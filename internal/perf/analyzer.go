package perf

import (
	"fmt"
	"math"

	"github.com/velahq/vela/internal/core"
)

// Config holds the assumptions a report is computed under. It is
// passed explicitly so analyses with different assumptions can run
// side by side; the analyzer keeps no package-level state.
type Config struct {
	// InitialCapital is the capital the simulation started from.
	InitialCapital float64
	// RiskFreeRate is the annual risk-free rate used by Sharpe and
	// Sortino. Defaults to the RBI repo rate approximation.
	RiskFreeRate float64
	// PeriodsPerYear is the annualization factor for the bar interval
	// the equity curve was sampled at.
	PeriodsPerYear float64
}

// DefaultConfig returns the standard assumptions for daily NSE bars.
func DefaultConfig() Config {
	return Config{
		InitialCapital: 100000,
		RiskFreeRate:   0.065,
		PeriodsPerYear: core.TradingDaysPerYear,
	}
}

// ConfigForInterval returns DefaultConfig with the annualization
// factor for the given bar interval.
func ConfigForInterval(interval core.Interval) Config {
	cfg := DefaultConfig()
	cfg.PeriodsPerYear = interval.PeriodsPerYear()
	return cfg
}

// Validate checks the config for errors.
func (c Config) Validate() error {
	if c.InitialCapital <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("initial capital must be positive, got %f", c.InitialCapital))
	}
	if c.RiskFreeRate < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("risk-free rate cannot be negative, got %f", c.RiskFreeRate))
	}
	if c.PeriodsPerYear <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("periods per year must be positive, got %f", c.PeriodsPerYear))
	}
	return nil
}

// Analyzer computes performance statistics for one equity curve and
// trade list. All derived series are computed once at construction
// and cached; every metric is a pure function of that cached state,
// so an Analyzer is safe to share read-only across goroutines.
type Analyzer struct {
	cfg    Config
	curve  []EquityPoint
	trades []Trade

	values   []float64 // portfolio values extracted from the curve
	returns  []float64 // per-bar simple returns, len(curve)-1
	drawdown Drawdown
}

// New validates the inputs and precomputes the return and drawdown
// series. It fails with ErrInsufficientData when the curve has fewer
// than two points and with ErrEquityCurveInvalid / ErrTradeInvalid
// when an input violates its invariants. Degenerate numeric cases
// (flat curve, no losing trades) are not errors; they surface as
// sentinel values on the individual metrics.
func New(cfg Config, curve []EquityPoint, trades []Trade) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := validateCurve(curve); err != nil {
		return nil, err
	}
	for i, tr := range trades {
		if err := tr.Validate(); err != nil {
			return nil, fmt.Errorf("trade %d: %w", i, err)
		}
	}

	values := make([]float64, len(curve))
	for i, p := range curve {
		values[i] = p.Value
	}

	returns := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		prev := values[i-1]
		if prev == 0 {
			// A zero-equity bar has no meaningful relative change.
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, (values[i]-prev)/prev)
	}

	return &Analyzer{
		cfg:      cfg,
		curve:    curve,
		trades:   trades,
		values:   values,
		returns:  returns,
		drawdown: maxDrawdown(values),
	}, nil
}

// Analyze is a convenience wrapper: construct an analyzer and build
// the report in one call.
func Analyze(cfg Config, curve []EquityPoint, trades []Trade) (*Report, error) {
	a, err := New(cfg, curve, trades)
	if err != nil {
		return nil, err
	}
	return a.BuildReport(), nil
}

// Returns exposes the cached per-bar simple returns
// r_i = (V_i - V_{i-1}) / V_{i-1}. Callers must not modify it.
func (a *Analyzer) Returns() []float64 {
	return a.returns
}

// TotalReturn is the overall growth of the curve: (last-first)/first.
func (a *Analyzer) TotalReturn() float64 {
	first := a.values[0]
	if first == 0 {
		return 0
	}
	return (a.values[len(a.values)-1] - first) / first
}

// AnnualizedReturn compounds the total return to a one-year horizon
// using the configured periods per year.
func (a *Analyzer) AnnualizedReturn() Metric {
	bars := len(a.returns)
	if bars == 0 {
		return Undefined()
	}
	total := a.TotalReturn()
	return Defined(math.Pow(1+total, a.cfg.PeriodsPerYear/float64(bars)) - 1)
}

// Volatility is the annualized sample standard deviation of per-bar
// returns. It is undefined with fewer than two return samples.
func (a *Analyzer) Volatility() Metric {
	if len(a.returns) < 2 {
		return Undefined()
	}
	return Defined(sampleStdDev(a.returns) * math.Sqrt(a.cfg.PeriodsPerYear))
}

// SharpeRatio is the annualized excess return over total volatility.
// A zero-volatility curve has no meaningful ratio and reports the
// undefined sentinel rather than dividing by zero.
func (a *Analyzer) SharpeRatio() Metric {
	vol, ok := a.Volatility().Value()
	if !ok || vol == 0 {
		return Undefined()
	}
	excess := mean(a.returns)*a.cfg.PeriodsPerYear - a.cfg.RiskFreeRate
	return Defined(excess / vol)
}

// SortinoRatio is the annualized excess return over downside
// deviation, the standard deviation of negative-return bars only.
// With no negative bars (or too few to measure deviation) the ratio
// is undefined.
func (a *Analyzer) SortinoRatio() Metric {
	var downside []float64
	for _, r := range a.returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	if len(downside) < 2 {
		return Undefined()
	}
	dev := sampleStdDev(downside) * math.Sqrt(a.cfg.PeriodsPerYear)
	if dev == 0 {
		return Undefined()
	}
	excess := mean(a.returns)*a.cfg.PeriodsPerYear - a.cfg.RiskFreeRate
	return Defined(excess / dev)
}

// MaxDrawdown returns the cached single-pass drawdown summary.
func (a *Analyzer) MaxDrawdown() Drawdown {
	return a.drawdown
}

// CalmarRatio is the annualized return over max drawdown; undefined
// when the curve never drew down.
func (a *Analyzer) CalmarRatio() Metric {
	annual, ok := a.AnnualizedReturn().Value()
	if !ok || a.drawdown.Max == 0 {
		return Undefined()
	}
	return Defined(annual / a.drawdown.Max)
}

// RecoveryFactor is the total return over max drawdown; undefined
// when the curve never drew down.
func (a *Analyzer) RecoveryFactor() Metric {
	if a.drawdown.Max == 0 {
		return Undefined()
	}
	return Defined(a.TotalReturn() / a.drawdown.Max)
}

// WinRate is the fraction of trades with positive net PnL. No trades
// means a win rate of zero, not an undefined condition.
func (a *Analyzer) WinRate() float64 {
	if len(a.trades) == 0 {
		return 0
	}
	wins := 0
	for _, t := range a.trades {
		if t.IsWin() {
			wins++
		}
	}
	return float64(wins) / float64(len(a.trades))
}

// ProfitFactor is gross winning PnL over the magnitude of gross losing
// PnL. All winners reports the infinite sentinel; no trades at all (or
// only zero-PnL trades) reports undefined; all losers reports zero.
func (a *Analyzer) ProfitFactor() Metric {
	grossWin, grossLoss := a.grossPnL()
	switch {
	case grossLoss > 0:
		return Defined(grossWin / grossLoss)
	case grossWin > 0:
		return Infinite()
	default:
		return Undefined()
	}
}

// BestBar is the largest single-bar return.
func (a *Analyzer) BestBar() Metric {
	if len(a.returns) == 0 {
		return Undefined()
	}
	best := a.returns[0]
	for _, r := range a.returns[1:] {
		if r > best {
			best = r
		}
	}
	return Defined(best)
}

// WorstBar is the smallest single-bar return.
func (a *Analyzer) WorstBar() Metric {
	if len(a.returns) == 0 {
		return Undefined()
	}
	worst := a.returns[0]
	for _, r := range a.returns[1:] {
		if r < worst {
			worst = r
		}
	}
	return Defined(worst)
}

// BuildReport assembles the full report from the cached series. Every
// metric is computed exactly once per call and the result depends only
// on the constructor inputs, so repeated calls yield identical reports.
func (a *Analyzer) BuildReport() *Report {
	wins, losses := a.countTrades()
	grossWin, grossLoss := a.grossPnL()

	var commission float64
	for _, t := range a.trades {
		commission += t.Commission
	}

	return &Report{
		Bars:             len(a.returns),
		InitialEquity:    a.values[0],
		FinalEquity:      a.values[len(a.values)-1],
		NetProfit:        a.values[len(a.values)-1] - a.values[0],
		TotalReturn:      a.TotalReturn(),
		AnnualizedReturn: a.AnnualizedReturn(),
		Volatility:       a.Volatility(),
		SharpeRatio:      a.SharpeRatio(),
		SortinoRatio:     a.SortinoRatio(),
		CalmarRatio:      a.CalmarRatio(),
		MaxDrawdown:      a.drawdown.Max,
		MaxDrawdownBars:  a.drawdown.Bars,
		UnderwaterStart:  a.drawdown.Start,
		UnderwaterEnd:    a.drawdown.End,
		RecoveryFactor:   a.RecoveryFactor(),
		BestBar:          a.BestBar(),
		WorstBar:         a.WorstBar(),
		TotalTrades:      len(a.trades),
		WinningTrades:    wins,
		LosingTrades:     losses,
		WinRate:          a.WinRate(),
		ProfitFactor:     a.ProfitFactor(),
		GrossProfit:      grossWin,
		GrossLoss:        grossLoss,
		TotalCommission:  commission,
		RiskFreeRate:     a.cfg.RiskFreeRate,
		PeriodsPerYear:   a.cfg.PeriodsPerYear,
	}
}

// countTrades partitions trades into winners (net > 0) and losers
// (net <= 0).
func (a *Analyzer) countTrades() (wins, losses int) {
	for _, t := range a.trades {
		if t.IsWin() {
			wins++
		} else {
			losses++
		}
	}
	return wins, losses
}

// grossPnL sums winning net PnL and the magnitude of losing net PnL.
func (a *Analyzer) grossPnL() (grossWin, grossLoss float64) {
	for _, t := range a.trades {
		if t.NetPnL > 0 {
			grossWin += t.NetPnL
		} else {
			grossLoss += -t.NetPnL
		}
	}
	return grossWin, grossLoss
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// sampleStdDev is the n-1 standard deviation; callers guard n >= 2.
func sampleStdDev(xs []float64) float64 {
	m := mean(xs)
	var variance float64
	for _, x := range xs {
		variance += (x - m) * (x - m)
	}
	return math.Sqrt(variance / float64(len(xs)-1))
}
