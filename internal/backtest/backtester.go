// Package backtest replays historical bars through a strategy and a
// simulated broker account, producing an equity curve and a full
// performance report for the run.
package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/velahq/vela/internal/broker"
	"github.com/velahq/vela/internal/core"
	"github.com/velahq/vela/internal/perf"
	"github.com/velahq/vela/internal/strategy"
)

// OHLCVProvider defines the interface for fetching historical OHLCV data.
// Collectors satisfy it directly.
type OHLCVProvider interface {
	FetchHistory(ctx context.Context, symbol string, interval core.Interval, start, end time.Time) ([]core.OHLCV, error)
}

// Config holds the simulation parameters for a run. Commission and
// slippage are per-side decimal rates, position size is the fraction
// of available cash committed per entry.
type Config struct {
	InitialCapital float64
	Commission     float64
	Slippage       float64
	PositionSize   float64
	RiskFreeRate   float64
}

// DefaultConfig returns the standard simulation parameters.
func DefaultConfig() Config {
	return Config{
		InitialCapital: 100000,
		Commission:     0.0005,
		Slippage:       0.0002,
		PositionSize:   0.95,
		RiskFreeRate:   0.065,
	}
}

// Validate checks the simulation parameters.
func (c Config) Validate() error {
	cost := broker.CostModel{Commission: c.Commission, Slippage: c.Slippage}
	if err := cost.Validate(); err != nil {
		return core.WrapError(core.ErrConfigInvalid, err)
	}
	if c.InitialCapital <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("initial capital must be positive, got %f", c.InitialCapital))
	}
	if c.PositionSize <= 0 || c.PositionSize > 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("position size must be in (0, 1], got %f", c.PositionSize))
	}
	if c.RiskFreeRate < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("risk-free rate cannot be negative, got %f", c.RiskFreeRate))
	}
	return nil
}

// Backtester runs strategy backtests against historical data
type Backtester struct {
	provider OHLCVProvider
	cfg      Config
	logger   *zap.Logger
}

// New creates a new Backtester with the given OHLCV provider
func New(provider OHLCVProvider, cfg Config, logger ...*zap.Logger) *Backtester {
	l := zap.NewNop()
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	}
	return &Backtester{
		provider: provider,
		cfg:      cfg,
		logger:   l,
	}
}

// Run executes a backtest for the given strategy and symbol over the
// specified time range. Each bar is presented to the strategy with a
// rolling window of history sized by its data requirements; buy and
// sell signals are routed to a fresh paper account, and any position
// still open on the last bar is closed at its close price so the
// report only ever sees completed trades.
func (b *Backtester) Run(ctx context.Context, strat strategy.Strategy, symbol string, interval core.Interval, start, end time.Time) (*Result, error) {
	if err := b.cfg.Validate(); err != nil {
		return nil, err
	}
	if !interval.IsValid() {
		return nil, core.WrapError(core.ErrInvalidInterval,
			fmt.Errorf("interval %q", interval))
	}

	ohlcv, err := b.provider.FetchHistory(ctx, symbol, interval, start, end)
	if err != nil {
		return nil, core.WrapError(core.ErrCollectorFailed, err)
	}
	if len(ohlcv) == 0 {
		return nil, core.WrapError(core.ErrNoData,
			fmt.Errorf("no bars for %s %s between %s and %s",
				symbol, interval, start.Format("2006-01-02"), end.Format("2006-01-02")))
	}

	acct, err := b.newAccount()
	if err != nil {
		return nil, err
	}

	// Get strategy data requirements
	req := strat.RequiredData()
	windowSize := req.PriceHistory
	if windowSize <= 0 {
		windowSize = 1
	}

	market := core.DetectMarket(symbol)

	var (
		allSignals []core.Signal
		fills      []broker.Fill
		curve      = make([]perf.EquityPoint, 0, len(ohlcv))
	)

	// Run strategy on each bar with rolling window
	for i := 0; i < len(ohlcv); i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		bar := ohlcv[i]

		// Build rolling window
		windowStart := max(0, i-windowSize+1)
		window := ohlcv[windowStart : i+1]

		signals, err := strat.Analyze(strategy.Context{
			Symbol: symbol,
			Market: market,
			Bars:   window,
			Now:    bar.Time,
		})
		if err != nil {
			b.logger.Debug("strategy error, skipping bar",
				zap.String("strategy", strat.Name()),
				zap.Time("bar", bar.Time),
				zap.Error(err))
			continue
		}

		for _, sig := range signals {
			sig.Price = bar.Close
			sig.Strategy = strat.Name()
			allSignals = append(allSignals, sig)

			if fill := b.execute(acct, sig.Action, bar); fill != nil {
				fills = append(fills, *fill)
			}
		}

		// Any position left on the final bar is closed at its close
		// before the equity curve is marked, so the curve's last point
		// and the account's cash agree.
		if i == len(ohlcv)-1 {
			if fill, err := acct.CloseAt(bar); err == nil && fill != nil {
				fills = append(fills, *fill)
			}
		}

		curve = append(curve, perf.EquityPoint{
			Time:  bar.Time,
			Value: acct.Equity(bar.Close),
		})
	}

	trades := acct.Trades()

	pcfg := perf.ConfigForInterval(interval)
	pcfg.InitialCapital = b.cfg.InitialCapital
	pcfg.RiskFreeRate = b.cfg.RiskFreeRate

	report, err := perf.Analyze(pcfg, curve, trades)
	if err != nil {
		return nil, err
	}

	result := &Result{
		RunID:          uuid.NewString(),
		Strategy:       strat.Name(),
		Symbol:         symbol,
		Market:         market,
		Interval:       interval,
		StartDate:      start,
		EndDate:        end,
		InitialCapital: b.cfg.InitialCapital,
		FinalEquity:    report.FinalEquity,
		Signals:        allSignals,
		Fills:          fills,
		Trades:         trades,
		EquityCurve:    curve,
		Report:         report,
		CreatedAt:      time.Now().UTC(),
	}

	b.logger.Info("backtest complete",
		zap.String("run_id", result.RunID),
		zap.String("strategy", result.Strategy),
		zap.String("symbol", result.Symbol),
		zap.Int("bars", len(curve)),
		zap.Int("trades", len(trades)),
		zap.Float64("final_equity", result.FinalEquity))

	return result, nil
}

func (b *Backtester) newAccount() (*broker.Paper, error) {
	sizer, err := broker.NewPercentSizer(b.cfg.PositionSize)
	if err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid, err)
	}
	cost := broker.CostModel{Commission: b.cfg.Commission, Slippage: b.cfg.Slippage}
	acct, err := broker.NewPaper(b.cfg.InitialCapital, cost, sizer)
	if err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid, err)
	}
	return acct, nil
}

// execute routes a signal action to the paper account. Rejections are
// routine during a replay (a buy while already long, a sell while
// flat, a buy the cash cannot cover) and are logged, not returned.
func (b *Backtester) execute(acct *broker.Paper, action core.Action, bar core.OHLCV) *broker.Fill {
	var (
		fill *broker.Fill
		err  error
	)

	switch action {
	case core.ActionBuy:
		fill, err = acct.Buy(bar)
	case core.ActionSell:
		fill, err = acct.Sell(bar)
	default:
		return nil
	}

	if err != nil {
		b.logger.Debug("order rejected",
			zap.String("action", string(action)),
			zap.Time("bar", bar.Time),
			zap.Error(err))
		return nil
	}
	return fill
}

// max returns the larger of two integers
func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
