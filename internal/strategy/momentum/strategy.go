// Package momentum trades Rate of Change breakouts confirmed by a
// moving average trend filter.
package momentum

import (
	"fmt"

	"github.com/velahq/vela/internal/core"
	"github.com/velahq/vela/internal/indicator"
	"github.com/velahq/vela/internal/strategy"
)

const (
	defaultROCPeriod   = 10
	defaultThreshold   = 0.5 // Minimum ROC in percent
	defaultTrendPeriod = 20
)

// Momentum buys when the percentage Rate of Change clears the
// threshold with price above the trend average, and sells when
// momentum flips negative or price loses the trend average.
type Momentum struct {
	rocPeriod   int
	threshold   float64
	trendPeriod int
}

// New creates the strategy with the 10-bar ROC, 0.5% threshold and
// 20-bar trend filter.
func New() *Momentum {
	return &Momentum{
		rocPeriod:   defaultROCPeriod,
		threshold:   defaultThreshold,
		trendPeriod: defaultTrendPeriod,
	}
}

func (m *Momentum) Name() string {
	return "momentum"
}

func (m *Momentum) Description() string {
	return fmt.Sprintf("Momentum: ROC%d above %.1f%% with SMA%d trend filter", m.rocPeriod, m.threshold, m.trendPeriod)
}

func (m *Momentum) RequiredData() strategy.DataRequirements {
	bars := m.trendPeriod
	if m.rocPeriod+1 > bars {
		bars = m.rocPeriod + 1
	}
	return strategy.DataRequirements{
		PriceHistory: bars,
		Indicators:   []string{"ROC", "SMA"},
	}
}

func (m *Momentum) Init(cfg strategy.Config) error {
	m.rocPeriod = strategy.IntParam(cfg.Params, "roc_period", m.rocPeriod)
	m.threshold = strategy.FloatParam(cfg.Params, "threshold", m.threshold)
	m.trendPeriod = strategy.IntParam(cfg.Params, "trend_period", m.trendPeriod)

	if m.rocPeriod < 1 || m.trendPeriod < 1 {
		return core.WrapError(core.ErrInvalidParams,
			fmt.Errorf("periods must be positive, got roc %d trend %d", m.rocPeriod, m.trendPeriod))
	}
	if m.threshold < 0 {
		return core.WrapError(core.ErrInvalidParams,
			fmt.Errorf("threshold %.2f cannot be negative", m.threshold))
	}
	return nil
}

func (m *Momentum) Analyze(ctx strategy.Context) ([]core.Signal, error) {
	prices := ctx.Closes()
	roc := indicator.ROC(prices, m.rocPeriod)
	sma := indicator.SMA(prices, m.trendPeriod)
	if len(roc) == 0 || len(sma) == 0 {
		return nil, nil // Not enough data
	}

	currROC := roc[len(roc)-1]
	currSMA := sma[len(sma)-1]
	price := prices[len(prices)-1]

	switch {
	case currROC > m.threshold && price > currSMA:
		return []core.Signal{{
			Symbol:      ctx.Symbol,
			Action:      core.ActionBuy,
			Confidence:  m.confidence(currROC),
			Reason:      fmt.Sprintf("ROC%d %.2f%% above %.1f%%, price %.2f above SMA%d %.2f", m.rocPeriod, currROC, m.threshold, price, m.trendPeriod, currSMA),
			GeneratedAt: ctx.Now,
			Metadata: map[string]any{
				"roc": currROC,
				"sma": currSMA,
			},
		}}, nil
	case currROC < -m.threshold || price < currSMA:
		return []core.Signal{{
			Symbol:      ctx.Symbol,
			Action:      core.ActionSell,
			Confidence:  m.confidence(currROC),
			Reason:      fmt.Sprintf("Momentum faded: ROC%d %.2f%%, price %.2f vs SMA%d %.2f", m.rocPeriod, currROC, price, m.trendPeriod, currSMA),
			GeneratedAt: ctx.Now,
			Metadata: map[string]any{
				"roc": currROC,
				"sma": currSMA,
			},
		}}, nil
	}
	return nil, nil
}

// confidence scales with the momentum magnitude: 5% absolute ROC maps
// to the 0.9 ceiling.
func (m *Momentum) confidence(roc float64) float64 {
	if roc < 0 {
		roc = -roc
	}
	c := 0.5 + roc*0.08
	if c > 0.9 {
		c = 0.9
	}
	return c
}
