package ma_crossover

import (
	"fmt"

	"github.com/velahq/vela/internal/core"
	"github.com/velahq/vela/internal/indicator"
	"github.com/velahq/vela/internal/strategy"
)

const (
	defaultFastPeriod = 10
	defaultSlowPeriod = 30
)

// MACrossover trades simple moving average crossovers: buy when the
// fast average crosses above the slow one, sell when it crosses below.
type MACrossover struct {
	fastPeriod int
	slowPeriod int
}

// New creates the strategy with the given periods; non-positive
// arguments fall back to the 10/30 defaults.
func New(fastPeriod, slowPeriod int) *MACrossover {
	if fastPeriod <= 0 {
		fastPeriod = defaultFastPeriod
	}
	if slowPeriod <= 0 {
		slowPeriod = defaultSlowPeriod
	}
	return &MACrossover{
		fastPeriod: fastPeriod,
		slowPeriod: slowPeriod,
	}
}

func (m *MACrossover) Name() string {
	return "ma_crossover"
}

func (m *MACrossover) Description() string {
	return fmt.Sprintf("MA Crossover (%d/%d)", m.fastPeriod, m.slowPeriod)
}

func (m *MACrossover) RequiredData() strategy.DataRequirements {
	return strategy.DataRequirements{
		PriceHistory: m.slowPeriod + 1,
		Indicators:   []string{"SMA"},
	}
}

func (m *MACrossover) Init(cfg strategy.Config) error {
	m.fastPeriod = strategy.IntParam(cfg.Params, "fast_period", m.fastPeriod)
	m.slowPeriod = strategy.IntParam(cfg.Params, "slow_period", m.slowPeriod)
	if m.fastPeriod >= m.slowPeriod {
		return core.WrapError(core.ErrInvalidParams,
			fmt.Errorf("fast period %d must be below slow period %d", m.fastPeriod, m.slowPeriod))
	}
	return nil
}

func (m *MACrossover) Analyze(ctx strategy.Context) ([]core.Signal, error) {
	if len(ctx.Bars) < m.slowPeriod+1 {
		return nil, nil // Not enough data
	}

	prices := ctx.Closes()
	fastMA := indicator.SMA(prices, m.fastPeriod)
	slowMA := indicator.SMA(prices, m.slowPeriod)

	currFast := fastMA[len(fastMA)-1]
	currSlow := slowMA[len(slowMA)-1]

	var signals []core.Signal

	// Golden Cross: fast crosses above slow
	if indicator.CrossedAbove(fastMA, slowMA) {
		signals = append(signals, core.Signal{
			Symbol:      ctx.Symbol,
			Action:      core.ActionBuy,
			Confidence:  m.calculateConfidence(currFast, currSlow),
			Reason:      fmt.Sprintf("Golden Cross: MA%d (%.2f) crossed above MA%d (%.2f)", m.fastPeriod, currFast, m.slowPeriod, currSlow),
			GeneratedAt: ctx.Now,
			Metadata: map[string]any{
				"fast_ma": currFast,
				"slow_ma": currSlow,
				"type":    "golden_cross",
			},
		})
	}

	// Death Cross: fast crosses below slow
	if indicator.CrossedBelow(fastMA, slowMA) {
		signals = append(signals, core.Signal{
			Symbol:      ctx.Symbol,
			Action:      core.ActionSell,
			Confidence:  m.calculateConfidence(currFast, currSlow),
			Reason:      fmt.Sprintf("Death Cross: MA%d (%.2f) crossed below MA%d (%.2f)", m.fastPeriod, currFast, m.slowPeriod, currSlow),
			GeneratedAt: ctx.Now,
			Metadata: map[string]any{
				"fast_ma": currFast,
				"slow_ma": currSlow,
				"type":    "death_cross",
			},
		})
	}

	return signals, nil
}

// calculateConfidence returns higher confidence for larger divergence
func (m *MACrossover) calculateConfidence(fast, slow float64) float64 {
	if slow == 0 {
		return 0.5
	}
	diff := (fast - slow) / slow
	if diff < 0 {
		diff = -diff
	}

	// Scale to 0.5-0.9 range based on divergence
	confidence := 0.5 + diff*10
	if confidence > 0.9 {
		confidence = 0.9
	}
	return confidence
}
