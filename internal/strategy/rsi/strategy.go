// Package rsi trades Relative Strength Index reversals: buy oversold,
// sell overbought.
package rsi

import (
	"fmt"

	"github.com/velahq/vela/internal/core"
	"github.com/velahq/vela/internal/indicator"
	"github.com/velahq/vela/internal/strategy"
)

const (
	defaultPeriod     = 14
	defaultOversold   = 30.0
	defaultOverbought = 70.0
)

// RSI emits a buy when the index drops below the oversold threshold
// and a sell when it rises above the overbought threshold.
type RSI struct {
	period     int
	oversold   float64
	overbought float64
}

// New creates the strategy with the standard 14/30/70 parameters.
func New() *RSI {
	return &RSI{
		period:     defaultPeriod,
		oversold:   defaultOversold,
		overbought: defaultOverbought,
	}
}

func (r *RSI) Name() string {
	return "rsi"
}

func (r *RSI) Description() string {
	return fmt.Sprintf("RSI (%d) reversal, buy < %.0f, sell > %.0f", r.period, r.oversold, r.overbought)
}

func (r *RSI) RequiredData() strategy.DataRequirements {
	return strategy.DataRequirements{
		PriceHistory: r.period + 1,
		Indicators:   []string{"RSI"},
	}
}

func (r *RSI) Init(cfg strategy.Config) error {
	r.period = strategy.IntParam(cfg.Params, "period", r.period)
	r.oversold = strategy.FloatParam(cfg.Params, "oversold", r.oversold)
	r.overbought = strategy.FloatParam(cfg.Params, "overbought", r.overbought)

	if r.period < 2 {
		return core.WrapError(core.ErrInvalidParams,
			fmt.Errorf("period %d too short", r.period))
	}
	if r.oversold >= r.overbought {
		return core.WrapError(core.ErrInvalidParams,
			fmt.Errorf("oversold %.1f must be below overbought %.1f", r.oversold, r.overbought))
	}
	return nil
}

func (r *RSI) Analyze(ctx strategy.Context) ([]core.Signal, error) {
	values := indicator.RSI(ctx.Closes(), r.period)
	if len(values) == 0 {
		return nil, nil // Not enough data
	}
	curr := values[len(values)-1]

	switch {
	case curr < r.oversold:
		return []core.Signal{{
			Symbol:      ctx.Symbol,
			Action:      core.ActionBuy,
			Confidence:  r.confidence(r.oversold - curr),
			Reason:      fmt.Sprintf("RSI%d oversold: %.2f < %.0f", r.period, curr, r.oversold),
			GeneratedAt: ctx.Now,
			Metadata:    map[string]any{"rsi": curr},
		}}, nil
	case curr > r.overbought:
		return []core.Signal{{
			Symbol:      ctx.Symbol,
			Action:      core.ActionSell,
			Confidence:  r.confidence(curr - r.overbought),
			Reason:      fmt.Sprintf("RSI%d overbought: %.2f > %.0f", r.period, curr, r.overbought),
			GeneratedAt: ctx.Now,
			Metadata:    map[string]any{"rsi": curr},
		}}, nil
	}
	return nil, nil
}

// confidence grows with the distance past the threshold, clamped to
// the 0.5-0.9 range the other strategies use.
func (r *RSI) confidence(excess float64) float64 {
	c := 0.5 + excess/50
	if c > 0.9 {
		c = 0.9
	}
	return c
}
