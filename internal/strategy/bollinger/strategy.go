// Package bollinger trades mean reversion against Bollinger Bands:
// buy at the lower band, sell at the upper band.
package bollinger

import (
	"fmt"

	"github.com/velahq/vela/internal/core"
	"github.com/velahq/vela/internal/indicator"
	"github.com/velahq/vela/internal/strategy"
)

const (
	defaultPeriod = 20
	defaultWidth  = 2.0
)

// Bollinger emits a buy when the close touches or breaks the lower
// band and a sell when it touches or breaks the upper band.
type Bollinger struct {
	period int
	width  float64
}

// New creates the strategy with the standard 20-bar, 2 sigma bands.
func New() *Bollinger {
	return &Bollinger{
		period: defaultPeriod,
		width:  defaultWidth,
	}
}

func (b *Bollinger) Name() string {
	return "bollinger"
}

func (b *Bollinger) Description() string {
	return fmt.Sprintf("Bollinger Bands (%d, %.1f sigma) mean reversion", b.period, b.width)
}

func (b *Bollinger) RequiredData() strategy.DataRequirements {
	return strategy.DataRequirements{
		PriceHistory: b.period,
		Indicators:   []string{"BB"},
	}
}

func (b *Bollinger) Init(cfg strategy.Config) error {
	b.period = strategy.IntParam(cfg.Params, "period", b.period)
	b.width = strategy.FloatParam(cfg.Params, "width", b.width)

	if b.period < 2 {
		return core.WrapError(core.ErrInvalidParams,
			fmt.Errorf("period %d too short", b.period))
	}
	if b.width <= 0 {
		return core.WrapError(core.ErrInvalidParams,
			fmt.Errorf("band width %.2f must be positive", b.width))
	}
	return nil
}

func (b *Bollinger) Analyze(ctx strategy.Context) ([]core.Signal, error) {
	prices := ctx.Closes()
	middle, upper, lower := indicator.Bollinger(prices, b.period, b.width)
	if len(middle) == 0 {
		return nil, nil // Not enough data
	}

	close := prices[len(prices)-1]
	currUpper := upper[len(upper)-1]
	currLower := lower[len(lower)-1]
	currMiddle := middle[len(middle)-1]

	// Flat windows collapse the bands onto the middle; every close
	// would touch both, which is no information at all.
	if currUpper == currLower {
		return nil, nil
	}

	switch {
	case close <= currLower:
		return []core.Signal{{
			Symbol:      ctx.Symbol,
			Action:      core.ActionBuy,
			Confidence:  b.confidence(currLower-close, currMiddle-currLower),
			Reason:      fmt.Sprintf("Close %.2f at lower band %.2f", close, currLower),
			GeneratedAt: ctx.Now,
			Metadata: map[string]any{
				"middle": currMiddle,
				"upper":  currUpper,
				"lower":  currLower,
			},
		}}, nil
	case close >= currUpper:
		return []core.Signal{{
			Symbol:      ctx.Symbol,
			Action:      core.ActionSell,
			Confidence:  b.confidence(close-currUpper, currUpper-currMiddle),
			Reason:      fmt.Sprintf("Close %.2f at upper band %.2f", close, currUpper),
			GeneratedAt: ctx.Now,
			Metadata: map[string]any{
				"middle": currMiddle,
				"upper":  currUpper,
				"lower":  currLower,
			},
		}}, nil
	}
	return nil, nil
}

// confidence grows with the penetration past the band relative to the
// band's half width, clamped to the 0.5-0.9 range.
func (b *Bollinger) confidence(penetration, halfWidth float64) float64 {
	if halfWidth <= 0 {
		return 0.5
	}
	c := 0.5 + 0.4*(penetration/halfWidth)
	if c > 0.9 {
		c = 0.9
	}
	return c
}
