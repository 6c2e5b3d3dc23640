package strategy

import (
	"time"

	"github.com/velahq/vela/internal/core"
)

// Config holds strategy configuration
type Config struct {
	Enabled bool
	Params  map[string]any
}

// DataRequirements specifies what data a strategy needs
type DataRequirements struct {
	Markets      []core.Market
	PriceHistory int // Bars of history needed before the first signal
	Indicators   []string
}

// Context provides one bar window to a strategy. Bars holds the
// history up to and including the current bar; Now is the current
// bar's timestamp.
type Context struct {
	Symbol string
	Market core.Market
	Bars   []core.OHLCV
	Now    time.Time
}

// Closes extracts the closing prices from the window.
func (c Context) Closes() []float64 {
	prices := make([]float64, len(c.Bars))
	for i, bar := range c.Bars {
		prices[i] = bar.Close
	}
	return prices
}

// Strategy evaluates bar windows and emits buy or sell signals.
// Returning no signals means hold. Implementations must be stateless
// across Analyze calls: the window carries everything they need, so
// one instance can serve concurrent backtests.
type Strategy interface {
	Name() string
	Description() string
	RequiredData() DataRequirements
	Init(cfg Config) error
	Analyze(ctx Context) ([]core.Signal, error)
}
