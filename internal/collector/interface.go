// Package collector defines the market data source interface and the
// registry the rest of the system resolves sources from. Collectors
// are pull-based: they fetch quotes and historical bars on demand and
// hold no connections between calls.
package collector

import (
	"context"
	"time"

	"github.com/velahq/vela/internal/core"
)

// Config holds collector configuration
type Config struct {
	Enabled         bool
	Markets         []string
	APIKey          string
	APISecret       string
	BaseURL         string
	RateLimitPerMin int
	RetryAttempts   int
	Timeout         time.Duration
}

// Collector defines the interface for data collectors
type Collector interface {
	// Metadata
	Name() string
	SupportedMarkets() []core.Market

	// Lifecycle
	Init(cfg Config) error

	// Data fetching
	FetchQuote(ctx context.Context, symbol string) (*core.Quote, error)
	FetchHistory(ctx context.Context, symbol string, interval core.Interval, start, end time.Time) ([]core.OHLCV, error)
}
