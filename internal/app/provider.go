package app

import (
	"context"
	"time"

	"github.com/velahq/vela/internal/core"
	"go.uber.org/zap"
)

// cachedProvider serves backtest data from the local bar cache when
// it covers the requested window, falling back to a live fetch that
// also refreshes the cache.
type cachedProvider struct {
	runner *Runner
}

func (p *cachedProvider) FetchHistory(ctx context.Context, symbol string, interval core.Interval, start, end time.Time) ([]core.OHLCV, error) {
	r := p.runner

	if r.cache != nil && r.cache.Has(symbol, interval) {
		bars, err := r.cache.Load(symbol, interval)
		if err != nil {
			r.logger.Warn("bar cache read failed",
				zap.String("symbol", symbol),
				zap.Error(err))
		} else if window := clipWindow(bars, start, end); len(window) > 0 {
			r.logger.Debug("serving bars from cache",
				zap.String("symbol", symbol),
				zap.Int("bars", len(window)))
			return window, nil
		}
	}

	bars, err := r.Fetch(ctx, symbol, interval, start, end)
	if err != nil {
		return nil, err
	}
	return clipWindow(bars, start, end), nil
}

// clipWindow returns the bars inside [start, end]. Zero bounds are
// open-ended.
func clipWindow(bars []core.OHLCV, start, end time.Time) []core.OHLCV {
	out := make([]core.OHLCV, 0, len(bars))
	for _, b := range bars {
		if !start.IsZero() && b.Time.Before(start) {
			continue
		}
		if !end.IsZero() && b.Time.After(end) {
			continue
		}
		out = append(out, b)
	}
	return out
}
