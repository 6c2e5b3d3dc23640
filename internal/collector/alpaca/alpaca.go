// Package alpaca collects US equity bars and quotes from the Alpaca
// market-data API. It needs API credentials, so it stays disabled
// unless keys are configured.
package alpaca

import (
	"context"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"github.com/velahq/vela/internal/collector"
	"github.com/velahq/vela/internal/core"
)

// Alpaca implements the Alpaca market-data collector
type Alpaca struct {
	client *marketdata.Client
}

// New creates an uninitialized Alpaca collector. Init must be called
// with credentials before fetching.
func New() *Alpaca {
	return &Alpaca{}
}

func (a *Alpaca) Name() string {
	return "alpaca"
}

func (a *Alpaca) SupportedMarkets() []core.Market {
	return []core.Market{core.MarketUS}
}

func (a *Alpaca) Init(cfg collector.Config) error {
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("alpaca requires api_key and api_secret"))
	}

	opts := marketdata.ClientOpts{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
	}
	if cfg.BaseURL != "" {
		opts.BaseURL = cfg.BaseURL
	}
	a.client = marketdata.NewClient(opts)
	return nil
}

// FetchQuote fetches the latest snapshot for a symbol. The alpaca
// client has no context plumbing, so cancellation is only checked
// before the call.
func (a *Alpaca) FetchQuote(ctx context.Context, symbol string) (*core.Quote, error) {
	if a.client == nil {
		return nil, core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("alpaca collector not initialized"))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap, err := a.client.GetSnapshot(symbol, marketdata.GetSnapshotRequest{})
	if err != nil {
		return nil, core.WrapError(core.ErrCollectorFailed,
			fmt.Errorf("snapshot %s: %w", symbol, err))
	}
	if snap == nil || snap.LatestTrade == nil {
		return nil, core.WrapError(core.ErrNoData,
			fmt.Errorf("no snapshot for %s", symbol))
	}

	quote := &core.Quote{
		Symbol: symbol,
		Market: core.MarketUS,
		Price:  snap.LatestTrade.Price,
		Time:   snap.LatestTrade.Timestamp,
		Source: "alpaca",
	}
	if snap.LatestQuote != nil {
		quote.Bid = snap.LatestQuote.BidPrice
		quote.Ask = snap.LatestQuote.AskPrice
	}
	if snap.DailyBar != nil {
		quote.Volume = int64(snap.DailyBar.Volume)
	}
	return quote, nil
}

// FetchHistory fetches historical bars. The client pages through long
// ranges internally.
func (a *Alpaca) FetchHistory(ctx context.Context, symbol string, interval core.Interval, start, end time.Time) ([]core.OHLCV, error) {
	if a.client == nil {
		return nil, core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("alpaca collector not initialized"))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	timeframe, err := toTimeFrame(interval)
	if err != nil {
		return nil, err
	}

	bars, err := a.client.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame:  timeframe,
		Adjustment: marketdata.Split,
		Start:      start,
		End:        end,
	})
	if err != nil {
		return nil, core.WrapError(core.ErrCollectorFailed,
			fmt.Errorf("bars %s: %w", symbol, err))
	}
	if len(bars) == 0 {
		return nil, core.WrapError(core.ErrNoData,
			fmt.Errorf("no bars for %s between %s and %s",
				symbol, start.Format("2006-01-02"), end.Format("2006-01-02")))
	}

	data := make([]core.OHLCV, 0, len(bars))
	for _, b := range bars {
		data = append(data, core.OHLCV{
			Symbol:   symbol,
			Interval: interval,
			Open:     b.Open,
			High:     b.High,
			Low:      b.Low,
			Close:    b.Close,
			Volume:   int64(b.Volume),
			Time:     b.Timestamp,
		})
	}
	return data, nil
}

func toTimeFrame(interval core.Interval) (marketdata.TimeFrame, error) {
	switch interval {
	case core.Interval1m:
		return marketdata.OneMin, nil
	case core.Interval5m:
		return marketdata.NewTimeFrame(5, marketdata.Min), nil
	case core.Interval15m:
		return marketdata.NewTimeFrame(15, marketdata.Min), nil
	case core.Interval30m:
		return marketdata.NewTimeFrame(30, marketdata.Min), nil
	case core.Interval1h:
		return marketdata.OneHour, nil
	case core.Interval1d:
		return marketdata.OneDay, nil
	case core.Interval1wk:
		return marketdata.NewTimeFrame(1, marketdata.Week), nil
	case core.Interval1mo:
		return marketdata.NewTimeFrame(1, marketdata.Month), nil
	default:
		return marketdata.TimeFrame{}, core.WrapError(core.ErrInvalidInterval,
			fmt.Errorf("interval %q not supported by alpaca", interval))
	}
}
