// Package binance collects crypto quotes and klines from the Binance
// spot API. Symbols use Binance's native form, e.g. BTCUSDT.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/velahq/vela/internal/collector"
	"github.com/velahq/vela/internal/core"
	"github.com/velahq/vela/internal/util"
)

const (
	defaultBaseURL = "https://api.binance.com"

	defaultTimeout    = 10 * time.Second
	defaultRetries    = 3
	defaultRatePerMin = 1200
	retryBaseDelay    = 500 * time.Millisecond

	// Spot klines cap per request.
	klineLimit = 1000
)

var validSymbol = regexp.MustCompile(`^[A-Z0-9]{5,20}$`)

// Binance implements the Binance spot collector
type Binance struct {
	client  *http.Client
	limiter *rate.Limiter
	baseURL string
	retries int
}

// New creates a new Binance collector
func New() *Binance {
	return &Binance{
		client:  &http.Client{Timeout: defaultTimeout},
		limiter: rate.NewLimiter(rate.Every(time.Minute/defaultRatePerMin), 10),
		baseURL: defaultBaseURL,
		retries: defaultRetries,
	}
}

func (b *Binance) Name() string {
	return "binance"
}

func (b *Binance) SupportedMarkets() []core.Market {
	return []core.Market{core.MarketCrypto}
}

func (b *Binance) Init(cfg collector.Config) error {
	if cfg.BaseURL != "" {
		b.baseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		b.client.Timeout = cfg.Timeout
	}
	if cfg.RetryAttempts > 0 {
		b.retries = cfg.RetryAttempts
	}
	if cfg.RateLimitPerMin > 0 {
		b.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RateLimitPerMin)), 10)
	}
	return nil
}

// FetchQuote fetches the 24hr ticker for a symbol.
func (b *Binance) FetchQuote(ctx context.Context, symbol string) (*core.Quote, error) {
	if !validSymbol.MatchString(symbol) {
		return nil, core.WrapError(core.ErrSymbolNotFound,
			fmt.Errorf("invalid binance symbol: %s", symbol))
	}

	u := fmt.Sprintf("%s/api/v3/ticker/24hr?symbol=%s", b.baseURL, symbol)

	var result ticker24hr
	if err := b.getJSON(ctx, u, &result); err != nil {
		return nil, err
	}

	price, _ := strconv.ParseFloat(result.LastPrice, 64)
	volume, _ := strconv.ParseFloat(result.Volume, 64)
	bid, _ := strconv.ParseFloat(result.BidPrice, 64)
	ask, _ := strconv.ParseFloat(result.AskPrice, 64)

	return &core.Quote{
		Symbol: symbol,
		Market: core.MarketCrypto,
		Price:  price,
		Volume: int64(volume),
		Bid:    bid,
		Ask:    ask,
		Time:   time.UnixMilli(result.CloseTime),
		Source: "binance",
	}, nil
}

// FetchHistory fetches historical klines. Binance returns at most 1000
// bars per request, so longer ranges are paged by open time.
func (b *Binance) FetchHistory(ctx context.Context, symbol string, interval core.Interval, start, end time.Time) ([]core.OHLCV, error) {
	if !validSymbol.MatchString(symbol) {
		return nil, core.WrapError(core.ErrSymbolNotFound,
			fmt.Errorf("invalid binance symbol: %s", symbol))
	}
	binanceInterval, err := toBinanceInterval(interval)
	if err != nil {
		return nil, err
	}

	var data []core.OHLCV
	from := start.UnixMilli()
	endMs := end.UnixMilli()

	for from < endMs {
		u := fmt.Sprintf("%s/api/v3/klines?symbol=%s&interval=%s&startTime=%d&endTime=%d&limit=%d",
			b.baseURL, symbol, binanceInterval, from, endMs, klineLimit)

		var klines [][]any
		if err := b.getJSON(ctx, u, &klines); err != nil {
			return nil, err
		}
		if len(klines) == 0 {
			break
		}

		for _, k := range klines {
			bar, ok := parseKline(symbol, interval, k)
			if !ok {
				continue
			}
			data = append(data, bar)
		}

		last, _ := klines[len(klines)-1][0].(float64)
		next := int64(last) + 1
		if next <= from || len(klines) < klineLimit {
			break
		}
		from = next
	}

	if len(data) == 0 {
		return nil, core.WrapError(core.ErrNoData,
			fmt.Errorf("no klines for %s between %d and %d", symbol, start.UnixMilli(), endMs))
	}
	return data, nil
}

func (b *Binance) getJSON(ctx context.Context, u string, out any) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}

	err := util.Retry(ctx, b.retries, retryBaseDelay, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := b.client.Do(req)
		if err != nil {
			return fmt.Errorf("fetching: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status: %d", resp.StatusCode)
		}
		return json.NewDecoder(resp.Body).Decode(out)
	})
	if err != nil {
		return core.WrapError(core.ErrCollectorFailed, err)
	}
	return nil
}

// parseKline decodes one kline array: open time, then OHLCV as strings.
func parseKline(symbol string, interval core.Interval, k []any) (core.OHLCV, bool) {
	if len(k) < 6 {
		return core.OHLCV{}, false
	}

	openTime, ok := k[0].(float64)
	if !ok {
		return core.OHLCV{}, false
	}
	openStr, _ := k[1].(string)
	highStr, _ := k[2].(string)
	lowStr, _ := k[3].(string)
	closeStr, _ := k[4].(string)
	volumeStr, _ := k[5].(string)

	open, _ := strconv.ParseFloat(openStr, 64)
	high, _ := strconv.ParseFloat(highStr, 64)
	low, _ := strconv.ParseFloat(lowStr, 64)
	closePrice, _ := strconv.ParseFloat(closeStr, 64)
	volume, _ := strconv.ParseFloat(volumeStr, 64)

	return core.OHLCV{
		Symbol:   symbol,
		Interval: interval,
		Open:     open,
		High:     high,
		Low:      low,
		Close:    closePrice,
		Volume:   int64(volume),
		Time:     time.UnixMilli(int64(openTime)),
	}, true
}

func toBinanceInterval(interval core.Interval) (string, error) {
	switch interval {
	case core.Interval1m, core.Interval5m, core.Interval15m, core.Interval30m, core.Interval1h, core.Interval1d:
		return string(interval), nil
	case core.Interval1wk:
		return "1w", nil
	case core.Interval1mo:
		return "1M", nil
	default:
		return "", core.WrapError(core.ErrInvalidInterval,
			fmt.Errorf("interval %q not supported by binance", interval))
	}
}

// Binance API response types
type ticker24hr struct {
	Symbol    string `json:"symbol"`
	LastPrice string `json:"lastPrice"`
	Volume    string `json:"volume"`
	BidPrice  string `json:"bidPrice"`
	AskPrice  string `json:"askPrice"`
	CloseTime int64  `json:"closeTime"`
}
