// Package yahoo collects quotes and historical bars from the Yahoo
// Finance chart API. It is the default source for NSE and BSE symbols
// (RELIANCE.NS, TCS.NS, SENSEX.BO) and works for US tickers unchanged.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"golang.org/x/time/rate"

	"github.com/velahq/vela/internal/collector"
	"github.com/velahq/vela/internal/core"
	"github.com/velahq/vela/internal/util"
)

const (
	defaultBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"

	defaultTimeout    = 10 * time.Second
	defaultRetries    = 3
	defaultRatePerMin = 60
	retryBaseDelay    = 500 * time.Millisecond
	limiterBurst      = 5
)

// validSymbol matches symbols like RELIANCE.NS, BAJAJ-AUTO.NS, M&M.NS,
// AAPL, and index symbols like ^NSEI.
var validSymbol = regexp.MustCompile(`^\^?[A-Za-z0-9&-]{1,15}(\.[A-Za-z]{1,4})?$`)

// validateSymbol checks if a symbol has valid format
func validateSymbol(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("symbol cannot be empty")
	}
	if !validSymbol.MatchString(symbol) {
		return fmt.Errorf("invalid symbol format: %s", symbol)
	}
	return nil
}

// Yahoo implements the Yahoo Finance collector
type Yahoo struct {
	client  *http.Client
	limiter *rate.Limiter
	baseURL string
	retries int
	config  collector.Config
}

// New creates a new Yahoo collector
func New() *Yahoo {
	return &Yahoo{
		client:  &http.Client{Timeout: defaultTimeout},
		limiter: rate.NewLimiter(rate.Every(time.Minute/defaultRatePerMin), limiterBurst),
		baseURL: defaultBaseURL,
		retries: defaultRetries,
	}
}

func (y *Yahoo) Name() string {
	return "yahoo"
}

func (y *Yahoo) SupportedMarkets() []core.Market {
	return []core.Market{core.MarketIN, core.MarketUS}
}

func (y *Yahoo) Init(cfg collector.Config) error {
	y.config = cfg
	if cfg.BaseURL != "" {
		y.baseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		y.client.Timeout = cfg.Timeout
	}
	if cfg.RetryAttempts > 0 {
		y.retries = cfg.RetryAttempts
	}
	if cfg.RateLimitPerMin > 0 {
		y.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RateLimitPerMin)), limiterBurst)
	}
	return nil
}

// FetchQuote fetches the latest quote for a symbol.
func (y *Yahoo) FetchQuote(ctx context.Context, symbol string) (*core.Quote, error) {
	if err := validateSymbol(symbol); err != nil {
		return nil, core.WrapError(core.ErrSymbolNotFound, err)
	}

	u := fmt.Sprintf("%s/%s?interval=1d&range=1d", y.baseURL, url.PathEscape(symbol))
	result, err := y.fetchChart(ctx, u, symbol)
	if err != nil {
		return nil, err
	}

	meta := result.Meta
	return &core.Quote{
		Symbol: symbol,
		Market: core.DetectMarket(symbol),
		Price:  meta.RegularMarketPrice,
		Volume: int64(meta.RegularMarketVolume),
		Time:   time.Unix(int64(meta.RegularMarketTime), 0),
		Source: "yahoo",
	}, nil
}

// FetchHistory fetches historical OHLCV data. Bar times are converted
// to the exchange timezone reported by Yahoo, so NSE daily bars land
// on Asia/Kolkata session dates.
func (y *Yahoo) FetchHistory(ctx context.Context, symbol string, interval core.Interval, start, end time.Time) ([]core.OHLCV, error) {
	if err := validateSymbol(symbol); err != nil {
		return nil, core.WrapError(core.ErrSymbolNotFound, err)
	}
	yahooInterval, err := toYahooInterval(interval)
	if err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/%s?interval=%s&period1=%d&period2=%d",
		y.baseURL, url.PathEscape(symbol), yahooInterval, start.Unix(), end.Unix())

	result, err := y.fetchChart(ctx, u, symbol)
	if err != nil {
		return nil, err
	}
	if len(result.Timestamp) == 0 || len(result.Indicators.Quote) == 0 {
		return nil, core.WrapError(core.ErrNoData,
			fmt.Errorf("no bars for %s between %d and %d", symbol, start.Unix(), end.Unix()))
	}

	loc := exchangeLocation(result.Meta.ExchangeTimezoneName)
	quotes := result.Indicators.Quote[0]

	data := make([]core.OHLCV, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(quotes.Open) || quotes.Open[i] == nil {
			continue // Yahoo pads partial sessions with nulls
		}
		data = append(data, core.OHLCV{
			Symbol:   symbol,
			Interval: interval,
			Open:     *quotes.Open[i],
			High:     *quotes.High[i],
			Low:      *quotes.Low[i],
			Close:    *quotes.Close[i],
			Volume:   volumeAt(quotes.Volume, i),
			Time:     time.Unix(int64(ts), 0).In(loc),
		})
	}

	return data, nil
}

// fetchChart performs a rate-limited, retried GET against the chart
// API and returns the first chart result.
func (y *Yahoo) fetchChart(ctx context.Context, u, symbol string) (*chartResult, error) {
	if err := y.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var result chartResponse
	err := util.Retry(ctx, y.retries, retryBaseDelay, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}
		// Yahoo serves 429 to clients without a browser user agent.
		req.Header.Set("User-Agent", "Mozilla/5.0")

		resp, err := y.client.Do(req)
		if err != nil {
			return fmt.Errorf("fetching chart: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status: %d", resp.StatusCode)
		}
		return json.NewDecoder(resp.Body).Decode(&result)
	})
	if err != nil {
		return nil, core.WrapError(core.ErrCollectorFailed, err)
	}

	if result.Chart.Error != nil {
		return nil, core.WrapError(core.ErrSymbolNotFound,
			fmt.Errorf("yahoo error: %s", result.Chart.Error.Description))
	}
	if len(result.Chart.Result) == 0 {
		return nil, core.WrapError(core.ErrNoData,
			fmt.Errorf("no data for symbol: %s", symbol))
	}
	return &result.Chart.Result[0], nil
}

// toYahooInterval maps bar intervals to chart API granularities.
// Yahoo spells the hourly granularity "60m".
func toYahooInterval(interval core.Interval) (string, error) {
	switch interval {
	case core.Interval1m:
		return "1m", nil
	case core.Interval5m:
		return "5m", nil
	case core.Interval15m:
		return "15m", nil
	case core.Interval30m:
		return "30m", nil
	case core.Interval1h:
		return "60m", nil
	case core.Interval1d:
		return "1d", nil
	case core.Interval1wk:
		return "1wk", nil
	case core.Interval1mo:
		return "1mo", nil
	default:
		return "", core.WrapError(core.ErrInvalidInterval,
			fmt.Errorf("interval %q not supported by yahoo", interval))
	}
}

func exchangeLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

func volumeAt(volumes []*int64, i int) int64 {
	if i >= len(volumes) || volumes[i] == nil {
		return 0
	}
	return *volumes[i]
}

// Yahoo API response types
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta       chartMeta  `json:"meta"`
	Timestamp  []int      `json:"timestamp"`
	Indicators indicators `json:"indicators"`
}

type chartMeta struct {
	Symbol               string  `json:"symbol"`
	ExchangeTimezoneName string  `json:"exchangeTimezoneName"`
	RegularMarketPrice   float64 `json:"regularMarketPrice"`
	RegularMarketVolume  int     `json:"regularMarketVolume"`
	RegularMarketTime    int     `json:"regularMarketTime"`
}

type indicators struct {
	Quote []quoteIndicator `json:"quote"`
}

type quoteIndicator struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
}
