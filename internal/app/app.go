// Package app wires collectors, strategies, storage, and the backtest
// engine together behind a single Runner that both the CLI commands
// and the HTTP API drive.
package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/velahq/vela/internal/backtest"
	"github.com/velahq/vela/internal/collector"
	"github.com/velahq/vela/internal/collector/alpaca"
	"github.com/velahq/vela/internal/collector/binance"
	"github.com/velahq/vela/internal/collector/yahoo"
	"github.com/velahq/vela/internal/config"
	"github.com/velahq/vela/internal/core"
	"github.com/velahq/vela/internal/metrics"
	"github.com/velahq/vela/internal/storage/archive"
	"github.com/velahq/vela/internal/storage/bardata"
	"github.com/velahq/vela/internal/storage/run"
	"github.com/velahq/vela/internal/strategy"
	"github.com/velahq/vela/internal/strategy/bollinger"
	"github.com/velahq/vela/internal/strategy/ma_crossover"
	"github.com/velahq/vela/internal/strategy/momentum"
	"github.com/velahq/vela/internal/strategy/rsi"
	"go.uber.org/zap"
)

// BacktestParams identifies one run: what to trade, with which
// strategy, over which window. Params overrides the strategy's
// configured tuning for this run.
type BacktestParams struct {
	Symbol   string
	Strategy string
	Interval core.Interval
	Start    time.Time
	End      time.Time
	Params   map[string]any
}

// Runner is the application orchestrator. Wiring happens during
// setup; after that the Runner is safe for concurrent use.
type Runner struct {
	cfg        *config.Config
	logger     *zap.Logger
	collectors *collector.Registry
	strategies *strategy.Engine
	store      run.Store
	cache      *bardata.Cache
	metrics    *metrics.Registry
}

// New creates a Runner with empty registries. Call Setup, or the
// individual Setup methods, to populate them from configuration.
func New(cfg *config.Config, logger ...*zap.Logger) *Runner {
	l := zap.NewNop()
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	}
	return &Runner{
		cfg:        cfg,
		logger:     l,
		collectors: collector.NewRegistry(),
		strategies: strategy.NewEngine(l),
	}
}

// Setup initializes collectors, strategies, and storage from the
// loaded configuration.
func (r *Runner) Setup() error {
	if err := r.SetupCollectors(); err != nil {
		return err
	}
	if err := r.SetupStrategies(); err != nil {
		return err
	}
	return r.SetupStorage()
}

// SetupCollectors registers and initializes every enabled collector
// from the configuration.
func (r *Runner) SetupCollectors() error {
	names := make([]string, 0, len(r.cfg.Collectors))
	for name := range r.cfg.Collectors {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		cc := r.cfg.Collectors[name]
		if !cc.Enabled {
			continue
		}

		var c collector.Collector
		switch name {
		case "yahoo":
			c = yahoo.New()
		case "binance":
			c = binance.New()
		case "alpaca":
			c = alpaca.New()
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("unknown collector %q", name))
		}

		if err := c.Init(collectorConfig(cc, r.cfg.Data)); err != nil {
			return fmt.Errorf("init collector %s: %w", name, err)
		}
		r.collectors.Register(c)
		r.logger.Info("collector registered",
			zap.String("name", name),
			zap.Strings("markets", cc.Markets))
	}
	return nil
}

func collectorConfig(cc config.CollectorConfig, data config.DataConfig) collector.Config {
	return collector.Config{
		Enabled:         cc.Enabled,
		Markets:         cc.Markets,
		APIKey:          cc.APIKey,
		APISecret:       cc.APISecret,
		BaseURL:         cc.BaseURL,
		RateLimitPerMin: cc.RateLimitPerMin,
		RetryAttempts:   data.RetryAttempts,
		Timeout:         time.Duration(data.TimeoutSeconds) * time.Second,
	}
}

// SetupStrategies registers the built-in strategies and applies any
// configured parameter overrides. A strategy disabled in the
// configuration is not registered at all.
func (r *Runner) SetupStrategies() error {
	builtins := []strategy.Strategy{
		ma_crossover.New(0, 0),
		rsi.New(),
		bollinger.New(),
		momentum.New(),
	}
	known := make(map[string]bool, len(builtins))

	for _, s := range builtins {
		known[s.Name()] = true
		sc, configured := r.cfg.Strategies[s.Name()]
		if configured && !sc.Enabled {
			continue
		}
		if configured && len(sc.Params) > 0 {
			if err := s.Init(strategy.Config{Enabled: true, Params: sc.Params}); err != nil {
				return fmt.Errorf("init strategy %s: %w", s.Name(), err)
			}
		}
		r.strategies.Register(s)
	}

	names := make([]string, 0, len(r.cfg.Strategies))
	for name := range r.cfg.Strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !known[name] {
			return core.WrapError(core.ErrStrategyNotFound,
				fmt.Errorf("config references unknown strategy %q", name))
		}
	}

	r.logger.Info("strategies registered", zap.Strings("names", r.strategies.Names()))
	return nil
}

// SetupCache opens the bar cache without touching the run archive.
// A blank data dir leaves caching off.
func (r *Runner) SetupCache() error {
	if r.cfg.Data.Dir == "" {
		return nil
	}
	cache, err := bardata.NewCache(r.cfg.Data.Dir)
	if err != nil {
		return fmt.Errorf("bar cache: %w", err)
	}
	r.cache = cache
	return nil
}

// SetupStorage opens the bar cache and the run archive selected by
// the configuration.
func (r *Runner) SetupStorage() error {
	if err := r.SetupCache(); err != nil {
		return err
	}

	var backend archive.Storage
	var err error
	switch r.cfg.Storage.Archive.Type {
	case "s3":
		s3 := r.cfg.Storage.Archive.S3
		backend, err = archive.NewS3(archive.S3Config{
			Bucket:    s3.Bucket,
			Endpoint:  s3.Endpoint,
			Region:    s3.Region,
			AccessKey: s3.AccessKey,
			SecretKey: s3.SecretKey,
			Prefix:    s3.Prefix,
		})
	case "", "localfs":
		backend, err = archive.NewLocalFS(r.cfg.Storage.Archive.Path)
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown archive type %q", r.cfg.Storage.Archive.Type))
	}
	if err != nil {
		return fmt.Errorf("archive storage: %w", err)
	}

	r.store = run.NewArchiveStore(backend)
	r.logger.Info("storage ready",
		zap.String("archive", r.cfg.Storage.Archive.Type),
		zap.String("bar_cache", r.cfg.Data.Dir))
	return nil
}

// RegisterCollector adds a collector to the registry.
func (r *Runner) RegisterCollector(c collector.Collector) {
	r.collectors.Register(c)
}

// RegisterStrategy adds a strategy to the engine.
func (r *Runner) RegisterStrategy(s strategy.Strategy) {
	r.strategies.Register(s)
}

// SetStore overrides the run store.
func (r *Runner) SetStore(s run.Store) {
	r.store = s
}

// SetCache overrides the bar cache.
func (r *Runner) SetCache(c *bardata.Cache) {
	r.cache = c
}

// SetMetrics attaches a metrics registry. Without one the Runner
// records nothing.
func (r *Runner) SetMetrics(m *metrics.Registry) {
	r.metrics = m
}

// Config returns the loaded configuration.
func (r *Runner) Config() *config.Config {
	return r.cfg
}

// Store returns the run store, nil until SetupStorage or SetStore.
func (r *Runner) Store() run.Store {
	return r.store
}

// Strategies returns the strategy engine.
func (r *Runner) Strategies() *strategy.Engine {
	return r.strategies
}

// Collectors returns the collector registry.
func (r *Runner) Collectors() *collector.Registry {
	return r.collectors
}

// Fetch retrieves history for a symbol from the collector serving its
// market and refreshes the local bar cache.
func (r *Runner) Fetch(ctx context.Context, symbol string, interval core.Interval, start, end time.Time) ([]core.OHLCV, error) {
	c, err := r.collectorFor(symbol)
	if err != nil {
		return nil, err
	}

	bars, err := c.FetchHistory(ctx, symbol, interval, start, end)
	if r.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		r.metrics.RecordFetch(c.Name(), status, len(bars))
	}
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, core.WrapError(core.ErrNoData,
			fmt.Errorf("%s %s returned no bars in range", symbol, interval))
	}

	if r.cache != nil {
		if err := r.cache.Save(symbol, interval, bars); err != nil {
			r.logger.Warn("bar cache write failed",
				zap.String("symbol", symbol),
				zap.Error(err))
		}
	}

	r.logger.Debug("history fetched",
		zap.String("symbol", symbol),
		zap.String("source", c.Name()),
		zap.Int("bars", len(bars)))
	return bars, nil
}

// Quote returns the latest quote for a symbol.
func (r *Runner) Quote(ctx context.Context, symbol string) (*core.Quote, error) {
	c, err := r.collectorFor(symbol)
	if err != nil {
		return nil, err
	}
	return c.FetchQuote(ctx, symbol)
}

// Advise fetches a recent bar window for a symbol and runs every
// registered strategy over it, returning the signals the current
// window produces. Strategies that fail are skipped, not fatal.
func (r *Runner) Advise(ctx context.Context, symbol string, interval core.Interval) ([]core.Signal, error) {
	start, end := adviceWindow(interval, time.Now().UTC())
	bars, err := r.Fetch(ctx, symbol, interval, start, end)
	if err != nil {
		return nil, err
	}

	last := bars[len(bars)-1]
	signals, err := r.strategies.Analyze(ctx, strategy.Context{
		Symbol: symbol,
		Market: core.DetectMarket(symbol),
		Bars:   bars,
		Now:    last.Time,
	})
	if err != nil {
		return nil, err
	}

	for i := range signals {
		signals[i].Price = last.Close
		if r.metrics != nil {
			r.metrics.RecordSignal(signals[i].Strategy, string(signals[i].Action))
		}
	}

	r.logger.Debug("advice computed",
		zap.String("symbol", symbol),
		zap.Int("bars", len(bars)),
		zap.Int("signals", len(signals)))
	return signals, nil
}

// adviceWindow sizes the fetch window for an on-demand scan so the
// slowest built-in lookback has bars to spare: a month of intraday
// data, a year of daily bars, three years above that.
func adviceWindow(interval core.Interval, now time.Time) (time.Time, time.Time) {
	switch interval {
	case core.Interval1wk, core.Interval1mo:
		return now.AddDate(-3, 0, 0), now
	case core.Interval1d:
		return now.AddDate(-1, 0, 0), now
	default:
		return now.AddDate(0, 0, -30), now
	}
}

// collectorFor resolves the collector serving a symbol's market,
// falling back to the configured default source.
func (r *Runner) collectorFor(symbol string) (collector.Collector, error) {
	market := core.DetectMarket(symbol)
	if c, ok := r.collectors.ForMarket(market); ok {
		return c, nil
	}
	if c, ok := r.collectors.Get(r.cfg.Data.DefaultSource); ok {
		return c, nil
	}
	return nil, core.WrapError(core.ErrCollectorNotFound,
		fmt.Errorf("no collector serves market %s", market))
}

// Backtest runs one strategy over one symbol and window, archives the
// result when a store is configured, and returns it.
func (r *Runner) Backtest(ctx context.Context, params BacktestParams) (*backtest.Result, error) {
	if _, ok := r.strategies.Get(params.Strategy); !ok {
		return nil, core.WrapError(core.ErrStrategyNotFound,
			fmt.Errorf("strategy %q", params.Strategy))
	}
	strat := r.freshStrategy(params.Strategy)

	if merged := r.mergedParams(params); len(merged) > 0 {
		if err := strat.Init(strategy.Config{Enabled: true, Params: merged}); err != nil {
			return nil, err
		}
	}

	bcfg := backtest.Config{
		InitialCapital: r.cfg.Backtest.InitialCapital,
		Commission:     r.cfg.Backtest.Commission,
		Slippage:       r.cfg.Backtest.Slippage,
		PositionSize:   r.cfg.Backtest.PositionSize,
		RiskFreeRate:   r.cfg.Analysis.RiskFreeRate,
	}
	bt := backtest.New(&cachedProvider{runner: r}, bcfg, r.logger)

	started := time.Now()
	res, err := bt.Run(ctx, strat, params.Symbol, params.Interval, params.Start, params.End)
	if r.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		r.metrics.RecordBacktest(params.Strategy, status, time.Since(started).Seconds())
	}
	if err != nil {
		return nil, err
	}

	if r.metrics != nil {
		for _, sig := range res.Signals {
			r.metrics.RecordSignal(params.Strategy, string(sig.Action))
		}
	}

	if r.store != nil {
		if err := r.store.Save(ctx, res); err != nil {
			r.logger.Warn("run archive failed",
				zap.String("run_id", res.RunID),
				zap.Error(err))
		} else {
			r.logger.Debug("run archived", zap.String("run_id", res.RunID))
			r.RefreshRunsGauge(ctx)
		}
	}
	return res, nil
}

// freshStrategy returns a new instance of a built-in strategy so
// concurrent runs with different parameters never share state.
// Externally registered strategies fall back to the shared instance.
func (r *Runner) freshStrategy(name string) strategy.Strategy {
	switch name {
	case "ma_crossover":
		return ma_crossover.New(0, 0)
	case "rsi":
		return rsi.New()
	case "bollinger":
		return bollinger.New()
	case "momentum":
		return momentum.New()
	}
	s, _ := r.strategies.Get(name)
	return s
}

// mergedParams overlays per-run parameters on the configured ones.
func (r *Runner) mergedParams(p BacktestParams) map[string]any {
	merged := make(map[string]any)
	if sc, ok := r.cfg.Strategies[p.Strategy]; ok {
		for k, v := range sc.Params {
			merged[k] = v
		}
	}
	for k, v := range p.Params {
		merged[k] = v
	}
	return merged
}

// RefreshRunsGauge recounts archived runs for the metrics gauge.
// Best effort: listing failures leave the gauge untouched.
func (r *Runner) RefreshRunsGauge(ctx context.Context) {
	if r.metrics == nil || r.store == nil {
		return
	}
	summaries, err := r.store.List(ctx, run.Filter{})
	if err != nil {
		return
	}
	r.metrics.SetRunsStored(len(summaries))
}

// Stats reports what the Runner has wired, for health output.
func (r *Runner) Stats() map[string]any {
	return map[string]any{
		"collectors": r.collectors.Names(),
		"strategies": r.strategies.Names(),
		"archive":    r.store != nil,
		"bar_cache":  r.cache != nil,
	}
}
