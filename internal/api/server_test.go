package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/velahq/vela/internal/app"
	"github.com/velahq/vela/internal/backtest"
	"github.com/velahq/vela/internal/collector"
	"github.com/velahq/vela/internal/config"
	"github.com/velahq/vela/internal/core"
	"github.com/velahq/vela/internal/metrics"
	"github.com/velahq/vela/internal/perf"
	"github.com/velahq/vela/internal/storage/run"
	"github.com/velahq/vela/internal/strategy"
)

var fixtureBase = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

type fakeCollector struct {
	history []core.OHLCV
}

func (f *fakeCollector) Name() string                    { return "fake" }
func (f *fakeCollector) SupportedMarkets() []core.Market { return []core.Market{core.MarketUS} }
func (f *fakeCollector) Init(cfg collector.Config) error { return nil }

func (f *fakeCollector) FetchQuote(ctx context.Context, symbol string) (*core.Quote, error) {
	return &core.Quote{Symbol: symbol, Price: 100, Time: time.Now()}, nil
}

func (f *fakeCollector) FetchHistory(ctx context.Context, symbol string, interval core.Interval, start, end time.Time) ([]core.OHLCV, error) {
	return f.history, nil
}

// pulseStrategy buys on its third bar and sells on its sixth.
type pulseStrategy struct {
	calls int
}

func (p *pulseStrategy) Name() string        { return "pulse" }
func (p *pulseStrategy) Description() string { return "deterministic test strategy" }

func (p *pulseStrategy) RequiredData() strategy.DataRequirements {
	return strategy.DataRequirements{PriceHistory: 3}
}

func (p *pulseStrategy) Init(cfg strategy.Config) error { return nil }

func (p *pulseStrategy) Analyze(ctx strategy.Context) ([]core.Signal, error) {
	p.calls++
	switch p.calls {
	case 3:
		return []core.Signal{{Symbol: ctx.Symbol, Action: core.ActionBuy, Confidence: 0.9, GeneratedAt: ctx.Now}}, nil
	case 6:
		return []core.Signal{{Symbol: ctx.Symbol, Action: core.ActionSell, Confidence: 0.9, GeneratedAt: ctx.Now}}, nil
	}
	return nil, nil
}

func barFixture(n int) []core.OHLCV {
	bars := make([]core.OHLCV, n)
	for i := range bars {
		price := 100.0 + float64(i)
		bars[i] = core.OHLCV{
			Symbol:   "AAPL",
			Interval: core.Interval1d,
			Open:     price - 0.5,
			High:     price + 1,
			Low:      price - 1,
			Close:    price,
			Volume:   1000,
			Time:     fixtureBase.Add(time.Duration(i) * 24 * time.Hour),
		}
	}
	return bars
}

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()

	appCfg := config.Defaults()
	runner := app.New(appCfg)
	runner.RegisterCollector(&fakeCollector{history: barFixture(40)})
	if err := runner.SetupStrategies(); err != nil {
		t.Fatalf("SetupStrategies() error = %v", err)
	}
	runner.RegisterStrategy(&pulseStrategy{})
	runner.SetStore(run.NewMemoryStore(50))

	return NewServer(cfg, runner, nil)
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var rdr *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rdr = bytes.NewReader(raw)
	} else {
		rdr = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, rdr)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decoding envelope: %v", err)
	}
	if err := json.Unmarshal(envelope.Data, v); err != nil {
		t.Fatalf("decoding data: %v", err)
	}
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decoding error envelope: %v", err)
	}
	return envelope.Error.Code
}

func TestServer_Health(t *testing.T) {
	srv := newTestServer(t, Config{Host: "localhost"})

	w := doJSON(t, srv.mux, "GET", "/api/v1/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var data struct {
		Status     string   `json:"status"`
		Strategies []string `json:"strategies"`
	}
	decodeData(t, w, &data)
	if data.Status != "ok" {
		t.Errorf("status = %q, want ok", data.Status)
	}
	if len(data.Strategies) != 5 {
		t.Errorf("strategies = %d, want 5", len(data.Strategies))
	}
}

func TestServer_BacktestLifecycle(t *testing.T) {
	srv := newTestServer(t, Config{Host: "localhost", MaxJobs: 10})

	w := doJSON(t, srv.mux, "POST", "/api/v1/backtests", BacktestRequest{
		Symbol:   "AAPL",
		Strategy: "pulse",
		Interval: "1d",
		Start:    "2024-01-01",
		End:      "2024-03-01",
	})
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", w.Code, w.Body.String())
	}

	var created struct {
		JobID  string `json:"job_id"`
		Status string `json:"status"`
	}
	decodeData(t, w, &created)
	if created.JobID == "" {
		t.Fatal("expected a job ID")
	}
	if created.Status != "pending" {
		t.Errorf("status = %q, want pending", created.Status)
	}

	var result struct {
		RunID  string `json:"run_id"`
		Symbol string `json:"symbol"`
	}
	deadline := time.Now().Add(3 * time.Second)
	for {
		if time.Now().After(deadline) {
			t.Fatal("job did not complete in time")
		}

		w = doJSON(t, srv.mux, "GET", "/api/v1/backtests/"+created.JobID, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}

		var state struct {
			Status string          `json:"status"`
			Result json.RawMessage `json:"result"`
			Error  struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		decodeData(t, w, &state)

		if state.Status == "failed" {
			t.Fatalf("job failed: %s %s", state.Error.Code, state.Error.Message)
		}
		if state.Status == "complete" {
			if err := json.Unmarshal(state.Result, &result); err != nil {
				t.Fatalf("decoding result: %v", err)
			}
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	if result.RunID == "" {
		t.Error("expected a run ID in the result")
	}
	if result.Symbol != "AAPL" {
		t.Errorf("symbol = %q, want AAPL", result.Symbol)
	}

	// The completed run lands in the archive.
	w = doJSON(t, srv.mux, "GET", "/api/v1/runs", nil)
	var listed struct {
		Count int `json:"count"`
	}
	decodeData(t, w, &listed)
	if listed.Count != 1 {
		t.Errorf("archived runs = %d, want 1", listed.Count)
	}
}

func TestServer_CreateBacktest_Validation(t *testing.T) {
	srv := newTestServer(t, Config{Host: "localhost", MaxJobs: 10})

	tests := []struct {
		name     string
		body     BacktestRequest
		wantCode int
		wantErr  string
	}{
		{"missing symbol", BacktestRequest{Strategy: "pulse"}, http.StatusBadRequest, "CONFIG_MISSING"},
		{"missing strategy", BacktestRequest{Symbol: "AAPL"}, http.StatusBadRequest, "CONFIG_MISSING"},
		{"bad interval", BacktestRequest{Symbol: "AAPL", Strategy: "pulse", Interval: "7m"}, http.StatusBadRequest, "INVALID_INTERVAL"},
		{"unknown strategy", BacktestRequest{Symbol: "AAPL", Strategy: "ghost"}, http.StatusNotFound, "STRATEGY_NOT_FOUND"},
		{"bad start date", BacktestRequest{Symbol: "AAPL", Strategy: "pulse", Start: "01/02/2024"}, http.StatusBadRequest, "CONFIG_INVALID"},
		{"inverted window", BacktestRequest{Symbol: "AAPL", Strategy: "pulse", Start: "2024-03-01", End: "2024-01-01"}, http.StatusBadRequest, "CONFIG_INVALID"},
	}

	for _, tt := range tests {
		w := doJSON(t, srv.mux, "POST", "/api/v1/backtests", tt.body)
		if w.Code != tt.wantCode {
			t.Errorf("%s: status = %d, want %d", tt.name, w.Code, tt.wantCode)
		}
		if got := errorCode(t, w); got != tt.wantErr {
			t.Errorf("%s: error code = %q, want %q", tt.name, got, tt.wantErr)
		}
	}
}

func TestServer_CreateBacktest_MalformedBody(t *testing.T) {
	srv := newTestServer(t, Config{Host: "localhost", MaxJobs: 10})

	req := httptest.NewRequest("POST", "/api/v1/backtests", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	srv.mux.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestServer_GetBacktest_NotFound(t *testing.T) {
	srv := newTestServer(t, Config{Host: "localhost", MaxJobs: 10})

	w := doJSON(t, srv.mux, "GET", "/api/v1/backtests/job_0_0", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	if got := errorCode(t, w); got != "JOB_NOT_FOUND" {
		t.Errorf("error code = %q, want JOB_NOT_FOUND", got)
	}
}

func seedRun(t *testing.T, srv *Server, id string) {
	t.Helper()

	res := &backtest.Result{
		RunID:          id,
		Strategy:       "pulse",
		Symbol:         "AAPL",
		Market:         core.MarketUS,
		Interval:       core.Interval1d,
		StartDate:      fixtureBase,
		EndDate:        fixtureBase.Add(48 * time.Hour),
		InitialCapital: 100000,
		FinalEquity:    101000,
		EquityCurve: []perf.EquityPoint{
			{Time: fixtureBase, Value: 100000},
			{Time: fixtureBase.Add(24 * time.Hour), Value: 100500},
			{Time: fixtureBase.Add(48 * time.Hour), Value: 101000},
		},
		Report:    &perf.Report{TotalReturn: 0.01, TotalTrades: 1},
		CreatedAt: time.Now().UTC(),
	}
	if err := srv.runner.Store().Save(context.Background(), res); err != nil {
		t.Fatalf("seeding run: %v", err)
	}
}

func TestServer_Runs(t *testing.T) {
	srv := newTestServer(t, Config{Host: "localhost"})
	seedRun(t, srv, "run-1")

	w := doJSON(t, srv.mux, "GET", "/api/v1/runs", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d, want 200", w.Code)
	}
	var listed struct {
		Count int `json:"count"`
		Runs  []struct {
			RunID  string `json:"run_id"`
			Symbol string `json:"symbol"`
		} `json:"runs"`
	}
	decodeData(t, w, &listed)
	if listed.Count != 1 || listed.Runs[0].RunID != "run-1" {
		t.Fatalf("list = %+v, want one run-1", listed)
	}

	w = doJSON(t, srv.mux, "GET", "/api/v1/runs/run-1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d, want 200", w.Code)
	}
	var got struct {
		Symbol string `json:"symbol"`
	}
	decodeData(t, w, &got)
	if got.Symbol != "AAPL" {
		t.Errorf("symbol = %q, want AAPL", got.Symbol)
	}

	w = doJSON(t, srv.mux, "GET", "/api/v1/runs/run-404", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing run status = %d, want 404", w.Code)
	}
	if code := errorCode(t, w); code != "RUN_NOT_FOUND" {
		t.Errorf("error code = %q, want RUN_NOT_FOUND", code)
	}

	w = doJSON(t, srv.mux, "DELETE", "/api/v1/runs/run-1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d, want 200", w.Code)
	}

	w = doJSON(t, srv.mux, "GET", "/api/v1/runs", nil)
	decodeData(t, w, &listed)
	if listed.Count != 0 {
		t.Errorf("runs after delete = %d, want 0", listed.Count)
	}
}

func TestServer_ListRuns_Filters(t *testing.T) {
	srv := newTestServer(t, Config{Host: "localhost"})
	seedRun(t, srv, "run-1")
	seedRun(t, srv, "run-2")

	w := doJSON(t, srv.mux, "GET", "/api/v1/runs?symbol=AAPL&limit=1", nil)
	var listed struct {
		Count int `json:"count"`
	}
	decodeData(t, w, &listed)
	if listed.Count != 1 {
		t.Errorf("filtered runs = %d, want 1", listed.Count)
	}

	w = doJSON(t, srv.mux, "GET", "/api/v1/runs?symbol=TSLA", nil)
	decodeData(t, w, &listed)
	if listed.Count != 0 {
		t.Errorf("TSLA runs = %d, want 0", listed.Count)
	}

	w = doJSON(t, srv.mux, "GET", "/api/v1/runs?limit=oops", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", w.Code)
	}
}

func TestServer_ListStrategies(t *testing.T) {
	srv := newTestServer(t, Config{Host: "localhost"})

	w := doJSON(t, srv.mux, "GET", "/api/v1/strategies", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var data struct {
		Count      int            `json:"count"`
		Strategies []StrategyInfo `json:"strategies"`
	}
	decodeData(t, w, &data)
	if data.Count != 5 {
		t.Fatalf("count = %d, want 5", data.Count)
	}
	if data.Strategies[0].Name != "bollinger" {
		t.Errorf("first strategy = %q, want bollinger", data.Strategies[0].Name)
	}
	for _, info := range data.Strategies {
		if info.Name == "ma_crossover" && info.PriceHistory != 31 {
			t.Errorf("ma_crossover price_history = %d, want 31", info.PriceHistory)
		}
	}
}

// steadyStrategy buys on every window, for signal endpoint tests.
type steadyStrategy struct{}

func (s *steadyStrategy) Name() string        { return "steady" }
func (s *steadyStrategy) Description() string { return "always buys" }

func (s *steadyStrategy) RequiredData() strategy.DataRequirements {
	return strategy.DataRequirements{PriceHistory: 1}
}

func (s *steadyStrategy) Init(cfg strategy.Config) error { return nil }

func (s *steadyStrategy) Analyze(ctx strategy.Context) ([]core.Signal, error) {
	return []core.Signal{{Symbol: ctx.Symbol, Action: core.ActionBuy, Confidence: 1, GeneratedAt: ctx.Now}}, nil
}

func TestServer_Signals(t *testing.T) {
	runner := app.New(config.Defaults())
	runner.RegisterCollector(&fakeCollector{history: barFixture(40)})
	runner.RegisterStrategy(&steadyStrategy{})
	srv := NewServer(Config{Host: "localhost"}, runner, nil)

	w := doJSON(t, srv.mux, "GET", "/api/v1/signals?symbol=AAPL", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var data struct {
		Symbol  string `json:"symbol"`
		Count   int    `json:"count"`
		Signals []struct {
			Strategy string
			Action   string
			Price    float64
		} `json:"signals"`
	}
	decodeData(t, w, &data)
	if data.Symbol != "AAPL" {
		t.Errorf("symbol = %q, want AAPL", data.Symbol)
	}
	if data.Count != 1 || len(data.Signals) != 1 {
		t.Fatalf("count = %d, signals = %d, want 1 each", data.Count, len(data.Signals))
	}
	if data.Signals[0].Strategy != "steady" {
		t.Errorf("strategy = %q, want steady", data.Signals[0].Strategy)
	}
	if data.Signals[0].Action != "buy" {
		t.Errorf("action = %q, want buy", data.Signals[0].Action)
	}
	if data.Signals[0].Price != 139 {
		t.Errorf("price = %v, want 139 (latest close)", data.Signals[0].Price)
	}
}

func TestServer_Signals_Validation(t *testing.T) {
	srv := newTestServer(t, Config{Host: "localhost"})

	w := doJSON(t, srv.mux, "GET", "/api/v1/signals", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing symbol: status = %d, want 400", w.Code)
	}
	if code := errorCode(t, w); code != "CONFIG_MISSING" {
		t.Errorf("missing symbol: code = %q, want CONFIG_MISSING", code)
	}

	w = doJSON(t, srv.mux, "GET", "/api/v1/signals?symbol=AAPL&interval=7m", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad interval: status = %d, want 400", w.Code)
	}
	if code := errorCode(t, w); code != "INVALID_INTERVAL" {
		t.Errorf("bad interval: code = %q, want INVALID_INTERVAL", code)
	}
}

func TestServer_Auth(t *testing.T) {
	srv := newTestServer(t, Config{Host: "localhost", APIKey: "test-key"})

	// Without API key
	w := doJSON(t, srv.mux, "GET", "/api/v1/strategies", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status without key = %d, want 401", w.Code)
	}
	if code := errorCode(t, w); code != "UNAUTHORIZED" {
		t.Errorf("error code = %q, want UNAUTHORIZED", code)
	}

	// With API key
	req := httptest.NewRequest("GET", "/api/v1/strategies", nil)
	req.Header.Set("X-API-Key", "test-key")
	rec := httptest.NewRecorder()
	srv.mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status with key = %d, want 200", rec.Code)
	}

	// Health stays open for probes
	w = doJSON(t, srv.mux, "GET", "/api/v1/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200", w.Code)
	}
}

func TestServer_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, Config{Host: "localhost"})

	w := doJSON(t, srv.mux, "PUT", "/api/v1/runs", nil)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", w.Code)
	}
}

func TestServer_MetricsEndpoint(t *testing.T) {
	appCfg := config.Defaults()
	runner := app.New(appCfg)
	if err := runner.SetupStrategies(); err != nil {
		t.Fatal(err)
	}
	reg := metrics.NewRegistry()
	runner.SetMetrics(reg)

	srv := NewServer(Config{Host: "localhost", MetricsPath: "/metrics"}, runner, reg)

	// One request through the full middleware chain so the request
	// counter has a sample.
	w := doJSON(t, srv.httpServer.Handler, "GET", "/api/v1/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d, want 200", w.Code)
	}

	w = doJSON(t, srv.httpServer.Handler, "GET", "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "vela_http_requests_total") {
		t.Error("scrape output missing vela_http_requests_total")
	}
}
