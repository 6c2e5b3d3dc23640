package bollinger

import (
	"testing"
	"time"

	"github.com/velahq/vela/internal/core"
	"github.com/velahq/vela/internal/strategy"
)

func TestBollinger_ImplementsStrategy(t *testing.T) {
	var _ strategy.Strategy = (*Bollinger)(nil)
}

func window(prices []float64) strategy.Context {
	bars := make([]core.OHLCV, len(prices))
	base := time.Date(2024, 1, 1, 15, 30, 0, 0, time.UTC)
	for i, p := range prices {
		bars[i] = core.OHLCV{Symbol: "TEST", Close: p, Time: base.AddDate(0, 0, i)}
	}
	return strategy.Context{Symbol: "TEST", Bars: bars, Now: bars[len(bars)-1].Time}
}

func fiveBar(t *testing.T) *Bollinger {
	t.Helper()
	s := New()
	if err := s.Init(strategy.Config{Params: map[string]any{"period": 5}}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	return s
}

func TestBollinger_LowerBandBuy(t *testing.T) {
	s := fiveBar(t)

	// Window mean 98, population dev 4: the lower band sits exactly
	// at 90 and the closing drop touches it.
	signals, err := s.Analyze(window([]float64{100, 100, 100, 100, 90}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(signals) != 1 {
		t.Fatalf("expected one signal, got %d", len(signals))
	}
	if signals[0].Action != core.ActionBuy {
		t.Errorf("expected Buy at lower band, got %s", signals[0].Action)
	}
	if _, ok := signals[0].Metadata["lower"].(float64); !ok {
		t.Error("expected lower band in metadata")
	}
}

func TestBollinger_UpperBandSell(t *testing.T) {
	s := fiveBar(t)

	// Mirror case: mean 102, dev 4, upper band exactly 110.
	signals, err := s.Analyze(window([]float64{100, 100, 100, 100, 110}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(signals) != 1 {
		t.Fatalf("expected one signal, got %d", len(signals))
	}
	if signals[0].Action != core.ActionSell {
		t.Errorf("expected Sell at upper band, got %s", signals[0].Action)
	}
}

func TestBollinger_InsideBandsNoSignal(t *testing.T) {
	s := fiveBar(t)

	signals, err := s.Analyze(window([]float64{100, 102, 98, 101, 100}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(signals) != 0 {
		t.Errorf("expected no signals inside the bands, got %d", len(signals))
	}
}

func TestBollinger_FlatWindowNoSignal(t *testing.T) {
	s := fiveBar(t)

	// Zero-width bands carry no information.
	signals, err := s.Analyze(window([]float64{100, 100, 100, 100, 100}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(signals) != 0 {
		t.Errorf("expected no signals on a flat window, got %d", len(signals))
	}
}

func TestBollinger_NotEnoughData(t *testing.T) {
	s := New()

	signals, err := s.Analyze(window([]float64{100, 101}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(signals) != 0 {
		t.Errorf("expected no signals with insufficient data, got %d", len(signals))
	}
}

func TestBollinger_InitValidation(t *testing.T) {
	s := New()
	if err := s.Init(strategy.Config{Params: map[string]any{"period": 1}}); err == nil {
		t.Error("expected error for period below 2")
	}

	s = New()
	if err := s.Init(strategy.Config{Params: map[string]any{"width": -1.0}}); err == nil {
		t.Error("expected error for non-positive width")
	}
}
