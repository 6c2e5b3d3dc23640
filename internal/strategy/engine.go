package strategy

import (
	"context"
	"sort"
	"sync"

	"github.com/velahq/vela/internal/core"
	"go.uber.org/zap"
)

// Engine manages and runs strategies
type Engine struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
	logger     *zap.Logger
}

// NewEngine creates a new strategy engine
func NewEngine(logger ...*zap.Logger) *Engine {
	var l *zap.Logger
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	} else {
		l = zap.NewNop()
	}
	return &Engine{
		strategies: make(map[string]Strategy),
		logger:     l,
	}
}

// Register adds a strategy to the engine
func (e *Engine) Register(s Strategy) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.strategies[s.Name()] = s
}

// Get retrieves a strategy by name
func (e *Engine) Get(name string) (Strategy, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.strategies[name]
	return s, ok
}

// GetAll returns all registered strategies
func (e *Engine) GetAll() []Strategy {
	e.mu.RLock()
	defer e.mu.RUnlock()

	result := make([]Strategy, 0, len(e.strategies))
	for _, s := range e.strategies {
		result = append(result, s)
	}
	return result
}

// Names returns the registered strategy names in sorted order.
func (e *Engine) Names() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	names := make([]string, 0, len(e.strategies))
	for name := range e.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Analyze runs all strategies on the given window
func (e *Engine) Analyze(ctx context.Context, window Context) ([]core.Signal, error) {
	return e.analyze(ctx, window, e.GetAll())
}

// AnalyzeWithStrategies runs specific strategies by name, skipping
// names that are not registered.
func (e *Engine) AnalyzeWithStrategies(ctx context.Context, window Context, names []string) ([]core.Signal, error) {
	selected := make([]Strategy, 0, len(names))
	for _, name := range names {
		if s, ok := e.Get(name); ok {
			selected = append(selected, s)
		}
	}
	return e.analyze(ctx, window, selected)
}

func (e *Engine) analyze(ctx context.Context, window Context, strategies []Strategy) ([]core.Signal, error) {
	var allSignals []core.Signal

	for _, s := range strategies {
		select {
		case <-ctx.Done():
			return allSignals, ctx.Err()
		default:
		}

		signals, err := s.Analyze(window)
		if err != nil {
			e.logger.Warn("strategy analysis failed",
				zap.String("strategy", s.Name()),
				zap.String("symbol", window.Symbol),
				zap.Error(err),
			)
			continue
		}

		// Stamp the originating strategy on each signal
		for i := range signals {
			signals[i].Strategy = s.Name()
		}

		allSignals = append(allSignals, signals...)
	}

	return allSignals, nil
}
