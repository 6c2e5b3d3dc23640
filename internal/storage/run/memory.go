package run

import (
	"context"
	"sync"

	"github.com/velahq/vela/internal/backtest"
	"github.com/velahq/vela/internal/core"
)

// MemoryStore is an in-memory run store.
type MemoryStore struct {
	runs    []*backtest.Result
	maxSize int
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory store with max capacity.
// Oldest runs are evicted once capacity is reached.
func NewMemoryStore(maxSize int) *MemoryStore {
	return &MemoryStore{
		runs:    make([]*backtest.Result, 0, maxSize),
		maxSize: maxSize,
	}
}

// Save adds a run to the store, replacing any run with the same ID.
func (m *MemoryStore) Save(ctx context.Context, res *backtest.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.runs {
		if m.runs[i].RunID == res.RunID {
			m.runs[i] = res
			return nil
		}
	}

	m.runs = append(m.runs, res)

	// Trim if over capacity (remove oldest)
	if len(m.runs) > m.maxSize {
		m.runs = m.runs[len(m.runs)-m.maxSize:]
	}

	return nil
}

// Get retrieves a run by ID.
func (m *MemoryStore) Get(ctx context.Context, id string) (*backtest.Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := range m.runs {
		if m.runs[i].RunID == id {
			return m.runs[i], nil
		}
	}
	return nil, core.ErrRunNotFound
}

// List returns summaries of runs matching the filter, newest first.
func (m *MemoryStore) List(ctx context.Context, filter Filter) ([]Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []Summary{}
	for i := len(m.runs) - 1; i >= 0; i-- {
		s := Summarize(m.runs[i])
		if filter.matches(s) {
			result = append(result, s)
		}
	}

	return paginate(result, filter), nil
}

// Delete removes a run from the store.
func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.runs {
		if m.runs[i].RunID == id {
			m.runs = append(m.runs[:i], m.runs[i+1:]...)
			return nil
		}
	}
	return core.ErrRunNotFound
}
