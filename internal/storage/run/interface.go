// Package run persists completed backtest results. MemoryStore keeps
// recent runs for a live server; ArchiveStore writes durable
// artifacts through the archive backends so runs survive restarts.
package run

import (
	"context"
	"time"

	"github.com/velahq/vela/internal/backtest"
	"github.com/velahq/vela/internal/core"
)

// Store defines the interface for backtest run persistence.
// Results are treated as immutable once saved.
type Store interface {
	// Save persists a completed run. Saving an existing run ID
	// replaces the stored result.
	Save(ctx context.Context, res *backtest.Result) error

	// Get retrieves a run by its ID. Returns core.ErrRunNotFound
	// for unknown IDs.
	Get(ctx context.Context, id string) (*backtest.Result, error)

	// List returns summaries of runs matching the filter, newest
	// first.
	List(ctx context.Context, filter Filter) ([]Summary, error)

	// Delete removes a run and its artifacts. Returns
	// core.ErrRunNotFound for unknown IDs.
	Delete(ctx context.Context, id string) error
}

// Filter defines criteria for listing runs.
type Filter struct {
	Symbol   string
	Strategy string
	Limit    int
	Offset   int
}

// Summary is the lightweight listing view of a run.
type Summary struct {
	RunID       string        `json:"run_id"`
	Strategy    string        `json:"strategy"`
	Symbol      string        `json:"symbol"`
	Interval    core.Interval `json:"interval"`
	StartDate   time.Time     `json:"start_date"`
	EndDate     time.Time     `json:"end_date"`
	TotalReturn float64       `json:"total_return"`
	MaxDrawdown float64       `json:"max_drawdown"`
	TotalTrades int           `json:"total_trades"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Summarize builds the listing view of a result.
func Summarize(res *backtest.Result) Summary {
	s := Summary{
		RunID:     res.RunID,
		Strategy:  res.Strategy,
		Symbol:    res.Symbol,
		Interval:  res.Interval,
		StartDate: res.StartDate,
		EndDate:   res.EndDate,
		CreatedAt: res.CreatedAt,
	}
	if res.Report != nil {
		s.TotalReturn = res.Report.TotalReturn
		s.MaxDrawdown = res.Report.MaxDrawdown
		s.TotalTrades = res.Report.TotalTrades
	}
	return s
}

func (f Filter) matches(s Summary) bool {
	if f.Symbol != "" && s.Symbol != f.Symbol {
		return false
	}
	if f.Strategy != "" && s.Strategy != f.Strategy {
		return false
	}
	return true
}

// paginate applies offset and limit to an already-filtered list.
func paginate(summaries []Summary, f Filter) []Summary {
	if f.Offset > 0 {
		if f.Offset >= len(summaries) {
			return []Summary{}
		}
		summaries = summaries[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(summaries) {
		summaries = summaries[:f.Limit]
	}
	return summaries
}
