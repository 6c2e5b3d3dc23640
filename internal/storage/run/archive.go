package run

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/velahq/vela/internal/backtest"
	"github.com/velahq/vela/internal/core"
	"github.com/velahq/vela/internal/report"
	"github.com/velahq/vela/internal/storage/archive"
)

const runsPrefix = "runs"

// ArchiveStore persists runs as artifacts on an archive backend.
// Each run occupies runs/<id>/ with the full result as JSON plus the
// equity curve and trade log as CSV for use outside the API.
type ArchiveStore struct {
	store archive.Storage
}

// NewArchiveStore creates a run store on top of an archive backend.
func NewArchiveStore(store archive.Storage) *ArchiveStore {
	return &ArchiveStore{store: store}
}

func runDir(id string) string {
	return runsPrefix + "/" + id
}

func resultPath(id string) string  { return runDir(id) + "/result.json" }
func summaryPath(id string) string { return runDir(id) + "/summary.json" }
func equityPath(id string) string  { return runDir(id) + "/equity.csv" }
func tradesPath(id string) string  { return runDir(id) + "/trades.csv" }

// Save writes all run artifacts. The summary is written last so
// listings only ever see complete runs.
func (a *ArchiveStore) Save(ctx context.Context, res *backtest.Result) error {
	if res.RunID == "" {
		return fmt.Errorf("run has no ID")
	}

	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	if err := a.store.Write(ctx, resultPath(res.RunID), data); err != nil {
		return fmt.Errorf("writing result: %w", err)
	}

	var equity bytes.Buffer
	if err := report.WriteEquityCSV(&equity, res.EquityCurve); err != nil {
		return fmt.Errorf("encoding equity curve: %w", err)
	}
	if err := a.store.Write(ctx, equityPath(res.RunID), equity.Bytes()); err != nil {
		return fmt.Errorf("writing equity curve: %w", err)
	}

	var trades bytes.Buffer
	if err := report.WriteTradesCSV(&trades, res.Trades); err != nil {
		return fmt.Errorf("encoding trades: %w", err)
	}
	if err := a.store.Write(ctx, tradesPath(res.RunID), trades.Bytes()); err != nil {
		return fmt.Errorf("writing trades: %w", err)
	}

	summary, err := json.MarshalIndent(Summarize(res), "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling summary: %w", err)
	}
	if err := a.store.Write(ctx, summaryPath(res.RunID), summary); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}

	return nil
}

// Get retrieves a run by ID.
func (a *ArchiveStore) Get(ctx context.Context, id string) (*backtest.Result, error) {
	exists, err := a.store.Exists(ctx, resultPath(id))
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, core.ErrRunNotFound
	}

	data, err := a.store.Read(ctx, resultPath(id))
	if err != nil {
		return nil, fmt.Errorf("reading result: %w", err)
	}

	var res backtest.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("parsing result %s: %w", id, err)
	}
	return &res, nil
}

// List returns summaries of archived runs matching the filter,
// newest first.
func (a *ArchiveStore) List(ctx context.Context, filter Filter) ([]Summary, error) {
	paths, err := a.store.List(ctx, runsPrefix)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}

	result := []Summary{}
	for _, p := range paths {
		if !strings.HasSuffix(p, "/summary.json") {
			continue
		}
		data, err := a.store.Read(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		var s Summary
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", p, err)
		}
		if filter.matches(s) {
			result = append(result, s)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return paginate(result, filter), nil
}

// Delete removes all artifacts for a run.
func (a *ArchiveStore) Delete(ctx context.Context, id string) error {
	paths, err := a.store.List(ctx, runDir(id)+"/")
	if err != nil {
		return fmt.Errorf("listing run %s: %w", id, err)
	}
	if len(paths) == 0 {
		return core.ErrRunNotFound
	}

	for _, p := range paths {
		if err := a.store.Delete(ctx, p); err != nil {
			return fmt.Errorf("deleting %s: %w", p, err)
		}
	}
	return nil
}
