package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/velahq/vela/internal/api/response"
	"github.com/velahq/vela/internal/core"
	"github.com/velahq/vela/internal/storage/run"
)

// handleListRuns lists archived runs, newest first. Supports symbol,
// strategy, limit, and offset query parameters.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	store := s.runner.Store()
	if store == nil {
		response.CodedError(w, core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("run store not configured")))
		return
	}

	q := r.URL.Query()
	f := run.Filter{
		Symbol:   q.Get("symbol"),
		Strategy: q.Get("strategy"),
	}

	var err error
	if f.Limit, err = queryInt(q.Get("limit")); err != nil {
		response.CodedError(w, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("limit: %w", err)))
		return
	}
	if f.Offset, err = queryInt(q.Get("offset")); err != nil {
		response.CodedError(w, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("offset: %w", err)))
		return
	}

	summaries, err := store.List(r.Context(), f)
	if err != nil {
		response.CodedError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"runs":  summaries,
		"count": len(summaries),
	})
}

// handleGetRun returns one archived run in full, equity curve and
// trades included.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	store := s.runner.Store()
	if store == nil {
		response.CodedError(w, core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("run store not configured")))
		return
	}

	res, err := store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		response.CodedError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, res)
}

// handleDeleteRun removes an archived run and all its artifacts.
func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	store := s.runner.Store()
	if store == nil {
		response.CodedError(w, core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("run store not configured")))
		return
	}

	id := r.PathValue("id")
	if err := store.Delete(r.Context(), id); err != nil {
		response.CodedError(w, err)
		return
	}
	s.runner.RefreshRunsGauge(r.Context())

	response.JSON(w, http.StatusOK, map[string]any{"deleted": id})
}

func queryInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("must not be negative, got %d", n)
	}
	return n, nil
}
