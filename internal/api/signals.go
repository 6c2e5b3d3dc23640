package api

import (
	"fmt"
	"net/http"

	"github.com/velahq/vela/internal/api/response"
	"github.com/velahq/vela/internal/core"
)

// handleSignals evaluates every registered strategy against a fresh
// bar window for the requested symbol and returns the signals the
// current window produces.
func (s *Server) handleSignals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	symbol := q.Get("symbol")
	if symbol == "" {
		response.CodedError(w, core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("symbol query parameter is required")))
		return
	}

	interval := core.Interval(q.Get("interval"))
	if interval == "" {
		interval = core.Interval(s.runner.Config().Data.DefaultInterval)
	}
	if !interval.IsValid() {
		response.CodedError(w, core.WrapError(core.ErrInvalidInterval,
			fmt.Errorf("interval %q", interval)))
		return
	}

	signals, err := s.runner.Advise(r.Context(), symbol, interval)
	if err != nil {
		response.CodedError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"symbol":   symbol,
		"interval": interval,
		"signals":  signals,
		"count":    len(signals),
	})
}
