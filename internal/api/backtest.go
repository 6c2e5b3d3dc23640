package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/velahq/vela/internal/api/job"
	"github.com/velahq/vela/internal/api/response"
	"github.com/velahq/vela/internal/app"
	"github.com/velahq/vela/internal/config"
	"github.com/velahq/vela/internal/core"
	"go.uber.org/zap"
)

const backtestTimeout = 5 * time.Minute

// BacktestRequest is the request body for starting a backtest.
// Dates use YYYY-MM-DD; an omitted window defaults to the year up
// to today, an omitted interval to the configured default.
type BacktestRequest struct {
	Symbol   string         `json:"symbol"`
	Strategy string         `json:"strategy"`
	Interval string         `json:"interval,omitempty"`
	Start    string         `json:"start,omitempty"`
	End      string         `json:"end,omitempty"`
	Params   map[string]any `json:"params,omitempty"`
}

func (req BacktestRequest) toParams(cfg *config.Config) (app.BacktestParams, error) {
	var p app.BacktestParams

	if req.Symbol == "" {
		return p, core.WrapError(core.ErrConfigMissing, fmt.Errorf("symbol is required"))
	}
	if req.Strategy == "" {
		return p, core.WrapError(core.ErrConfigMissing, fmt.Errorf("strategy is required"))
	}

	interval := req.Interval
	if interval == "" {
		interval = cfg.Data.DefaultInterval
	}
	iv := core.Interval(interval)
	if !iv.IsValid() {
		return p, core.WrapError(core.ErrInvalidInterval, fmt.Errorf("interval %q", interval))
	}

	end := time.Now()
	if req.End != "" {
		parsed, err := time.Parse("2006-01-02", req.End)
		if err != nil {
			return p, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("end: %w", err))
		}
		end = parsed
	}
	start := end.AddDate(-1, 0, 0)
	if req.Start != "" {
		parsed, err := time.Parse("2006-01-02", req.Start)
		if err != nil {
			return p, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("start: %w", err))
		}
		start = parsed
	}
	if !start.Before(end) {
		return p, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("start %s is not before end %s",
				start.Format("2006-01-02"), end.Format("2006-01-02")))
	}

	p = app.BacktestParams{
		Symbol:   req.Symbol,
		Strategy: req.Strategy,
		Interval: iv,
		Start:    start,
		End:      end,
		Params:   req.Params,
	}
	return p, nil
}

// handleCreateBacktest accepts a backtest, queues it as a job, and
// returns 202 with the job ID to poll.
func (s *Server) handleCreateBacktest(w http.ResponseWriter, r *http.Request) {
	var req BacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, core.WrapError(core.ErrConfigInvalid, err))
		return
	}

	params, err := req.toParams(s.runner.Config())
	if err != nil {
		response.CodedError(w, err)
		return
	}

	// Checked here so the caller gets a synchronous 404 instead of a
	// failed job.
	if _, ok := s.runner.Strategies().Get(params.Strategy); !ok {
		response.CodedError(w, core.WrapError(core.ErrStrategyNotFound,
			fmt.Errorf("strategy %q", params.Strategy)))
		return
	}

	j := s.jobs.Create("backtest")
	go s.runBacktest(j.ID, params)
	s.syncJobsGauge()

	response.JSON(w, http.StatusAccepted, map[string]any{
		"job_id": j.ID,
		"status": j.Status,
	})
}

// runBacktest executes the backtest and updates job status.
func (s *Server) runBacktest(jobID string, params app.BacktestParams) {
	s.jobs.Update(jobID, func(j *job.Job) {
		j.Status = job.StatusRunning
	})

	ctx, cancel := context.WithTimeout(context.Background(), backtestTimeout)
	defer cancel()

	res, err := s.runner.Backtest(ctx, params)
	if err != nil {
		s.logger.Error("backtest job failed",
			zap.String("job_id", jobID),
			zap.String("symbol", params.Symbol),
			zap.String("strategy", params.Strategy),
			zap.Error(err))
		s.jobs.Update(jobID, func(j *job.Job) {
			j.Status = job.StatusFailed
			j.Error = asCoreError(err)
		})
	} else {
		s.jobs.Update(jobID, func(j *job.Job) {
			j.Status = job.StatusComplete
			j.Result = res
		})
	}
	s.syncJobsGauge()
}

// handleGetBacktest returns the state of a backtest job, with the
// result attached once complete.
func (s *Server) handleGetBacktest(w http.ResponseWriter, r *http.Request) {
	j, err := s.jobs.Get(r.PathValue("id"))
	if err != nil {
		response.CodedError(w, err)
		return
	}

	resp := map[string]any{
		"job_id":     j.ID,
		"status":     j.Status,
		"created_at": j.CreatedAt,
		"updated_at": j.UpdatedAt,
	}
	if j.Status == job.StatusComplete {
		resp["result"] = j.Result
	}
	if j.Status == job.StatusFailed && j.Error != nil {
		resp["error"] = map[string]string{
			"code":    j.Error.Code,
			"message": j.Error.Message,
		}
	}
	response.JSON(w, http.StatusOK, resp)
}

func (s *Server) syncJobsGauge() {
	if s.metrics != nil {
		s.metrics.SetJobsActive("backtest", s.jobs.Active())
	}
}

func asCoreError(err error) *core.Error {
	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		return coreErr
	}
	return &core.Error{Code: "INTERNAL_ERROR", Message: err.Error()}
}
