package backtest

import (
	"time"

	"github.com/velahq/vela/internal/broker"
	"github.com/velahq/vela/internal/core"
	"github.com/velahq/vela/internal/perf"
)

// Result holds the complete backtest output: every signal the strategy
// emitted, the fills and round-trip trades the paper account produced,
// the bar-by-bar equity curve, and the performance report derived from
// it. Results are immutable once returned and safe to archive as-is.
type Result struct {
	RunID          string             `json:"run_id"`
	Strategy       string             `json:"strategy"`
	Symbol         string             `json:"symbol"`
	Market         core.Market        `json:"market"`
	Interval       core.Interval      `json:"interval"`
	StartDate      time.Time          `json:"start_date"`
	EndDate        time.Time          `json:"end_date"`
	InitialCapital float64            `json:"initial_capital"`
	FinalEquity    float64            `json:"final_equity"`
	Signals        []core.Signal      `json:"signals"`
	Fills          []broker.Fill      `json:"fills"`
	Trades         []perf.Trade       `json:"trades"`
	EquityCurve    []perf.EquityPoint `json:"equity_curve"`
	Report         *perf.Report       `json:"report"`
	CreatedAt      time.Time          `json:"created_at"`
}
