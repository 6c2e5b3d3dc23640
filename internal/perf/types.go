// Package perf computes risk and return statistics from the equity
// curve and completed trades of a backtest run.
package perf

import (
	"fmt"
	"math"
	"time"

	"github.com/velahq/vela/internal/core"
)

// Side is the direction of a completed trade.
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// EquityPoint is one mark-to-market observation of total portfolio
// value, one per traded bar.
type EquityPoint struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// Trade is a completed round trip produced by the simulation.
// Commission is the total paid across both sides; NetPnL is always
// GrossPnL minus Commission.
type Trade struct {
	EntryTime  time.Time `json:"entry_time"`
	ExitTime   time.Time `json:"exit_time"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	Size       float64   `json:"size"`
	Side       Side      `json:"side"`
	Commission float64   `json:"commission"`
	GrossPnL   float64   `json:"gross_pnl"`
	NetPnL     float64   `json:"net_pnl"`
}

// IsWin reports whether the trade made money after costs.
func (t Trade) IsWin() bool {
	return t.NetPnL > 0
}

// HoldingPeriod returns the time between entry and exit.
func (t Trade) HoldingPeriod() time.Duration {
	return t.ExitTime.Sub(t.EntryTime)
}

// pnlTolerance absorbs float rounding when cross-checking
// NetPnL = GrossPnL - Commission on externally supplied trades.
const pnlTolerance = 1e-6

// Validate checks the trade invariants.
func (t Trade) Validate() error {
	if t.ExitTime.Before(t.EntryTime) {
		return core.WrapError(core.ErrTradeInvalid,
			fmt.Errorf("exit %s before entry %s", t.ExitTime.Format(time.RFC3339), t.EntryTime.Format(time.RFC3339)))
	}
	if math.Abs(t.NetPnL-(t.GrossPnL-t.Commission)) > pnlTolerance {
		return core.WrapError(core.ErrTradeInvalid,
			fmt.Errorf("net pnl %f does not equal gross %f minus commission %f", t.NetPnL, t.GrossPnL, t.Commission))
	}
	return nil
}

// validateCurve checks the equity curve invariants: at least two
// points, strictly increasing timestamps, non-negative values.
func validateCurve(curve []EquityPoint) error {
	if len(curve) < 2 {
		return core.WrapError(core.ErrInsufficientData,
			fmt.Errorf("equity curve has %d points, need at least 2", len(curve)))
	}
	for i, p := range curve {
		if p.Value < 0 {
			return core.WrapError(core.ErrEquityCurveInvalid,
				fmt.Errorf("negative portfolio value %f at bar %d", p.Value, i))
		}
		if i > 0 && !curve[i-1].Time.Before(p.Time) {
			return core.WrapError(core.ErrEquityCurveInvalid,
				fmt.Errorf("timestamps not strictly increasing at bar %d", i))
		}
	}
	return nil
}
