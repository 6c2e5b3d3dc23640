package broker

import (
	"fmt"
	"math"
)

// Sizer decides how many shares a buy order takes given the cash
// available and the all-in cost per share.
type Sizer interface {
	Shares(cash, costPerShare float64) int64
}

// PercentSizer commits a fixed fraction of available cash per trade,
// rounding down to whole shares.
type PercentSizer struct {
	pct float64
}

// NewPercentSizer creates a sizer committing pct of cash per trade.
func NewPercentSizer(pct float64) (*PercentSizer, error) {
	if pct <= 0 || pct > 1 {
		return nil, fmt.Errorf("broker: position size %f outside (0, 1]", pct)
	}
	return &PercentSizer{pct: pct}, nil
}

// Shares returns floor(cash * pct / costPerShare), zero when a single
// share cannot be afforded.
func (s *PercentSizer) Shares(cash, costPerShare float64) int64 {
	if costPerShare <= 0 || cash <= 0 {
		return 0
	}
	return int64(math.Floor(cash * s.pct / costPerShare))
}
