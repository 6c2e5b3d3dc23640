package perf

// Drawdown summarizes peak-to-trough behaviour of an equity curve.
// Max is the deepest observed decline as a fraction of its peak.
// Start, End and Bars describe the longest continuous underwater run:
// Start is the bar the decline began from (the last bar at or above
// the running peak), End is the last bar of the run that stayed below
// it, and Bars is the number of underwater bars (End - Start). A curve
// that never goes underwater reports zeros.
type Drawdown struct {
	Max   float64 `json:"max"`
	Start int     `json:"start"`
	End   int     `json:"end"`
	Bars  int     `json:"bars"`
}

// maxDrawdown scans the values once, keeping O(1) auxiliary state:
// the running peak, the index the peak was set at, the deepest decline
// seen, and the longest underwater run so far. A zero peak (curve
// starting at zero equity) contributes no drawdown.
func maxDrawdown(values []float64) Drawdown {
	var dd Drawdown
	if len(values) == 0 {
		return dd
	}

	peak := values[0]
	peakIdx := 0

	for i := 1; i < len(values); i++ {
		v := values[i]
		if v >= peak {
			peak = v
			peakIdx = i
			continue
		}

		// Underwater bar
		if peak > 0 {
			depth := (peak - v) / peak
			if depth > dd.Max {
				dd.Max = depth
			}
		}
		if run := i - peakIdx; run > dd.Bars {
			dd.Bars = run
			dd.Start = peakIdx
			dd.End = i
		}
	}

	return dd
}
