package perf

import (
	"math"
	"time"
)

// HistogramBin is one bucket of the per-bar return distribution.
type HistogramBin struct {
	Low   float64 `json:"low"`
	High  float64 `json:"high"`
	Count int     `json:"count"`
}

// MonthlyReturn is the equity growth over one calendar month.
type MonthlyReturn struct {
	Year   int     `json:"year"`
	Month  int     `json:"month"`
	Return float64 `json:"return"`
}

// DrawdownSeries returns the per-bar drawdown from the running peak,
// one value per curve point. The first point is always zero.
func (a *Analyzer) DrawdownSeries() []float64 {
	out := make([]float64, len(a.values))
	peak := a.values[0]
	for i, v := range a.values {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			out[i] = (peak - v) / peak
		}
	}
	return out
}

// ReturnsHistogram buckets the per-bar returns into the given number
// of equal-width bins spanning the observed range. A non-positive bin
// count or an empty return series yields nil.
func (a *Analyzer) ReturnsHistogram(bins int) []HistogramBin {
	if bins <= 0 || len(a.returns) == 0 {
		return nil
	}
	lo, hi := a.returns[0], a.returns[0]
	for _, r := range a.returns[1:] {
		if r < lo {
			lo = r
		}
		if r > hi {
			hi = r
		}
	}
	out := make([]HistogramBin, bins)
	width := (hi - lo) / float64(bins)
	for i := range out {
		out[i].Low = lo + float64(i)*width
		out[i].High = out[i].Low + width
	}
	if width == 0 {
		// Every return identical; everything lands in the first bin.
		out[0].Count = len(a.returns)
		return out
	}
	for _, r := range a.returns {
		idx := int(math.Floor((r - lo) / width))
		if idx >= bins {
			idx = bins - 1
		}
		out[idx].Count++
	}
	return out
}

// MonthlyReturns aggregates the curve into calendar-month returns,
// each measured from the prior month's closing equity. Months are
// emitted in curve order, which is chronological by construction.
func (a *Analyzer) MonthlyReturns() []MonthlyReturn {
	var out []MonthlyReturn
	baseline := a.values[0]
	var curYear int
	var curMonth time.Month
	var close float64
	started := false

	flush := func() {
		if !started || baseline == 0 {
			return
		}
		out = append(out, MonthlyReturn{
			Year:   curYear,
			Month:  int(curMonth),
			Return: (close - baseline) / baseline,
		})
	}

	for i, p := range a.curve {
		y, m := p.Time.Year(), p.Time.Month()
		if !started {
			curYear, curMonth, started = y, m, true
		} else if y != curYear || m != curMonth {
			flush()
			baseline = close
			curYear, curMonth = y, m
		}
		close = a.values[i]
	}
	flush()
	return out
}
