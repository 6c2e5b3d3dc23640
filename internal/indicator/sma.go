// Package indicator implements the technical indicators the bundled
// strategies are built from. Every function takes a price series and
// returns a series aligned to its end: the last output value always
// describes the last input bar, and a series shorter than the period
// yields an empty result.
package indicator

// SMA computes the simple moving average with a rolling sum.
// Output length is len(prices) - period + 1.
func SMA(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) < period {
		return []float64{}
	}

	out := make([]float64, 0, len(prices)-period+1)

	var sum float64
	for _, p := range prices[:period] {
		sum += p
	}
	out = append(out, sum/float64(period))

	for i := period; i < len(prices); i++ {
		sum += prices[i] - prices[i-period]
		out = append(out, sum/float64(period))
	}

	return out
}

// EMA computes the exponential moving average, seeded with the SMA of
// the first period. Output length is len(prices) - period + 1.
func EMA(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) < period {
		return []float64{}
	}

	out := make([]float64, 0, len(prices)-period+1)
	alpha := 2.0 / float64(period+1)

	var sum float64
	for _, p := range prices[:period] {
		sum += p
	}
	ema := sum / float64(period)
	out = append(out, ema)

	for i := period; i < len(prices); i++ {
		ema += (prices[i] - ema) * alpha
		out = append(out, ema)
	}

	return out
}

// CrossedAbove reports whether series a crossed above series b on the
// final bar: a was at or below b on the previous bar and strictly
// above it now. Both series must share end alignment.
func CrossedAbove(a, b []float64) bool {
	if len(a) < 2 || len(b) < 2 {
		return false
	}
	prevA, currA := a[len(a)-2], a[len(a)-1]
	prevB, currB := b[len(b)-2], b[len(b)-1]
	return prevA <= prevB && currA > currB
}

// CrossedBelow reports whether series a crossed below series b on the
// final bar.
func CrossedBelow(a, b []float64) bool {
	if len(a) < 2 || len(b) < 2 {
		return false
	}
	prevA, currA := a[len(a)-2], a[len(a)-1]
	prevB, currB := b[len(b)-2], b[len(b)-1]
	return prevA >= prevB && currA < currB
}
