package indicator

import "math"

// Bollinger computes Bollinger Bands: an SMA middle band with upper
// and lower bands width standard deviations away. The deviation is
// the population figure over each window, the convention charting
// packages use for bands. All three series have length
// len(prices) - period + 1.
func Bollinger(prices []float64, period int, width float64) (middle, upper, lower []float64) {
	if period <= 0 || len(prices) < period {
		return []float64{}, []float64{}, []float64{}
	}

	n := len(prices) - period + 1
	middle = SMA(prices, period)
	upper = make([]float64, n)
	lower = make([]float64, n)

	for i := 0; i < n; i++ {
		window := prices[i : i+period]
		var variance float64
		for _, p := range window {
			d := p - middle[i]
			variance += d * d
		}
		dev := math.Sqrt(variance / float64(period))
		upper[i] = middle[i] + width*dev
		lower[i] = middle[i] - width*dev
	}

	return middle, upper, lower
}
