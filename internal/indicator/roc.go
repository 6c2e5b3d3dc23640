package indicator

// ROC computes the Rate of Change as a percentage:
// 100 * (price - price[period bars ago]) / price[period bars ago].
// Output length is len(prices) - period. Bars whose reference price
// is zero contribute a zero rate.
func ROC(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) <= period {
		return []float64{}
	}

	out := make([]float64, 0, len(prices)-period)
	for i := period; i < len(prices); i++ {
		ref := prices[i-period]
		if ref == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, 100*(prices[i]-ref)/ref)
	}
	return out
}
