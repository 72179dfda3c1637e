package indicator

import "math"

// TrueRanges returns the true range for each candle after the first:
// max(high-low, |high-prevClose|, |low-prevClose|).
func TrueRanges(high, low, close []float64) []float64 {
	if len(close) < 2 {
		return nil
	}
	out := make([]float64, 0, len(close)-1)
	for i := 1; i < len(close); i++ {
		tr := math.Max(high[i]-low[i],
			math.Max(math.Abs(high[i]-close[i-1]), math.Abs(low[i]-close[i-1])))
		out = append(out, tr)
	}
	return out
}

// ATR computes the Average True Range with Wilder smoothing, seeded with the
// SMA of the first period true ranges.
func ATR(high, low, close []float64, period int) (float64, error) {
	trs := TrueRanges(high, low, close)
	if period <= 0 || len(trs) < period {
		return 0, ErrNotEnoughData
	}

	var sum float64
	for _, tr := range trs[:period] {
		sum += tr
	}
	atr := sum / float64(period)

	p := float64(period)
	for _, tr := range trs[period:] {
		atr = (atr*(p-1) + tr) / p
	}
	return atr, nil
}

// ATRSimple computes the plain mean of the last period true ranges. The
// regime classifier uses this cheaper variant for its volatility estimate.
func ATRSimple(high, low, close []float64, period int) (float64, error) {
	trs := TrueRanges(high, low, close)
	if period <= 0 || len(trs) < period {
		return 0, ErrNotEnoughData
	}
	var sum float64
	for _, tr := range trs[len(trs)-period:] {
		sum += tr
	}
	return sum / float64(period), nil
}
