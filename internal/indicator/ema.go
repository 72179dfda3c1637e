package indicator

// EMASeries computes an exponential moving average over values, seeded with
// the SMA of the first period points. The returned slice has
// len(values)-period+1 entries, aligned to values[period-1:].
func EMASeries(values []float64, period int) ([]float64, error) {
	if period <= 0 || len(values) < period {
		return nil, ErrNotEnoughData
	}

	multiplier := 2.0 / float64(period+1)

	var sum float64
	for _, v := range values[:period] {
		sum += v
	}
	current := sum / float64(period)

	out := make([]float64, 0, len(values)-period+1)
	out = append(out, current)
	for _, v := range values[period:] {
		current = v*multiplier + current*(1-multiplier)
		out = append(out, current)
	}
	return out, nil
}

// EMA returns the latest EMA value for the given period.
func EMA(values []float64, period int) (float64, error) {
	series, err := EMASeries(values, period)
	if err != nil {
		return 0, err
	}
	return last(series), nil
}
