package indicator

// RSISeries computes the Relative Strength Index using Wilder's smoothing.
// The first RSI value appears after period+1 closes; the returned slice has
// len(values)-period entries.
func RSISeries(values []float64, period int) ([]float64, error) {
	if period <= 0 || len(values) < period+1 {
		return nil, ErrNotEnoughData
	}

	// Initial averages from the first period deltas.
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		delta := values[i] - values[i-1]
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss -= delta
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	rsi := func() float64 {
		if avgLoss == 0 {
			return 100
		}
		rs := avgGain / avgLoss
		return 100 - 100/(1+rs)
	}

	out := make([]float64, 0, len(values)-period)
	out = append(out, rsi())

	p := float64(period)
	for i := period + 1; i < len(values); i++ {
		delta := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		// Wilder smoothing: avg = (prevAvg*(period-1) + x) / period
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
		out = append(out, rsi())
	}
	return out, nil
}

// RSI returns the latest RSI value for the given period.
func RSI(values []float64, period int) (float64, error) {
	series, err := RSISeries(values, period)
	if err != nil {
		return 0, err
	}
	return last(series), nil
}
