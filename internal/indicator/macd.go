package indicator

// MACDResult holds the MACD line, signal line, and histogram for the two
// most recent candles.
type MACDResult struct {
	MACD     float64
	Signal   float64
	Hist     float64
	HistPrev float64
}

// MACD computes the moving-average convergence/divergence oscillator with
// EMA(fast), EMA(slow) and an EMA(signal) of the MACD line. Requires at
// least slow+signal-1 closes for a full signal value; with one fewer the
// previous histogram falls back to the current one.
func MACD(values []float64, fast, slow, signal int) (MACDResult, error) {
	if len(values) < slow {
		return MACDResult{}, ErrNotEnoughData
	}

	fastSeries, err := EMASeries(values, fast)
	if err != nil {
		return MACDResult{}, err
	}
	slowSeries, err := EMASeries(values, slow)
	if err != nil {
		return MACDResult{}, err
	}

	// Align: slowSeries starts at values[slow-1]; drop the fast values
	// before that point.
	offset := slow - fast
	macdLine := make([]float64, len(slowSeries))
	for i := range slowSeries {
		macdLine[i] = fastSeries[i+offset] - slowSeries[i]
	}

	signalSeries, err := EMASeries(macdLine, signal)
	if err != nil {
		// MACD line exists but is too short for a signal EMA; report the
		// raw line with a zero signal.
		m := last(macdLine)
		return MACDResult{MACD: m, Hist: m, HistPrev: m}, nil
	}

	res := MACDResult{
		MACD:   last(macdLine),
		Signal: last(signalSeries),
	}
	res.Hist = res.MACD - res.Signal
	res.HistPrev = res.Hist
	if len(macdLine) >= 2 && len(signalSeries) >= 2 {
		res.HistPrev = macdLine[len(macdLine)-2] - signalSeries[len(signalSeries)-2]
	}
	return res, nil
}

// MACDHist returns just the latest histogram value for the default 12/26/9
// configuration, or 0 when the series is too short.
func MACDHist(values []float64) float64 {
	res, err := MACD(values, 12, 26, 9)
	if err != nil {
		return 0
	}
	return res.Hist
}
