package indicator

import "math"

// ADXSeries computes the Average Directional Index with Wilder smoothing.
// The first ADX value requires 2*period candles; the returned slice holds
// every ADX value from that point on.
func ADXSeries(high, low, close []float64, period int) ([]float64, error) {
	if period <= 0 || len(close) < 2*period {
		return nil, ErrNotEnoughData
	}

	n := len(close)
	plusDM := make([]float64, 0, n-1)
	minusDM := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		up := high[i] - high[i-1]
		down := low[i-1] - low[i]
		p, m := 0.0, 0.0
		if up > down && up > 0 {
			p = up
		}
		if down > up && down > 0 {
			m = down
		}
		plusDM = append(plusDM, p)
		minusDM = append(minusDM, m)
	}
	trs := TrueRanges(high, low, close)

	// Wilder-smoothed running sums, seeded with plain sums of the first
	// period entries.
	var smTR, smPlus, smMinus float64
	for i := 0; i < period; i++ {
		smTR += trs[i]
		smPlus += plusDM[i]
		smMinus += minusDM[i]
	}

	dx := func() float64 {
		if smTR == 0 {
			return 0
		}
		pdi := 100 * smPlus / smTR
		mdi := 100 * smMinus / smTR
		if pdi+mdi == 0 {
			return 0
		}
		return 100 * math.Abs(pdi-mdi) / (pdi + mdi)
	}

	dxs := make([]float64, 0, len(trs)-period+1)
	dxs = append(dxs, dx())
	p := float64(period)
	for i := period; i < len(trs); i++ {
		smTR = smTR - smTR/p + trs[i]
		smPlus = smPlus - smPlus/p + plusDM[i]
		smMinus = smMinus - smMinus/p + minusDM[i]
		dxs = append(dxs, dx())
	}

	if len(dxs) < period {
		return nil, ErrNotEnoughData
	}

	// ADX: Wilder average of DX, seeded with the SMA of the first period DXs.
	var sum float64
	for _, v := range dxs[:period] {
		sum += v
	}
	adx := sum / p

	out := make([]float64, 0, len(dxs)-period+1)
	out = append(out, adx)
	for _, v := range dxs[period:] {
		adx = (adx*(p-1) + v) / p
		out = append(out, adx)
	}
	return out, nil
}

// ADX returns the two most recent ADX values (current, previous). When only
// one value exists, previous equals current.
func ADX(high, low, close []float64, period int) (cur, prev float64, err error) {
	series, err := ADXSeries(high, low, close, period)
	if err != nil {
		return 0, 0, err
	}
	cur = last(series)
	prev = cur
	if len(series) >= 2 {
		prev = series[len(series)-2]
	}
	return cur, prev, nil
}
