package signal

import (
	"math"

	"perpbot/internal/indicator"
)

// Fixed component weights. These are design constants; the relative weights
// must be preserved exactly for behavioral parity with tuned thresholds.
const (
	weightRSI        = 1.2
	weightMACD       = 0.5
	weightEMASlope   = 1.5
	weightATR        = 1.0
	weightADX        = 1.0
	weightDivergence = 0.3
	weightDivisor    = 5.5
)

// WeightedScore maps each indicator to a component in {0.3..1.0} via fixed
// breakpoints and returns the fixed-weight average, clamped to [0,1].
func WeightedScore(s Snapshot) float64 {
	var rsiComponent float64
	switch {
	case s.RSI > 70 || s.RSI < 30:
		rsiComponent = 1
	case s.RSI > 55 || s.RSI < 45:
		rsiComponent = 0.8
	default:
		rsiComponent = 0.5
	}

	macdComponent := 0.3
	if math.Abs(s.MACDHist) > 0.0002 {
		macdComponent = 1
	}

	var emaComponent float64
	switch {
	case math.Abs(s.EMASlope) > 0.003:
		emaComponent = 1
	case math.Abs(s.EMASlope) > 0.0015:
		emaComponent = 0.7
	default:
		emaComponent = 0.3
	}

	var atrComponent float64
	switch {
	case s.ATRPct > 0.005:
		atrComponent = 1
	case s.ATRPct > 0.003:
		atrComponent = 0.7
	default:
		atrComponent = 0.4
	}

	var adxComponent float64
	switch {
	case s.ADX > 30:
		adxComponent = 1
	case s.ADX > 20:
		adxComponent = 0.7
	default:
		adxComponent = 0.4
	}

	var divComponent float64
	switch {
	case s.DivergenceScore > 0.3:
		divComponent = 1
	case s.DivergenceScore > 0.1:
		divComponent = 0.6
	default:
		divComponent = 0.3
	}

	score := (weightRSI*rsiComponent +
		weightMACD*macdComponent +
		weightEMASlope*emaComponent +
		weightATR*atrComponent +
		weightADX*adxComponent +
		weightDivergence*divComponent) / weightDivisor

	return math.Min(1, score)
}

// Divergence compares the regression slope of the trailing RSI window with
// the slope of the aligned price window. Windows shorter than 5 points score
// 0. The score is min(|slope difference|, 1) when any divergence pattern
// fires, else 0, so it stays within [0,1].
func Divergence(rsiTrend, priceTrend []float64) float64 {
	if len(rsiTrend) < 5 || len(priceTrend) < 5 {
		return 0
	}

	rsiSlope := indicator.LinearSlope(rsiTrend)
	priceSlope := indicator.LinearSlope(priceTrend)
	slopeDiff := math.Abs(rsiSlope - priceSlope)

	opposing := sign(rsiSlope) != sign(priceSlope)
	flattening := math.Abs(priceSlope) < 0.002
	rsiLeading := math.Abs(rsiSlope) > math.Abs(priceSlope)*3

	hasDivergence := (opposing && slopeDiff > 0.2) ||
		(flattening && math.Abs(rsiSlope) > 0.1) ||
		(rsiLeading && slopeDiff > 0.25)

	if !hasDivergence {
		return 0
	}
	return math.Min(slopeDiff, 1)
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// VolumePercent returns the last volume relative to the maximum volume of
// the trailing 50-candle window.
func VolumePercent(volume []float64) float64 {
	if len(volume) == 0 {
		return 0
	}
	latest := volume[len(volume)-1]
	window := volume
	if len(window) > 50 {
		window = window[len(window)-50:]
	}
	var max float64
	for _, v := range window {
		if v > max {
			max = v
		}
	}
	if max <= 0 {
		return 0
	}
	return latest / max
}
