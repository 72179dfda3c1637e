// Package regime classifies the prevailing market condition from candle
// series and reconciles two timeframes into one agreed regime.
package regime

import (
	"fmt"
	"math"

	"perpbot/internal/indicator"
	"perpbot/internal/model"
)

// MinCandles is the minimum series length for a classification.
const MinCandles = 30

// Classify derives a regime label and confidence from one candle series.
// The precedence of the checks matters: the first match wins, this is not a
// scored vote.
func Classify(series *model.Series, timeframe string) (model.RegimeResult, error) {
	if series == nil || series.Len() < MinCandles {
		return model.RegimeResult{}, fmt.Errorf("regime: %s: %w (need %d candles)",
			timeframe, model.ErrInsufficientData, MinCandles)
	}

	close := series.Close
	lastClose := series.LastClose()

	emaFast, err := indicator.EMA(close, 5)
	if err != nil {
		return model.RegimeResult{}, fmt.Errorf("regime: ema(5): %w", err)
	}
	emaSlow, err := indicator.EMA(close, 20)
	if err != nil {
		return model.RegimeResult{}, fmt.Errorf("regime: ema(20): %w", err)
	}
	emaSlope := (emaFast - emaSlow) / emaSlow

	atr14, err := indicator.ATRSimple(series.High, series.Low, close, 14)
	if err != nil {
		return model.RegimeResult{}, fmt.Errorf("regime: atr(14): %w", err)
	}
	atr28, err := indicator.ATRSimple(series.High, series.Low, close, 28)
	if err != nil {
		return model.RegimeResult{}, fmt.Errorf("regime: atr(28): %w", err)
	}
	atrPct := atr14 / lastClose
	volatilitySlope := atrPct - atr28/lastClose

	adx, _, err := indicator.ADX(series.High, series.Low, close, 14)
	if err != nil {
		return model.RegimeResult{}, fmt.Errorf("regime: adx(14): %w", err)
	}

	macdSlope := indicator.MACDHist(close) - indicator.MACDHist(close[:len(close)-1])

	rsiCur, err := indicator.RSI(close, 14)
	if err != nil {
		return model.RegimeResult{}, fmt.Errorf("regime: rsi(14): %w", err)
	}
	rsiPrev, err := indicator.RSI(close[:len(close)-1], 14)
	if err != nil {
		return model.RegimeResult{}, fmt.Errorf("regime: rsi(14) prev: %w", err)
	}
	rsiSlope := rsiCur - rsiPrev

	// Base confidence from combined trend metrics, normalized over [0,10].
	trendScore := math.Abs(emaSlope) + math.Abs(macdSlope) + adx + math.Abs(rsiSlope)
	baseConf := normalize(trendScore, 0, 10)

	res := model.RegimeResult{Confidence: baseConf, Timeframe: timeframe}
	switch {
	case emaSlope > 0.002 && macdSlope > 0 && adx > 15 && rsiSlope > 0:
		res.Regime = model.RegimeBullish
	case emaSlope < -0.002 && macdSlope < 0 && adx > 15 && rsiSlope < 0:
		res.Regime = model.RegimeBearish
	case atrPct > 0.015 && math.Abs(volatilitySlope) > 0.01:
		res.Regime = model.RegimeVolatileUncertain
	case adx < 10 && math.Abs(emaSlope) < 0.001:
		res.Regime = model.RegimeFlatOrChoppy
	default:
		res.Regime = model.RegimeNeutral
		res.Confidence = baseConf * 0.5
	}
	return res, nil
}

// Agree reconciles a primary-timeframe classification with the longer
// confirmation timeframe. Matching regimes average their confidences; on a
// mismatch the confirmation timeframe wins, scaled by 0.8 to express
// distrust rather than averaged.
func Agree(primary, confirmation model.RegimeResult) model.RegimeResult {
	if primary.Regime == confirmation.Regime {
		return model.RegimeResult{
			Regime:     primary.Regime,
			Confidence: (primary.Confidence + confirmation.Confidence) / 2,
			Timeframe:  primary.Timeframe + "+" + confirmation.Timeframe,
		}
	}
	return model.RegimeResult{
		Regime:     confirmation.Regime,
		Confidence: confirmation.Confidence * 0.8,
		Timeframe:  confirmation.Timeframe,
	}
}

func normalize(value, min, max float64) float64 {
	return math.Max(0, math.Min(1, (value-min)/(max-min)))
}
