package signal

import (
	"log"
	"math"

	"perpbot/internal/indicator"
	"perpbot/internal/model"
)

// MinCandles is the minimum series length for a full evaluation. Below it
// Evaluate short-circuits with a zeroed snapshot and Passed=false.
const MinCandles = 26

// Evaluate builds the indicator snapshot for a series and scores it.
// forcedRegime, when non-empty, overrides the built-in fallback regime
// guess. Evaluate never returns an error: a series that is too short yields
// a zeroed, not-passed evaluation so callers can skip without branching on
// failure modes.
func Evaluate(symbol string, series *model.Series, forcedRegime model.Regime) Evaluation {
	if series == nil || series.Len() < MinCandles {
		got := 0
		if series != nil {
			got = series.Len()
		}
		log.Printf("[signal] %s: insufficient data (need %d+ candles, got %d)", symbol, MinCandles, got)
		return Evaluation{
			Symbol: symbol,
			Regime: model.RegimeNeutral,
			Passed: false,
			Reason: "rejected: insufficient candles (<26)",
		}
	}

	close := series.Close
	lastClose := series.LastClose()
	snap := Snapshot{}

	if v, err := indicator.EMA(close, 5); err == nil {
		snap.EMAFast = v
	}
	if v, err := indicator.EMA(close, 20); err == nil {
		snap.EMASlow = v
	}
	if snap.EMASlow != 0 {
		snap.EMASlope = (snap.EMAFast - snap.EMASlow) / snap.EMASlow
	}

	if v, err := indicator.ATR(series.High, series.Low, close, 14); err == nil {
		snap.ATR = v
		snap.ATRPct = v / lastClose
	}

	if m, err := indicator.MACD(close, 12, 26, 9); err == nil {
		snap.MACD = m.MACD
		snap.MACDHist = m.Hist
		snap.MACDHistPrev = m.HistPrev
	}

	if rsiSeries, err := indicator.RSISeries(close, 14); err == nil {
		snap.RSI = rsiSeries[len(rsiSeries)-1]
		trend := rsiSeries
		if len(trend) > 20 {
			trend = trend[len(trend)-20:]
		}
		snap.RSITrend = trend
	}

	if cur, prev, err := indicator.ADX(series.High, series.Low, close, 14); err == nil {
		snap.ADX = cur
		snap.ADXPrev = prev
		snap.ADXSlope = cur - prev
	}

	snap.VolumePct = VolumePercent(series.Volume)

	// Price window aligned to the trailing RSI window.
	priceTrend := series.Tail(len(snap.RSITrend))
	snap.DivergenceScore = Divergence(snap.RSITrend, priceTrend)
	snap.RSISlope = indicator.LinearSlope(snap.RSITrend)
	snap.PriceSlope = indicator.LinearSlope(priceTrend)

	regime := forcedRegime
	if regime == "" {
		regime = guessRegime(snap)
	}

	return Evaluation{
		Symbol:   symbol,
		Snapshot: snap,
		Regime:   regime,
		Score:    WeightedScore(snap),
		Passed:   true,
		Reason:   "signal calculated",
	}
}

// guessRegime is a coarse fallback used only when no classifier result is
// supplied. The regime package's classifier is authoritative.
func guessRegime(s Snapshot) model.Regime {
	emaGap := 0.0
	if s.EMASlow != 0 {
		emaGap = (s.EMAFast - s.EMASlow) / s.EMASlow
	}
	macdAbs := math.Abs(s.MACD)
	switch {
	case emaGap > 0.003 && s.RSI > 60 && s.MACD > 0:
		return model.RegimeBullish
	case emaGap < -0.003 && s.RSI < 40 && s.MACD < 0:
		return model.RegimeBearish
	case math.Abs(emaGap) < 0.001 && s.RSI >= 45 && s.RSI <= 55 && s.ATRPct < 0.2:
		return model.RegimeFlatOrChoppy
	case s.ATRPct > 0.5 && (s.RSI < 45 || s.RSI > 55) && macdAbs < 0.001:
		return model.RegimeVolatileUncertain
	}
	return model.RegimeNeutral
}
