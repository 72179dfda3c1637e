// Package threshold manages the per-(symbol, regime) tunable cutoff bundles
// the scorer and entry engine consult. Sets live in a JSON file keyed by
// "SYMBOL_regime", reloaded at most every 10 minutes, backed up before every
// overwrite, and considered stale after 12 hours. A missing or stale set
// falls back to defaults while regeneration is requested out-of-process.
package threshold

import (
	"time"

	"perpbot/internal/model"
)

// Staleness horizon for a tuned set.
const OutdatedAfter = 12 * time.Hour

// Set is a bundle of numeric cutoffs for one (symbol, regime). The zero
// value is not usable; start from Default.
//
// Not every field is consulted by the engine yet. The rule sets read
// SignalScoreMin, DivergenceScoreMin, ATRPctMin, ADXMin, and the RSI band
// fields; sizing reads Leverage. VolumePctMin, MACDHistMin,
// EMASlopeMin/Max, RSIOversold/Overbought, and TPMultiplier/SLMultiplier
// are carried for the tuner's file contract only and changing them has no
// effect on entries or levels today.
type Set struct {
	SignalScoreMin     float64 `json:"signal_score_min"`
	DivergenceScoreMin float64 `json:"divergence_score_min"`
	VolumePctMin       float64 `json:"volume_pct_min"`
	ATRPctMin          float64 `json:"atr_pct_min"` // percent of last close
	ADXMin             float64 `json:"adx_min"`
	MACDHistMin        float64 `json:"macd_hist_min"`
	EMASlopeMin        float64 `json:"ema_slope_min"`
	EMASlopeMax        float64 `json:"ema_slope_max"`

	// RSI bands per rule family.
	RSIOversold   float64 `json:"rsi_oversold"`
	RSIOverbought float64 `json:"rsi_overbought"`
	SniperRSILo   float64 `json:"sniper_rsi_lo"`
	SniperRSIHi   float64 `json:"sniper_rsi_hi"`
	ReversalRSIHi float64 `json:"reversal_rsi_hi"` // longReversal needs RSI above
	ReversalRSILo float64 `json:"reversal_rsi_lo"` // shortReversal needs RSI below
	BearishRSILo  float64 `json:"bearish_rsi_lo"`
	BearishRSIHi  float64 `json:"bearish_rsi_hi"`
	BullishRSILo  float64 `json:"bullish_rsi_lo"`
	BullishRSIHi  float64 `json:"bullish_rsi_hi"`

	TPMultiplier float64 `json:"tp_multiplier"`
	SLMultiplier float64 `json:"sl_multiplier"`
	Leverage     float64 `json:"leverage"`

	Enabled   bool      `json:"enabled"`
	Timestamp time.Time `json:"timestamp"`
}

// Outdated reports whether the set is older than the staleness horizon.
// Sets without a timestamp are always outdated.
func (s *Set) Outdated(now time.Time) bool {
	return s.Timestamp.IsZero() || now.Sub(s.Timestamp) > OutdatedAfter
}

// Default returns the fallback cutoff bundle used when no tuned set exists
// for the regime. Values match the engine's fixed rule constants.
func Default(regime model.Regime) Set {
	_ = regime // uniform defaults across regimes today
	return Set{
		SignalScoreMin:     0.5,
		DivergenceScoreMin: 0,
		VolumePctMin:       0,
		ATRPctMin:          0.25,
		ADXMin:             10,
		MACDHistMin:        0.0002,
		EMASlopeMin:        -0.002,
		EMASlopeMax:        0.002,
		RSIOversold:        30,
		RSIOverbought:      70,
		SniperRSILo:        35,
		SniperRSIHi:        55,
		ReversalRSIHi:      80,
		ReversalRSILo:      20,
		BearishRSILo:       65,
		BearishRSIHi:       80,
		BullishRSILo:       20,
		BullishRSIHi:       35,
		TPMultiplier:       1.5,
		SLMultiplier:       1.0,
		Leverage:           100,
		Enabled:            true,
	}
}
