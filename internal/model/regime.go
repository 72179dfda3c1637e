// Package model holds the shared domain types: candle series, regime labels,
// position snapshots, trade records, and the sentinel error taxonomy.
package model

// Regime labels the prevailing market state for one symbol/timeframe.
type Regime string

const (
	RegimeBullish           Regime = "bullish"
	RegimeBearish           Regime = "bearish"
	RegimeNeutral           Regime = "neutral"
	RegimeFlatOrChoppy      Regime = "flat_or_choppy"
	RegimeVolatileUncertain Regime = "volatile_uncertain"
)

// RegimeResult is a classification outcome with its confidence and the
// timeframe(s) it was derived from.
type RegimeResult struct {
	Regime     Regime  `json:"regime"`
	Confidence float64 `json:"confidence"` // [0,1]
	Timeframe  string  `json:"timeframe"`
}

// Uncertain reports whether the regime gives no directional edge.
func (r RegimeResult) Uncertain() bool {
	return r.Regime == RegimeFlatOrChoppy || r.Regime == RegimeVolatileUncertain
}

// Direction is the side of a position.
type Direction string

const (
	DirLong  Direction = "long"
	DirShort Direction = "short"
	DirNone  Direction = "none"
)

// Confidence buckets used in entry decisions and audit logs.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)
