package model

import "time"

// TrailPhase tracks whether a position's take-profit is still static or has
// started trailing the best favorable price.
type TrailPhase string

const (
	PhaseInit  TrailPhase = "init"
	PhaseTrail TrailPhase = "trail"
)

// PositionSnapshot is the durable record of a tracked position. It is
// created on a successful entry, rewritten every cycle the position stays
// open (trailing fields, phase), and removed when the position closes.
type PositionSnapshot struct {
	Symbol     string    `json:"symbol"`
	Direction  Direction `json:"direction"`
	EntryPrice float64   `json:"entry_price"`
	Leverage   float64   `json:"leverage"`
	TxHash     string    `json:"tx_hash"` // external transaction reference

	MarketRegime Regime  `json:"market_regime"`
	SignalScore  float64 `json:"signal_score"`

	// Indicator values at entry.
	RSI             float64 `json:"rsi"`
	MACDHist        float64 `json:"macd_hist"`
	EMASlope        float64 `json:"ema_slope"`
	ATR             float64 `json:"atr"`
	ATRPct          float64 `json:"atr_pct"`
	ADX             float64 `json:"adx"`
	ADXSlope        float64 `json:"adx_slope"`
	VolumePct       float64 `json:"volume_pct"`
	DivergenceScore float64 `json:"divergence_score"`

	// TP/SL distances from entry (absolute price deltas) and reward:risk.
	TP  float64 `json:"tp"`
	SL  float64 `json:"sl"`
	RRR float64 `json:"rrr"`

	// Trailing state.
	Phase      TrailPhase `json:"phase"`
	HighestFav float64    `json:"highest_fav"` // best price seen, longs
	LowestFav  float64    `json:"lowest_fav"`  // best price seen, shorts

	PerPositionBudget float64 `json:"per_position_budget"` // USD

	// Provenance.
	TradeType   string `json:"trade_type"` // standard | override | anticipation
	TriggeredBy string `json:"triggered_by"`
	EntryReason string `json:"entry_reason"`
	Note        string `json:"note,omitempty"`

	OpenedAt time.Time `json:"opened_at"`
}

// DeriveProvenance fills TriggeredBy and EntryReason when the caller left
// them empty, mirroring the trade-type / divergence / score fallbacks used
// by the audit trail.
func (p *PositionSnapshot) DeriveProvenance() {
	if p.TriggeredBy == "" {
		switch {
		case p.TradeType == "anticipation":
			p.TriggeredBy = "early"
		case p.TradeType == "override":
			p.TriggeredBy = "fallback"
		case p.DivergenceScore >= 0.3:
			p.TriggeredBy = "divergence"
		default:
			p.TriggeredBy = "standard"
		}
	}
	if p.EntryReason == "" {
		switch {
		case p.TriggeredBy == "early":
			p.EntryReason = "Anticipation Entry: Early Signal or Divergence"
		case p.TriggeredBy == "fallback":
			p.EntryReason = "Fallback Entry: Signal Score Override"
		case p.TriggeredBy == "divergence":
			p.EntryReason = "Divergence Entry"
		case p.SignalScore >= 0.9:
			p.EntryReason = "High Confidence Signal"
		default:
			p.EntryReason = "Standard Signal Passed"
		}
	}
}
