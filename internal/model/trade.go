package model

import "time"

// TradeResult classifies a closed trade.
type TradeResult string

const (
	ResultWin        TradeResult = "win"
	ResultLoss       TradeResult = "loss"
	ResultLiquidated TradeResult = "liquidated"
)

// Close reasons attached to every close decision.
const (
	CloseReasonTP         = "tp_hit"
	CloseReasonSL         = "sl_hit"
	CloseReasonTrailingTP = "trailing_tp_hit"
	CloseReasonLiquidated = "liquidated_exit"
	CloseReasonManual     = "manual_close"
)

// TradeLogEntry is one append-only audit record for a closed trade. Entries
// are never mutated after being written.
type TradeLogEntry struct {
	Symbol     string      `json:"symbol"`
	Direction  Direction   `json:"direction"`
	EntryPrice float64     `json:"entry_price"`
	ExitPrice  float64     `json:"exit_price"`
	PnLPct     float64     `json:"pnl_pct"`
	Result     TradeResult `json:"result"`

	MarketRegime Regime  `json:"market_regime"`
	SignalScore  float64 `json:"signal_score"`

	RSI             float64 `json:"rsi"`
	MACDHist        float64 `json:"macd_hist"`
	EMASlope        float64 `json:"ema_slope"`
	ATRPct          float64 `json:"atr_pct"`
	ATR             float64 `json:"atr"`
	ADX             float64 `json:"adx"`
	ADXSlope        float64 `json:"adx_slope"`
	VolumePct       float64 `json:"volume_pct"`
	DivergenceScore float64 `json:"divergence_score"`

	Leverage  float64 `json:"leverage"`
	TradeType string  `json:"trade_type"`
	ClosedBy  string  `json:"closed_by"` // tp_hit | sl_hit | trailing_tp_hit | liquidated_exit | manual_close

	TriggeredBy string `json:"triggered_by"`
	EntryReason string `json:"entry_reason"`
	Note        string `json:"note,omitempty"`

	TP  float64 `json:"tp"`
	SL  float64 `json:"sl"`
	RRR float64 `json:"rrr"`

	Phase             TrailPhase `json:"phase"`
	HighestFav        float64    `json:"highest_fav"`
	LowestFav         float64    `json:"lowest_fav"`
	PerPositionBudget float64    `json:"per_position_budget"`

	ClosedAt time.Time `json:"closed_at"`
}

// Outcome reduces a trade result to the win/loss axis used by the cooldown
// cascade. Liquidations count as losses.
func (r TradeResult) Outcome() TradeResult {
	if r == ResultWin {
		return ResultWin
	}
	return ResultLoss
}
