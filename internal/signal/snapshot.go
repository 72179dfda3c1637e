// Package signal builds normalized indicator snapshots from candle series
// and scores them with a fixed-weight average tuned for regime-aware entry
// decisions.
package signal

import "perpbot/internal/model"

// Snapshot is the normalized indicator state for one series at one instant.
type Snapshot struct {
	EMAFast  float64 `json:"ema_fast"`
	EMASlow  float64 `json:"ema_slow"`
	EMASlope float64 `json:"ema_slope"` // (fast-slow)/slow

	ATR    float64 `json:"atr"`
	ATRPct float64 `json:"atr_pct"` // ATR as fraction of last close

	MACD         float64 `json:"macd"`
	MACDHist     float64 `json:"macd_hist"`
	MACDHistPrev float64 `json:"macd_hist_prev"`

	RSI      float64   `json:"rsi"`
	RSITrend []float64 `json:"rsi_trend"` // trailing RSI window (up to 20)
	RSISlope float64   `json:"rsi_slope"` // regression slope of RSITrend

	ADX      float64 `json:"adx"`
	ADXPrev  float64 `json:"adx_prev"`
	ADXSlope float64 `json:"adx_slope"` // ADX - ADXPrev

	VolumePct       float64 `json:"volume_pct"` // last volume / max of trailing 50
	DivergenceScore float64 `json:"divergence_score"`
	PriceSlope      float64 `json:"price_slope"` // regression slope of aligned closes
}

// MACDAccel is the change in MACD histogram between the last two candles.
func (s *Snapshot) MACDAccel() float64 { return s.MACDHist - s.MACDHistPrev }

// Evaluation is the scored outcome for one symbol on one series.
type Evaluation struct {
	Symbol   string           `json:"symbol"`
	Snapshot Snapshot         `json:"snapshot"`
	Regime   model.Regime     `json:"regime"`
	Score    float64          `json:"score"` // weighted, clamped to [0,1]
	Passed   bool             `json:"passed"`
	Reason   string           `json:"reason"`
}
