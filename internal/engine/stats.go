package engine

import (
	"sync"

	"perpbot/internal/model"
)

// statsCap bounds the in-memory trade history used for win-rate reporting.
const statsCap = 1000

// TradeStats is an in-memory rolling record of closed trades for the status
// surface. The journal remains the durable source of truth.
type TradeStats struct {
	mu     sync.Mutex
	trades []statEntry
}

type statEntry struct {
	result model.TradeResult
	pnlPct float64
}

// StatsReport is the summary surfaced by the status endpoint.
type StatsReport struct {
	Trades     int     `json:"trades"`
	Wins       int     `json:"wins"`
	Losses     int     `json:"losses"`
	Liquidated int     `json:"liquidated"`
	WinRate    float64 `json:"win_rate"` // [0,1]
	AvgWinPct  float64 `json:"avg_win_pct"`
	AvgLossPct float64 `json:"avg_loss_pct"`
}

func NewTradeStats() *TradeStats {
	return &TradeStats{}
}

// Record appends one closed trade, evicting the oldest past the cap.
func (s *TradeStats) Record(result model.TradeResult, pnlPct float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades = append(s.trades, statEntry{result: result, pnlPct: pnlPct})
	if len(s.trades) > statsCap {
		s.trades = s.trades[len(s.trades)-statsCap:]
	}
}

// Report computes the summary over the retained window.
func (s *TradeStats) Report() StatsReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := StatsReport{Trades: len(s.trades)}
	var winSum, lossSum float64
	for _, t := range s.trades {
		switch t.result {
		case model.ResultWin:
			r.Wins++
			winSum += t.pnlPct
		case model.ResultLiquidated:
			r.Liquidated++
			lossSum += t.pnlPct
		default:
			r.Losses++
			lossSum += t.pnlPct
		}
	}
	if r.Trades > 0 {
		r.WinRate = float64(r.Wins) / float64(r.Trades)
	}
	if r.Wins > 0 {
		r.AvgWinPct = winSum / float64(r.Wins)
	}
	if n := r.Losses + r.Liquidated; n > 0 {
		r.AvgLossPct = lossSum / float64(n)
	}
	return r
}
