package engine

import (
	"math"
	"testing"

	"perpbot/internal/model"
)

func TestTradeStats_Report(t *testing.T) {
	s := NewTradeStats()
	s.Record(model.ResultWin, 96)
	s.Record(model.ResultWin, 64)
	s.Record(model.ResultLoss, -60)
	s.Record(model.ResultLiquidated, -99.8)

	r := s.Report()
	if r.Trades != 4 || r.Wins != 2 || r.Losses != 1 || r.Liquidated != 1 {
		t.Fatalf("counts = %+v", r)
	}
	if math.Abs(r.WinRate-0.5) > 1e-9 {
		t.Errorf("win rate = %v, want 0.5", r.WinRate)
	}
	if math.Abs(r.AvgWinPct-80) > 1e-9 {
		t.Errorf("avg win = %v, want 80", r.AvgWinPct)
	}
	if math.Abs(r.AvgLossPct-(-79.9)) > 1e-9 {
		t.Errorf("avg loss = %v, want -79.9", r.AvgLossPct)
	}
}

func TestTradeStats_EmptyReport(t *testing.T) {
	r := NewTradeStats().Report()
	if r.Trades != 0 || r.WinRate != 0 || r.AvgWinPct != 0 || r.AvgLossPct != 0 {
		t.Errorf("empty report = %+v", r)
	}
}

func TestTradeStats_CapEvictsOldest(t *testing.T) {
	s := NewTradeStats()
	s.Record(model.ResultLoss, -60)
	for i := 0; i < statsCap; i++ {
		s.Record(model.ResultWin, 10)
	}
	r := s.Report()
	if r.Trades != statsCap {
		t.Errorf("trades = %d, want %d", r.Trades, statsCap)
	}
	if r.Losses != 0 {
		t.Errorf("oldest loss should have been evicted, losses = %d", r.Losses)
	}
}
