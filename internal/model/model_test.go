package model

import (
	"testing"
)

func TestSeries_Len(t *testing.T) {
	var nilSeries *Series
	if nilSeries.Len() != 0 {
		t.Error("nil series length should be 0")
	}
	s := &Series{Close: []float64{1, 2, 3}}
	if s.Len() != 3 {
		t.Errorf("Len = %d, want 3", s.Len())
	}
}

func TestSeries_LastClose(t *testing.T) {
	s := &Series{}
	if s.LastClose() != 0 {
		t.Error("empty series last close should be 0")
	}
	s.Close = []float64{100, 101.5}
	if s.LastClose() != 101.5 {
		t.Errorf("LastClose = %v, want 101.5", s.LastClose())
	}
}

func TestSeries_Validate(t *testing.T) {
	valid := &Series{
		Open:      []float64{1, 2},
		High:      []float64{2, 3},
		Low:       []float64{0.5, 1},
		Close:     []float64{1.5, 2.5},
		Volume:    []float64{10, 20},
		Timestamp: []int64{1, 2},
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid series: %v", err)
	}

	ragged := &Series{Close: []float64{1, 2}, Open: []float64{1}}
	if err := ragged.Validate(); err == nil {
		t.Error("expected error for ragged columns")
	}

	negative := &Series{
		Open:      []float64{1, -2},
		High:      []float64{2, 3},
		Low:       []float64{0.5, 1},
		Close:     []float64{1.5, 2.5},
		Volume:    []float64{10, 20},
		Timestamp: []int64{1, 2},
	}
	if err := negative.Validate(); err == nil {
		t.Error("expected error for non-positive OHLC")
	}
}

func TestSeries_Tail(t *testing.T) {
	s := &Series{Close: []float64{1, 2, 3, 4, 5}}
	got := s.Tail(2)
	if len(got) != 2 || got[0] != 4 || got[1] != 5 {
		t.Errorf("Tail(2) = %v", got)
	}
	if len(s.Tail(10)) != 5 {
		t.Errorf("Tail beyond length should return all closes")
	}
}

func TestTradeResult_Outcome(t *testing.T) {
	tests := []struct {
		in   TradeResult
		want TradeResult
	}{
		{ResultWin, ResultWin},
		{ResultLoss, ResultLoss},
		{ResultLiquidated, ResultLoss},
	}
	for _, tt := range tests {
		if got := tt.in.Outcome(); got != tt.want {
			t.Errorf("Outcome(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestDeriveProvenance(t *testing.T) {
	tests := []struct {
		name        string
		pos         PositionSnapshot
		wantTrigger string
		wantReason  string
	}{
		{
			name:        "anticipation entry",
			pos:         PositionSnapshot{TradeType: "anticipation"},
			wantTrigger: "early",
			wantReason:  "Anticipation Entry: Early Signal or Divergence",
		},
		{
			name:        "override entry",
			pos:         PositionSnapshot{TradeType: "override"},
			wantTrigger: "fallback",
			wantReason:  "Fallback Entry: Signal Score Override",
		},
		{
			name:        "divergence entry",
			pos:         PositionSnapshot{TradeType: "standard", DivergenceScore: 0.4},
			wantTrigger: "divergence",
			wantReason:  "Divergence Entry",
		},
		{
			name:        "high confidence",
			pos:         PositionSnapshot{TradeType: "standard", SignalScore: 0.95},
			wantTrigger: "standard",
			wantReason:  "High Confidence Signal",
		},
		{
			name:        "plain standard",
			pos:         PositionSnapshot{TradeType: "standard", SignalScore: 0.6},
			wantTrigger: "standard",
			wantReason:  "Standard Signal Passed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.pos.DeriveProvenance()
			if tt.pos.TriggeredBy != tt.wantTrigger {
				t.Errorf("TriggeredBy = %q, want %q", tt.pos.TriggeredBy, tt.wantTrigger)
			}
			if tt.pos.EntryReason != tt.wantReason {
				t.Errorf("EntryReason = %q, want %q", tt.pos.EntryReason, tt.wantReason)
			}
		})
	}
}

func TestDeriveProvenance_KeepsExplicitValues(t *testing.T) {
	pos := PositionSnapshot{TriggeredBy: "manual", EntryReason: "operator entry"}
	pos.DeriveProvenance()
	if pos.TriggeredBy != "manual" || pos.EntryReason != "operator entry" {
		t.Errorf("explicit provenance overwritten: %+v", pos)
	}
}
