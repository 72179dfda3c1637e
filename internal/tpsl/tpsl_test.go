package tpsl

import (
	"math"
	"testing"

	"perpbot/internal/model"
)

func TestCompute_StandardLevels(t *testing.T) {
	// 100x leverage pins the stop at a 0.6% price move: sl = 0.6, tp = 0.96.
	lv := Compute("BTCUSDT", model.RegimeBullish, 2.0, 100, 100)
	if !lv.Valid() {
		t.Fatal("expected valid levels")
	}
	if !almostEqual(lv.SL, 0.6) {
		t.Errorf("SL = %v, want 0.6", lv.SL)
	}
	if !almostEqual(lv.TP, 0.96) {
		t.Errorf("TP = %v, want 0.96", lv.TP)
	}
	if !almostEqual(lv.RRR, 1.6) {
		t.Errorf("RRR = %v, want 1.6", lv.RRR)
	}
	if !almostEqual(lv.HalfATRThreshold, 1.0) || !almostEqual(lv.TrailOffset, 0.8) || !almostEqual(lv.FinalTP, 12.0) {
		t.Errorf("ATR-derived levels = %+v", lv)
	}
}

func TestCompute_UnknownRegimeFallsBack(t *testing.T) {
	lv := Compute("BTCUSDT", model.Regime("sideways"), 2.0, 100, 100)
	if !almostEqual(lv.RRR, 2.0) {
		t.Errorf("RRR = %v, want fallback 2.0", lv.RRR)
	}
}

func TestCompute_InvalidInputs(t *testing.T) {
	tests := []struct {
		name            string
		entry, leverage float64
	}{
		{"zero leverage", 100, 0},
		{"zero entry", 0, 100},
		{"negative entry", -5, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lv := Compute("BTCUSDT", model.RegimeBullish, 2.0, tt.entry, tt.leverage)
			if lv.Valid() {
				t.Errorf("expected zero levels, got %+v", lv)
			}
		})
	}
}

func position(dir model.Direction, entry float64) *model.PositionSnapshot {
	return &model.PositionSnapshot{
		Symbol:     "BTCUSDT",
		Direction:  dir,
		EntryPrice: entry,
		Leverage:   100,
	}
}

func levels() Levels {
	return Compute("BTCUSDT", model.RegimeBullish, 2.0, 100, 100)
}

func TestAssess_HoldInsideBand(t *testing.T) {
	a := Assess(position(model.DirLong, 100), 100.1, levels())
	if a.Close {
		t.Fatalf("expected hold, got close: %s", a.Reason)
	}
	if a.Phase != model.PhaseInit {
		t.Errorf("phase = %s, want init", a.Phase)
	}
	if !almostEqual(a.HighestFav, 100.1) {
		t.Errorf("highestFav = %v, want 100.1", a.HighestFav)
	}
}

func TestAssess_StaticTPAndSL(t *testing.T) {
	tests := []struct {
		name       string
		dir        model.Direction
		mark       float64
		wantReason string
		wantResult model.TradeResult
	}{
		{"long tp", model.DirLong, 100.96, model.CloseReasonTP, model.ResultWin},
		{"long sl", model.DirLong, 99.4, model.CloseReasonSL, model.ResultLoss},
		{"short tp", model.DirShort, 99.04, model.CloseReasonTP, model.ResultWin},
		{"short sl", model.DirShort, 100.6, model.CloseReasonSL, model.ResultLoss},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Assess(position(tt.dir, 100), tt.mark, levels())
			if !a.Close {
				t.Fatal("expected close")
			}
			if a.Reason != tt.wantReason {
				t.Errorf("reason = %s, want %s", a.Reason, tt.wantReason)
			}
			if a.Result != tt.wantResult {
				t.Errorf("result = %s, want %s", a.Result, tt.wantResult)
			}
		})
	}
}

func TestAssess_Liquidation(t *testing.T) {
	// -99.5% PnL at 1x needs the mark to nearly reach zero.
	pos := position(model.DirLong, 100)
	pos.Leverage = 1
	lv := Compute("BTCUSDT", model.RegimeBullish, 2.0, 100, 1)
	a := Assess(pos, 0.4, lv)
	if !a.Close || a.Result != model.ResultLiquidated {
		t.Fatalf("expected liquidation, got %+v", a)
	}
	if a.Reason != model.CloseReasonLiquidated {
		t.Errorf("reason = %s, want %s", a.Reason, model.CloseReasonLiquidated)
	}
}

func TestAssess_TrailingLifecycle(t *testing.T) {
	lv := levels()
	pos := position(model.DirLong, 100)

	// Halfway to TP flips the phase to trailing.
	a := Assess(pos, 100.5, lv)
	if a.Close {
		t.Fatalf("unexpected close at activation: %s", a.Reason)
	}
	if a.Phase != model.PhaseTrail {
		t.Fatalf("phase = %s, want trail", a.Phase)
	}

	// Persist the trailing state, then retrace below bestFav - trailOffset.
	pos.Phase = a.Phase
	pos.HighestFav = a.HighestFav
	a = Assess(pos, 99.6, lv)
	if !a.Close {
		t.Fatal("expected trailing close on retrace")
	}
	if a.Reason != model.CloseReasonTrailingTP {
		t.Errorf("reason = %s, want %s", a.Reason, model.CloseReasonTrailingTP)
	}
	if a.Result != model.ResultWin {
		t.Errorf("result = %s, want win", a.Result)
	}
}

func TestAssess_TrailingStickyBelowActivation(t *testing.T) {
	lv := levels()
	pos := position(model.DirLong, 100)
	pos.Phase = model.PhaseTrail
	pos.HighestFav = 100.5

	// Mark back under the activation price: the phase must not reset.
	a := Assess(pos, 100.2, lv)
	if a.Phase != model.PhaseTrail {
		t.Errorf("phase = %s, want trail to stay sticky", a.Phase)
	}
}

func TestAssess_ShortTracksLowestFav(t *testing.T) {
	lv := levels()
	pos := position(model.DirShort, 100)

	// Past the half-TP activation price (99.52) for a short.
	a := Assess(pos, 99.5, lv)
	if a.Close {
		t.Fatalf("unexpected close: %s", a.Reason)
	}
	if a.Phase != model.PhaseTrail {
		t.Fatalf("phase = %s, want trail", a.Phase)
	}
	if !almostEqual(a.LowestFav, 99.5) {
		t.Errorf("lowestFav = %v, want 99.5", a.LowestFav)
	}

	pos.Phase = a.Phase
	pos.LowestFav = a.LowestFav
	// Retrace above lowestFav + trailOffset (99.5 + 0.8).
	a = Assess(pos, 100.4, lv)
	if !a.Close || a.Reason != model.CloseReasonTrailingTP {
		t.Fatalf("expected trailing close, got %+v", a)
	}
}

func TestAssess_StaticTPBeatsTrailing(t *testing.T) {
	lv := levels()
	pos := position(model.DirLong, 100)
	pos.Phase = model.PhaseTrail
	pos.HighestFav = 150

	// Both the static TP and the capped dynamic TP are crossed; the static
	// TP reason wins.
	a := Assess(pos, 111, lv)
	if !a.Close {
		t.Fatal("expected close")
	}
	if a.Reason != model.CloseReasonTP {
		t.Errorf("reason = %s, want %s", a.Reason, model.CloseReasonTP)
	}
	if a.Result != model.ResultWin {
		t.Errorf("result = %s, want win", a.Result)
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9
}
