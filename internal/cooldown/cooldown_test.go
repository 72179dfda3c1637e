package cooldown

import (
	"testing"
	"time"

	"perpbot/internal/model"
)

func fixedManager(t *testing.T) (*Manager, time.Time) {
	t.Helper()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewManager()
	m.now = func() time.Time { return now }
	return m, now
}

func TestRecord_Cascade(t *testing.T) {
	tests := []struct {
		name    string
		history []model.TradeResult
		want    time.Duration
	}{
		{"single loss", []model.TradeResult{model.ResultLoss}, 60 * time.Minute},
		{"single win counts as streak", []model.TradeResult{model.ResultWin}, 60 * time.Minute},
		{"two wins count as streak", []model.TradeResult{model.ResultWin, model.ResultWin}, 60 * time.Minute},
		{"three-win streak", []model.TradeResult{model.ResultWin, model.ResultWin, model.ResultWin}, 60 * time.Minute},
		{"two losses in last three", []model.TradeResult{model.ResultWin, model.ResultLoss, model.ResultLoss}, 90 * time.Minute},
		{
			"bad five-trade window",
			[]model.TradeResult{model.ResultWin, model.ResultWin, model.ResultLoss, model.ResultLoss, model.ResultLoss},
			120 * time.Minute,
		},
		{"liquidation counts as loss", []model.TradeResult{model.ResultLiquidated}, 60 * time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, now := fixedManager(t)
			for _, r := range tt.history {
				m.Record("BTCUSDT", r)
			}
			until := m.Until("BTCUSDT")
			if tt.want == 0 {
				if until.After(now) {
					t.Errorf("unexpected cooldown until %s", until)
				}
				return
			}
			if got := until.Sub(now); got != tt.want {
				t.Errorf("cooldown = %s, want %s", got, tt.want)
			}
		})
	}
}

// A win recorded into a mixed tail triggers no rule, so an already-expired
// deadline stays expired.
func TestRecord_MixedTailAddsNoCooldown(t *testing.T) {
	m, now := fixedManager(t)
	m.Record("BTCUSDT", model.ResultLoss)
	m.now = func() time.Time { return now.Add(2 * time.Hour) }
	m.Record("BTCUSDT", model.ResultWin)
	if m.InCooldown("BTCUSDT") {
		t.Error("win after an expired loss cooldown should not re-block")
	}
}

func TestInCooldown_ExpiresWithClock(t *testing.T) {
	m, now := fixedManager(t)
	m.Record("ETHUSDT", model.ResultLoss)
	if !m.InCooldown("ETHUSDT") {
		t.Fatal("expected cooldown right after a loss")
	}
	if m.InCooldown("BTCUSDT") {
		t.Error("unrelated symbol should not be blocked")
	}
	m.now = func() time.Time { return now.Add(61 * time.Minute) }
	if m.InCooldown("ETHUSDT") {
		t.Error("cooldown should have expired")
	}
}

func TestHistory_Capped(t *testing.T) {
	m, _ := fixedManager(t)
	for i := 0; i < historyCap+5; i++ {
		m.Record("BTCUSDT", model.ResultWin)
	}
	h := m.History("BTCUSDT")
	if len(h) != historyCap {
		t.Errorf("history length = %d, want %d", len(h), historyCap)
	}
}

func TestHistory_CopyIsolated(t *testing.T) {
	m, _ := fixedManager(t)
	m.Record("BTCUSDT", model.ResultWin)
	h := m.History("BTCUSDT")
	h[0] = model.ResultLoss
	if got := m.History("BTCUSDT")[0]; got != model.ResultWin {
		t.Errorf("internal history mutated through returned slice: %s", got)
	}
}
