// Package cooldown throttles re-entry per symbol from a bounded rolling
// history of trade outcomes.
package cooldown

import (
	"log"
	"sync"
	"time"

	"perpbot/internal/model"
)

// historyCap bounds the per-symbol outcome history.
const historyCap = 10

// Durations applied by the rule cascade.
const (
	afterLoss        = 60 * time.Minute
	afterWinStreak   = 60 * time.Minute
	afterLossCluster = 90 * time.Minute
	afterBadWindow   = 120 * time.Minute
)

// Record is the per-symbol cooldown state.
type Record struct {
	History       []model.TradeResult `json:"history"` // oldest first, capped
	CooldownUntil time.Time           `json:"cooldown_until"`
}

// Manager tracks cooldown records for all symbols. Safe for concurrent use.
type Manager struct {
	mu      sync.Mutex
	records map[string]*Record
	now     func() time.Time
}

func NewManager() *Manager {
	return &Manager{records: make(map[string]*Record), now: time.Now}
}

// InCooldown reports whether entries for symbol are currently blocked.
func (m *Manager) InCooldown(symbol string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[symbol]
	return ok && m.now().Before(rec.CooldownUntil)
}

// Until returns the cooldown deadline for symbol (zero when none).
func (m *Manager) Until(symbol string) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.records[symbol]; ok {
		return rec.CooldownUntil
	}
	return time.Time{}
}

// Record appends an outcome and re-runs the rule cascade. The rules are
// evaluated in fixed order and each triggered rule overwrites the deadline,
// so a later rule always wins over an earlier one.
func (m *Manager) Record(symbol string, result model.TradeResult) {
	outcome := result.Outcome()

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[symbol]
	if !ok {
		rec = &Record{}
		m.records[symbol] = rec
	}
	rec.History = append(rec.History, outcome)
	if len(rec.History) > historyCap {
		rec.History = rec.History[len(rec.History)-historyCap:]
	}

	now := m.now()
	h := rec.History

	if outcome == model.ResultLoss {
		rec.CooldownUntil = now.Add(afterLoss)
	} else if streak(h, 3, model.ResultWin) {
		rec.CooldownUntil = now.Add(afterWinStreak)
	}
	if count(tail(h, 3), model.ResultLoss) >= 2 {
		rec.CooldownUntil = now.Add(afterLossCluster)
	}
	if len(h) >= 5 {
		last5 := tail(h, 5)
		if float64(count(last5, model.ResultWin))/float64(len(last5)) < 0.5 {
			rec.CooldownUntil = now.Add(afterBadWindow)
		}
	}

	if rec.CooldownUntil.After(now) {
		log.Printf("[cooldown] %s: %s recorded, blocked until %s",
			symbol, outcome, rec.CooldownUntil.Format(time.RFC3339))
	}
}

// History returns a copy of the symbol's outcome history, oldest first.
func (m *Manager) History(symbol string) []model.TradeResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[symbol]
	if !ok {
		return nil
	}
	out := make([]model.TradeResult, len(rec.History))
	copy(out, rec.History)
	return out
}

func tail(h []model.TradeResult, n int) []model.TradeResult {
	if len(h) <= n {
		return h
	}
	return h[len(h)-n:]
}

// streak reports whether every one of the last n outcomes matches want. A
// history shorter than n is judged on what exists, so one or two wins
// already count as a win streak.
func streak(h []model.TradeResult, n int, want model.TradeResult) bool {
	for _, r := range tail(h, n) {
		if r != want {
			return false
		}
	}
	return true
}

func count(h []model.TradeResult, want model.TradeResult) int {
	c := 0
	for _, r := range h {
		if r == want {
			c++
		}
	}
	return c
}
