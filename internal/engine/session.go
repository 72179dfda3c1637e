// Package engine orchestrates the trading cycle: position lifecycle, regime
// classification, signal evaluation, entry decisions, and reconciliation.
package engine

import (
	"context"
	"log"
	"time"

	"perpbot/config"
	"perpbot/internal/cooldown"
	"perpbot/internal/exchange"
	"perpbot/internal/metrics"
	"perpbot/internal/notification"
	"perpbot/internal/store"
	"perpbot/internal/strategy"
	"perpbot/internal/threshold"
)

// PriceSource yields a live mark price per symbol.
type PriceSource interface {
	Price(symbol string) (float64, bool)
}

// Session owns every collaborator for one bot instance. All mutable trading
// state hangs off the session; there are no package-level clients.
type Session struct {
	cfg *config.Config

	source     strategy.CandleSource
	stream     PriceSource
	strategy   *strategy.Engine
	thresholds *threshold.Store
	cooldowns  *cooldown.Manager
	positions  *store.Positions
	journal    *store.Journal
	executor   exchange.Executor
	notifier   notification.Notifier
	prom       *metrics.Metrics
	health     *metrics.HealthStatus
	stats      *TradeStats

	now func() time.Time
}

// Deps bundles the session collaborators.
type Deps struct {
	Source     strategy.CandleSource
	Stream     PriceSource
	Thresholds *threshold.Store
	Cooldowns  *cooldown.Manager
	Positions  *store.Positions
	Journal    *store.Journal
	Executor   exchange.Executor
	Notifier   notification.Notifier
	Prom       *metrics.Metrics
	Health     *metrics.HealthStatus
}

// NewSession wires a session from config and collaborators.
func NewSession(cfg *config.Config, d Deps) *Session {
	return &Session{
		cfg:        cfg,
		source:     d.Source,
		stream:     d.Stream,
		strategy:   strategy.NewEngine(d.Source, cfg.ConfirmTF, cfg.TriggerTF, cfg.CandleLimit),
		thresholds: d.Thresholds,
		cooldowns:  d.Cooldowns,
		positions:  d.Positions,
		journal:    d.Journal,
		executor:   d.Executor,
		notifier:   d.Notifier,
		prom:       d.Prom,
		health:     d.Health,
		stats:      NewTradeStats(),
		now:        time.Now,
	}
}

// Stats returns the in-memory trade statistics.
func (s *Session) Stats() StatsReport { return s.stats.Report() }

// Loop runs cycles at the configured interval until ctx is cancelled. Each
// cycle gets its own timeout so a hung external call cannot stall the loop.
func (s *Session) Loop(ctx context.Context) {
	interval := time.Duration(s.cfg.CycleInterval) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("[engine] loop started (interval=%s, symbols=%v)", interval, s.cfg.ParseSymbols())
	for {
		select {
		case <-ctx.Done():
			log.Printf("[engine] loop stopped")
			return
		case <-ticker.C:
			s.RunCycle(ctx)
		}
	}
}

// RunCycle executes one full cycle under the cycle timeout: manage open
// positions first, then evaluate entries.
func (s *Session) RunCycle(ctx context.Context) {
	cctx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.CycleTimeoutS)*time.Second)
	defer cancel()

	start := s.now()
	s.prom.CyclesTotal.Inc()

	if s.stream != nil {
		fresh := 0
		for _, sym := range s.cfg.ParseSymbols() {
			if _, ok := s.stream.Price(sym); ok {
				fresh++
			}
		}
		s.prom.StreamPrices.Set(float64(fresh))
	}

	s.managePositions(cctx)
	s.evaluateEntries(cctx)

	elapsed := time.Since(start)
	s.prom.CycleDur.Observe(elapsed.Seconds())
	s.health.SetLastCycle(s.now())
	log.Printf("[engine] cycle done in %s", elapsed.Round(time.Millisecond))
}

// markPrice resolves a live price for symbol: websocket stream first, then a
// fresh short-interval candle fetch.
func (s *Session) markPrice(ctx context.Context, symbol string) (float64, bool) {
	if s.stream != nil {
		if price, ok := s.stream.Price(symbol); ok {
			return price, true
		}
	}
	series, err := s.source.Fetch(ctx, symbol, "1m", 60)
	if err != nil || series.Len() == 0 {
		if err != nil {
			log.Printf("[engine] %s: mark price fallback failed: %v", symbol, err)
		}
		return 0, false
	}
	return series.LastClose(), true
}

// skip records a per-symbol skip with its reason.
func (s *Session) skip(symbol, reason string) {
	s.prom.SkipsTotal.WithLabelValues(reason).Inc()
	log.Printf("[engine] %s: skipped (%s)", symbol, reason)
}
