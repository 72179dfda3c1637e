package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"perpbot/internal/exchange"
	"perpbot/internal/model"
	"perpbot/internal/notification"
	"perpbot/internal/regime"
	"perpbot/internal/tpsl"
)

// minEntryCandles is the confirmation-series depth required before the
// entry flow will consider a symbol at all.
const minEntryCandles = 100

// managePositions walks every tracked position, assesses it against the
// live mark, closes what must close, and rewrites trailing state for the
// rest.
func (s *Session) managePositions(ctx context.Context) {
	open, err := s.positions.All()
	if err != nil {
		log.Printf("[engine] load positions: %v", err)
		return
	}
	s.prom.OpenPositions.Set(float64(len(open)))
	if len(open) == 0 {
		return
	}

	var totalPnL float64
	for symbol, pos := range open {
		if ctx.Err() != nil {
			return
		}
		mark, ok := s.markPrice(ctx, symbol)
		if !ok {
			s.skip(symbol, "no_mark_price")
			continue
		}

		lv := tpsl.Compute(symbol, pos.MarketRegime, pos.ATR, pos.EntryPrice, pos.Leverage)
		if !lv.Valid() {
			s.skip(symbol, "invalid_levels")
			continue
		}

		a := tpsl.Assess(pos, mark, lv)
		totalPnL += a.PnLPct

		if !a.Close {
			pos.Phase = a.Phase
			pos.HighestFav = a.HighestFav
			pos.LowestFav = a.LowestFav
			pos.TP, pos.SL, pos.RRR = lv.TP, lv.SL, lv.RRR
			if err := s.positions.Save(pos); err != nil {
				log.Printf("[engine] %s: persist trailing state: %v", symbol, err)
			}
			continue
		}
		s.closePosition(ctx, pos, mark, a, lv)
	}
	log.Printf("[engine] open=%d totalPnL=%.2f%%", len(open), totalPnL)
}

// closePosition submits the close with bounded retry, then journals, feeds
// the cooldown cascade, and drops the snapshot. A failed close leaves the
// position tracked so the next cycle retries.
func (s *Session) closePosition(ctx context.Context, pos *model.PositionSnapshot, mark float64, a tpsl.Assessment, lv tpsl.Levels) bool {
	res := exchange.RetryClose(ctx, s.executor, exchange.CloseRequest{
		Symbol:    pos.Symbol,
		Direction: pos.Direction,
		Reason:    a.Reason,
		Price:     mark,
	})
	if res.Attempts > 1 {
		s.prom.ExecRetriesTotal.Inc()
	}
	if res.Status != exchange.Succeeded {
		s.prom.ExecFailures.Inc()
		log.Printf("[engine] %s: close failed after %d attempts, keeping tracked: %v",
			pos.Symbol, res.Attempts, res.Err)
		return false
	}

	entry := buildTradeLog(pos, mark, a, lv, s.now())
	if err := s.journal.Append(entry); err != nil {
		log.Printf("[engine] %s: journal append: %v", pos.Symbol, err)
	}
	s.cooldowns.Record(pos.Symbol, a.Result)
	s.stats.Record(a.Result, a.PnLPct)
	if err := s.positions.Remove(pos.Symbol); err != nil {
		log.Printf("[engine] %s: remove snapshot: %v", pos.Symbol, err)
	}
	s.prom.ClosesTotal.WithLabelValues(a.Reason).Inc()

	log.Printf("[engine] %s: closed %s at %.4f (%s, pnl=%.2f%%)",
		pos.Symbol, pos.Direction, mark, a.Reason, a.PnLPct)
	notification.Fire(s.notifier, notification.Alert{
		Level: notification.AlertInfo,
		Title: fmt.Sprintf("Closed %s %s", pos.Symbol, pos.Direction),
		Message: fmt.Sprintf("reason=%s entry=%.4f exit=%.4f pnl=%.2f%%",
			a.Reason, pos.EntryPrice, mark, a.PnLPct),
	})
	return true
}

// evaluateEntries fans per-symbol entry evaluation across a bounded worker
// pool so a slow data source cannot be hammered with unbounded concurrency.
func (s *Session) evaluateEntries(ctx context.Context) {
	symbols := s.cfg.ParseSymbols()
	sem := make(chan struct{}, s.cfg.Concurrency)
	var wg sync.WaitGroup

	for _, symbol := range symbols {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(symbol string) {
			defer wg.Done()
			defer func() { <-sem }()
			s.tryEnter(ctx, symbol)
		}(symbol)
	}
	wg.Wait()
}

// tryEnter runs the full entry pipeline for one symbol. Every failure mode
// converts to a skip with a reason; nothing here may abort the cycle for
// other symbols.
func (s *Session) tryEnter(ctx context.Context, symbol string) {
	if s.cooldowns.InCooldown(symbol) {
		s.skip(symbol, "cooldown")
		return
	}

	if n, err := s.positions.Count(); err == nil && n >= s.cfg.MaxOpenPositions {
		s.skip(symbol, "session_cap")
		return
	}

	fetchStart := time.Now()
	confirm, err := s.source.Fetch(ctx, symbol, s.cfg.ConfirmTF, s.cfg.CandleLimit)
	if err != nil {
		s.skip(symbol, "fetch_failed")
		return
	}
	trigger, err := s.source.Fetch(ctx, symbol, s.cfg.TriggerTF, s.cfg.CandleLimit)
	if err != nil {
		s.skip(symbol, "fetch_failed")
		return
	}
	s.prom.FetchDur.Observe(time.Since(fetchStart).Seconds())
	if confirm.Len() < minEntryCandles {
		s.skip(symbol, "insufficient_data")
		return
	}

	primary, err := regime.Classify(confirm, s.cfg.ConfirmTF)
	if err != nil {
		s.skip(symbol, "insufficient_data")
		return
	}
	confirmation, err := regime.Classify(trigger, s.cfg.TriggerTF)
	if err != nil {
		s.skip(symbol, "insufficient_data")
		return
	}
	agreed := regime.Agree(primary, confirmation)

	ths := s.thresholds.Resolve(symbol, agreed.Regime, s.now())
	eval, decision := s.strategy.Evaluate(ctx, symbol, &ths, agreed.Regime)
	if !decision.ShouldOpen {
		s.skip(symbol, "rejected")
		log.Printf("[engine] %s: %s", symbol, decision.Reason)
		return
	}

	candidate := confirm.LastClose()
	if ok := s.reconcile(ctx, symbol, candidate, eval.Snapshot.ATRPct); !ok {
		return
	}

	budget := s.cfg.BudgetFor(agreed.Regime)
	leverage := math.Min(ths.Leverage, s.cfg.LeverageFor(agreed.Regime))
	collateral, notional, err := exchange.Size(budget, leverage)
	if err != nil {
		if errors.Is(err, model.ErrInvalidBudget) {
			s.skip(symbol, "invalid_budget")
		} else {
			s.skip(symbol, "sizing_failed")
		}
		return
	}

	res := exchange.RetryOpen(ctx, s.executor, exchange.OpenRequest{
		Symbol:     symbol,
		Direction:  decision.Direction,
		Collateral: collateral,
		Notional:   notional,
		Leverage:   leverage,
	})
	if res.Attempts > 1 {
		s.prom.ExecRetriesTotal.Inc()
	}
	if res.Status != exchange.Succeeded {
		s.prom.ExecFailures.Inc()
		s.skip(symbol, "execution_failure")
		return
	}

	lv := tpsl.Compute(symbol, agreed.Regime, eval.Snapshot.ATR, candidate, leverage)
	tradeType := "standard"
	if decision.RuleSet == "bearishShort" || decision.RuleSet == "bullishLong" {
		tradeType = "override"
	}
	pos := &model.PositionSnapshot{
		Symbol:            symbol,
		Direction:         decision.Direction,
		EntryPrice:        candidate,
		Leverage:          leverage,
		TxHash:            res.TxRef,
		MarketRegime:      agreed.Regime,
		SignalScore:       eval.Score,
		RSI:               eval.Snapshot.RSI,
		MACDHist:          eval.Snapshot.MACDHist,
		EMASlope:          eval.Snapshot.EMASlope,
		ATR:               eval.Snapshot.ATR,
		ATRPct:            eval.Snapshot.ATRPct,
		ADX:               eval.Snapshot.ADX,
		ADXSlope:          eval.Snapshot.ADXSlope,
		VolumePct:         eval.Snapshot.VolumePct,
		DivergenceScore:   eval.Snapshot.DivergenceScore,
		TP:                lv.TP,
		SL:                lv.SL,
		RRR:               lv.RRR,
		Phase:             model.PhaseInit,
		PerPositionBudget: budget,
		TradeType:         tradeType,
		Note:              decision.RuleSet,
		OpenedAt:          s.now(),
	}
	pos.DeriveProvenance()

	if err := s.positions.Save(pos); err != nil {
		log.Printf("[engine] %s: persist new position: %v", symbol, err)
	}
	s.prom.EntriesTotal.WithLabelValues(string(decision.Direction)).Inc()

	log.Printf("[engine] %s: opened %s at %.4f (%s, score=%.2f, regime=%s, lev=%.0fx)",
		symbol, decision.Direction, candidate, decision.RuleSet, eval.Score, agreed.Regime, leverage)
	notification.Fire(s.notifier, notification.Alert{
		Level: notification.AlertInfo,
		Title: fmt.Sprintf("Opened %s %s", symbol, decision.Direction),
		Message: fmt.Sprintf("rule=%s score=%.2f regime=%s entry=%.4f lev=%.0fx",
			decision.RuleSet, eval.Score, agreed.Regime, candidate, leverage),
	})
}

// reconcile compares any stored snapshot against the candidate entry price
// with a volatility-sensitive tolerance. A mismatch with no venue-side
// position means the snapshot is stale and is discarded; a mismatch with a
// live position refuses the new entry to avoid double-opening.
func (s *Session) reconcile(ctx context.Context, symbol string, candidate, atrPct float64) bool {
	stored, err := s.positions.Get(symbol)
	if err != nil {
		s.skip(symbol, "store_error")
		return false
	}
	if stored == nil {
		return true
	}

	tolerance := 0.0005 * stored.EntryPrice
	if atrPct*100 >= 0.6 {
		tolerance = 0.002 * stored.EntryPrice
	}
	if math.Abs(stored.EntryPrice-candidate) <= tolerance {
		s.skip(symbol, "position_open")
		return false
	}

	open, err := s.executor.HasOpen(ctx, symbol)
	if err != nil {
		s.skip(symbol, "reconcile_failed")
		return false
	}
	if open {
		s.skip(symbol, "entry_mismatch_existing")
		return false
	}

	log.Printf("[engine] %s: discarding stale snapshot (stored entry=%.4f, candidate=%.4f): %v",
		symbol, stored.EntryPrice, candidate, model.ErrStaleCacheMismatch)
	if err := s.positions.Remove(symbol); err != nil {
		s.skip(symbol, "store_error")
		return false
	}
	return true
}

// CloseAll force-closes every tracked position with the manual close
// reason. Returns how many were closed.
func (s *Session) CloseAll(ctx context.Context) int {
	open, err := s.positions.All()
	if err != nil {
		log.Printf("[engine] close-all: load positions: %v", err)
		return 0
	}

	closed := 0
	for symbol, pos := range open {
		mark, ok := s.markPrice(ctx, symbol)
		if !ok {
			mark = pos.EntryPrice
		}
		dir := 1.0
		if pos.Direction == model.DirShort {
			dir = -1
		}
		pnlPct := (mark - pos.EntryPrice) / pos.EntryPrice * dir * 100
		result := model.ResultWin
		if pnlPct < 0 {
			result = model.ResultLoss
		}

		a := tpsl.Assessment{
			Close:      true,
			Result:     result,
			Reason:     model.CloseReasonManual,
			PnLPct:     pnlPct,
			HighestFav: pos.HighestFav,
			LowestFav:  pos.LowestFav,
			Phase:      pos.Phase,
		}
		lv := tpsl.Compute(symbol, pos.MarketRegime, pos.ATR, pos.EntryPrice, pos.Leverage)
		if s.closePosition(ctx, pos, mark, a, lv) {
			closed++
		}
	}
	log.Printf("[engine] close-all: closed %d of %d", closed, len(open))
	return closed
}

// buildTradeLog materializes the append-only audit record for a close.
func buildTradeLog(pos *model.PositionSnapshot, mark float64, a tpsl.Assessment, lv tpsl.Levels, now time.Time) *model.TradeLogEntry {
	return &model.TradeLogEntry{
		Symbol:            pos.Symbol,
		Direction:         pos.Direction,
		EntryPrice:        pos.EntryPrice,
		ExitPrice:         mark,
		PnLPct:            a.PnLPct,
		Result:            a.Result,
		MarketRegime:      pos.MarketRegime,
		SignalScore:       pos.SignalScore,
		RSI:               pos.RSI,
		MACDHist:          pos.MACDHist,
		EMASlope:          pos.EMASlope,
		ATRPct:            pos.ATRPct,
		ATR:               pos.ATR,
		ADX:               pos.ADX,
		ADXSlope:          pos.ADXSlope,
		VolumePct:         pos.VolumePct,
		DivergenceScore:   pos.DivergenceScore,
		Leverage:          pos.Leverage,
		TradeType:         pos.TradeType,
		ClosedBy:          a.Reason,
		TriggeredBy:       pos.TriggeredBy,
		EntryReason:       pos.EntryReason,
		Note:              pos.Note,
		TP:                lv.TP,
		SL:                lv.SL,
		RRR:               lv.RRR,
		Phase:             a.Phase,
		HighestFav:        a.HighestFav,
		LowestFav:         a.LowestFav,
		PerPositionBudget: pos.PerPositionBudget,
		ClosedAt:          now,
	}
}
