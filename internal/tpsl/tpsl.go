// Package tpsl computes dynamic take-profit, stop-loss, and trailing levels
// for an open position and decides close/keep against a live mark price.
package tpsl

import (
	"log"
	"math"

	"perpbot/internal/model"
)

// Reward:risk per regime. Uniform today; the map keeps the surface
// regime-sensitive for future tuning.
var rrrByRegime = map[model.Regime]float64{
	model.RegimeBullish:           1.6,
	model.RegimeBearish:           1.6,
	model.RegimeNeutral:           1.6,
	model.RegimeFlatOrChoppy:      1.6,
	model.RegimeVolatileUncertain: 1.6,
}

// RRRFor returns the reward:risk ratio configured for a regime.
func RRRFor(regime model.Regime) float64 {
	if r, ok := rrrByRegime[regime]; ok {
		return r
	}
	return 2.0
}

// Levels holds the per-position distances derived at assessment time. TP and
// SL are absolute price deltas from entry. A zero Levels (RRR==0) means the
// inputs were unusable and the position must be skipped this cycle.
type Levels struct {
	TP  float64
	SL  float64
	RRR float64

	HalfATRThreshold float64 // 0.5 x ATR, informational
	TrailOffset      float64 // 0.4 x ATR, gap kept behind the best price
	FinalTP          float64 // 6 x ATR, cap on how far trailing may extend
}

// Valid reports whether the levels are usable.
func (l Levels) Valid() bool { return l.RRR != 0 }

// Compute derives the level bundle. The stop distance is calibrated so a
// full stop equals a fixed -60% PnL at the position's leverage (0.6% price
// move at 100x). Non-finite or non-positive results yield zero levels.
func Compute(symbol string, regime model.Regime, atr, entryPrice, leverage float64) Levels {
	slPct := 60 / leverage / 100
	sl := entryPrice * slPct
	rrr := RRRFor(regime)
	tp := sl * rrr

	if sl <= 0 || tp <= 0 || math.IsInf(sl, 0) || math.IsInf(tp, 0) ||
		math.IsNaN(sl) || math.IsNaN(tp) {
		log.Printf("[tpsl] %s: invalid levels at regime %s: tp=%v sl=%v", symbol, regime, tp, sl)
		return Levels{}
	}

	return Levels{
		TP:               tp,
		SL:               sl,
		RRR:              rrr,
		HalfATRThreshold: atr * 0.5,
		TrailOffset:      atr * 0.4,
		FinalTP:          atr * 6.0,
	}
}

// Assessment is the close/keep decision for one position at one mark price.
type Assessment struct {
	Close  bool
	Result model.TradeResult
	Reason string
	PnLPct float64

	// Updated trailing state to persist when the position stays open.
	HighestFav float64
	LowestFav  float64
	Phase      model.TrailPhase
}

// Assess evaluates a position against the mark price. Close triggers: static
// TP, static SL, trailing retrace past the dynamic TP, or liquidation
// (PnL <= -99.5%). Trailing activates once price has covered half the
// distance from entry to the static TP and stays active from then on.
func Assess(pos *model.PositionSnapshot, mark float64, lv Levels) Assessment {
	isLong := pos.Direction == model.DirLong
	dir := 1.0
	if !isLong {
		dir = -1
	}

	entry := pos.EntryPrice
	tpLevel := entry + dir*lv.TP
	slLevel := entry - dir*lv.SL

	movePct := (mark - entry) / entry * dir
	pnlPct := movePct * 100
	liquidated := pnlPct <= -99.5

	// Best favorable price seen so far, per direction.
	highest := pos.HighestFav
	if highest == 0 {
		highest = entry
	}
	lowest := pos.LowestFav
	if lowest == 0 {
		lowest = entry
	}
	if isLong {
		highest = math.Max(highest, mark)
	} else {
		lowest = math.Min(lowest, mark)
	}

	trailStart := entry + dir*lv.TP*0.5
	trailing := pos.Phase == model.PhaseTrail
	if isLong && mark >= trailStart || !isLong && mark <= trailStart {
		trailing = true
	}

	var dynamicTP float64
	if isLong {
		dynamicTP = math.Min(highest-lv.TrailOffset, entry+lv.FinalTP)
	} else {
		dynamicTP = math.Max(lowest+lv.TrailOffset, entry-lv.FinalTP)
	}

	hitTP := isLong && mark >= tpLevel || !isLong && mark <= tpLevel
	hitSL := isLong && mark <= slLevel || !isLong && mark >= slLevel
	hitTrailing := trailing && (isLong && mark <= dynamicTP || !isLong && mark >= dynamicTP)

	a := Assessment{
		PnLPct:     pnlPct,
		HighestFav: highest,
		LowestFav:  lowest,
		Phase:      pos.Phase,
	}
	if trailing {
		a.Phase = model.PhaseTrail
	} else if a.Phase == "" {
		a.Phase = model.PhaseInit
	}

	if !(hitTP || hitSL || hitTrailing || liquidated) {
		return a
	}

	a.Close = true
	switch {
	case liquidated:
		a.Result = model.ResultLiquidated
		a.Reason = model.CloseReasonLiquidated
	case hitTP:
		a.Result = model.ResultWin
		a.Reason = model.CloseReasonTP
	case hitTrailing:
		a.Result = model.ResultWin
		a.Reason = model.CloseReasonTrailingTP
	default:
		a.Result = model.ResultLoss
		a.Reason = model.CloseReasonSL
	}
	return a
}
