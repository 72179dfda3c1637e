package strategy

import (
	"fmt"
	"strings"

	"perpbot/internal/model"
	"perpbot/internal/signal"
	"perpbot/internal/threshold"
)

// Check is one predicate inside a rule set, kept with its observed value and
// expectation so rejections can enumerate exactly what failed.
type Check struct {
	Name     string
	Value    string
	Expected string
	Pass     bool
}

// RuleSet is a named conjunction of checks resolving to a direction.
// Reversal sets resolve opposite to their name: an overbought "longReversal"
// opens a short and an oversold "shortReversal" opens a long.
type RuleSet struct {
	Name     string
	Resolves model.Direction
	Checks   []Check
}

// Satisfied reports whether every check passed.
func (r *RuleSet) Satisfied() bool {
	for _, c := range r.Checks {
		if !c.Pass {
			return false
		}
	}
	return true
}

func (r *RuleSet) failures() []string {
	var out []string
	for _, c := range r.Checks {
		if !c.Pass {
			out = append(out, fmt.Sprintf("%s=%s [expected %s]", c.Name, c.Value, c.Expected))
		}
	}
	return out
}

// Decision is the outcome of evaluating all rule sets for one symbol.
type Decision struct {
	ShouldOpen bool             `json:"should_open"`
	Direction  model.Direction  `json:"direction"`
	RuleSet    string           `json:"rule_set,omitempty"`
	Reason     string           `json:"reason"`
	Confidence model.Confidence `json:"confidence"`
}

func signCheck(name string, v float64, wantPositive bool) Check {
	expected := "> 0"
	pass := v > 0
	if !wantPositive {
		expected = "< 0"
		pass = v < 0
	}
	return Check{Name: name, Value: fmtVal(v), Expected: expected, Pass: pass}
}

func fmtVal(v float64) string { return fmt.Sprintf("%.4f", v) }

func posCheck(pos CandlePos, wantLow bool) Check {
	if wantLow {
		return Check{Name: "candlePos", Value: string(pos),
			Expected: "bottom/anticipation_bottom", Pass: pos.isLow()}
	}
	return Check{Name: "candlePos", Value: string(pos),
		Expected: "top/anticipation_top", Pass: pos.isHigh()}
}

// buildRuleSets materializes the six rule sets for one evaluation. atrPct is
// compared in percent of last close, so the snapshot's fraction is scaled by
// 100 before the cutoff.
func buildRuleSets(eval *signal.Evaluation, trigger CandlePos, ths *threshold.Set) []RuleSet {
	s := &eval.Snapshot
	atrPct := s.ATRPct * 100
	macdAccel := s.MACDAccel()

	common := func(adxSlopeUp bool) []Check {
		adxSlope := signCheck("adxSlope", s.ADXSlope, adxSlopeUp)
		return []Check{
			{Name: "signalScore", Value: fmtVal(eval.Score),
				Expected: fmt.Sprintf("> %.2f", ths.SignalScoreMin), Pass: eval.Score > ths.SignalScoreMin},
			{Name: "atr", Value: fmtVal(atrPct),
				Expected: fmt.Sprintf("> %.2f%%", ths.ATRPctMin), Pass: atrPct > ths.ATRPctMin},
			{Name: "adx", Value: fmtVal(s.ADX),
				Expected: fmt.Sprintf("> %.0f", ths.ADXMin), Pass: s.ADX > ths.ADXMin},
			adxSlope,
			{Name: "divergence", Value: fmtVal(s.DivergenceScore),
				Expected: fmt.Sprintf(">= %.1f", ths.DivergenceScoreMin), Pass: s.DivergenceScore >= ths.DivergenceScoreMin},
		}
	}

	// The RSI-slope sign is independent of the trend signs: the override
	// sets pair a fading RSI with a still-rising trend (and vice versa).
	directional := func(rsiUp, trendUp bool) []Check {
		return []Check{
			signCheck("rsiSlope", s.RSISlope, rsiUp),
			signCheck("priceSlope", s.PriceSlope, trendUp),
			signCheck("emaSlope", s.EMASlope, trendUp),
			signCheck("macdAccel", macdAccel, trendUp),
		}
	}

	rsiBand := func(lo, hi float64) Check {
		return Check{Name: "rsi", Value: fmtVal(s.RSI),
			Expected: fmt.Sprintf("%.0f-%.0f", lo, hi), Pass: s.RSI >= lo && s.RSI <= hi}
	}

	build := func(name string, resolves model.Direction, band Check, adxUp, rsiUp, trendUp, wantLowCandle bool) RuleSet {
		checks := append([]Check{}, common(adxUp)...)
		checks = append(checks, band)
		checks = append(checks, directional(rsiUp, trendUp)...)
		checks = append(checks, posCheck(trigger, wantLowCandle))
		return RuleSet{Name: name, Resolves: resolves, Checks: checks}
	}

	return []RuleSet{
		// Momentum entries: neutral RSI band, trend and RSI aligned, trigger
		// candle closing at the opposite extreme.
		build("long", model.DirLong, rsiBand(ths.SniperRSILo, ths.SniperRSIHi), false, true, true, true),
		build("short", model.DirShort, rsiBand(ths.SniperRSILo, ths.SniperRSIHi), false, false, false, false),
		// Mean-reversion at RSI extremes, resolving opposite the trend.
		build("longReversal", model.DirShort, Check{Name: "rsi", Value: fmtVal(s.RSI),
			Expected: fmt.Sprintf("> %.0f", ths.ReversalRSIHi), Pass: s.RSI > ths.ReversalRSIHi},
			true, true, true, false),
		build("shortReversal", model.DirLong, Check{Name: "rsi", Value: fmtVal(s.RSI),
			Expected: fmt.Sprintf("< %.0f", ths.ReversalRSILo), Pass: s.RSI < ths.ReversalRSILo},
			true, false, false, true),
		// Directional overrides: RSI momentum fading against a still-intact
		// trend at moderate RSI.
		build("bearishShort", model.DirShort, rsiBand(ths.BearishRSILo, ths.BearishRSIHi), false, false, true, false),
		build("bullishLong", model.DirLong, rsiBand(ths.BullishRSILo, ths.BullishRSIHi), false, true, false, true),
	}
}

// Decide evaluates all rule sets in precedence order and returns the first
// fully-satisfied one, or a rejection whose reason lists every failed
// predicate grouped by rule-set name.
func Decide(eval *signal.Evaluation, trigger CandlePos, ths *threshold.Set) Decision {
	sets := buildRuleSets(eval, trigger, ths)
	for i := range sets {
		if sets[i].Satisfied() {
			reason := "sniper criteria met"
			switch sets[i].Name {
			case "longReversal", "shortReversal":
				reason = "reversal criteria met"
			case "bearishShort", "bullishLong":
				reason = sets[i].Name + " override"
			}
			return Decision{
				ShouldOpen: true,
				Direction:  sets[i].Resolves,
				RuleSet:    sets[i].Name,
				Reason:     reason,
				Confidence: model.ConfidenceHigh,
			}
		}
	}

	var b strings.Builder
	b.WriteString("signal rejected:")
	for i := range sets {
		b.WriteString(fmt.Sprintf("\n(%s): %s", sets[i].Name, strings.Join(sets[i].failures(), "; ")))
	}
	return Decision{
		ShouldOpen: false,
		Direction:  model.DirNone,
		Reason:     b.String(),
		Confidence: model.ConfidenceLow,
	}
}
