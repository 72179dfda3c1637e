package strategy

import (
	"context"
	"log"

	"perpbot/internal/model"
	"perpbot/internal/signal"
	"perpbot/internal/threshold"
)

// CandleSource provides aligned candle series per (symbol, interval).
type CandleSource interface {
	Fetch(ctx context.Context, symbol, interval string, limit int) (*model.Series, error)
}

// Engine runs the full entry evaluation: confirmation metrics on the shorter
// timeframe, entry trigger from the latest candle of the longer one.
type Engine struct {
	source    CandleSource
	confirmTF string
	triggerTF string
	limit     int
}

// NewEngine wires an entry engine over a candle source. Typical timeframes
// are 30m confirmation and 1h trigger with a 300-candle fetch.
func NewEngine(source CandleSource, confirmTF, triggerTF string, limit int) *Engine {
	return &Engine{source: source, confirmTF: confirmTF, triggerTF: triggerTF, limit: limit}
}

// Evaluate fetches both timeframes, scores the confirmation series, and runs
// the rule sets against the trigger candle position. Errors never escape:
// any fetch failure yields a safe zeroed, low-confidence result so one
// symbol's outage cannot abort a cycle.
func (e *Engine) Evaluate(ctx context.Context, symbol string, ths *threshold.Set, forcedRegime model.Regime) (signal.Evaluation, Decision) {
	confirm, err := e.source.Fetch(ctx, symbol, e.confirmTF, e.limit)
	if err != nil {
		return e.safeReject(symbol, "fetch "+e.confirmTF, err)
	}
	trigger, err := e.source.Fetch(ctx, symbol, e.triggerTF, e.limit)
	if err != nil {
		return e.safeReject(symbol, "fetch "+e.triggerTF, err)
	}
	if trigger.Len() == 0 {
		return e.safeReject(symbol, "fetch "+e.triggerTF, model.ErrInsufficientData)
	}

	eval := signal.Evaluate(symbol, confirm, forcedRegime)
	if !eval.Passed {
		return eval, Decision{
			ShouldOpen: false,
			Direction:  model.DirNone,
			Reason:     eval.Reason,
			Confidence: model.ConfidenceLow,
		}
	}

	i := trigger.Len() - 1
	pos := CandlePosition(trigger.Open[i], trigger.High[i], trigger.Low[i], trigger.Close[i])
	return eval, Decide(&eval, pos, ths)
}

func (e *Engine) safeReject(symbol, op string, err error) (signal.Evaluation, Decision) {
	log.Printf("[strategy] %s: %s: %v", symbol, op, err)
	eval := signal.Evaluation{
		Symbol: symbol,
		Regime: model.RegimeNeutral,
		Passed: false,
		Reason: "error: " + op,
	}
	return eval, Decision{
		ShouldOpen: false,
		Direction:  model.DirNone,
		Reason:     "error: " + op,
		Confidence: model.ConfidenceLow,
	}
}
