// Package strategy evaluates named entry rule sets over a scored indicator
// snapshot and picks a trade direction, or produces a structured rejection
// listing every failed predicate.
package strategy

// CandlePos describes where a candle closed within its [low, high] range.
type CandlePos string

const (
	PosTop                CandlePos = "top"
	PosAnticipationTop    CandlePos = "anticipation_top"
	PosMiddle             CandlePos = "middle"
	PosAnticipationBottom CandlePos = "anticipation_bottom"
	PosBottom             CandlePos = "bottom"
)

// CandlePosition buckets the close by its quantile within the candle range:
// >=0.8 top, >=0.67 anticipation_top, <=0.2 bottom, <=0.33
// anticipation_bottom, else middle. A zero-range candle counts as middle.
func CandlePosition(open, high, low, close float64) CandlePos {
	rng := high - low
	if rng == 0 {
		rng = 1
	}
	pos := (close - low) / rng
	switch {
	case pos >= 0.8:
		return PosTop
	case pos >= 0.67:
		return PosAnticipationTop
	case pos <= 0.2:
		return PosBottom
	case pos <= 0.33:
		return PosAnticipationBottom
	}
	return PosMiddle
}

func (p CandlePos) isHigh() bool { return p == PosTop || p == PosAnticipationTop }
func (p CandlePos) isLow() bool  { return p == PosBottom || p == PosAnticipationBottom }
