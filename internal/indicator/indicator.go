// Package indicator provides technical indicator calculations over candle
// series. All functions are pure: they take value slices (oldest first) and
// return computed series or final values. A series shorter than an
// indicator's minimum is rejected with ErrNotEnoughData, never silently
// truncated.
package indicator

import "errors"

// ErrNotEnoughData is returned when a series is shorter than the minimum an
// indicator requires.
var ErrNotEnoughData = errors.New("indicator: not enough data")

func last(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	return vals[len(vals)-1]
}
