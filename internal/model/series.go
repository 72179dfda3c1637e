package model

import "fmt"

// Series is a column-oriented candle series, oldest first. All slices must
// stay the same length.
type Series struct {
	Open      []float64 `json:"open"`
	High      []float64 `json:"high"`
	Low       []float64 `json:"low"`
	Close     []float64 `json:"close"`
	Volume    []float64 `json:"volume"`
	Timestamp []int64   `json:"timestamp"` // epoch millis, candle open time
}

// Len returns the number of candles.
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Close)
}

// LastClose returns the newest close, or 0 for an empty series.
func (s *Series) LastClose() float64 {
	if s.Len() == 0 {
		return 0
	}
	return s.Close[len(s.Close)-1]
}

// Validate checks that all columns are parallel and OHLC values positive.
func (s *Series) Validate() error {
	n := len(s.Close)
	if len(s.Open) != n || len(s.High) != n || len(s.Low) != n ||
		len(s.Volume) != n || len(s.Timestamp) != n {
		return fmt.Errorf("series: column lengths differ (close=%d open=%d high=%d low=%d volume=%d ts=%d)",
			n, len(s.Open), len(s.High), len(s.Low), len(s.Volume), len(s.Timestamp))
	}
	for i := 0; i < n; i++ {
		if s.Open[i] <= 0 || s.High[i] <= 0 || s.Low[i] <= 0 || s.Close[i] <= 0 {
			return fmt.Errorf("series: non-positive OHLC at index %d", i)
		}
	}
	return nil
}

// Tail returns the trailing n closes (the full close slice when n exceeds
// the length).
func (s *Series) Tail(n int) []float64 {
	if n >= len(s.Close) {
		return s.Close
	}
	return s.Close[len(s.Close)-n:]
}
