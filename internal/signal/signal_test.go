package signal

import (
	"math"
	"strings"
	"testing"

	"perpbot/internal/model"
)

func seriesOf(n int) *model.Series {
	s := &model.Series{}
	price := 100.0
	for i := 0; i < n; i++ {
		if i%3 == 0 {
			price *= 0.997
		} else {
			price *= 1.004
		}
		s.Open = append(s.Open, price*0.998)
		s.High = append(s.High, price*1.004)
		s.Low = append(s.Low, price*0.995)
		s.Close = append(s.Close, price)
		s.Volume = append(s.Volume, 1000+float64(i))
		s.Timestamp = append(s.Timestamp, int64(i))
	}
	return s
}

func TestEvaluate_InsufficientCandles(t *testing.T) {
	tests := []struct {
		name   string
		series *model.Series
	}{
		{"nil series", nil},
		{"short series", seriesOf(MinCandles - 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eval := Evaluate("BTCUSDT", tt.series, "")
			if eval.Passed {
				t.Error("expected Passed=false")
			}
			if eval.Score != 0 {
				t.Errorf("score = %v, want 0", eval.Score)
			}
			if eval.Snapshot.RSI != 0 || eval.Snapshot.ATR != 0 || eval.Snapshot.ADX != 0 {
				t.Error("expected zeroed snapshot")
			}
			if !strings.Contains(eval.Reason, "insufficient") {
				t.Errorf("reason = %q, want insufficient-candles rejection", eval.Reason)
			}
		})
	}
}

func TestEvaluate_FullSeries(t *testing.T) {
	eval := Evaluate("BTCUSDT", seriesOf(120), model.RegimeBullish)
	if !eval.Passed {
		t.Fatalf("expected Passed=true, reason=%q", eval.Reason)
	}
	if eval.Regime != model.RegimeBullish {
		t.Errorf("forced regime not honored: got %s", eval.Regime)
	}
	if eval.Score < 0 || eval.Score > 1 {
		t.Errorf("score = %v, want within [0,1]", eval.Score)
	}
	if eval.Snapshot.RSI <= 0 || eval.Snapshot.RSI >= 100 {
		t.Errorf("RSI = %v, want inside (0,100)", eval.Snapshot.RSI)
	}
	if len(eval.Snapshot.RSITrend) == 0 || len(eval.Snapshot.RSITrend) > 20 {
		t.Errorf("RSI trend window length = %d, want 1..20", len(eval.Snapshot.RSITrend))
	}
	if eval.Snapshot.ATRPct <= 0 {
		t.Errorf("ATRPct = %v, want positive", eval.Snapshot.ATRPct)
	}
}

func TestWeightedScore_Breakpoints(t *testing.T) {
	tests := []struct {
		name string
		snap Snapshot
		want float64
	}{
		{
			name: "all components maxed",
			snap: Snapshot{
				RSI: 75, MACDHist: 0.001, EMASlope: 0.004,
				ATRPct: 0.006, ADX: 35, DivergenceScore: 0.4,
			},
			want: 1, // raw 5.5/5.5
		},
		{
			name: "all components minimal",
			snap: Snapshot{
				RSI: 50, MACDHist: 0, EMASlope: 0,
				ATRPct: 0, ADX: 0, DivergenceScore: 0,
			},
			// 1.2*0.5 + 0.5*0.3 + 1.5*0.3 + 1.0*0.4 + 1.0*0.4 + 0.3*0.3 over 5.5
			want: (1.2*0.5 + 0.5*0.3 + 1.5*0.3 + 1.0*0.4 + 1.0*0.4 + 0.3*0.3) / 5.5,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WeightedScore(tt.snap)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("WeightedScore = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWeightedScore_Clamped(t *testing.T) {
	got := WeightedScore(Snapshot{RSI: 10, MACDHist: 1, EMASlope: 1, ATRPct: 1, ADX: 90, DivergenceScore: 1})
	if got > 1 {
		t.Errorf("score = %v, want <= 1", got)
	}
}

func TestDivergence(t *testing.T) {
	rising := []float64{50, 52, 54, 56, 58, 60}
	falling := []float64{105, 104, 103, 102, 101, 100}

	t.Run("short windows score zero", func(t *testing.T) {
		if got := Divergence([]float64{1, 2, 3}, []float64{3, 2, 1}); got != 0 {
			t.Errorf("Divergence = %v, want 0", got)
		}
	})

	t.Run("opposing slopes score positive", func(t *testing.T) {
		got := Divergence(rising, falling)
		if got <= 0 || got > 1 {
			t.Errorf("Divergence = %v, want within (0,1]", got)
		}
	})

	t.Run("aligned slopes score zero", func(t *testing.T) {
		price := []float64{100, 100.001, 100.002, 100.003, 100.004, 100.005}
		rsi := []float64{50, 50.001, 50.002, 50.003, 50.004, 50.005}
		if got := Divergence(rsi, price); got != 0 {
			t.Errorf("Divergence = %v, want 0", got)
		}
	})
}

func TestVolumePercent(t *testing.T) {
	tests := []struct {
		name   string
		volume []float64
		want   float64
	}{
		{"empty", nil, 0},
		{"latest is max", []float64{10, 20, 40}, 1},
		{"half of max", []float64{40, 10, 20}, 0.5},
		{"all zero", []float64{0, 0, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VolumePercent(tt.volume); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("VolumePercent(%v) = %v, want %v", tt.volume, got, tt.want)
			}
		})
	}
}
