package regime

import (
	"errors"
	"math"
	"testing"

	"perpbot/internal/model"
)

func constantSeries(n int) *model.Series {
	s := &model.Series{}
	for i := 0; i < n; i++ {
		s.Open = append(s.Open, 100)
		s.High = append(s.High, 102)
		s.Low = append(s.Low, 98)
		s.Close = append(s.Close, 100)
		s.Volume = append(s.Volume, 1000)
		s.Timestamp = append(s.Timestamp, int64(i))
	}
	return s
}

// risingSeries is an accelerating uptrend with periodic small dips so RSI
// is not pinned at 100 and the MACD histogram keeps widening.
func risingSeries(n int) *model.Series {
	s := &model.Series{}
	price := 100.0
	for i := 0; i < n; i++ {
		if i%10 == 5 {
			price *= 0.998
		} else {
			price *= 1 + 0.0005*float64(i)
		}
		s.Open = append(s.Open, price*0.995)
		s.High = append(s.High, price*1.005)
		s.Low = append(s.Low, price*0.99)
		s.Close = append(s.Close, price)
		s.Volume = append(s.Volume, 1000)
		s.Timestamp = append(s.Timestamp, int64(i))
	}
	return s
}

func TestClassify_InsufficientData(t *testing.T) {
	_, err := Classify(constantSeries(MinCandles-1), "30m")
	if err == nil {
		t.Fatal("expected error below minimum candle count")
	}
	if !errors.Is(err, model.ErrInsufficientData) {
		t.Errorf("error = %v, want ErrInsufficientData", err)
	}
}

func TestClassify_FlatSeries(t *testing.T) {
	res, err := Classify(constantSeries(60), "30m")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Regime != model.RegimeFlatOrChoppy {
		t.Errorf("regime = %s, want flat_or_choppy", res.Regime)
	}
	if res.Timeframe != "30m" {
		t.Errorf("timeframe = %q, want 30m", res.Timeframe)
	}
}

func TestClassify_RisingSeries(t *testing.T) {
	res, err := Classify(risingSeries(120), "30m")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Regime != model.RegimeBullish {
		t.Errorf("regime = %s, want bullish", res.Regime)
	}
	if res.Confidence < 0 || res.Confidence > 1 {
		t.Errorf("confidence = %v, want within [0,1]", res.Confidence)
	}
}

func TestAgree(t *testing.T) {
	tests := []struct {
		name         string
		primary      model.RegimeResult
		confirmation model.RegimeResult
		wantRegime   model.Regime
		wantConf     float64
		wantTF       string
	}{
		{
			name:         "matching regimes average confidence",
			primary:      model.RegimeResult{Regime: model.RegimeBullish, Confidence: 0.8, Timeframe: "30m"},
			confirmation: model.RegimeResult{Regime: model.RegimeBullish, Confidence: 0.4, Timeframe: "1h"},
			wantRegime:   model.RegimeBullish,
			wantConf:     0.6,
			wantTF:       "30m+1h",
		},
		{
			name:         "mismatch defers to confirmation scaled by 0.8",
			primary:      model.RegimeResult{Regime: model.RegimeBullish, Confidence: 0.9, Timeframe: "30m"},
			confirmation: model.RegimeResult{Regime: model.RegimeBearish, Confidence: 0.5, Timeframe: "1h"},
			wantRegime:   model.RegimeBearish,
			wantConf:     0.4,
			wantTF:       "1h",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Agree(tt.primary, tt.confirmation)
			if got.Regime != tt.wantRegime {
				t.Errorf("regime = %s, want %s", got.Regime, tt.wantRegime)
			}
			if math.Abs(got.Confidence-tt.wantConf) > 1e-9 {
				t.Errorf("confidence = %v, want %v", got.Confidence, tt.wantConf)
			}
			if got.Timeframe != tt.wantTF {
				t.Errorf("timeframe = %q, want %q", got.Timeframe, tt.wantTF)
			}
		})
	}
}
