package exchange

import (
	"context"
	"errors"
	"math"
	"testing"

	"perpbot/internal/model"
)

func TestSize(t *testing.T) {
	tests := []struct {
		name           string
		budget         float64
		leverage       float64
		wantCollateral int64
		wantNotional   int64
		wantErr        bool
	}{
		{"five dollars at 100x", 5, 100, 5_000_000, 500_000_000, false},
		{"fractional budget", 2.5, 10, 2_500_000, 25_000_000, false},
		{"zero budget", 0, 100, 0, 0, true},
		{"negative budget", -1, 100, 0, 0, true},
		{"zero leverage", 5, 0, 0, 0, true},
		{"nan budget", math.NaN(), 100, 0, 0, true},
		{"inf leverage", 5, math.Inf(1), 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			collateral, notional, err := Size(tt.budget, tt.leverage)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if !errors.Is(err, model.ErrInvalidBudget) {
					t.Errorf("error = %v, want ErrInvalidBudget", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if collateral != tt.wantCollateral || notional != tt.wantNotional {
				t.Errorf("Size = (%d, %d), want (%d, %d)",
					collateral, notional, tt.wantCollateral, tt.wantNotional)
			}
		})
	}
}

func TestUSD(t *testing.T) {
	if got := USD(5_000_000); got != 5 {
		t.Errorf("USD = %v, want 5", got)
	}
}

// flakyExecutor fails the first failures submissions, then succeeds.
type flakyExecutor struct {
	failures int
	calls    int
}

func (f *flakyExecutor) Open(_ context.Context, _ OpenRequest) (string, error) {
	return f.submit()
}

func (f *flakyExecutor) Close(_ context.Context, _ CloseRequest) (string, error) {
	return f.submit()
}

func (f *flakyExecutor) HasOpen(_ context.Context, _ string) (bool, error) {
	return false, nil
}

func (f *flakyExecutor) submit() (string, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", errors.New("venue unavailable")
	}
	return "tx-ok", nil
}

func TestRetryOpen_SecondAttemptSucceeds(t *testing.T) {
	exec := &flakyExecutor{failures: 1}
	res := RetryOpen(context.Background(), exec, OpenRequest{Symbol: "BTCUSDT", Direction: model.DirLong})
	if res.Status != Succeeded {
		t.Fatalf("status = %s, want succeeded (err: %v)", res.Status, res.Err)
	}
	if res.Attempts != 2 {
		t.Errorf("attempts = %d, want 2", res.Attempts)
	}
	if res.TxRef != "tx-ok" {
		t.Errorf("tx = %q, want tx-ok", res.TxRef)
	}
}

func TestRetryClose_ExhaustsAttempts(t *testing.T) {
	exec := &flakyExecutor{failures: maxAttempts}
	res := RetryClose(context.Background(), exec, CloseRequest{Symbol: "BTCUSDT", Reason: model.CloseReasonSL})
	if res.Status != FailedFinal {
		t.Fatalf("status = %s, want failed_final", res.Status)
	}
	if res.Attempts != maxAttempts {
		t.Errorf("attempts = %d, want %d", res.Attempts, maxAttempts)
	}
	if !errors.Is(res.Err, model.ErrExecutionFailure) {
		t.Errorf("error = %v, want ErrExecutionFailure", res.Err)
	}
}

func TestRetry_CancelledContextStopsEarly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	exec := &flakyExecutor{failures: maxAttempts}
	res := RetryOpen(ctx, exec, OpenRequest{Symbol: "BTCUSDT", Direction: model.DirLong})
	if res.Status != FailedFinal {
		t.Fatalf("status = %s, want failed_final", res.Status)
	}
	if res.Attempts != 1 {
		t.Errorf("attempts = %d, want 1 before the context check", res.Attempts)
	}
}

func TestPaper_Lifecycle(t *testing.T) {
	ctx := context.Background()
	p := NewPaper()

	tx, err := p.Open(ctx, OpenRequest{Symbol: "BTCUSDT", Direction: model.DirLong, Leverage: 100})
	if err != nil || tx == "" {
		t.Fatalf("open: tx=%q err=%v", tx, err)
	}

	if _, err := p.Open(ctx, OpenRequest{Symbol: "BTCUSDT", Direction: model.DirShort}); err == nil {
		t.Error("expected duplicate open to fail")
	}

	open, err := p.HasOpen(ctx, "BTCUSDT")
	if err != nil || !open {
		t.Fatalf("HasOpen = (%v, %v), want (true, nil)", open, err)
	}

	if _, err := p.Close(ctx, CloseRequest{Symbol: "BTCUSDT", Reason: model.CloseReasonManual}); err != nil {
		t.Fatalf("close: %v", err)
	}
	open, _ = p.HasOpen(ctx, "BTCUSDT")
	if open {
		t.Error("expected position closed")
	}
}

func TestStatusString(t *testing.T) {
	if Succeeded.String() != "succeeded" || FailedFinal.String() != "failed_final" {
		t.Error("unexpected status strings")
	}
}
