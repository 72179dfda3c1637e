package exchange

import (
	"context"
	"fmt"
	"log"
	"time"

	"perpbot/internal/model"
)

// Retry policy for order submission.
const (
	maxAttempts = 2
	retryDelay  = 2 * time.Second
)

// Status classifies a retried submission.
type Status int

const (
	Succeeded Status = iota
	FailedRetryable
	FailedFinal
)

func (s Status) String() string {
	switch s {
	case Succeeded:
		return "succeeded"
	case FailedRetryable:
		return "failed_retryable"
	default:
		return "failed_final"
	}
}

// Result is the outcome of a retried submission.
type Result struct {
	Status   Status
	TxRef    string
	Attempts int
	Err      error
}

// RetryClose submits a close order with the bounded retry policy. On final
// failure the caller must leave the position tracked so a future cycle can
// retry; the venue-side position stays open.
func RetryClose(ctx context.Context, exec Executor, req CloseRequest) Result {
	return retry(ctx, fmt.Sprintf("close %s (%s)", req.Symbol, req.Reason), func() (string, error) {
		return exec.Close(ctx, req)
	})
}

// RetryOpen submits an open order with the bounded retry policy.
func RetryOpen(ctx context.Context, exec Executor, req OpenRequest) Result {
	return retry(ctx, fmt.Sprintf("open %s %s", req.Symbol, req.Direction), func() (string, error) {
		return exec.Open(ctx, req)
	})
}

func retry(ctx context.Context, op string, submit func() (string, error)) Result {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		tx, err := submit()
		if err == nil {
			return Result{Status: Succeeded, TxRef: tx, Attempts: attempt}
		}
		lastErr = err
		log.Printf("[exchange] %s: attempt %d/%d failed: %v", op, attempt, maxAttempts, err)

		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return Result{
				Status:   FailedFinal,
				Attempts: attempt,
				Err:      fmt.Errorf("%w: %s: %v", model.ErrExecutionFailure, op, ctx.Err()),
			}
		case <-time.After(retryDelay):
		}
	}
	return Result{
		Status:   FailedFinal,
		Attempts: maxAttempts,
		Err:      fmt.Errorf("%w: %s: %v", model.ErrExecutionFailure, op, lastErr),
	}
}
