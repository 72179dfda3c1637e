package model

import "errors"

// Sentinel errors shared across packages. Wrap with %w so callers can test
// with errors.Is.
var (
	// ErrInsufficientData marks a series too short for the requested
	// computation.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrMissingOrStaleConfig marks an absent or outdated tuned threshold
	// set.
	ErrMissingOrStaleConfig = errors.New("missing or stale config")

	// ErrInvalidBudget marks a non-positive or non-finite position budget.
	ErrInvalidBudget = errors.New("invalid budget")

	// ErrExecutionFailure marks an order that failed after all retries.
	ErrExecutionFailure = errors.New("execution failure")

	// ErrStaleCacheMismatch marks cached candles whose newest timestamp no
	// longer matches the live feed.
	ErrStaleCacheMismatch = errors.New("stale cache mismatch")

	// ErrPersistenceFailure marks a store read or write that failed.
	ErrPersistenceFailure = errors.New("persistence failure")
)
