// Package exchange abstracts order execution: position open/close with
// bounded retry and fixed-point order sizing.
package exchange

import (
	"context"

	"perpbot/internal/model"
)

// OpenRequest describes a position to open. Collateral and Notional are
// integer micro-USD (6 decimal places).
type OpenRequest struct {
	Symbol     string
	Direction  model.Direction
	Collateral int64
	Notional   int64
	Leverage   float64
}

// CloseRequest describes a position to close at the current mark.
type CloseRequest struct {
	Symbol    string
	Direction model.Direction
	Reason    string
	Price     float64
}

// Executor submits orders to the external venue. Implementations may fail
// transiently; callers retry via RetryClose/RetryOpen.
type Executor interface {
	// Open submits an open order and returns a transaction reference.
	Open(ctx context.Context, req OpenRequest) (string, error)
	// Close submits a close order and returns a transaction reference.
	Close(ctx context.Context, req CloseRequest) (string, error)
	// HasOpen reports whether the venue currently holds an open position
	// for symbol. Used to reconcile local snapshots against the venue.
	HasOpen(ctx context.Context, symbol string) (bool, error)
}
