package exchange

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"perpbot/internal/model"
)

// Paper is an in-process executor for dry runs. Orders always succeed and
// open positions are tracked in memory so reconciliation behaves like a real
// venue.
type Paper struct {
	mu   sync.Mutex
	open map[string]model.Direction
	seq  atomic.Int64
}

func NewPaper() *Paper {
	return &Paper{open: make(map[string]model.Direction)}
}

func (p *Paper) Open(_ context.Context, req OpenRequest) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.open[req.Symbol]; exists {
		return "", fmt.Errorf("paper: %s already open", req.Symbol)
	}
	p.open[req.Symbol] = req.Direction
	tx := fmt.Sprintf("paper-open-%d", p.seq.Add(1))
	log.Printf("[paper] open %s %s collateral=%.2f notional=%.2f lev=%.0fx tx=%s",
		req.Symbol, req.Direction, USD(req.Collateral), USD(req.Notional), req.Leverage, tx)
	return tx, nil
}

func (p *Paper) Close(_ context.Context, req CloseRequest) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.open, req.Symbol)
	tx := fmt.Sprintf("paper-close-%d", p.seq.Add(1))
	log.Printf("[paper] close %s reason=%s price=%.4f tx=%s", req.Symbol, req.Reason, req.Price, tx)
	return tx, nil
}

func (p *Paper) HasOpen(_ context.Context, symbol string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.open[symbol]
	return ok, nil
}
