package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// PriceStream maintains live mark prices from the Binance miniTicker
// websocket feed. Prices older than staleAfter are treated as absent so a
// dead stream cannot feed stale marks into close decisions.
type PriceStream struct {
	baseURL    string
	symbols    []string
	staleAfter time.Duration

	mu     sync.RWMutex
	prices map[string]pricePoint
}

type pricePoint struct {
	price float64
	at    time.Time
}

type miniTickerMsg struct {
	Symbol string `json:"s"`
	Close  string `json:"c"`
}

// NewPriceStream creates a stream for the given symbols. baseURL defaults
// to the Binance combined-stream endpoint when empty.
func NewPriceStream(baseURL string, symbols []string) *PriceStream {
	if baseURL == "" {
		baseURL = "wss://stream.binance.com:9443"
	}
	return &PriceStream{
		baseURL:    baseURL,
		symbols:    symbols,
		staleAfter: 2 * time.Minute,
		prices:     make(map[string]pricePoint),
	}
}

// Run connects and consumes ticker events until ctx is cancelled,
// reconnecting with a fixed backoff on any failure.
func (s *PriceStream) Run(ctx context.Context) {
	const backoff = 5 * time.Second
	for {
		if err := s.consume(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("[stream] disconnected: %v, reconnecting in %s", err, backoff)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
	}
}

func (s *PriceStream) consume(ctx context.Context) error {
	streams := make([]string, len(s.symbols))
	for i, sym := range s.symbols {
		streams[i] = strings.ToLower(sym) + "@miniTicker"
	}
	url := fmt.Sprintf("%s/stream?streams=%s", s.baseURL, strings.Join(streams, "/"))

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()
	log.Printf("[stream] connected (%d symbols)", len(s.symbols))

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	conn.SetPingHandler(func(payload string) error {
		conn.SetReadDeadline(time.Now().Add(90 * time.Second))
		return conn.WriteControl(websocket.PongMessage, []byte(payload), time.Now().Add(10*time.Second))
	})

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		conn.SetReadDeadline(time.Now().Add(90 * time.Second))

		var envelope struct {
			Data miniTickerMsg `json:"data"`
		}
		if err := json.Unmarshal(msg, &envelope); err != nil || envelope.Data.Symbol == "" {
			continue
		}
		price, err := strconv.ParseFloat(envelope.Data.Close, 64)
		if err != nil || price <= 0 {
			continue
		}

		s.mu.Lock()
		s.prices[envelope.Data.Symbol] = pricePoint{price: price, at: time.Now()}
		s.mu.Unlock()
	}
}

// Price returns the latest mark price for symbol and whether a fresh one is
// available.
func (s *PriceStream) Price(symbol string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prices[symbol]
	if !ok || time.Since(p.at) > s.staleAfter {
		return 0, false
	}
	return p.price, true
}
