// Package marketdata fetches candle series from Binance, caches them in
// Redis with a short TTL, and streams live mark prices over websocket.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"perpbot/internal/model"
)

// minValidCandles is the minimum number of well-formed candles a fetch must
// yield; fewer is treated as an unusable series.
const minValidCandles = 30

// Fetcher pulls klines from the Binance REST API.
type Fetcher struct {
	baseURL string
	client  *http.Client
}

// NewFetcher creates a kline fetcher. baseURL defaults to the Binance spot
// API when empty.
func NewFetcher(baseURL string) *Fetcher {
	if baseURL == "" {
		baseURL = "https://api.binance.com"
	}
	return &Fetcher{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// Fetch retrieves up to limit candles for (symbol, interval), oldest first.
// Malformed rows are dropped; fewer than 30 surviving candles is an error.
func (f *Fetcher) Fetch(ctx context.Context, symbol, interval string, limit int) (*model.Series, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", interval)
	q.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		f.baseURL+"/api/v3/klines?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("klines request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("klines %s %s: %w", symbol, interval, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("klines %s %s: status %d", symbol, interval, resp.StatusCode)
	}

	// Each row: [openTime, open, high, low, close, volume, closeTime, ...]
	var rows [][]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("klines %s %s: decode: %w", symbol, interval, err)
	}

	series := &model.Series{}
	dropped := 0
	for _, row := range rows {
		if len(row) < 7 {
			dropped++
			continue
		}
		var ts int64
		if err := json.Unmarshal(row[0], &ts); err != nil {
			dropped++
			continue
		}
		o, err1 := parseFloat(row[1])
		h, err2 := parseFloat(row[2])
		l, err3 := parseFloat(row[3])
		c, err4 := parseFloat(row[4])
		v, err5 := parseFloat(row[5])
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil ||
			o <= 0 || h <= 0 || l <= 0 || c <= 0 ||
			math.IsNaN(o) || math.IsNaN(h) || math.IsNaN(l) || math.IsNaN(c) {
			dropped++
			continue
		}
		series.Open = append(series.Open, o)
		series.High = append(series.High, h)
		series.Low = append(series.Low, l)
		series.Close = append(series.Close, c)
		series.Volume = append(series.Volume, v)
		series.Timestamp = append(series.Timestamp, ts)
	}
	if dropped > 0 {
		log.Printf("[marketdata] %s %s: dropped %d malformed rows", symbol, interval, dropped)
	}

	if series.Len() < minValidCandles {
		return nil, fmt.Errorf("klines %s %s: %w (%d valid candles, need %d)",
			symbol, interval, model.ErrInsufficientData, series.Len(), minValidCandles)
	}
	return series, nil
}

// parseFloat handles Binance's quoted numeric strings.
func parseFloat(raw json.RawMessage) (float64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strconv.ParseFloat(s, 64)
	}
	var f float64
	err := json.Unmarshal(raw, &f)
	return f, err
}
