// Package metrics exposes Prometheus metrics and the health endpoint for
// the trading engine.
package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the trading engine.
type Metrics struct {
	CyclesTotal      prometheus.Counter
	EntriesTotal     *prometheus.CounterVec // labels: direction
	ClosesTotal      *prometheus.CounterVec // labels: reason
	SkipsTotal       *prometheus.CounterVec // labels: reason
	ExecRetriesTotal prometheus.Counter
	ExecFailures     prometheus.Counter

	CycleDur prometheus.Histogram
	FetchDur prometheus.Histogram

	OpenPositions prometheus.Gauge
	StreamPrices  prometheus.Gauge
}

// New registers and returns all engine metrics.
func New() *Metrics {
	m := &Metrics{
		CyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "perpbot_cycles_total",
			Help: "Total trading cycles executed",
		}),
		EntriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "perpbot_entries_total",
			Help: "Positions opened (by direction)",
		}, []string{"direction"}),
		ClosesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "perpbot_closes_total",
			Help: "Positions closed (by reason)",
		}, []string{"reason"}),
		SkipsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "perpbot_skips_total",
			Help: "Symbols skipped per cycle (by reason)",
		}, []string{"reason"}),
		ExecRetriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "perpbot_exec_retries_total",
			Help: "Order submissions that needed a retry",
		}),
		ExecFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "perpbot_exec_failures_total",
			Help: "Order submissions that failed after all retries",
		}),
		CycleDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "perpbot_cycle_duration_seconds",
			Help:    "Full trading cycle latency",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		FetchDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "perpbot_fetch_duration_seconds",
			Help:    "Candle fetch latency per (symbol, interval)",
			Buckets: prometheus.DefBuckets,
		}),
		OpenPositions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "perpbot_open_positions",
			Help: "Currently tracked open positions",
		}),
		StreamPrices: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "perpbot_stream_fresh_prices",
			Help: "Symbols with a fresh mark price from the websocket stream",
		}),
	}

	prometheus.MustRegister(
		m.CyclesTotal,
		m.EntriesTotal,
		m.ClosesTotal,
		m.SkipsTotal,
		m.ExecRetriesTotal,
		m.ExecFailures,
		m.CycleDur,
		m.FetchDur,
		m.OpenPositions,
		m.StreamPrices,
	)
	return m
}

// HealthStatus tracks dependency liveness.
type HealthStatus struct {
	mu sync.RWMutex

	RedisConnected  bool
	SQLiteOK        bool
	LastCycleAt     time.Time
	RedisLatencyMs  float64
	SQLiteLatencyMs float64
	StartedAt       time.Time
}

func NewHealthStatus() *HealthStatus {
	return &HealthStatus{StartedAt: time.Now()}
}

func (h *HealthStatus) SetLastCycle(t time.Time) {
	h.mu.Lock()
	h.LastCycleAt = t
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency and connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.mu.Unlock()
}

// CheckSQLite pings the database and records latency and health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks until ctx ends.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, db *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if db != nil {
					h.CheckSQLite(probeCtx, db)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles /healthz.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "healthy"
	code := http.StatusOK
	if !h.SQLiteOK {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	lastCycle := ""
	if !h.LastCycleAt.IsZero() {
		lastCycle = time.Since(h.LastCycleAt).Round(time.Millisecond).String()
	}

	body := struct {
		Status          string  `json:"status"`
		Uptime          string  `json:"uptime"`
		RedisConnected  bool    `json:"redis_connected"`
		RedisLatencyMs  float64 `json:"redis_latency_ms"`
		SQLiteOK        bool    `json:"sqlite_ok"`
		SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
		LastCycleAge    string  `json:"last_cycle_age"`
	}{
		Status:          status,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		LastCycleAge:    lastCycle,
	}

	w.Header().Set("Content-Type", "application/json")
	if code != http.StatusOK {
		w.WriteHeader(code)
	}
	json.NewEncoder(w).Encode(body)
}

// Server exposes /metrics and /healthz.
type Server struct {
	addr string
	srv  *http.Server
}

func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)
	return &Server{addr: addr, srv: &http.Server{Addr: addr, Handler: mux}}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
