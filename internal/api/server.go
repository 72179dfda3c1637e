// Package api exposes the manual trigger surface: run one cycle, close all
// positions, and a status snapshot. Mutating endpoints are guarded by TOTP.
package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"perpbot/internal/engine"
	"perpbot/internal/logger"
	"perpbot/internal/store"

	"github.com/pquerna/otp/totp"
)

// Server serves the trigger endpoints for one session.
type Server struct {
	session    *engine.Session
	positions  *store.Positions
	totpSecret string
	srv        *http.Server
}

// NewServer builds the trigger API. An empty totpSecret disables the guard
// (dry runs and tests).
func NewServer(addr string, session *engine.Session, positions *store.Positions, totpSecret string) *Server {
	s := &Server{session: session, positions: positions, totpSecret: totpSecret}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/cycle", s.guarded(s.handleCycle))
	mux.HandleFunc("/api/v1/close-all", s.guarded(s.handleCloseAll))

	s.srv = &http.Server{Addr: addr, Handler: mux}
	return s
}

// guarded wraps a mutating handler with method and TOTP checks. The code
// comes from the X-TOTP-Code header.
func (s *Server) guarded(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if s.totpSecret != "" {
			code := r.Header.Get("X-TOTP-Code")
			if code == "" || !totp.Validate(code, s.totpSecret) {
				log.Printf("[api] rejected %s: bad TOTP code", r.URL.Path)
				http.Error(w, "invalid TOTP code", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleCycle(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithTraceID(r.Context(), logger.GenerateTraceID("manual-cycle", time.Now()))
	log.Printf("[api] manual cycle triggered (trace=%s)", logger.TraceID(ctx))
	s.session.RunCycle(ctx)
	writeJSON(w, map[string]string{"status": "cycle complete"})
}

func (s *Server) handleCloseAll(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithTraceID(r.Context(), logger.GenerateTraceID("close-all", time.Now()))
	log.Printf("[api] manual close-all triggered (trace=%s)", logger.TraceID(ctx))
	closed := s.session.CloseAll(ctx)
	writeJSON(w, map[string]any{"status": "done", "closed": closed})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	open, err := s.positions.All()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{
		"stats":     s.session.Stats(),
		"positions": open,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// Start launches the API server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[api] server listening on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[api] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the API server.
func (s *Server) Stop(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	s.srv.Shutdown(shutdownCtx)
}
