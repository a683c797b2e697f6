// Package server exposes the advisory pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/finquill/advisor/core"
	"github.com/finquill/advisor/metrics"
)

// Adviser produces a recommendation for one request and optionally
// reports attempt progress. *pipeline.Pipeline satisfies it.
type Adviser interface {
	AdviseObserved(ctx context.Context, req *core.AdviceRequest, observer func(attempt int, err error)) (json.RawMessage, error)
}

// Server routes HTTP traffic to the pipeline.
type Server struct {
	adviser Adviser
	timeout time.Duration
	mux     *http.ServeMux
}

// New creates a server. The timeout bounds each advisory run; zero means
// two minutes.
func New(adviser Adviser, timeout time.Duration) *Server {
	if timeout == 0 {
		timeout = 2 * time.Minute
	}
	s := &Server{
		adviser: adviser,
		timeout: timeout,
		mux:     http.NewServeMux(),
	}
	s.mux.HandleFunc("/advisor", s.handleAdvise)
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/ws", s.handleWS)
	s.mux.Handle("/metrics", promhttp.Handler())
	return s
}

// Handler returns the server's routing handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run serves until the listener fails.
func (s *Server) Run(addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: s.timeout + 30*time.Second,
	}
	log.Printf("[SERVER] Listening on %s", addr)
	return srv.ListenAndServe()
}

func (s *Server) handleAdvise(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	start := time.Now()
	status := http.StatusOK

	var req core.AdviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		status = http.StatusBadRequest
		writeError(w, status, "invalid request body")
		observe("/advisor", status, start)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	doc, err := s.adviser.AdviseObserved(ctx, &req, nil)
	if err != nil {
		status = http.StatusBadRequest
		writeError(w, status, err.Error())
		observe("/advisor", status, start)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(doc)
	observe("/advisor", status, start)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func observe(endpoint string, status int, start time.Time) {
	metrics.RequestCount.WithLabelValues(endpoint, http.StatusText(status)).Inc()
	metrics.RequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}
