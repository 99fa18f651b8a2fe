// Package transport provides the HTTP surface served next to the metrics endpoint.
package transport

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gateway-fm/dabench/pkg/types"
)

const (
	defaultRoundsLimit = 20
	maxRoundsLimit     = 100
)

// StatusProvider exposes the run state.
type StatusProvider interface {
	Snapshot() types.RunSnapshot
	RecentRounds(limit int) []types.RoundEvent
	TotalRounds() uint64
}

// Server serves the harness HTTP API.
type Server struct {
	status    StatusProvider
	gatherer  prometheus.Gatherer
	logger    *slog.Logger
	startTime time.Time
	wsServer  *WebSocketServer
}

// NewServer creates a Server. Metrics are served from gatherer, never the
// default registry.
func NewServer(status StatusProvider, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	wsServer := NewWebSocketServer(logger)
	wsServer.Start()

	return &Server{
		status:    status,
		gatherer:  gatherer,
		logger:    logger,
		startTime: time.Now(),
		wsServer:  wsServer,
	}
}

// Handler returns the HTTP handler with all routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/status", s.corsMiddleware(s.handleStatus))
	mux.HandleFunc("/v1/rounds", s.corsMiddleware(s.handleRounds))
	mux.HandleFunc("/v1/ws", s.wsServer.Handler())

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)

	mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{
		ErrorLog: slog.NewLogLogger(s.logger.Handler(), slog.LevelError),
	}))

	return mux
}

// PublishRound forwards a completed round to websocket subscribers.
func (s *Server) PublishRound(ev types.RoundEvent) {
	s.wsServer.Publish(ev)
}

// Close disconnects websocket clients.
func (s *Server) Close() {
	s.wsServer.Stop()
}

func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, s.status.Snapshot())
}

// handleRounds returns the most recent rounds, newest first.
func (s *Server) handleRounds(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := defaultRoundsLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l <= 0 {
			s.writeJSONError(w, "Invalid limit: must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(l, maxRoundsLimit)
	}

	rounds := s.status.RecentRounds(limit)
	if rounds == nil {
		rounds = []types.RoundEvent{}
	}
	s.writeJSON(w, types.RoundsResponse{
		Total:  s.status.TotalRounds(),
		Rounds: rounds,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("Failed to write response", slog.String("error", err.Error()))
	}
}

func (s *Server) writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]interface{}{
		"status":         "healthy",
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"uptime_seconds": time.Since(s.startTime).Seconds(),
	})
}

// ReadinessCheck represents a single readiness check result.
type ReadinessCheck struct {
	Name   string `json:"name"`
	Status string `json:"status"` // "ok", "failed"
	Error  string `json:"error,omitempty"`
}

// handleReady reports not ready once the run has failed.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	snap := s.status.Snapshot()

	check := ReadinessCheck{Name: "run", Status: "ok"}
	if snap.Status == types.StatusError {
		check.Status = "failed"
		check.Error = snap.Error
	}

	response := map[string]interface{}{
		"status":    "ready",
		"runStatus": snap.Status,
		"checks":    []ReadinessCheck{check},
	}

	w.Header().Set("Content-Type", "application/json")
	if check.Status != "ok" {
		response["status"] = "not_ready"
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(response)
}
