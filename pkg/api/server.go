// Package api provides the REST and WebSocket surface of the capture
// service.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/odvcencio/reelview/pkg/bus"
	"github.com/odvcencio/reelview/pkg/capture"
	"github.com/odvcencio/reelview/pkg/logging"
	"github.com/odvcencio/reelview/pkg/movie"
	"github.com/odvcencio/reelview/pkg/orchestrator"
)

// Server is the HTTP API server.
type Server struct {
	orch       *orchestrator.Orchestrator
	eventBus   bus.EventBus
	metrics    *capture.Metrics
	logger     *logging.Logger
	httpServer *http.Server
}

// ServerConfig configures the API server.
type ServerConfig struct {
	// Address to listen on (default: :34563)
	Address string

	// Orchestrator handles all session operations
	Orchestrator *orchestrator.Orchestrator

	// EventBus feeds the WebSocket event channel
	EventBus bus.EventBus

	// Metrics is exposed on /health
	Metrics *capture.Metrics

	// Logger for request and connection logging
	Logger *logging.Logger
}

// NewServer creates a new API server.
func NewServer(cfg ServerConfig) *Server {
	if cfg.Address == "" {
		cfg.Address = ":34563"
	}

	s := &Server{
		orch:     cfg.Orchestrator,
		eventBus: cfg.EventBus,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	// Session lifecycle
	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleEndSession)
	mux.HandleFunc("GET /api/sessions/{id}/data", s.handleSessionData)

	// Capture operations
	mux.HandleFunc("GET /api/sessions/{id}/playback", s.handlePlaybackState)
	mux.HandleFunc("POST /api/sessions/{id}/frames", s.handleCaptureFrame)
	mux.HandleFunc("GET /api/sessions/{id}/subtitles", s.handleCaptureSubtitles)

	// Analysis
	mux.HandleFunc("POST /api/sessions/{id}/analyze", s.handleAnalyze)
	mux.HandleFunc("POST /api/sessions/{id}/conversation", s.handleConversation)

	// Event channel
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      withCORS(s.withLogging(mux)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // Long for the event channel
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the server's root handler. Used by tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the API server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// envelope is the uniform response shape of every REST endpoint.
type envelope struct {
	Success   bool       `json:"success"`
	Data      any        `json:"data,omitempty"`
	Error     string     `json:"error,omitempty"`
	Code      movie.Code `json:"code,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// Middleware
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug(logging.CategoryAPI, "http_request", "", r.Method+" "+r.URL.Path, map[string]any{
			"remote":      r.RemoteAddr,
			"duration_ms": time.Since(start).Milliseconds(),
		})
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Helpers
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
	})
}

func writeError(w http.ResponseWriter, err error) {
	code := movie.CodeOf(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusFor(code))
	json.NewEncoder(w).Encode(envelope{
		Success:   false,
		Error:     err.Error(),
		Code:      code,
		Timestamp: time.Now(),
	})
}

func statusFor(code movie.Code) int {
	switch code {
	case movie.CodeSessionNotFound:
		return http.StatusNotFound
	case movie.CodeInvalidInput:
		return http.StatusBadRequest
	case movie.CodeSessionLimit:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
