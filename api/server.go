package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"

	"github.com/wricardo/marsrover/rover/service"
	"github.com/wricardo/marsrover/telemetry"
	"github.com/wricardo/marsrover/transport/websocket"
)

// MaxBodyBytes caps every request body.
const MaxBodyBytes = 1 << 20

// Server represents the HTTP API server
type Server struct {
	service service.RoverService
	hub     *websocket.Hub
	router  *mux.Router
	logger  *log.Logger
}

// NewServer creates a new API server. hub may be nil.
func NewServer(roverService service.RoverService, hub *websocket.Hub) *Server {
	s := &Server{
		service: roverService,
		hub:     hub,
		router:  mux.NewRouter(),
		logger:  log.Default(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.Use(telemetry.Middleware, s.requestLogger, limitBody)

	// Every request other than a registered method and path is a 404,
	// method mismatches included.
	s.router.MethodNotAllowedHandler = http.NotFoundHandler()

	// Text protocol
	s.router.HandleFunc("/move", s.handleMove).Methods("POST")

	// JSON API
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/rover", s.handleGetState).Methods("GET")
	api.HandleFunc("/rover/commands", s.handleCommands).Methods("POST")
	api.HandleFunc("/rover/history", s.handleGetHistory).Methods("GET")

	// Operations
	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	s.router.Handle("/metrics", telemetry.Handler()).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func respondText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	io.WriteString(w, body)
}

// Middleware

func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

// errorStatus maps service errors that prevent a batch from running.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrBatchTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Rover Handlers

// handleMove speaks the plain-text protocol: the body is the command
// string and the response is the rendered rover.
func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondText(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		respondText(w, http.StatusBadRequest, "failed to read body")
		return
	}

	result, err := s.service.Execute(r.Context(), string(body))
	if err != nil {
		respondText(w, errorStatus(err), err.Error())
		return
	}
	s.broadcast(result)

	switch result.StopReasonCode {
	case "":
		respondText(w, http.StatusOK, result.Rendered)
	case service.StopUnrecognizedCommand:
		respondText(w, http.StatusBadRequest, result.StoppedReason)
	default:
		respondText(w, http.StatusConflict, "Error: "+result.StoppedReason+"\n"+result.Rendered)
	}
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.State(r.Context())
	if err != nil {
		respondError(w, errorStatus(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleCommands(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Commands string `json:"commands"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.service.Execute(r.Context(), req.Commands)
	if err != nil {
		respondError(w, errorStatus(err), err.Error())
		return
	}
	s.broadcast(result)

	s.logger.Info("batch",
		"executed", result.CommandsExecuted,
		"requested", result.RequestedCommands,
		"stop", result.StopReasonCode,
		"end", result.EndPos.String(),
		"direction", result.EndDirection)

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	// Parse query parameters
	opts := service.HistoryOptions{
		Page:  1,
		Limit: 20,
		Order: "desc",
	}

	query := r.URL.Query()
	if pageStr := query.Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			opts.Page = p
		}
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			opts.Limit = l
		}
	}

	if order := query.Get("order"); order != "" {
		opts.Order = order
	}

	history, err := s.service.History(r.Context(), opts)
	if err != nil {
		if errors.Is(err, service.ErrInvalidOrder) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, history)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "websocket not enabled", http.StatusNotFound)
		return
	}

	state, err := s.service.State(r.Context())
	if err != nil {
		http.Error(w, err.Error(), errorStatus(err))
		return
	}

	// Upgrade to WebSocket
	s.hub.ServeWS(w, r, state)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// broadcast pushes the post-batch state to WebSocket clients
func (s *Server) broadcast(result *service.BatchResult) {
	if s.hub != nil {
		state := result.State
		s.hub.BroadcastState(&state)
	}
}
