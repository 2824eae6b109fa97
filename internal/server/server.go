// Package server provides the HTTP server and API handlers for the simulator.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/invisible-tech/incident-sim/internal/config"
	"github.com/invisible-tech/incident-sim/internal/content"
	"github.com/invisible-tech/incident-sim/internal/controller"
	"github.com/invisible-tech/incident-sim/internal/timeline"
	"github.com/invisible-tech/incident-sim/internal/types"
	"github.com/invisible-tech/incident-sim/internal/version"
)

// maxBodyBytes bounds request bodies, snapshots included.
const maxBodyBytes = 4 << 20

// Server is the HTTP server for the simulator API.
type Server struct {
	cfg        config.SimulatorConfig
	controller *controller.Controller
	log        *logrus.Logger
	httpServer *http.Server
}

type startSessionRequest struct {
	ScenarioID string `json:"scenario_id"`
	UserID     string `json:"user_id"`
}

type executeRequest struct {
	Command    string         `json:"command"`
	Parameters map[string]any `json:"parameters"`
}

// New creates a new HTTP server that uses the given controller.
func New(cfg config.SimulatorConfig, ctrl *controller.Controller, log *logrus.Logger) *Server {
	mux := http.NewServeMux()
	s := &Server{cfg: cfg, controller: ctrl, log: log}
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/v1/commands", s.handleCommands)
	mux.HandleFunc("GET /api/v1/scenarios", s.handleScenarios)
	mux.HandleFunc("POST /api/v1/sessions", s.handleStartSession)
	mux.HandleFunc("POST /api/v1/sessions/restore", s.handleRestore)
	mux.HandleFunc("GET /api/v1/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("POST /api/v1/sessions/{id}/commands", s.handleExecute)
	mux.HandleFunc("POST /api/v1/sessions/{id}/complete", s.handleComplete)
	mux.HandleFunc("GET /api/v1/sessions/{id}/timeline", s.handleTimeline)
	mux.HandleFunc("GET /api/v1/sessions/{id}/snapshot", s.handleSnapshot)
	mux.HandleFunc("GET /api/v1/sessions/{id}/advice", s.handleAdvice)
	mux.HandleFunc("POST /api/v1/sessions/{id}/hint", s.handleHint)
	mux.HandleFunc("GET /api/v1/tutorial/{step}", s.handleTutorial)
	mux.Handle("GET /metrics", promhttp.Handler())

	s.httpServer = &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts the HTTP server. It blocks until the server is closed.
func (s *Server) ListenAndServe() error {
	s.log.WithField("addr", s.cfg.HTTPAddr).Info("Simulator listening")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).Debug("Failed to write response")
	}
}

// writeError maps controller errors to HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, controller.ErrSessionNotFound), errors.Is(err, controller.ErrScenarioNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, controller.ErrSessionNotActive), errors.Is(err, types.ErrSessionFinalized):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		s.log.WithError(err).Error("Request failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": version.Version,
	})
}

func (s *Server) handleCommands(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.controller.Commands())
}

func (s *Server) handleScenarios(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.controller.Scenarios())
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := decode(r, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	sess, err := s.controller.StartSession(req.ScenarioID, req.UserID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.controller.GetSession(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := decode(r, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Command == "" {
		http.Error(w, "command is required", http.StatusBadRequest)
		return
	}
	res, err := s.controller.Execute(r.PathValue("id"), req.Command, req.Parameters)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	res, err := s.controller.Complete(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := controller.TimelineFilter{
		Type:     timeline.EventType(q.Get("type")),
		Critical: q.Get("critical") == "true",
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		filter.Limit = n
	}
	events, err := s.controller.Timeline(r.PathValue("id"), filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if events == nil {
		events = []timeline.Event{}
	}
	s.writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	data, err := s.controller.Snapshot(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}
	sess, err := s.controller.Restore(data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleAdvice(w http.ResponseWriter, r *http.Request) {
	adv, err := s.controller.Advice(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, adv)
}

func (s *Server) handleHint(w http.ResponseWriter, r *http.Request) {
	h, err := s.controller.Hint(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, h)
}

func (s *Server) handleTutorial(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(r.PathValue("step"))
	if err != nil {
		http.Error(w, "Invalid step", http.StatusBadRequest)
		return
	}
	step, ok := content.Tutorial(n)
	if !ok {
		http.Error(w, "Tutorial step not found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, step)
}
