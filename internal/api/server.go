// Package api implements the HTTP front end for the agent.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/lunahq/luna/internal/agent"
	"github.com/lunahq/luna/internal/buildinfo"
	"github.com/lunahq/luna/internal/memory"
	"github.com/lunahq/luna/internal/tools"
	"github.com/lunahq/luna/internal/usage"
)

// maxImportBytes caps the size of an accepted import document.
const maxImportBytes = 50 << 20

// writeJSON encodes v as JSON to w. Errors here typically mean the
// client disconnected mid-response.
func writeJSON(w http.ResponseWriter, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("failed to write JSON response", "error", err)
	}
}

// errorResponse is the body for error replies.
type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errorResponse{Error: msg}); err != nil {
		s.logger.Debug("failed to write error response", "error", err)
	}
}

// Server is the HTTP API server.
type Server struct {
	address  string
	port     int
	loop     *agent.Loop
	store    *memory.SQLiteStore
	registry *tools.Registry
	tracker  *usage.Tracker
	logger   *slog.Logger
	server   *http.Server
}

// NewServer creates an API server.
func NewServer(address string, port int, loop *agent.Loop, store *memory.SQLiteStore, registry *tools.Registry, tracker *usage.Tracker, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		address:  address,
		port:     port,
		loop:     loop,
		store:    store,
		registry: registry,
		tracker:  tracker,
		logger:   logger,
	}
}

// Start begins serving HTTP requests. It blocks until the server stops.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.address, s.port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // long generation calls
	}

	addr := s.address
	if addr == "" {
		addr = "0.0.0.0"
	}
	s.logger.Info("starting API server", "address", addr, "port", s.port)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Handler builds the routed handler. Split from Start so tests can
// exercise routes without a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Chat
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("GET /tools", s.handleTools)

	// Conversations
	mux.HandleFunc("GET /conversations", s.handleConversationList)
	mux.HandleFunc("GET /conversations/{id}", s.handleConversationGet)
	mux.HandleFunc("DELETE /conversations/{id}", s.handleConversationDelete)
	mux.HandleFunc("POST /conversations/{id}/clear", s.handleConversationClear)

	// Bulk transfer
	mux.HandleFunc("GET /export", s.handleExport)
	mux.HandleFunc("POST /import", s.handleImport)

	// Session stats and health
	mux.HandleFunc("GET /session/stats", s.handleSessionStats)
	mux.HandleFunc("GET /version", s.handleVersion)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /", s.handleRoot)

	return s.withLogging(mux)
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

// chatRequest is the POST /chat body.
type chatRequest struct {
	Input          string `json:"input"`
	ConversationID string `json:"conversation_id,omitempty"`
	UserID         string `json:"user_id,omitempty"`
	Title          string `json:"title,omitempty"`
}

// chatResponse is the POST /chat reply.
type chatResponse struct {
	Output         string `json:"output"`
	ConversationID string `json:"conversation_id"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Input == "" {
		s.writeError(w, http.StatusBadRequest, "input is required")
		return
	}

	resp, err := s.loop.Run(r.Context(), &agent.Request{
		Input:          req.Input,
		ConversationID: req.ConversationID,
		UserID:         req.UserID,
		Title:          req.Title,
	})
	if err != nil {
		s.logger.Error("chat turn failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, chatResponse{
		Output:         resp.Output,
		ConversationID: resp.ConversationID,
	}, s.logger)
}

// toolInfo is one entry in the GET /tools reply.
type toolInfo struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Params      tools.Schema `json:"params,omitempty"`
}

func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	list := s.registry.List()
	out := make([]toolInfo, 0, len(list))
	for _, t := range list {
		out = append(out, toolInfo{Name: t.Name, Description: t.Description, Params: t.Params})
	}
	writeJSON(w, map[string]any{"tools": out}, s.logger)
}

func (s *Server) handleConversationList(w http.ResponseWriter, r *http.Request) {
	convs, err := s.store.ListConversations()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if convs == nil {
		convs = []memory.Conversation{}
	}
	writeJSON(w, map[string]any{"conversations": convs}, s.logger)
}

func (s *Server) handleConversationGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	conv, err := s.store.GetConversation(id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if conv == nil {
		s.writeError(w, http.StatusNotFound, "conversation not found")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
	}

	msgs, err := s.store.Window(id, limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if msgs == nil {
		msgs = []memory.Message{}
	}

	writeJSON(w, map[string]any{
		"conversation": conv,
		"messages":     msgs,
	}, s.logger)
}

func (s *Server) handleConversationDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	conv, err := s.store.GetConversation(id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if conv == nil {
		s.writeError(w, http.StatusNotFound, "conversation not found")
		return
	}

	if err := s.store.Delete(id); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]any{"deleted": id}, s.logger)
}

func (s *Server) handleConversationClear(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	conv, err := s.store.GetConversation(id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if conv == nil {
		s.writeError(w, http.StatusNotFound, "conversation not found")
		return
	}

	if err := s.store.Clear(id); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]any{"cleared": id}, s.logger)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := s.store.Export()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(data); err != nil {
		s.logger.Debug("failed to write export", "error", err)
	}
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}

	if err := s.store.Import(data); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, map[string]any{"imported": true}, s.logger)
}

func (s *Server) handleSessionStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.tracker.Stats(), s.logger)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, buildinfo.Info(), s.logger)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status": "ok",
		"uptime": buildinfo.Uptime().String(),
	}, s.logger)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, map[string]any{
		"name":    "luna",
		"version": buildinfo.Version,
	}, s.logger)
}
