package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"screenshot-organizer/internal/database"
	"screenshot-organizer/internal/tools"
)

// History reads the run journal.
type History interface {
	ListRuns(ctx context.Context, limit int) ([]database.Run, error)
}

type Server struct {
	tools   *tools.Service
	history History
	logger  *slog.Logger
	mux     *http.ServeMux
}

type ToolRequest struct {
	Arguments map[string]string `json:"arguments"`
}

// ToolResponse carries the tool's status string. Tool failures are reported
// inside Result with a 200 status.
type ToolResponse struct {
	Tool    string `json:"tool"`
	Result  string `json:"result"`
	IsError bool   `json:"is_error"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// NewServer builds the HTTP surface. history may be nil when no database is
// configured.
func NewServer(toolService *tools.Service, history History, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		tools:   toolService,
		history: history,
		logger:  logger.With("component", "api"),
		mux:     http.NewServeMux(),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.HandleFunc("/api/tools", s.handleListTools)
	s.mux.HandleFunc("/api/tools/", s.handleCallTool)
	s.mux.HandleFunc("/api/history", s.handleHistory)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Add CORS headers
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	s.mux.ServeHTTP(w, r)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("failed to write response", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "screenshot-organizer"})
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusOK, tools.Definitions())
}

func (s *Server) handleCallTool(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/api/tools/")
	var req ToolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid JSON: " + err.Error()})
		return
	}

	result, err := s.tools.Call(r.Context(), name, req.Arguments, nil)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	s.logger.Info("tool call", "tool", name, "is_error", tools.IsError(result))
	s.writeJSON(w, http.StatusOK, ToolResponse{Tool: name, Result: result, IsError: tools.IsError(result)})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.history == nil {
		s.writeJSON(w, http.StatusOK, []database.Run{})
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	runs, err := s.history.ListRuns(r.Context(), limit)
	if err != nil {
		s.logger.Error("error listing runs", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []database.Run{}
	}
	s.writeJSON(w, http.StatusOK, runs)
}
