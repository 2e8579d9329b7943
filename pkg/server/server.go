package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/lirany1/junit-html-report/pkg/logger"
	"github.com/lirany1/junit-html-report/pkg/storage"
)

const defaultListLimit = 20

// Config holds server configuration
type Config struct {
	Host            string
	Port            int
	ReportsDir      string
	TrendWindowDays int
}

// Server serves a generated report and the execution history API
type Server struct {
	config *Config
	db     *storage.Database
	router *mux.Router
}

// NewServer creates a new report server. db may be nil when history is disabled.
func NewServer(cfg *Config, db *storage.Database) *Server {
	s := &Server{
		config: cfg,
		db:     db,
		router: mux.NewRouter(),
	}
	s.setupRoutes()
	return s
}

// Handler returns the server's routes
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Server running at http://%s", addr)
		logger.Infof("Press Ctrl+C to stop")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logger.Info("Shutting down server...")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) setupRoutes() {
	// API routes first: the static handler matches every path
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/reports", s.handleListReports).Methods(http.MethodGet)
	api.HandleFunc("/reports/{id}", s.handleGetReport).Methods(http.MethodGet)
	api.HandleFunc("/trends", s.handleTrends).Methods(http.MethodGet)

	s.router.PathPrefix("/").Handler(http.FileServer(http.Dir(s.config.ReportsDir)))
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	if !s.requireHistory(w) {
		return
	}

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", raw))
			return
		}
		limit = n
	}

	executions, err := s.db.GetRecentExecutions(limit)
	if err != nil {
		logger.Errorf("Failed to list executions: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list reports")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"reports": executions})
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	if !s.requireHistory(w) {
		return
	}

	id := mux.Vars(r)["id"]
	execution, err := s.db.GetExecution(id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("report %s not found", id))
		return
	}
	if err != nil {
		logger.Errorf("Failed to load execution %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to load report")
		return
	}

	tests, err := s.db.GetExecutionTests(id)
	if err != nil {
		logger.Errorf("Failed to load tests of %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to load report")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"execution": execution,
		"tests":     tests,
	})
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	if !s.requireHistory(w) {
		return
	}

	trends, err := s.db.GetTrendData(s.config.TrendWindowDays)
	if err != nil {
		logger.Errorf("Failed to load trends: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load trends")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"trends": trends})
}

func (s *Server) requireHistory(w http.ResponseWriter) bool {
	if s.db == nil {
		writeError(w, http.StatusServiceUnavailable, "history is disabled")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Warnf("Failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
