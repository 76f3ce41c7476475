package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"headphones/internal/api"
	"headphones/internal/config"
	"headphones/internal/logging"
	"headphones/internal/snatch"
)

const apiShutdownTimeout = 5 * time.Second

// apiServer is the read-mostly HTTP surface: status, snatches and the scan
// and search triggers.
type apiServer struct {
	bind      string
	logger    *slog.Logger
	daemon    *Daemon
	snatchSvc *api.SnatchService
	handler   http.Handler

	mu     sync.Mutex
	server *http.Server
}

// newAPIServer returns nil when API_BIND is empty.
func newAPIServer(general config.GeneralSettings, d *Daemon, logger *slog.Logger) *apiServer {
	bind := strings.TrimSpace(general.APIBind)
	if d == nil || bind == "" {
		return nil
	}
	s := &apiServer{
		bind:      bind,
		logger:    logging.NewComponentLogger(logger, "api-server"),
		daemon:    d,
		snatchSvc: api.NewSnatchService(d.store),
	}
	s.handler = s.routes(general.APIKey)
	return s
}

func (s *apiServer) routes(apiKey string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/snatches", s.handleSnatches)
	mux.HandleFunc("GET /api/snatches/{id}", s.handleSnatch)
	mux.HandleFunc("POST /api/scan", s.handleScan)
	mux.HandleFunc("POST /api/search", s.handleSearch)
	return s.requireAPIKey(apiKey, mux)
}

// start listens on the bind address and serves until ctx ends or stop. A
// fresh http.Server is built per start since a shut down one cannot serve
// again.
func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       time.Minute,
	}
	s.mu.Lock()
	s.server = server
	s.mu.Unlock()
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()
	context.AfterFunc(ctx, s.stop)
	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	s.mu.Lock()
	server := s.server
	s.server = nil
	s.mu.Unlock()
	if server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), apiShutdownTimeout)
	defer cancel()
	_ = server.Shutdown(ctx)
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.daemon.Status(r.Context()).DTO())
}

func (s *apiServer) handleSnatches(w http.ResponseWriter, r *http.Request) {
	var statuses []snatch.Status
	for _, value := range r.URL.Query()["status"] {
		if value = strings.TrimSpace(value); value != "" {
			statuses = append(statuses, snatch.Status(value))
		}
	}
	items, err := s.snatchSvc.List(r.Context(), statuses...)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if items == nil {
		items = []api.Snatch{}
	}
	s.writeJSON(w, http.StatusOK, api.SnatchListResponse{Items: items})
}

func (s *apiServer) handleSnatch(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid snatch id")
		return
	}
	item, err := s.snatchSvc.Describe(r.Context(), id)
	switch {
	case err != nil:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	case item == nil:
		s.writeError(w, http.StatusNotFound, "snatch not found")
	default:
		s.writeJSON(w, http.StatusOK, item)
	}
}

// handleScan runs a folder scan and reports its results. With ?async=1 the
// scan is queued on the daemon loop instead.
func (s *apiServer) handleScan(w http.ResponseWriter, r *http.Request) {
	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async {
		s.writeJSON(w, http.StatusAccepted, api.TriggerResponse{Job: "scan", Accepted: s.daemon.TriggerScan()})
		return
	}
	results, err := s.daemon.ScanNow(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.ScanResponse{Results: api.FromResults(results)})
}

func (s *apiServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusAccepted, api.TriggerResponse{Job: "search", Accepted: s.daemon.TriggerSearch()})
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
