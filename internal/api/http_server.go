package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"autoflightlog/internal/config"
	"autoflightlog/internal/domain"
	"autoflightlog/internal/metrics"
	"autoflightlog/internal/service"
	"autoflightlog/internal/syncer"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const requestIDHeader = "X-Request-ID"

// Deps are the components the HTTP API drives.
type Deps struct {
	Connectors *service.ConnectorService
	Entries    *service.EntryService
	Views      *service.ViewService
	Scheduler  domain.SyncScheduler
	// Health reports storage reachability for /healthz; nil means always healthy.
	Health func(ctx context.Context) error
}

// HTTPServer is the foreground surface: setup flow, logbook and sync triggers.
type HTTPServer struct {
	cfg    config.APIConfig
	deps   Deps
	server *http.Server
	auth   *HTTPAuth
	logger zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, deps Deps, logger *zerolog.Logger) *HTTPServer {
	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "http").Logger()
	}

	srv := &HTTPServer{cfg: cfg, deps: deps, logger: base}
	srv.auth = NewHTTPAuth(cfg)

	mux := http.NewServeMux()
	srv.routes(mux)

	handler := srv.loggingMiddleware(srv.auth.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	return srv
}

func (s *HTTPServer) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("GET /api/v1/requests", s.handleListRequests)
	mux.HandleFunc("POST /api/v1/requests", s.handleCreateRequest)

	mux.HandleFunc("GET /api/v1/connectors", s.handleListConnectors)
	mux.HandleFunc("GET /api/v1/connectors/{id}", s.handleGetConnector)
	mux.HandleFunc("POST /api/v1/connectors/test", s.handleTestConnection)
	mux.HandleFunc("POST /api/v1/connectors/{id}/activate", s.handleActivate)
	mux.HandleFunc("POST /api/v1/connectors/{id}/autosync", s.handleAutoSync)
	mux.HandleFunc("POST /api/v1/connectors/{id}/sync", s.handleRunSync)

	mux.HandleFunc("POST /api/v1/sync/trigger", s.handleTrigger)
	mux.HandleFunc("POST /api/v1/sync/wake", s.handleWake)
	mux.HandleFunc("POST /api/v1/sync/tick", s.handleTick)
	mux.HandleFunc("POST /api/v1/network", s.handleNetwork)

	mux.HandleFunc("GET /api/v1/fields", s.handleFields)
	mux.HandleFunc("GET /api/v1/fields/{key}/suggestions", s.handleSuggestions)

	mux.HandleFunc("GET /api/v1/views", s.handleListViews)
	mux.HandleFunc("POST /api/v1/views", s.handleCreateView)
	mux.HandleFunc("GET /api/v1/views/{id}", s.handleGetView)
	mux.HandleFunc("PUT /api/v1/views/{id}", s.handleUpdateView)
	mux.HandleFunc("DELETE /api/v1/views/{id}", s.handleDeleteView)

	mux.HandleFunc("GET /api/v1/entries", s.handleListEntries)
	mux.HandleFunc("POST /api/v1/entries", s.handleCreateEntry)
	mux.HandleFunc("GET /api/v1/entries/{id}", s.handleGetEntry)
	mux.HandleFunc("PUT /api/v1/entries/{id}", s.handleUpdateEntry)
	mux.HandleFunc("DELETE /api/v1/entries/{id}", s.handleDeleteEntry)
	mux.HandleFunc("DELETE /api/v1/entries/{id}/overrides/{key}", s.handleClearOverride)
	mux.HandleFunc("POST /api/v1/entries/import", s.handleImport)
	mux.HandleFunc("GET /api/v1/entries/export.csv", s.handleExportCSV)
	mux.HandleFunc("GET /api/v1/entries/export.xlsx", s.handleExportXLSX)
	mux.HandleFunc("GET /api/v1/currency", s.handleCurrency)
}

// Handler exposes the full middleware chain.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)

		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		endpoint := r.Pattern
		if endpoint == "" {
			endpoint = "unmatched"
		}
		metrics.IncHTTP(endpoint)

		s.logger.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// writeServiceError maps domain errors onto status codes.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, syncer.ErrConnectorNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, syncer.ErrConnectorNotActive):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.logger.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
