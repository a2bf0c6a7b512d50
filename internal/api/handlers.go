package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"autoflightlog/internal/logbook"
	"autoflightlog/internal/models"
	"autoflightlog/internal/service"
)

// maxImportBytes caps CSV uploads.
const maxImportBytes = 10 << 20

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health != nil {
		if err := s.deps.Health(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleListRequests(w http.ResponseWriter, r *http.Request) {
	reqs, err := s.deps.Connectors.ListRequests(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": reqs})
}

func (s *HTTPServer) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	var body service.NewRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req, err := s.deps.Connectors.CreateRequest(r.Context(), body)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

func (s *HTTPServer) handleListConnectors(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Connectors.ListConnectors(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"connectors": list})
}

func (s *HTTPServer) handleGetConnector(w http.ResponseWriter, r *http.Request) {
	c, err := s.deps.Connectors.GetConnector(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *HTTPServer) handleTestConnection(w http.ResponseWriter, r *http.Request) {
	var body service.ConnectionTest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	c, err := s.deps.Connectors.TestConnection(r.Context(), body)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *HTTPServer) handleActivate(w http.ResponseWriter, r *http.Request) {
	c, err := s.deps.Connectors.Activate(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	// an activated connector is due now
	s.deps.Scheduler.Request(models.ReasonManual)
	writeJSON(w, http.StatusOK, c)
}

func (s *HTTPServer) handleAutoSync(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Enabled         bool `json:"enabled"`
		IntervalMinutes *int `json:"interval_minutes"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	c, err := s.deps.Connectors.SetAutoSync(r.Context(), r.PathValue("id"), body.Enabled, body.IntervalMinutes)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *HTTPServer) handleRunSync(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Connectors.RunSync(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *HTTPServer) handleTrigger(w http.ResponseWriter, r *http.Request) {
	reason := models.ReasonManual
	if raw := r.URL.Query().Get("reason"); raw != "" {
		parsed, ok := models.ParseSyncReason(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown reason %q", raw))
			return
		}
		reason = parsed
	}
	accepted := s.deps.Scheduler.Request(reason)
	writeJSON(w, http.StatusAccepted, map[string]any{"reason": reason, "accepted": accepted})
}

func (s *HTTPServer) handleWake(w http.ResponseWriter, r *http.Request) {
	accepted := s.deps.Scheduler.Request(models.ReasonWake)
	writeJSON(w, http.StatusAccepted, map[string]any{"reason": models.ReasonWake, "accepted": accepted})
}

func (s *HTTPServer) handleTick(w http.ResponseWriter, r *http.Request) {
	summary := s.deps.Scheduler.Tick(r.Context(), models.ReasonManual)
	writeJSON(w, http.StatusOK, summary)
}

func (s *HTTPServer) handleNetwork(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Online *bool `json:"online"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.Online == nil {
		writeError(w, http.StatusBadRequest, "online is required")
		return
	}
	s.deps.Scheduler.SetOnline(*body.Online)
	writeJSON(w, http.StatusOK, map[string]bool{"online": *body.Online})
}

func (s *HTTPServer) handleFields(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"fields":  logbook.Catalog,
		"default": logbook.DefaultViewFields,
	})
}

func (s *HTTPServer) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	key := r.PathValue("key")
	values, err := s.deps.Entries.Suggestions(r.Context(), key, limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"field": key, "suggestions": values})
}

func (s *HTTPServer) handleListViews(w http.ResponseWriter, r *http.Request) {
	views, err := s.deps.Views.List(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"views": views})
}

func (s *HTTPServer) handleGetView(w http.ResponseWriter, r *http.Request) {
	v, err := s.deps.Views.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *HTTPServer) handleCreateView(w http.ResponseWriter, r *http.Request) {
	var body models.View
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	body.ID = ""
	v, err := s.deps.Views.Save(r.Context(), &body)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (s *HTTPServer) handleUpdateView(w http.ResponseWriter, r *http.Request) {
	var body models.View
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	body.ID = r.PathValue("id")
	v, err := s.deps.Views.Save(r.Context(), &body)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *HTTPServer) handleDeleteView(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Views.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleListEntries(w http.ResponseWriter, r *http.Request) {
	list, view, err := s.deps.Entries.ListInView(r.Context(), r.URL.Query().Get("view"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": list, "view": view})
}

func (s *HTTPServer) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Values map[string]any `json:"values"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	e, err := s.deps.Entries.Create(r.Context(), body.Values)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *HTTPServer) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	e, err := s.deps.Entries.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *HTTPServer) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Values map[string]any `json:"values"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	e, err := s.deps.Entries.Update(r.Context(), r.PathValue("id"), body.Values)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *HTTPServer) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Entries.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleClearOverride(w http.ResponseWriter, r *http.Request) {
	e, err := s.deps.Entries.ClearOverride(r.Context(), r.PathValue("id"), r.PathValue("key"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *HTTPServer) handleImport(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Entries.Import(r.Context(), http.MaxBytesReader(w, r.Body, maxImportBytes), nil)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *HTTPServer) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	s.export(w, r, "csv", "text/csv; charset=utf-8", s.deps.Entries.ExportCSV)
}

func (s *HTTPServer) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	s.export(w, r, "xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", s.deps.Entries.ExportXLSX)
}

func (s *HTTPServer) export(
	w http.ResponseWriter,
	r *http.Request,
	ext, contentType string,
	write func(ctx context.Context, w io.Writer, fields []string, viewID string) error,
) {
	// buffer so a failure can still produce a JSON error
	var buf bytes.Buffer
	q := r.URL.Query()
	if err := write(r.Context(), &buf, splitCSV(q.Get("fields")), q.Get("view")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", s.deps.Entries.ExportFilename(ext)))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *HTTPServer) handleCurrency(w http.ResponseWriter, r *http.Request) {
	summary, err := s.deps.Entries.Currency(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
