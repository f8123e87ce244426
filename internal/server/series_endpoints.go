package server

import (
	"mime"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/treefix50/recapadmin/internal/auth"
	"github.com/treefix50/recapadmin/internal/catalog"
	"github.com/treefix50/recapadmin/internal/jsonvalue"
	"github.com/treefix50/recapadmin/internal/seriesjson"
)

// handleSeries handles GET and POST /series
func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request, session *auth.Session) {
	if s.handleOptions(w, r, "GET, POST, OPTIONS") {
		return
	}

	switch r.Method {
	case http.MethodGet:
		items, err := s.catalog.List(r.Context())
		if err != nil {
			s.log.Error("list series failed", zap.Error(err))
			s.writeError(w, errInternal, http.StatusInternalServerError)
			return
		}
		writeJSON(w, r, items)

	case http.MethodPost:
		var series catalog.Series
		if err := decodeBody(w, r, &series); err != nil {
			s.writeError(w, errBadRequest, http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(series.Title) == "" {
			s.writeError(w, "title is required", http.StatusBadRequest)
			return
		}
		if series.Category != "" && !series.Category.Valid() {
			s.writeError(w, "unknown category "+string(series.Category), http.StatusBadRequest)
			return
		}

		id, err := s.catalog.CreateSeries(r.Context(), series)
		if err != nil {
			s.log.Error("create series failed", zap.Error(err))
			s.writeError(w, errInternal, http.StatusInternalServerError)
			return
		}
		s.log.Info("series created via api", zap.String("id", id), zap.String("by", session.Email))
		writeJSONStatus(w, r, http.StatusCreated, map[string]string{"id": id})

	default:
		s.methodNotAllowed(w)
	}
}

// Routes under /series/{id}[/{action}...]
func (s *Server) handleSeriesDetail(w http.ResponseWriter, r *http.Request, session *auth.Session) {
	parts := pathParts(r.URL.Path, "/series/")
	if len(parts) == 0 {
		s.writeError(w, errNotFound, http.StatusNotFound)
		return
	}
	id := parts[0]

	switch {
	case len(parts) == 1:
		s.handleSeriesItem(w, r, id)
	case len(parts) == 2 && parts[1] == "export":
		s.handleSeriesExport(w, r, id)
	case len(parts) == 2 && parts[1] == "import":
		s.handleImportExisting(w, r, session, id)
	case len(parts) == 3 && parts[1] == "import" && parts[2] == "verify":
		s.handleImportVerify(w, r, id)
	default:
		s.writeError(w, errNotFound, http.StatusNotFound)
	}
}

func (s *Server) handleSeriesItem(w http.ResponseWriter, r *http.Request, id string) {
	if s.handleOptions(w, r, "GET, PUT, DELETE, OPTIONS") {
		return
	}

	switch r.Method {
	case http.MethodGet:
		doc, err := s.catalog.Get(r.Context(), id)
		if err != nil {
			s.writeSeriesError(w, err)
			return
		}
		writeJSON(w, r, doc)

	case http.MethodPut:
		var fields map[string]any
		if err := decodeBody(w, r, &fields); err != nil || fields == nil {
			s.writeError(w, errBadRequest, http.StatusBadRequest)
			return
		}
		if err := s.catalog.Update(r.Context(), id, fields); err != nil {
			s.writeSeriesError(w, err)
			return
		}
		doc, err := s.catalog.Get(r.Context(), id)
		if err != nil {
			s.writeSeriesError(w, err)
			return
		}
		writeJSON(w, r, doc)

	case http.MethodDelete:
		if err := s.catalog.Delete(r.Context(), id); err != nil {
			s.writeSeriesError(w, err)
			return
		}
		writeJSON(w, r, map[string]string{"status": "ok"})

	default:
		s.methodNotAllowed(w)
	}
}

func (s *Server) handleSeriesExport(w http.ResponseWriter, r *http.Request, id string) {
	if s.handleOptions(w, r, "GET, OPTIONS") {
		return
	}
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w)
		return
	}

	doc, err := s.catalog.Get(r.Context(), id)
	if err != nil {
		s.writeSeriesError(w, err)
		return
	}
	data, err := seriesjson.Export(doc)
	if err != nil {
		s.log.Error("export series failed", zap.String("id", id), zap.Error(err))
		s.writeError(w, errInternal, http.StatusInternalServerError)
		return
	}

	disposition := mime.FormatMediaType("attachment", map[string]string{
		"filename": seriesjson.ExportFilename(jsonvalue.Format(doc["title"])),
	})
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", disposition)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) writeSeriesError(w http.ResponseWriter, err error) {
	if catalog.IsNotFound(err) {
		s.writeError(w, "series not found", http.StatusNotFound)
		return
	}
	s.log.Error("series request failed", zap.Error(err))
	s.writeError(w, errInternal, http.StatusInternalServerError)
}
