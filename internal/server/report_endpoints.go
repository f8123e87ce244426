package server

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/treefix50/recapadmin/internal/auth"
	"github.com/treefix50/recapadmin/internal/reports"
)

// handleReports handles GET and POST /reports
func (s *Server) handleReports(w http.ResponseWriter, r *http.Request, session *auth.Session) {
	if s.handleOptions(w, r, "GET, POST, OPTIONS") {
		return
	}

	switch r.Method {
	case http.MethodGet:
		filter, err := reports.ParseFilter(r.URL.Query().Get("status"))
		if err != nil {
			s.writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		list, err := s.reports.List(r.Context(), filter)
		if err != nil {
			s.log.Error("list reports failed", zap.Error(err))
			s.writeError(w, errInternal, http.StatusInternalServerError)
			return
		}
		writeJSON(w, r, list)

	case http.MethodPost:
		var report reports.Report
		if err := decodeBody(w, r, &report); err != nil {
			s.writeError(w, errBadRequest, http.StatusBadRequest)
			return
		}
		if report.UserEmail == "" {
			report.UserEmail = session.Email
		}
		id, err := s.reports.Submit(r.Context(), report)
		if err != nil {
			if errors.Is(err, reports.ErrInvalidReport) {
				s.writeError(w, err.Error(), http.StatusBadRequest)
				return
			}
			s.writeError(w, errInternal, http.StatusInternalServerError)
			return
		}
		writeJSONStatus(w, r, http.StatusCreated, map[string]string{"id": id})

	default:
		s.methodNotAllowed(w)
	}
}

// handleReportReview handles POST /reports/{id}/review
func (s *Server) handleReportReview(w http.ResponseWriter, r *http.Request, session *auth.Session) {
	if s.handleOptions(w, r, "POST, OPTIONS") {
		return
	}

	parts := pathParts(r.URL.Path, "/reports/")
	if len(parts) != 2 || parts[1] != "review" {
		s.writeError(w, errNotFound, http.StatusNotFound)
		return
	}
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w)
		return
	}

	var payload struct {
		Status reports.Status `json:"status"`
	}
	if err := decodeBody(w, r, &payload); err != nil {
		s.writeError(w, errBadRequest, http.StatusBadRequest)
		return
	}

	err := s.reports.Review(r.Context(), parts[0], payload.Status, session.Email)
	switch {
	case err == nil:
		writeJSON(w, r, map[string]string{"status": string(payload.Status)})
	case errors.Is(err, reports.ErrInvalidStatus):
		s.writeError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, reports.ErrNotFound):
		s.writeError(w, "report not found", http.StatusNotFound)
	default:
		s.log.Error("review report failed", zap.Error(err))
		s.writeError(w, errInternal, http.StatusInternalServerError)
	}
}
