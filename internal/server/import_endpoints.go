package server

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/treefix50/recapadmin/internal/auth"
	"github.com/treefix50/recapadmin/internal/importer"
	"github.com/treefix50/recapadmin/internal/seriesjson"
)

// importRequest carries the pasted JSON text and the operator's two
// confirmations.
type importRequest struct {
	JSON          string `json:"json"`
	FirstConfirm  bool   `json:"firstConfirm"`
	SecondConfirm bool   `json:"secondConfirm"`
}

type verifyResponse struct {
	Valid   bool                `json:"valid"`
	Changes []seriesjson.Change `json:"changes"`
}

// handleImportVerify handles POST /series/{id}/import/verify
func (s *Server) handleImportVerify(w http.ResponseWriter, r *http.Request, id string) {
	if s.handleOptions(w, r, "POST, OPTIONS") {
		return
	}
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w)
		return
	}

	current, err := s.catalog.Get(r.Context(), id)
	if err != nil {
		s.writeSeriesError(w, err)
		return
	}

	req, ok := s.decodeImportRequest(w, r)
	if !ok {
		return
	}
	verification, ok := s.verify(w, importer.NewWorkflow(s.importer, current), req)
	if !ok {
		return
	}

	changes := verification.Changes
	if changes == nil {
		changes = []seriesjson.Change{}
	}
	writeJSON(w, r, verifyResponse{Valid: true, Changes: changes})
}

// handleImportPreview handles POST /import/preview
func (s *Server) handleImportPreview(w http.ResponseWriter, r *http.Request, _ *auth.Session) {
	if s.handleOptions(w, r, "POST, OPTIONS") {
		return
	}
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w)
		return
	}

	req, ok := s.decodeImportRequest(w, r)
	if !ok {
		return
	}
	verification, ok := s.verify(w, importer.NewWorkflow(s.importer, nil), req)
	if !ok {
		return
	}
	writeJSON(w, r, verification.Preview)
}

// handleImportExisting handles POST /series/{id}/import
func (s *Server) handleImportExisting(w http.ResponseWriter, r *http.Request, session *auth.Session, id string) {
	if s.handleOptions(w, r, "POST, OPTIONS") {
		return
	}
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w)
		return
	}

	current, err := s.catalog.Get(r.Context(), id)
	if err != nil {
		s.writeSeriesError(w, err)
		return
	}
	s.runImport(w, r, session, importer.NewWorkflow(s.importer, current))
}

// handleImportNew handles POST /import
func (s *Server) handleImportNew(w http.ResponseWriter, r *http.Request, session *auth.Session) {
	if s.handleOptions(w, r, "POST, OPTIONS") {
		return
	}
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w)
		return
	}
	s.runImport(w, r, session, importer.NewWorkflow(s.importer, nil))
}

func (s *Server) runImport(w http.ResponseWriter, r *http.Request, session *auth.Session, wf *importer.Workflow) {
	req, ok := s.decodeImportRequest(w, r)
	if !ok {
		return
	}
	if _, ok := s.verify(w, wf, req); !ok {
		return
	}

	if req.FirstConfirm {
		_ = wf.Confirm()
	}
	if req.SecondConfirm {
		_ = wf.Confirm()
	}

	result, err := wf.Import(r.Context())
	if errors.Is(err, importer.ErrInvalidTransition) {
		s.writeError(w, "import requires both confirmations", http.StatusPreconditionRequired)
		return
	}
	if err != nil {
		s.writeError(w, errInternal, http.StatusInternalServerError)
		return
	}

	s.log.Info("import requested",
		zap.String("by", session.Email),
		zap.Bool("success", result.Success),
		zap.String("seriesId", result.SeriesID),
	)

	switch {
	case result.Success && result.Action == importer.ActionCreated:
		writeJSONStatus(w, r, http.StatusCreated, result)
	case result.Success:
		writeJSON(w, r, result)
	case errors.Is(result.Err(), importer.ErrImportInProgress):
		writeJSONStatus(w, r, http.StatusConflict, result)
	default:
		writeJSONStatus(w, r, http.StatusUnprocessableEntity, result)
	}
}

func (s *Server) decodeImportRequest(w http.ResponseWriter, r *http.Request) (importRequest, bool) {
	var req importRequest
	if err := decodeBody(w, r, &req); err != nil {
		if isMaxBytes(err) {
			s.writeError(w, "request body too large", http.StatusRequestEntityTooLarge)
			return req, false
		}
		s.writeError(w, errBadRequest, http.StatusBadRequest)
		return req, false
	}
	return req, true
}

func (s *Server) verify(w http.ResponseWriter, wf *importer.Workflow, req importRequest) (importer.Verification, bool) {
	if err := wf.SetText([]byte(req.JSON)); err != nil {
		s.writeError(w, err.Error(), http.StatusConflict)
		return importer.Verification{}, false
	}
	verification, err := wf.Verify()
	if err != nil {
		s.writeError(w, err.Error(), http.StatusUnprocessableEntity)
		return importer.Verification{}, false
	}
	return verification, true
}
