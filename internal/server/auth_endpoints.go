package server

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/treefix50/recapadmin/internal/auth"
)

type sessionHandler func(w http.ResponseWriter, r *http.Request, session *auth.Session)

// authenticated rejects requests without a valid bearer token. Preflight
// requests pass through with a nil session.
func (s *Server) authenticated(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next(w, r, nil)
			return
		}
		session, err := s.requireAuth(r)
		if err != nil {
			s.writeAuthError(w, err)
			return
		}
		next(w, r, session)
	}
}

// handleAuthLogin handles user login
func (s *Server) handleAuthLogin(w http.ResponseWriter, r *http.Request) {
	if s.handleOptions(w, r, "POST, OPTIONS") {
		return
	}

	if r.Method != http.MethodPost {
		s.methodNotAllowed(w)
		return
	}

	if s.authManager == nil {
		s.writeError(w, "authentication not available", http.StatusNotImplemented)
		return
	}

	if ok, wait := s.loginLimiter.Allow(clientIP(r)); !ok {
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		s.writeError(w, "too many login attempts", http.StatusTooManyRequests)
		return
	}

	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := decodeBody(w, r, &payload); err != nil {
		s.writeError(w, errBadRequest, http.StatusBadRequest)
		return
	}

	session, err := s.authManager.SignIn(r.Context(), payload.Email, payload.Password)
	if err != nil {
		s.log.Info("login failed", zap.String("email", payload.Email), zap.Error(err))
		s.writeAuthError(w, err)
		return
	}

	writeJSON(w, r, session)
}

// handleAuthLogout handles user logout
func (s *Server) handleAuthLogout(w http.ResponseWriter, r *http.Request) {
	if s.handleOptions(w, r, "POST, OPTIONS") {
		return
	}

	if r.Method != http.MethodPost {
		s.methodNotAllowed(w)
		return
	}

	if s.authManager == nil {
		s.writeError(w, "authentication not available", http.StatusNotImplemented)
		return
	}

	token := extractToken(r)
	if token == "" {
		s.writeAuthError(w, auth.ErrInvalidToken)
		return
	}

	if err := s.authManager.SignOut(r.Context(), token); err != nil {
		s.writeError(w, errInternal, http.StatusInternalServerError)
		return
	}

	writeJSON(w, r, map[string]string{"status": "ok"})
}

// handleAuthSession validates the current session
func (s *Server) handleAuthSession(w http.ResponseWriter, r *http.Request) {
	if s.handleOptions(w, r, "GET, OPTIONS") {
		return
	}

	if r.Method != http.MethodGet {
		s.methodNotAllowed(w)
		return
	}

	session, err := s.requireAuth(r)
	if err != nil {
		s.writeAuthError(w, err)
		return
	}

	writeJSON(w, r, session)
}

// handleAuthUsers lists and creates accounts (admin only)
func (s *Server) handleAuthUsers(w http.ResponseWriter, r *http.Request, session *auth.Session) {
	if s.handleOptions(w, r, "GET, POST, OPTIONS") {
		return
	}

	if !session.IsAdmin {
		s.writeError(w, "admin access required", http.StatusForbidden)
		return
	}

	switch r.Method {
	case http.MethodGet:
		users, err := s.authManager.ListUsers(r.Context())
		if err != nil {
			s.writeError(w, errInternal, http.StatusInternalServerError)
			return
		}
		if users == nil {
			users = []auth.User{}
		}
		writeJSON(w, r, users)

	case http.MethodPost:
		var payload struct {
			Email    string `json:"email"`
			Password string `json:"password"`
			IsAdmin  bool   `json:"isAdmin"`
		}

		if err := decodeBody(w, r, &payload); err != nil {
			s.writeError(w, errBadRequest, http.StatusBadRequest)
			return
		}

		user, err := s.authManager.CreateUser(r.Context(), payload.Email, payload.Password, payload.IsAdmin)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrUserExists):
				s.writeError(w, auth.Message(err), http.StatusConflict)
			case errors.Is(err, auth.ErrInvalidCredential):
				s.writeError(w, auth.Message(err), http.StatusBadRequest)
			default:
				s.writeError(w, errInternal, http.StatusInternalServerError)
			}
			return
		}

		s.log.Info("user created", zap.String("id", user.ID), zap.String("by", session.Email))
		writeJSONStatus(w, r, http.StatusCreated, user)

	default:
		s.methodNotAllowed(w)
	}
}

// handleAuthUserPassword handles POST /auth/users/{id}/password
func (s *Server) handleAuthUserPassword(w http.ResponseWriter, r *http.Request, session *auth.Session) {
	if s.handleOptions(w, r, "POST, OPTIONS") {
		return
	}

	if r.Method != http.MethodPost {
		s.methodNotAllowed(w)
		return
	}

	parts := pathParts(r.URL.Path, "/auth/users/")
	if len(parts) != 2 || parts[1] != "password" {
		s.writeError(w, errNotFound, http.StatusNotFound)
		return
	}
	userID := parts[0]

	var payload struct {
		OldPassword string `json:"oldPassword"`
		NewPassword string `json:"newPassword"`
	}

	if err := decodeBody(w, r, &payload); err != nil {
		s.writeError(w, errBadRequest, http.StatusBadRequest)
		return
	}

	// Users can only change their own password unless they're admin
	if userID != session.UserID && !session.IsAdmin {
		s.writeError(w, "forbidden", http.StatusForbidden)
		return
	}

	oldPassword := payload.OldPassword
	if session.IsAdmin && userID != session.UserID {
		// admin reset
		oldPassword = ""
	} else if strings.TrimSpace(oldPassword) == "" {
		s.writeError(w, "old and new passwords are required", http.StatusBadRequest)
		return
	}

	if err := s.authManager.ChangePassword(r.Context(), userID, oldPassword, payload.NewPassword); err != nil {
		switch {
		case errors.Is(err, auth.ErrWrongPassword):
			s.writeError(w, auth.Message(err), http.StatusUnauthorized)
		case errors.Is(err, auth.ErrInvalidCredential):
			s.writeError(w, "new password is required", http.StatusBadRequest)
		case errors.Is(err, auth.ErrUserNotFound):
			s.writeError(w, auth.Message(err), http.StatusNotFound)
		default:
			s.writeError(w, errInternal, http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, r, map[string]string{"status": "ok"})
}

// writeAuthError reports a classified auth failure with its code and the
// user-facing message.
func (s *Server) writeAuthError(w http.ResponseWriter, err error) {
	status := http.StatusUnauthorized
	code, ok := auth.CodeOf(err)
	if !ok {
		s.log.Error("authentication failed", zap.Error(err))
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": auth.Message(err),
		"code":  string(code),
	})
}

// requireAuth validates the session and returns it
func (s *Server) requireAuth(r *http.Request) (*auth.Session, error) {
	if s.authManager == nil {
		return nil, auth.ErrInvalidToken
	}

	token := extractToken(r)
	if token == "" {
		return nil, auth.ErrInvalidToken
	}

	return s.authManager.ValidateSession(r.Context(), token)
}

// extractToken extracts the bearer token from the Authorization header
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return parts[1]
}
