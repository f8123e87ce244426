package auth

import "errors"

// Code classifies an authentication failure. Values mirror the provider codes
// the dashboard already knows how to render.
type Code string

const (
	CodeInvalidCredential Code = "auth/invalid-credential"
	CodeUserNotFound      Code = "auth/user-not-found"
	CodeWrongPassword     Code = "auth/wrong-password"
	CodeInvalidToken      Code = "auth/invalid-token"
	CodeTokenExpired      Code = "auth/token-expired"
	CodeUserExists        Code = "auth/user-exists"
)

// Error is a classified authentication error.
type Error struct {
	Code Code
}

func (e *Error) Error() string {
	return "auth: " + string(e.Code)
}

// Is matches any *Error carrying the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrInvalidCredential = &Error{Code: CodeInvalidCredential}
	ErrUserNotFound      = &Error{Code: CodeUserNotFound}
	ErrWrongPassword     = &Error{Code: CodeWrongPassword}
	ErrInvalidToken      = &Error{Code: CodeInvalidToken}
	ErrTokenExpired      = &Error{Code: CodeTokenExpired}
	ErrUserExists        = &Error{Code: CodeUserExists}
)

// CodeOf extracts the classification code from err, if any.
func CodeOf(err error) (Code, bool) {
	var authErr *Error
	if errors.As(err, &authErr) {
		return authErr.Code, true
	}
	return "", false
}

var messages = map[Code]string{
	CodeInvalidCredential: "Email o password non valide",
	CodeUserNotFound:      "Utente non trovato",
	CodeWrongPassword:     "Password errata",
	CodeInvalidToken:      "Sessione non valida",
	CodeTokenExpired:      "Sessione scaduta, effettua di nuovo l'accesso",
	CodeUserExists:        "Utente già esistente",
}

const (
	fallbackAuthMessage  = "Errore di autenticazione"
	fallbackLoginMessage = "Errore durante il login"
)

// Message returns the user-facing text for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	code, ok := CodeOf(err)
	if !ok {
		return fallbackLoginMessage
	}
	if msg, ok := messages[code]; ok {
		return msg
	}
	return fallbackAuthMessage
}
