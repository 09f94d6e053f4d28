package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	models "fin-ledger/models_package"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// statusOf maps a domain error to its status code and the message shown to
// the client. Unknown errors become a generic 500 so that internals never
// leak into responses.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, models.ErrDuplicateUser):
		return http.StatusBadRequest, "User already exists"
	case errors.Is(err, models.ErrPasswordTooLong):
		return http.StatusBadRequest, "Password too long"
	case errors.Is(err, models.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, models.ErrUnauthenticated), errors.Is(err, models.ErrInvalidToken):
		return http.StatusUnauthorized, "Could not validate credentials"
	case errors.Is(err, models.ErrInvalidRecipient):
		return http.StatusBadRequest, "Invalid user send to"
	case errors.Is(err, models.ErrBankNotFound):
		return http.StatusNotFound, "Bank not found"
	case errors.Is(err, models.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, "Storage unavailable"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func (s *Server) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := statusOf(err)
	if code >= http.StatusInternalServerError {
		s.log.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	} else {
		s.log.DebugContext(r.Context(), "request rejected", "path", r.URL.Path, "status", code, "error", err)
	}
	if code == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	writeJSON(w, code, map[string]string{"error": msg})
}
