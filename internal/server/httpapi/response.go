package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/advn1/rback/internal/common"
	"github.com/advn1/rback/internal/server/services"
)

const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string                `json:"error"`
	Details []services.FieldError `json:"details"`
}

func detail(field string, messages ...string) []services.FieldError {
	return []services.FieldError{{Field: field, Messages: messages}}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, category string, details []services.FieldError) {
	if details == nil {
		details = []services.FieldError{}
	}
	writeJSON(w, status, ErrorResponse{Error: category, Details: details})
}

// decodeJSON reads a bounded JSON body into dst. On failure it has already
// written a 400.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", detail("body", "Request body must be a JSON object"))
		return false
	}
	return true
}

// isServerFault reports errors that map to a 5xx.
func isServerFault(err error) bool {
	var verr *services.ValidationError
	return !errors.As(err, &verr) &&
		!errors.Is(err, common.ErrInvalidInput) &&
		!errors.Is(err, common.ErrAlreadyExists) &&
		!errors.Is(err, common.ErrorUnauthorized) &&
		!errors.Is(err, common.ErrInvalidOrExpiredToken)
}

// writeServiceError maps service errors to status codes and bodies. Causes
// of storage and hashing failures are logged by the caller, never returned.
func writeServiceError(w http.ResponseWriter, err error, tokenField string) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, "Validation failed", verr.Fields)
	case errors.Is(err, common.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "Invalid refresh token", detail(tokenField, "Refresh token cannot be empty"))
	case errors.Is(err, common.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "Validation failed", detail("user", "User with this name or email already exists"))
	case errors.Is(err, common.ErrorUnauthorized):
		writeError(w, http.StatusUnauthorized, "Authentication failed", detail("credentials", "Invalid email or password"))
	case errors.Is(err, common.ErrInvalidOrExpiredToken):
		writeError(w, http.StatusUnauthorized, "Invalid refresh token", detail(tokenField, "The provided refresh token is invalid or expired"))
	case errors.Is(err, common.ErrStorage):
		writeError(w, http.StatusInternalServerError, "Database error", detail("database", "Database operation failed"))
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", nil)
	}
}
