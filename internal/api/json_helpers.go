package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"clipstream/internal/storage"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// WriteError is an exported helper for returning JSON API errors.
func WriteError(w http.ResponseWriter, status int, err error) {
	writeError(w, status, err)
}

func decodeJSON(r *http.Request, dest interface{}) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func errMethodNotAllowed(method string) error {
	return fmt.Errorf("method %s not allowed", method)
}

// writeStorageError maps datastore sentinel errors onto HTTP statuses.
// Retryable failures surface as 503 so clients know to retry.
func writeStorageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, storage.ErrNotOwner):
		writeError(w, http.StatusForbidden, err)
	case errors.Is(err, storage.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, err)
	case errors.Is(err, storage.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err)
	case errors.Is(err, storage.ErrSelfSubscribe):
		writeError(w, http.StatusUnprocessableEntity, err)
	case errors.Is(err, storage.ErrEmailExists):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, storage.ErrConstraintViolation):
		writeError(w, http.StatusConflict, err)
	case storage.IsRetryable(err):
		writeError(w, http.StatusServiceUnavailable, err)
	default:
		writeError(w, http.StatusBadRequest, err)
	}
}
