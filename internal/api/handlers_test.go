package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"clipstream/internal/models"
	"clipstream/internal/storage"
)

func TestWriteStorageErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", storage.ErrNotFound, http.StatusNotFound},
		{"not owner", storage.ErrNotOwner, http.StatusForbidden},
		{"unauthenticated", storage.ErrUnauthenticated, http.StatusUnauthorized},
		{"invalid credentials", storage.ErrInvalidCredentials, http.StatusUnauthorized},
		{"self subscribe", storage.ErrSelfSubscribe, http.StatusUnprocessableEntity},
		{"email exists", storage.ErrEmailExists, http.StatusConflict},
		{"constraint violation", storage.ErrConstraintViolation, http.StatusConflict},
		{"storage timeout", storage.ErrStorageTimeout, http.StatusServiceUnavailable},
		{"storage unavailable", storage.ErrStorageUnavailable, http.StatusServiceUnavailable},
		{"wrapped sentinel", fmt.Errorf("video x: %w", storage.ErrNotFound), http.StatusNotFound},
		{"validation fallback", fmt.Errorf("title is required"), http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeStorageError(rec, tc.err)
			if rec.Code != tc.want {
				t.Fatalf("expected status %d, got %d", tc.want, rec.Code)
			}
			var payload map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
				t.Fatalf("error body must be JSON: %v", err)
			}
			if payload["error"] == "" {
				t.Fatalf("expected error message in body, got %q", rec.Body.String())
			}
		})
	}
}

func TestMethodNotAllowedSetsAllowHeader(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.Search(rec, httptest.NewRequest(http.MethodPost, "/api/search", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
	if allow := rec.Header().Get("Allow"); allow != "GET" {
		t.Fatalf("expected Allow header GET, got %q", allow)
	}
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	handler, _ := newTestHandler(t)

	body := bytes.NewBufferString(`{"email":"a@example.com","password":"pw","extra":true}`)
	rec := httptest.NewRecorder()
	handler.Login(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", body))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected bad request for unknown field, got %d", rec.Code)
	}
}

func TestChannelResponseOmitsPrivateFields(t *testing.T) {
	user := models.User{
		ID:           "u1",
		Name:         "Public Channel",
		Email:        "secret@example.com",
		PasswordHash: "pbkdf2$sha256$1$salt$key",
		Subscribers:  9,
	}
	encoded, err := json.Marshal(newChannelResponse(user))
	if err != nil {
		t.Fatalf("marshal channel response: %v", err)
	}
	raw := string(encoded)
	if strings.Contains(raw, "secret@example.com") || strings.Contains(raw, "pbkdf2") {
		t.Fatalf("channel response leaks private fields: %s", raw)
	}
	if !strings.Contains(raw, "Public Channel") {
		t.Fatalf("channel response missing public fields: %s", raw)
	}
}
