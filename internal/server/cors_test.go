package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func newCORSTestHandler(t *testing.T, origins ...string) http.Handler {
	t.Helper()
	policy, err := newCORSPolicy(CORSConfig{AllowedOrigins: origins})
	if err != nil {
		t.Fatalf("newCORSPolicy error: %v", err)
	}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return corsMiddleware(policy, nil, next)
}

func TestCORSMiddlewareAllowsConfiguredOrigin(t *testing.T) {
	handler := newCORSTestHandler(t, "https://app.example.com")

	req := httptest.NewRequest(http.MethodGet, "/api/videos", nil)
	req.Header.Set("Origin", "https://APP.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "https://APP.example.com" {
		t.Fatalf("expected origin echo, got %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}
	if rec.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatal("expected credentials header")
	}
	if rec.Header().Get("Vary") != "Origin" {
		t.Fatal("expected Vary: Origin")
	}
}

func TestCORSMiddlewareBlocksUnknownOrigin(t *testing.T) {
	handler := newCORSTestHandler(t, "https://app.example.com")

	req := httptest.NewRequest(http.MethodGet, "/api/videos", nil)
	req.Header.Set("Origin", "https://evil.example.net")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestCORSMiddlewareAllowsSameOrigin(t *testing.T) {
	handler := newCORSTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/videos", nil)
	req.Host = "clipstream.example.com"
	req.Header.Set("Origin", "http://clipstream.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected same-origin request to pass, got %d", rec.Code)
	}
}

func TestCORSMiddlewareHandlesPreflight(t *testing.T) {
	handler := newCORSTestHandler(t, "https://app.example.com")

	req := httptest.NewRequest(http.MethodOptions, "/api/videos", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 preflight, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Fatal("expected allowed methods header")
	}
	if rec.Header().Get("Access-Control-Allow-Headers") != "Content-Type" {
		t.Fatalf("expected requested headers echo, got %q", rec.Header().Get("Access-Control-Allow-Headers"))
	}
}

func TestCORSMiddlewareIgnoresRequestsWithoutOrigin(t *testing.T) {
	handler := newCORSTestHandler(t, "https://app.example.com")

	req := httptest.NewRequest(http.MethodGet, "/api/videos", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected passthrough, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatal("expected no CORS headers without an Origin header")
	}
}

func TestNormalizeOrigin(t *testing.T) {
	got, err := normalizeOrigin(" HTTPS://App.Example.com ")
	if err != nil {
		t.Fatalf("normalizeOrigin error: %v", err)
	}
	if got != "https://app.example.com" {
		t.Fatalf("unexpected normalization: %q", got)
	}
	if _, err := normalizeOrigin("app.example.com"); err == nil {
		t.Fatal("expected error for origin without scheme")
	}
}
