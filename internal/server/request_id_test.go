package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"clipstream/internal/observability/logging"
)

func TestRequestIDMiddlewareGeneratesID(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = logging.RequestIDFromContext(r.Context())
	})

	handler := requestIDMiddlewareWithGenerator(nil, func() string { return "generated-id" }, next)
	req := httptest.NewRequest(http.MethodGet, "/api/videos", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seen != "generated-id" {
		t.Fatalf("expected generated request id in context, got %q", seen)
	}
	if rec.Header().Get("X-Request-Id") != "generated-id" {
		t.Fatalf("expected request id echoed on response, got %q", rec.Header().Get("X-Request-Id"))
	}
}

func TestRequestIDMiddlewarePreservesInboundID(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = logging.RequestIDFromContext(r.Context())
	})

	handler := requestIDMiddleware(nil, next)
	req := httptest.NewRequest(http.MethodGet, "/api/videos", nil)
	req.Header.Set("X-Request-Id", "upstream-77")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seen != "upstream-77" {
		t.Fatalf("expected inbound request id to win, got %q", seen)
	}
	if rec.Header().Get("X-Request-Id") != "upstream-77" {
		t.Fatalf("expected inbound id echoed, got %q", rec.Header().Get("X-Request-Id"))
	}
}

func TestNewRequestIDIsUnique(t *testing.T) {
	a := newRequestID()
	b := newRequestID()
	if a == "" || a == b {
		t.Fatalf("expected distinct non-empty ids, got %q and %q", a, b)
	}
}
