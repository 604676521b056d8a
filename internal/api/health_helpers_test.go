package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"clipstream/internal/storage"
)

func TestHealthzReportsComponents(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected health status: %d", rec.Code)
	}
	var payload struct {
		Status     string            `json:"status"`
		Components []componentStatus `json:"components"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	if payload.Status != "ok" || len(payload.Components) != 2 {
		t.Fatalf("unexpected health payload: %+v", payload)
	}
}

func TestReconcileEndpointReportsScan(t *testing.T) {
	handler, store := newTestHandler(t)
	owner, token := createTestAccount(t, handler, store, "Owner")
	video := publishTestVideo(t, store, owner.ID, "scanned")

	rec := httptest.NewRecorder()
	handler.Reconcile(rec, authenticated(httptest.NewRequest(http.MethodPost, "/api/admin/reconcile", nil), token))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected reconcile status: %d", rec.Code)
	}
	var report storage.ReconcileReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("failed to decode reconcile report: %v", err)
	}
	if report.UsersScanned != 1 || report.VideosScanned != 1 {
		t.Fatalf("unexpected scan counts: %+v", report)
	}
	if report.Repaired() != 0 {
		t.Fatalf("expected consistent dataset, got %+v", report)
	}
	if _, ok := store.GetVideo(video.ID); !ok {
		t.Fatal("expected video to survive reconcile")
	}
}

func TestReconcileRequiresAuth(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.Reconcile(rec, httptest.NewRequest(http.MethodPost, "/api/admin/reconcile", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected unauthorized, got %d", rec.Code)
	}
}
