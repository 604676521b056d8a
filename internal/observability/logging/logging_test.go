package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewRespectsLevelAndFormat(t *testing.T) {
	var buffer bytes.Buffer
	logger := New(Config{Level: "warn", Writer: &buffer, Format: "json"})

	logger.Info("ignored")
	logger.Warn("kept", "key", "value")

	output := buffer.String()
	if strings.Contains(output, "ignored") {
		t.Fatalf("expected info record to be filtered, got:\n%s", output)
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(output)), &record); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", output, err)
	}
	if record["msg"] != "kept" || record["key"] != "value" {
		t.Fatalf("unexpected record: %v", record)
	}
}

func TestTextFormat(t *testing.T) {
	var buffer bytes.Buffer
	logger := New(Config{Writer: &buffer, Format: "text"})
	logger.Info("hello")
	if !strings.Contains(buffer.String(), "msg=hello") {
		t.Fatalf("expected text output, got %q", buffer.String())
	}
}

func TestWithContextAnnotations(t *testing.T) {
	var buffer bytes.Buffer
	logger := New(Config{Writer: &buffer, Format: "json"})

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithVideoID(ctx, "vid-1")
	WithContext(ctx, logger).Info("annotated")

	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buffer.Bytes()), &record); err != nil {
		t.Fatalf("decode log record: %v", err)
	}
	if record["request_id"] != "req-1" {
		t.Fatalf("expected request_id annotation, got %v", record)
	}
	if record["video_id"] != "vid-1" {
		t.Fatalf("expected video_id annotation, got %v", record)
	}
}

func TestContextHelpersIgnoreEmptyValues(t *testing.T) {
	ctx := ContextWithRequestID(context.Background(), "  ")
	if _, ok := RequestIDFromContext(ctx); ok {
		t.Fatal("expected blank request id to be dropped")
	}
}

func TestRequestLoggerCapturesStatus(t *testing.T) {
	var buffer bytes.Buffer
	logger := New(Config{Writer: &buffer, Format: "json"})

	handler := RequestLogger(RequestLoggerConfig{Logger: logger})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	request := httptest.NewRequest(http.MethodPost, "/api/videos", nil)
	response := httptest.NewRecorder()
	handler.ServeHTTP(response, request)

	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buffer.Bytes()), &record); err != nil {
		t.Fatalf("decode log record: %v", err)
	}
	if record["msg"] != "request completed" {
		t.Fatalf("unexpected message: %v", record["msg"])
	}
	if status, ok := record["status"].(float64); !ok || int(status) != http.StatusCreated {
		t.Fatalf("expected status 201, got %v", record["status"])
	}
}
