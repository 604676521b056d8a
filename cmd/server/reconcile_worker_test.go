package main

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"clipstream/internal/storage"
)

type fakeReconciler struct {
	calls chan struct{}
}

func (f *fakeReconciler) Reconcile(ctx context.Context) (storage.ReconcileReport, error) {
	select {
	case f.calls <- struct{}{}:
	default:
	}
	return storage.ReconcileReport{UsersScanned: 1}, nil
}

func TestStartReconcileWorker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ticker := newManualTicker()
	store := &fakeReconciler{calls: make(chan struct{}, 1)}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	stop := startReconcileWorkerWithTicker(ctx, logger, store, time.Minute, func(time.Duration) purgeTicker {
		return ticker
	})

	ticker.Tick()
	select {
	case <-store.calls:
	case <-time.After(time.Second):
		t.Fatal("expected reconcile sweep to run")
	}

	cancel()
	stop()

	select {
	case <-ticker.stopped:
	case <-time.After(time.Second):
		t.Fatal("expected ticker to stop after context cancellation")
	}
}

func TestStartReconcileWorkerDisabled(t *testing.T) {
	stop := startReconcileWorker(context.Background(), nil, nil, 0)
	stop()
}
