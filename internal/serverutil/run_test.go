package serverutil

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

type fakeRunner struct {
	startErr  error
	started   chan struct{}
	stop      chan struct{}
	shutdowns int
}

func newFakeRunner(startErr error) *fakeRunner {
	return &fakeRunner{
		startErr: startErr,
		started:  make(chan struct{}),
		stop:     make(chan struct{}),
	}
}

func (f *fakeRunner) Start() error {
	close(f.started)
	if f.startErr != nil {
		return f.startErr
	}
	<-f.stop
	return http.ErrServerClosed
}

func (f *fakeRunner) Shutdown(ctx context.Context) error {
	f.shutdowns++
	close(f.stop)
	return nil
}

func TestRunRequiresServer(t *testing.T) {
	if err := Run(context.Background(), Config{}); err == nil {
		t.Fatal("expected error when server is missing")
	}
}

func TestRunReturnsStartError(t *testing.T) {
	boom := errors.New("listen failed")
	runner := newFakeRunner(boom)
	err := Run(context.Background(), Config{Server: runner})
	if !errors.Is(err, boom) {
		t.Fatalf("expected start error, got %v", err)
	}
}

func TestRunShutsDownOnContextCancel(t *testing.T) {
	runner := newFakeRunner(nil)
	ready := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Config{Server: runner, Ready: ready, ShutdownTimeout: 2 * time.Second})
	}()

	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatal("ready channel was never closed")
	}
	<-runner.started

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("run did not return after cancellation")
	}

	if runner.shutdowns != 1 {
		t.Fatalf("expected one shutdown call, got %d", runner.shutdowns)
	}
}
