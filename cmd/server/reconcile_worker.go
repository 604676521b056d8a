package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"clipstream/internal/storage"
)

type reconciler interface {
	Reconcile(ctx context.Context) (storage.ReconcileReport, error)
}

// startReconcileWorker runs periodic consistency sweeps against the datastore.
// Each sweep scans every user and video, repairs stale denormalized copies,
// and logs a summary. A zero interval disables the worker.
func startReconcileWorker(ctx context.Context, logger *slog.Logger, store reconciler, interval time.Duration) func() {
	return startReconcileWorkerWithTicker(ctx, logger, store, interval, func(d time.Duration) purgeTicker {
		return timeTicker{ticker: time.NewTicker(d)}
	})
}

func startReconcileWorkerWithTicker(
	ctx context.Context,
	logger *slog.Logger,
	store reconciler,
	interval time.Duration,
	newTicker tickerFactory,
) func() {
	if store == nil || interval <= 0 {
		return func() {}
	}
	workerCtx, cancel := context.WithCancel(ctx)
	ticker := newTicker(interval)
	done := make(chan struct{})
	go func() {
		defer func() {
			ticker.Stop()
			close(done)
		}()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C():
				report, err := store.Reconcile(workerCtx)
				if err != nil {
					if logger != nil {
						logger.Error("consistency sweep failed", "error", err)
					}
					continue
				}
				if logger != nil {
					logger.Info("consistency sweep completed",
						"users_scanned", report.UsersScanned,
						"videos_scanned", report.VideosScanned,
						"owner_snapshots_fixed", report.OwnerSnapshotsFixed,
						"subscriptions_fixed", report.SubscriptionsFixed,
						"owned_videos_fixed", report.OwnedVideosFixed,
						"subscriber_counts_fixed", report.SubscriberCountsFixed,
						"history_entries_fixed", report.HistoryEntriesFixed,
						"orphan_snapshots_pruned", report.OrphanSnapshotsPruned,
						"playlist_refs_cleared", report.PlaylistRefsCleared,
						"duration_ms", report.Duration.Milliseconds())
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}
