package storage

import (
	"errors"
	"testing"
	"time"
)

func TestRecordWatchUpsertsSingleEntry(t *testing.T) {
	store := newTestStore(t)
	ownerID := createTestUser(t, store, "Owner")
	watcherID := createTestUser(t, store, "Watcher")
	videoID := publishTestVideo(t, store, ownerID, "watched")

	first, err := store.RecordWatch(watcherID, videoID, 10)
	if err != nil {
		t.Fatalf("RecordWatch error: %v", err)
	}
	if first.Position != 10 {
		t.Fatalf("expected position 10, got %f", first.Position)
	}
	if first.Title != "watched" || first.ID == "" {
		t.Fatalf("expected a snapshotted entry, got %+v", first)
	}

	second, err := store.RecordWatch(watcherID, videoID, 42)
	if err != nil {
		t.Fatalf("second RecordWatch error: %v", err)
	}
	if second.ID != first.ID {
		t.Fatal("re-watch must update the existing entry, not insert a new one")
	}
	if second.Position != 42 {
		t.Fatalf("expected position 42, got %f", second.Position)
	}

	history, err := store.ListHistory(watcherID)
	if err != nil {
		t.Fatalf("ListHistory error: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected exactly one entry per (user, video) pair, got %d", len(history))
	}
	if history[0].Position != 42 {
		t.Fatalf("expected updated position, got %f", history[0].Position)
	}
}

func TestRecordWatchClampsNegativePosition(t *testing.T) {
	store := newTestStore(t)
	ownerID := createTestUser(t, store, "Owner")
	videoID := publishTestVideo(t, store, ownerID, "rewound")

	entry, err := store.RecordWatch(ownerID, videoID, -5)
	if err != nil {
		t.Fatalf("RecordWatch error: %v", err)
	}
	if entry.Position != 0 {
		t.Fatalf("expected clamped position, got %f", entry.Position)
	}
}

func TestRecordWatchValidation(t *testing.T) {
	store := newTestStore(t)
	ownerID := createTestUser(t, store, "Owner")
	videoID := publishTestVideo(t, store, ownerID, "strict")

	if _, err := store.RecordWatch("", videoID, 0); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if _, err := store.RecordWatch(ownerID, "missing", 0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown video, got %v", err)
	}
	if _, err := store.RecordWatch("missing", videoID, 0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown user, got %v", err)
	}
}

func TestListHistoryMostRecentFirst(t *testing.T) {
	store := newTestStore(t)
	current := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time {
		current = current.Add(time.Minute)
		return current
	}
	ownerID := createTestUser(t, store, "Owner")
	watcherID := createTestUser(t, store, "Watcher")
	oldID := publishTestVideo(t, store, ownerID, "older")
	newID := publishTestVideo(t, store, ownerID, "newer")

	if _, err := store.RecordWatch(watcherID, oldID, 1); err != nil {
		t.Fatalf("RecordWatch error: %v", err)
	}
	if _, err := store.RecordWatch(watcherID, newID, 1); err != nil {
		t.Fatalf("RecordWatch error: %v", err)
	}

	history, _ := store.ListHistory(watcherID)
	if len(history) != 2 || history[0].VideoID != newID {
		t.Fatalf("expected most recent watch first, got %+v", history)
	}

	// A re-watch refreshes the timestamp and resurfaces the entry.
	if _, err := store.RecordWatch(watcherID, oldID, 2); err != nil {
		t.Fatalf("re-watch error: %v", err)
	}
	history, _ = store.ListHistory(watcherID)
	if len(history) != 2 || history[0].VideoID != oldID {
		t.Fatalf("expected re-watched video first, got %+v", history)
	}
}

func TestRemoveHistoryEntry(t *testing.T) {
	store := newTestStore(t)
	ownerID := createTestUser(t, store, "Owner")
	watcherID := createTestUser(t, store, "Watcher")
	videoID := publishTestVideo(t, store, ownerID, "forgotten")

	if _, err := store.RecordWatch(watcherID, videoID, 3); err != nil {
		t.Fatalf("RecordWatch error: %v", err)
	}
	if err := store.RemoveHistoryEntry(watcherID, videoID); err != nil {
		t.Fatalf("RemoveHistoryEntry error: %v", err)
	}
	history, _ := store.ListHistory(watcherID)
	if len(history) != 0 {
		t.Fatalf("expected empty history, got %d entries", len(history))
	}

	// Removing an absent entry is a no-op, not an error.
	if err := store.RemoveHistoryEntry(watcherID, videoID); err != nil {
		t.Fatalf("repeat removal should be a no-op, got %v", err)
	}
	if err := store.RemoveHistoryEntry("missing", videoID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown user, got %v", err)
	}
}
