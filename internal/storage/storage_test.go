package storage

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestStore(t *testing.T, opts ...Option) *Storage {
	t.Helper()
	path := filepath.Join(t.TempDir(), "store.json")
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	store, err := NewStorage(path, opts...)
	if err != nil {
		t.Fatalf("NewStorage error: %v", err)
	}
	return store
}

func createTestUser(t *testing.T, store *Storage, name string) string {
	t.Helper()
	user, err := store.CreateUser(CreateUserParams{
		Name:     name,
		Email:    fmt.Sprintf("%s@example.com", strings.ToLower(name)),
		Password: "a sturdy passphrase",
	})
	if err != nil {
		t.Fatalf("CreateUser(%s) error: %v", name, err)
	}
	return user.ID
}

func publishTestVideo(t *testing.T, store *Storage, ownerID, title string) string {
	t.Helper()
	video, err := store.PublishVideo(PublishVideoParams{
		OwnerID:         ownerID,
		FilePath:        "media/" + strings.ReplaceAll(title, " ", "-") + ".mp4",
		Thumbnail:       "thumbs/" + strings.ReplaceAll(title, " ", "-") + ".jpg",
		Title:           title,
		Category:        "music",
		DurationSeconds: 125,
	})
	if err != nil {
		t.Fatalf("PublishVideo(%s) error: %v", title, err)
	}
	return video.ID
}

func TestCreateUserValidation(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.CreateUser(CreateUserParams{Name: "", Email: "a@b.com", Password: "longenough"}); err == nil {
		t.Fatal("expected error for empty name")
	}
	if _, err := store.CreateUser(CreateUserParams{Name: "A", Email: "not-an-email", Password: "longenough"}); err == nil {
		t.Fatal("expected error for invalid email")
	}
	if _, err := store.CreateUser(CreateUserParams{Name: "A", Email: "a@b.com", Password: "short"}); err == nil {
		t.Fatal("expected error for short password")
	}
}

func TestCreateUserEnforcesEmailUniqueness(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.CreateUser(CreateUserParams{Name: "First", Email: "dup@example.com", Password: "longenough"}); err != nil {
		t.Fatalf("first CreateUser error: %v", err)
	}
	_, err := store.CreateUser(CreateUserParams{Name: "Second", Email: "DUP@example.com", Password: "longenough"})
	if !errors.Is(err, ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists for case-insensitive duplicate, got %v", err)
	}
}

func TestDataSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	store, err := NewStorage(path)
	if err != nil {
		t.Fatalf("NewStorage error: %v", err)
	}
	userID := createTestUser(t, store, "Persist")
	videoID := publishTestVideo(t, store, userID, "kept across restarts")

	reopened, err := NewStorage(path)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	if _, ok := reopened.GetUser(userID); !ok {
		t.Fatal("expected user to survive reopen")
	}
	video, ok := reopened.GetVideo(videoID)
	if !ok {
		t.Fatal("expected video to survive reopen")
	}
	if video.Title != "kept across restarts" {
		t.Fatalf("unexpected title after reopen: %q", video.Title)
	}
}

func TestPersistFailureLeavesDataUntouched(t *testing.T) {
	store := newTestStore(t)
	userID := createTestUser(t, store, "Stable")

	store.persistOverride = func(dataset) error { return errors.New("disk full") }

	_, err := store.RenameChannel(userID, "New Name")
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
	if !IsRetryable(err) {
		t.Fatal("expected persist failures to be retryable")
	}

	user, ok := store.GetUser(userID)
	if !ok {
		t.Fatal("user vanished after failed persist")
	}
	if user.Name != "Stable" {
		t.Fatalf("in-memory state mutated despite failed persist: %q", user.Name)
	}
}

func TestFindUserByEmailIsCaseInsensitive(t *testing.T) {
	store := newTestStore(t)
	userID := createTestUser(t, store, "Casey")

	found, ok := store.FindUserByEmail("CASEY@EXAMPLE.COM")
	if !ok || found.ID != userID {
		t.Fatalf("expected case-insensitive lookup to find %s, got ok=%v id=%s", userID, ok, found.ID)
	}
}

func TestListVideosNewestFirst(t *testing.T) {
	store := newTestStore(t)
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time {
		current = current.Add(time.Minute)
		return current
	}
	userID := createTestUser(t, store, "Uploader")
	publishTestVideo(t, store, userID, "first")
	publishTestVideo(t, store, userID, "second")

	videos := store.ListVideos()
	if len(videos) != 2 {
		t.Fatalf("expected 2 videos, got %d", len(videos))
	}
	if videos[0].Title != "second" || videos[1].Title != "first" {
		t.Fatalf("expected newest first, got %q then %q", videos[0].Title, videos[1].Title)
	}
}

func TestGetUserReturnsDeepCopy(t *testing.T) {
	store := newTestStore(t)
	userID := createTestUser(t, store, "Copied")
	if _, err := store.CreatePlaylist(userID, "watch later"); err != nil {
		t.Fatalf("CreatePlaylist error: %v", err)
	}

	first, _ := store.GetUser(userID)
	first.Playlists[0].Title = "tampered"

	second, _ := store.GetUser(userID)
	if second.Playlists[0].Title != "watch later" {
		t.Fatal("mutation through returned copy leaked into the store")
	}
}
