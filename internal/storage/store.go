// Package storage implements the denormalized consistency engine for the
// clipstream datastore: two canonical collections (users, videos) with
// embedded snapshots, a replication layer that fans canonical mutations out
// to every mirror in a fixed order, idempotent relationship toggles, the
// event-to-notification mapper, and the watch-history upsert.
//
// All synchronization happens here. Each public operation takes the store
// lock, applies its fan-out steps to a cloned dataset using single-document
// primitives, persists the result atomically, and swaps it in. No
// multi-document transaction is assumed by callers: every step is written so
// that re-applying it after a retry is a no-op.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"clipstream/internal/models"
	"clipstream/internal/observability/metrics"
)

type Storage struct {
	mu       sync.RWMutex
	filePath string
	data     dataset
	logger   *slog.Logger
	metrics  *metrics.Recorder
	now      func() time.Time
	// persistOverride allows tests to intercept persist operations.
	persistOverride func(dataset) error
}

// NewStorage opens (or creates) the JSON-file-backed store at path.
func NewStorage(path string, opts ...Option) (*Storage, error) {
	store := &Storage{
		filePath: path,
		logger:   slog.Default(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt.applyJSON(store)
		}
	}
	if store.logger == nil {
		store.logger = slog.Default()
	}
	if err := store.load(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *Storage) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	file, err := os.Open(s.filePath)
	if errors.Is(err, os.ErrNotExist) {
		s.data = newDataset()
		return nil
	} else if err != nil {
		return fmt.Errorf("open store file: %w", err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&s.data); err != nil {
		if errors.Is(err, io.EOF) {
			s.data = newDataset()
			return nil
		}
		return fmt.Errorf("decode store file: %w", err)
	}
	if s.data.Users == nil {
		s.data.Users = make(map[string]models.User)
	}
	if s.data.Videos == nil {
		s.data.Videos = make(map[string]models.Video)
	}
	return nil
}

// commit persists the updated dataset and swaps it in. The caller must hold
// the write lock. A failed persist leaves the in-memory dataset untouched and
// is reported as a retryable storage failure.
func (s *Storage) commit(updated dataset) error {
	if err := s.persistDataset(updated); err != nil {
		if s.metrics != nil {
			s.metrics.ObservePersistFailure()
		}
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	s.data = updated
	return nil
}

// observeFanout records mirror write counts when a recorder is attached.
func (s *Storage) observeFanout(operation, collection string, documents int) {
	if s.metrics != nil {
		s.metrics.ObserveFanout(operation, collection, documents)
	}
}

func (s *Storage) observeNotification(event string) {
	if s.metrics != nil {
		s.metrics.ObserveNotification(event)
	}
}

func (s *Storage) observeVideoEvent(event string) {
	if s.metrics != nil {
		s.metrics.ObserveVideoEvent(event)
	}
}

func (s *Storage) persistDataset(data dataset) error {
	if s.persistOverride != nil {
		if err := s.persistOverride(data); err != nil {
			return err
		}
	}

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, "store-*.json")
	if err != nil {
		return fmt.Errorf("create temp store file: %w", err)
	}
	tmpPath := tmpFile.Name()
	success := false
	defer func() {
		if !success {
			_ = tmpFile.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	encoder := json.NewEncoder(tmpFile)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encode store file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("flush store file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp store file: %w", err)
	}
	if err := os.Rename(tmpPath, s.filePath); err != nil {
		return fmt.Errorf("replace store file: %w", err)
	}
	success = true
	return nil
}

// Ping reports whether the backing file can currently be written.
func (s *Storage) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageTimeout, err)
	}
	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

func cloneUser(user models.User) models.User {
	cloned := user
	if user.Subscriptions != nil {
		cloned.Subscriptions = append([]models.SubscriptionEntry(nil), user.Subscriptions...)
	}
	if user.Videos != nil {
		cloned.Videos = append([]models.OwnedVideoEntry(nil), user.Videos...)
	}
	if user.History != nil {
		cloned.History = append([]models.HistoryEntry(nil), user.History...)
	}
	if user.Notifications != nil {
		cloned.Notifications = append([]models.Notification(nil), user.Notifications...)
	}
	if user.Playlists != nil {
		cloned.Playlists = make([]models.Playlist, len(user.Playlists))
		for i, playlist := range user.Playlists {
			copied := playlist
			if playlist.Videos != nil {
				copied.Videos = append([]models.PlaylistVideoEntry(nil), playlist.Videos...)
			}
			cloned.Playlists[i] = copied
		}
	}
	return cloned
}

func cloneVideo(video models.Video) models.Video {
	cloned := video
	if video.Tags != nil {
		cloned.Tags = append([]string(nil), video.Tags...)
	}
	if video.LikedBy != nil {
		cloned.LikedBy = append([]string(nil), video.LikedBy...)
	}
	if video.DislikedBy != nil {
		cloned.DislikedBy = append([]string(nil), video.DislikedBy...)
	}
	if video.Comments != nil {
		cloned.Comments = make([]models.Comment, len(video.Comments))
		for i, comment := range video.Comments {
			copied := comment
			if comment.Replies != nil {
				copied.Replies = append([]models.Reply(nil), comment.Replies...)
			}
			cloned.Comments[i] = copied
		}
	}
	return cloned
}

func cloneDataset(src dataset) dataset {
	clone := newDataset()
	for id, user := range src.Users {
		clone.Users[id] = cloneUser(user)
	}
	for id, video := range src.Videos {
		clone.Videos[id] = cloneVideo(video)
	}
	return clone
}

// Single-document primitives. Each helper touches exactly one collection and
// is atomic with respect to the cloned dataset it operates on; the fan-out
// sequences in replication.go compose them in a fixed order.

// updateUser applies mutate to the identified user document. Returns the
// matched count (0 or 1).
func (d *dataset) updateUser(id string, mutate func(*models.User)) int {
	user, ok := d.Users[id]
	if !ok {
		return 0
	}
	mutate(&user)
	d.Users[id] = user
	return 1
}

// updateUsersWhere applies mutate to every user matching the predicate and
// returns the matched count.
func (d *dataset) updateUsersWhere(match func(models.User) bool, mutate func(*models.User)) int {
	matched := 0
	for id, user := range d.Users {
		if !match(user) {
			continue
		}
		mutate(&user)
		d.Users[id] = user
		matched++
	}
	return matched
}

// findUserAndUpdate applies mutate and returns the post-mutation document.
func (d *dataset) findUserAndUpdate(id string, mutate func(*models.User)) (models.User, bool) {
	if d.updateUser(id, mutate) == 0 {
		return models.User{}, false
	}
	return d.Users[id], true
}

// updateVideo applies mutate to the identified video document. Returns the
// matched count (0 or 1).
func (d *dataset) updateVideo(id string, mutate func(*models.Video)) int {
	video, ok := d.Videos[id]
	if !ok {
		return 0
	}
	mutate(&video)
	d.Videos[id] = video
	return 1
}

// updateVideosWhere applies mutate to every video matching the predicate and
// returns the matched count.
func (d *dataset) updateVideosWhere(match func(models.Video) bool, mutate func(*models.Video)) int {
	matched := 0
	for id, video := range d.Videos {
		if !match(video) {
			continue
		}
		mutate(&video)
		d.Videos[id] = video
		matched++
	}
	return matched
}

// findVideoAndUpdate applies mutate and returns the post-mutation document.
func (d *dataset) findVideoAndUpdate(id string, mutate func(*models.Video)) (models.Video, bool) {
	if d.updateVideo(id, mutate) == 0 {
		return models.Video{}, false
	}
	return d.Videos[id], true
}

// addToSet inserts member into the set unless already present. The returned
// bool reports whether an insertion happened; a false return is the
// idempotent-duplicate case. This helper is the storage-level uniqueness
// guard: callers must never push onto a reaction or subscription set without
// going through it.
func addToSet(set []string, member string) ([]string, bool) {
	for _, existing := range set {
		if existing == member {
			return set, false
		}
	}
	return append(set, member), true
}

// removeFromSet deletes member from the set if present. Removing an absent
// member is a no-op, not an error.
func removeFromSet(set []string, member string) ([]string, bool) {
	for i, existing := range set {
		if existing == member {
			return append(set[:i], set[i+1:]...), true
		}
	}
	return set, false
}

// GetUser returns a deep copy of the user document.
func (s *Storage) GetUser(id string) (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.data.Users[id]
	if !ok {
		return models.User{}, false
	}
	return cloneUser(user), true
}

// FindUserByEmail performs a case-insensitive email lookup.
func (s *Storage) FindUserByEmail(email string) (models.User, bool) {
	normalized := normalizeEmail(email)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.data.Users {
		if normalizeEmail(user.Email) == normalized {
			return cloneUser(user), true
		}
	}
	return models.User{}, false
}

// ListUsers returns every user ordered by creation time.
func (s *Storage) ListUsers() []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]models.User, 0, len(s.data.Users))
	for _, user := range s.data.Users {
		users = append(users, cloneUser(user))
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID < users[j].ID
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users
}

// GetVideo returns a deep copy of the canonical video document.
func (s *Storage) GetVideo(id string) (models.Video, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	video, ok := s.data.Videos[id]
	if !ok {
		return models.Video{}, false
	}
	return cloneVideo(video), true
}

// GetVideoByWatchKey resolves the shareable numeric key to its video.
func (s *Storage) GetVideoByWatchKey(watchKey int64) (models.Video, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, video := range s.data.Videos {
		if video.WatchKey == watchKey {
			return cloneVideo(video), true
		}
	}
	return models.Video{}, false
}

// ListVideos returns all videos, newest first.
func (s *Storage) ListVideos() []models.Video {
	s.mu.RLock()
	defer s.mu.RUnlock()
	videos := make([]models.Video, 0, len(s.data.Videos))
	for _, video := range s.data.Videos {
		videos = append(videos, cloneVideo(video))
	}
	sort.Slice(videos, func(i, j int) bool {
		if videos[i].CreatedAt.Equal(videos[j].CreatedAt) {
			return videos[i].ID < videos[j].ID
		}
		return videos[i].CreatedAt.After(videos[j].CreatedAt)
	})
	return videos
}

// CreateUser registers a new account with empty embedded lists. Email
// uniqueness is enforced here, inside the storage critical section.
func (s *Storage) CreateUser(params CreateUserParams) (models.User, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return models.User{}, fmt.Errorf("name is required")
	}
	if len(name) > MaxTitleLength {
		return models.User{}, fmt.Errorf("name exceeds %d characters", MaxTitleLength)
	}
	email := normalizeEmail(params.Email)
	if email == "" || !strings.Contains(email, "@") {
		return models.User{}, fmt.Errorf("valid email is required")
	}
	if len(params.Password) < 8 {
		return models.User{}, fmt.Errorf("password must be at least 8 characters")
	}
	hashed, err := hashPassword(params.Password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}
	id, err := generateID()
	if err != nil {
		return models.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.data.Users {
		if normalizeEmail(existing.Email) == email {
			return models.User{}, ErrEmailExists
		}
	}

	updated := cloneDataset(s.data)
	user := models.User{
		ID:            id,
		Name:          name,
		Email:         email,
		PasswordHash:  hashed,
		Subscriptions: []models.SubscriptionEntry{},
		Playlists:     []models.Playlist{},
		Videos:        []models.OwnedVideoEntry{},
		History:       []models.HistoryEntry{},
		Notifications: []models.Notification{},
		CreatedAt:     s.now(),
	}
	updated.Users[id] = user

	if err := s.commit(updated); err != nil {
		return models.User{}, err
	}
	return cloneUser(user), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
