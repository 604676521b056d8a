package storage

import (
	"fmt"
	"sort"

	"clipstream/internal/models"
)

// RecordWatch upserts the watch-history entry keyed on (userID, videoID).
// A first watch inserts a fresh entry snapshotting the video's title,
// thumbnail, watch key, and duration; a re-watch updates only the playback
// position. The key uniqueness lives in the update itself: the entry scan
// and the write happen under one critical section, so repeat or concurrent
// calls can never produce a second entry for the same pair.
func (s *Storage) RecordWatch(userID, videoID string, position float64) (models.HistoryEntry, error) {
	if userID == "" {
		return models.HistoryEntry{}, ErrUnauthenticated
	}
	if position < 0 {
		position = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	video, ok := s.data.Videos[videoID]
	if !ok {
		return models.HistoryEntry{}, fmt.Errorf("video %s: %w", videoID, ErrNotFound)
	}

	updated := cloneDataset(s.data)

	var result models.HistoryEntry
	var insertErr error
	if updated.updateUser(userID, func(u *models.User) {
		for i := range u.History {
			if u.History[i].VideoID == videoID {
				u.History[i].Position = position
				u.History[i].WatchedAt = s.now()
				result = u.History[i]
				return
			}
		}
		id, err := generateID()
		if err != nil {
			insertErr = err
			return
		}
		entry := models.HistoryEntry{
			ID:        id,
			VideoID:   videoID,
			WatchKey:  video.WatchKey,
			Title:     video.Title,
			Thumbnail: video.Thumbnail,
			Duration:  video.Duration,
			Position:  position,
			WatchedAt: s.now(),
		}
		u.History = append(u.History, entry)
		result = entry
	}) == 0 {
		return models.HistoryEntry{}, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	if insertErr != nil {
		return models.HistoryEntry{}, insertErr
	}

	if err := s.commit(updated); err != nil {
		return models.HistoryEntry{}, err
	}
	return result, nil
}

// ListHistory returns the user's watch history, most recently watched first.
func (s *Storage) ListHistory(userID string) ([]models.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.data.Users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	history := append([]models.HistoryEntry(nil), user.History...)
	sort.Slice(history, func(i, j int) bool {
		return history[i].WatchedAt.After(history[j].WatchedAt)
	})
	return history, nil
}

// RemoveHistoryEntry pulls the entry for videoID from the user's history.
// Removing an absent entry is a no-op.
func (s *Storage) RemoveHistoryEntry(userID, videoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := cloneDataset(s.data)
	if updated.updateUser(userID, func(u *models.User) {
		kept := u.History[:0]
		for _, entry := range u.History {
			if entry.VideoID != videoID {
				kept = append(kept, entry)
			}
		}
		u.History = kept
	}) == 0 {
		return ErrNotFound
	}
	return s.commit(updated)
}
