package storage

import (
	"encoding/json"
	"fmt"
	"io"

	"clipstream/internal/models"
)

// Snapshot is a complete JSON-serialisable view of the datastore, keyed by
// primary identifier, suitable for backup or for seeding another backend.
type Snapshot struct {
	Users  map[string]models.User  `json:"users"`
	Videos map[string]models.Video `json:"videos"`
}

// SnapshotCounts summarises a snapshot's size for operator output.
type SnapshotCounts struct {
	Users         int
	Videos        int
	Subscriptions int
	Playlists     int
	HistoryItems  int
	Notifications int
	Comments      int
}

// Counts tallies the snapshot's collections, including embedded lists.
func (s *Snapshot) Counts() SnapshotCounts {
	counts := SnapshotCounts{Users: len(s.Users), Videos: len(s.Videos)}
	for _, user := range s.Users {
		counts.Subscriptions += len(user.Subscriptions)
		counts.Playlists += len(user.Playlists)
		counts.HistoryItems += len(user.History)
		counts.Notifications += len(user.Notifications)
	}
	for _, video := range s.Videos {
		counts.Comments += len(video.Comments)
	}
	return counts
}

// ExportSnapshot copies the current dataset into a Snapshot.
func (s *Storage) ExportSnapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cloned := cloneDataset(s.data)
	return &Snapshot{Users: cloned.Users, Videos: cloned.Videos}
}

// ImportSnapshot replaces the dataset with the snapshot's contents. Intended
// for restore tooling; existing data is discarded.
func (s *Storage) ImportSnapshot(snapshot *Snapshot) error {
	if snapshot == nil {
		return fmt.Errorf("snapshot is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	updated := newDataset()
	for id, user := range snapshot.Users {
		if user.ID == "" {
			user.ID = id
		}
		updated.Users[id] = cloneUser(user)
	}
	for id, video := range snapshot.Videos {
		if video.ID == "" {
			video.ID = id
		}
		updated.Videos[id] = cloneVideo(video)
	}
	return s.commit(updated)
}

// WriteSnapshot serialises the snapshot as indented JSON.
func WriteSnapshot(w io.Writer, snapshot *Snapshot) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(snapshot); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot parses a snapshot previously produced by WriteSnapshot.
func ReadSnapshot(r io.Reader) (*Snapshot, error) {
	var snapshot Snapshot
	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&snapshot); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if snapshot.Users == nil {
		snapshot.Users = make(map[string]models.User)
	}
	if snapshot.Videos == nil {
		snapshot.Videos = make(map[string]models.Video)
	}
	return &snapshot, nil
}
