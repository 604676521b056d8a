package storage

import (
	"fmt"
	"strings"

	"clipstream/internal/models"
)

// CreatePlaylist appends an empty playlist to the user's document.
func (s *Storage) CreatePlaylist(userID, title string) (models.Playlist, error) {
	if userID == "" {
		return models.Playlist{}, ErrUnauthenticated
	}
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return models.Playlist{}, fmt.Errorf("playlist title is required")
	}
	if len(trimmed) > MaxTitleLength {
		return models.Playlist{}, fmt.Errorf("playlist title exceeds %d characters", MaxTitleLength)
	}
	id, err := generateID()
	if err != nil {
		return models.Playlist{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	updated := cloneDataset(s.data)
	playlist := models.Playlist{
		ID:        id,
		Title:     trimmed,
		Videos:    []models.PlaylistVideoEntry{},
		CreatedAt: s.now(),
	}
	if updated.updateUser(userID, func(u *models.User) {
		u.Playlists = append(u.Playlists, playlist)
	}) == 0 {
		return models.Playlist{}, ErrNotFound
	}
	if err := s.commit(updated); err != nil {
		return models.Playlist{}, err
	}
	return playlist, nil
}

// DeletePlaylist removes a playlist from its owner and clears the
// playlist-membership field on every video that referenced it, keeping the
// invariant that a video's playlist id always resolves or is empty.
// Canonical first: the playlist itself, then the video mirrors.
func (s *Storage) DeletePlaylist(userID, playlistID string) error {
	if userID == "" {
		return ErrUnauthenticated
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	owner, ok := s.data.Users[userID]
	if !ok {
		return ErrNotFound
	}
	if _, owns := owner.PlaylistByID(playlistID); !owns {
		return ErrNotOwner
	}

	updated := cloneDataset(s.data)

	updated.updateUser(userID, func(u *models.User) {
		for i, playlist := range u.Playlists {
			if playlist.ID == playlistID {
				u.Playlists = append(u.Playlists[:i], u.Playlists[i+1:]...)
				return
			}
		}
	})

	updated.updateVideosWhere(
		func(v models.Video) bool { return v.PlaylistID == playlistID },
		func(v *models.Video) { v.PlaylistID = "" },
	)

	return s.commit(updated)
}

// PlaylistVideos resolves the playlist's snapshot list for rendering.
func (s *Storage) PlaylistVideos(userID, playlistID string) ([]models.PlaylistVideoEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.data.Users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	playlist, ok := user.PlaylistByID(playlistID)
	if !ok {
		return nil, ErrNotFound
	}
	return append([]models.PlaylistVideoEntry(nil), playlist.Videos...), nil
}
