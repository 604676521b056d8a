package storage

import (
	"fmt"
	"math/rand"
	"strings"

	"clipstream/internal/models"
)

// PublishVideo inserts the canonical video record and then appends the
// owned-video snapshot to the uploader's document. Canonical first: if the
// snapshot append were lost, Reconcile regenerates it from the video record.
func (s *Storage) PublishVideo(params PublishVideoParams) (models.Video, error) {
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return models.Video{}, fmt.Errorf("title is required")
	}
	if len(title) > MaxTitleLength {
		return models.Video{}, fmt.Errorf("title exceeds %d characters", MaxTitleLength)
	}
	if strings.TrimSpace(params.FilePath) == "" {
		return models.Video{}, fmt.Errorf("file path is required")
	}

	id, err := generateID()
	if err != nil {
		return models.Video{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	owner, ok := s.data.Users[params.OwnerID]
	if !ok {
		return models.Video{}, fmt.Errorf("owner %s: %w", params.OwnerID, ErrNotFound)
	}

	now := s.now()
	watchKey, err := generateWatchKey(now)
	if err != nil {
		return models.Video{}, err
	}

	updated := cloneDataset(s.data)
	video := models.Video{
		ID: id,
		Owner: models.OwnerSnapshot{
			ID:          owner.ID,
			Name:        owner.Name,
			Image:       owner.Image,
			Subscribers: owner.Subscribers,
		},
		FilePath:    strings.TrimSpace(params.FilePath),
		Thumbnail:   strings.TrimSpace(params.Thumbnail),
		Title:       title,
		Description: strings.TrimSpace(params.Description),
		Tags:        normalizeTags(params.Tags),
		Category:    strings.TrimSpace(params.Category),
		Duration:    models.DurationFromSeconds(params.DurationSeconds),
		WatchKey:    watchKey,
		Comments:    []models.Comment{},
		CreatedAt:   now,
	}
	updated.Videos[id] = video

	updated.updateUser(owner.ID, func(u *models.User) {
		u.Videos = append(u.Videos, video.OwnedEntry())
	})

	if err := s.commit(updated); err != nil {
		return models.Video{}, err
	}
	s.observeVideoEvent("publish")
	return cloneVideo(video), nil
}

// RegisterView increments the canonical view counter for the video resolved
// by its watch key and returns the post-increment document. The owned-video
// snapshot's view counter is left to drift; Reconcile trues it up.
func (s *Storage) RegisterView(watchKey int64) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var id string
	for videoID, video := range s.data.Videos {
		if video.WatchKey == watchKey {
			id = videoID
			break
		}
	}
	if id == "" {
		return models.Video{}, ErrNotFound
	}

	updated := cloneDataset(s.data)
	video, _ := updated.findVideoAndUpdate(id, func(v *models.Video) {
		v.Views++
	})
	if err := s.commit(updated); err != nil {
		return models.Video{}, err
	}
	s.observeVideoEvent("view")
	return cloneVideo(video), nil
}

// EditVideo updates canonical fields and re-synchronises the mirrors that
// depend on them: the owner's owned-video snapshot (title/thumbnail), and,
// when the playlist assignment changes, the playlist video lists, expressed
// as remove-then-insert rather than an in-place overwrite. Ownership is
// checked inside the critical section, immediately before the writes.
func (s *Storage) EditVideo(videoID, ownerID string, edit VideoEdit) (models.Video, error) {
	if ownerID == "" {
		return models.Video{}, ErrUnauthenticated
	}
	if edit.Title != nil {
		trimmed := strings.TrimSpace(*edit.Title)
		if trimmed == "" {
			return models.Video{}, fmt.Errorf("title is required")
		}
		if len(trimmed) > MaxTitleLength {
			return models.Video{}, fmt.Errorf("title exceeds %d characters", MaxTitleLength)
		}
		edit.Title = &trimmed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.data.Videos[videoID]
	if !ok {
		return models.Video{}, ErrNotFound
	}
	if current.Owner.ID != ownerID {
		return models.Video{}, ErrNotOwner
	}

	oldPlaylistID := current.PlaylistID
	newPlaylistID := oldPlaylistID
	if edit.PlaylistID != nil {
		newPlaylistID = strings.TrimSpace(*edit.PlaylistID)
	}
	if newPlaylistID != "" {
		owner := s.data.Users[ownerID]
		if _, ok := owner.PlaylistByID(newPlaylistID); !ok {
			return models.Video{}, fmt.Errorf("playlist %s: %w", newPlaylistID, ErrNotFound)
		}
	}

	updated := cloneDataset(s.data)

	video, _ := updated.findVideoAndUpdate(videoID, func(v *models.Video) {
		if v.Owner.ID != ownerID {
			return
		}
		if edit.Title != nil {
			v.Title = *edit.Title
		}
		if edit.Description != nil {
			v.Description = strings.TrimSpace(*edit.Description)
		}
		if edit.Tags != nil {
			v.Tags = normalizeTags(*edit.Tags)
		}
		if edit.Category != nil {
			v.Category = strings.TrimSpace(*edit.Category)
		}
		if edit.Thumbnail != nil {
			v.Thumbnail = strings.TrimSpace(*edit.Thumbnail)
		}
		v.PlaylistID = newPlaylistID
	})

	updated.updateUser(ownerID, func(u *models.User) {
		for i := range u.Videos {
			if u.Videos[i].VideoID == videoID {
				u.Videos[i].Title = video.Title
				u.Videos[i].Thumbnail = video.Thumbnail
			}
		}
	})

	if newPlaylistID != oldPlaylistID {
		updated.updateUser(ownerID, func(u *models.User) {
			if oldPlaylistID != "" {
				pullPlaylistVideo(u, oldPlaylistID, videoID)
			}
			if newPlaylistID != "" {
				for i := range u.Playlists {
					if u.Playlists[i].ID != newPlaylistID {
						continue
					}
					// Remove-then-insert keeps the move idempotent under
					// retry: a second apply finds nothing to remove and the
					// insert below is guarded by the pull.
					pullPlaylistVideo(u, newPlaylistID, videoID)
					u.Playlists[i].Videos = append(u.Playlists[i].Videos, video.PlaylistEntry())
				}
			}
		})
	}

	if err := s.commit(updated); err != nil {
		return models.Video{}, err
	}
	return cloneVideo(video), nil
}

// DeleteVideo removes the canonical record and cascades across the three
// dependent arrays: the owner's owned-video list, every user's watch history,
// and the playlist the video belonged to. Each removal keys on the video id
// and is individually idempotent. The returned document carries the media
// paths so the caller can hand them to the file collaborator.
func (s *Storage) DeleteVideo(videoID, ownerID string) (models.Video, error) {
	if ownerID == "" {
		return models.Video{}, ErrUnauthenticated
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	video, ok := s.data.Videos[videoID]
	if !ok {
		return models.Video{}, ErrNotFound
	}
	if video.Owner.ID != ownerID {
		return models.Video{}, ErrNotOwner
	}

	updated := cloneDataset(s.data)

	delete(updated.Videos, videoID)

	updated.updateUser(ownerID, func(u *models.User) {
		for i, entry := range u.Videos {
			if entry.VideoID == videoID {
				u.Videos = append(u.Videos[:i], u.Videos[i+1:]...)
				break
			}
		}
	})

	historyMirrors := updated.updateUsersWhere(
		func(u models.User) bool {
			for _, entry := range u.History {
				if entry.VideoID == videoID {
					return true
				}
			}
			return false
		},
		func(u *models.User) {
			kept := u.History[:0]
			for _, entry := range u.History {
				if entry.VideoID != videoID {
					kept = append(kept, entry)
				}
			}
			u.History = kept
		},
	)

	updated.updateUser(ownerID, func(u *models.User) {
		for i := range u.Playlists {
			pullPlaylistVideo(u, u.Playlists[i].ID, videoID)
		}
	})

	if err := s.commit(updated); err != nil {
		return models.Video{}, err
	}
	s.observeVideoEvent("delete")
	s.observeFanout("delete_video", "users", 1+historyMirrors)
	s.logger.Debug("delete fan-out applied",
		"videoId", videoID,
		"ownerId", ownerID,
		"historyMirrors", historyMirrors)
	return cloneVideo(video), nil
}

// RelatedVideos returns shuffled videos sharing the category, excluding the
// video itself.
func (s *Storage) RelatedVideos(category, excludeVideoID string) []models.Video {
	s.mu.RLock()
	related := make([]models.Video, 0)
	for id, video := range s.data.Videos {
		if id == excludeVideoID {
			continue
		}
		if strings.EqualFold(video.Category, category) {
			related = append(related, cloneVideo(video))
		}
	}
	s.mu.RUnlock()

	rand.Shuffle(len(related), func(i, j int) {
		related[i], related[j] = related[j], related[i]
	})
	return related
}

func pullPlaylistVideo(u *models.User, playlistID, videoID string) {
	for i := range u.Playlists {
		if u.Playlists[i].ID != playlistID {
			continue
		}
		kept := u.Playlists[i].Videos[:0]
		for _, entry := range u.Playlists[i].Videos {
			if entry.VideoID != videoID {
				kept = append(kept, entry)
			}
		}
		u.Playlists[i].Videos = kept
	}
}

func normalizeTags(input []string) []string {
	if len(input) == 0 {
		return nil
	}
	tags := make([]string, 0, len(input))
	seen := make(map[string]struct{})
	for _, tag := range input {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		tags = append(tags, trimmed)
	}
	if len(tags) == 0 {
		return nil
	}
	return tags
}
