package storage

import (
	"fmt"

	"clipstream/internal/models"
)

// ToggleReaction adds userID to the named reaction set on a video. The
// operation is idempotent: a duplicate request reports ToggleAlreadyPresent
// and changes nothing. Uniqueness is enforced by the set insertion inside the
// storage critical section, so two concurrent duplicates cannot both land;
// the caller-side "have I already reacted" check is a courtesy, not the
// guard. Like and dislike sets are not mutually exclusive.
func (s *Storage) ToggleReaction(videoID, userID string, kind ReactionKind) (ToggleOutcome, error) {
	if userID == "" {
		return "", ErrUnauthenticated
	}
	if kind != ReactionLike && kind != ReactionDislike {
		return "", fmt.Errorf("unknown reaction kind %q", kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Users[userID]; !ok {
		return "", fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	if _, ok := s.data.Videos[videoID]; !ok {
		return "", fmt.Errorf("video %s: %w", videoID, ErrNotFound)
	}

	updated := cloneDataset(s.data)

	added := false
	updated.updateVideo(videoID, func(v *models.Video) {
		switch kind {
		case ReactionLike:
			v.LikedBy, added = addToSet(v.LikedBy, userID)
		case ReactionDislike:
			v.DislikedBy, added = addToSet(v.DislikedBy, userID)
		}
	})
	if !added {
		return ToggleAlreadyPresent, nil
	}

	if err := s.commit(updated); err != nil {
		return "", err
	}
	return ToggleAdded, nil
}

// ReactionCounts returns the current sizes of both reaction sets.
func (s *Storage) ReactionCounts(videoID string) (likes, dislikes int, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	video, ok := s.data.Videos[videoID]
	if !ok {
		return 0, 0, ErrNotFound
	}
	return len(video.LikedBy), len(video.DislikedBy), nil
}
