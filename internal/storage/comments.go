package storage

import (
	"fmt"
	"strings"

	"clipstream/internal/models"
)

// AddComment appends an author-snapshotted comment to the video and then
// maps the event to a notification for the video's owner. The notification
// append is best-effort: its failure is logged, never surfaced, and never
// unwinds the comment itself.
func (s *Storage) AddComment(videoID, authorID, text string) (models.Comment, error) {
	if authorID == "" {
		return models.Comment{}, ErrUnauthenticated
	}
	body := strings.TrimSpace(text)
	if body == "" {
		return models.Comment{}, fmt.Errorf("comment text is required")
	}
	if len(body) > MaxCommentLength {
		return models.Comment{}, fmt.Errorf("comment exceeds %d characters", MaxCommentLength)
	}
	id, err := generateID()
	if err != nil {
		return models.Comment{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	author, ok := s.data.Users[authorID]
	if !ok {
		return models.Comment{}, fmt.Errorf("author %s: %w", authorID, ErrNotFound)
	}

	updated := cloneDataset(s.data)

	comment := models.Comment{
		ID:        id,
		Author:    author.ChannelRef(),
		Text:      body,
		CreatedAt: s.now(),
		Replies:   []models.Reply{},
	}
	video, ok := updated.findVideoAndUpdate(videoID, func(v *models.Video) {
		v.Comments = append(v.Comments, comment)
	})
	if !ok {
		return models.Comment{}, fmt.Errorf("video %s: %w", videoID, ErrNotFound)
	}

	s.notify(&updated, video.Owner.ID, models.Notification{
		Type:     models.NotificationNewComment,
		Content:  body,
		WatchKey: video.WatchKey,
		Actor:    author.ChannelRef(),
	})

	if err := s.commit(updated); err != nil {
		return models.Comment{}, err
	}
	return comment, nil
}

// AddReply appends an author-snapshotted reply to the comment identified by
// commentID, locating the comment by scanning the video's embedded list. The
// reply's notification targets the comment author; when the comment cannot
// be matched (deleted between read and write, imported data) the reply still
// lands and the missing notification is logged rather than failed;
// notification delivery is not a dependency of primary data correctness.
func (s *Storage) AddReply(videoID, commentID, authorID, text string) (models.Reply, error) {
	if authorID == "" {
		return models.Reply{}, ErrUnauthenticated
	}
	body := strings.TrimSpace(text)
	if body == "" {
		return models.Reply{}, fmt.Errorf("reply text is required")
	}
	if len(body) > MaxCommentLength {
		return models.Reply{}, fmt.Errorf("reply exceeds %d characters", MaxCommentLength)
	}
	id, err := generateID()
	if err != nil {
		return models.Reply{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	author, ok := s.data.Users[authorID]
	if !ok {
		return models.Reply{}, fmt.Errorf("author %s: %w", authorID, ErrNotFound)
	}

	updated := cloneDataset(s.data)

	reply := models.Reply{
		ID:        id,
		Author:    author.ChannelRef(),
		Text:      body,
		CreatedAt: s.now(),
	}
	matched := false
	video, ok := updated.findVideoAndUpdate(videoID, func(v *models.Video) {
		for i := range v.Comments {
			if v.Comments[i].ID == commentID {
				v.Comments[i].Replies = append(v.Comments[i].Replies, reply)
				matched = true
				return
			}
		}
		// Comment id not present: the reply write degrades to a no-op on
		// the document, the caller still gets success below.
	})
	if !ok {
		return models.Reply{}, fmt.Errorf("video %s: %w", videoID, ErrNotFound)
	}

	if matched {
		if target, found := video.Comment(commentID); found {
			s.notify(&updated, target.Author.ID, models.Notification{
				Type:     models.NotificationNewReply,
				Content:  body,
				WatchKey: video.WatchKey,
				Actor:    author.ChannelRef(),
			})
		}
	} else {
		s.logger.Warn("reply target comment missing, notification skipped",
			"videoId", videoID,
			"commentId", commentID)
	}

	if err := s.commit(updated); err != nil {
		return models.Reply{}, err
	}
	return reply, nil
}
