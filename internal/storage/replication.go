package storage

import (
	"fmt"
	"strings"

	"clipstream/internal/models"
)

// Replication operations fan a canonical mutation out to every denormalized
// mirror. The order is fixed: canonical record first, then user-document
// mirrors, then the videos collection (the widest-impact mirror) last. A
// failure between steps leaves a partially-applied state that Reconcile can
// repair from the canonical fields; no step is ever rolled back.

// RenameChannel updates a user's display name and re-synchronises every
// snapshot that mirrors it: subscription entries across all users, then the
// owner snapshot on each of the user's videos.
func (s *Storage) RenameChannel(userID, newName string) (models.User, error) {
	name := strings.TrimSpace(newName)
	if name == "" {
		return models.User{}, fmt.Errorf("name is required")
	}
	if len(name) > MaxTitleLength {
		return models.User{}, fmt.Errorf("name exceeds %d characters", MaxTitleLength)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	updated := cloneDataset(s.data)

	user, ok := updated.findUserAndUpdate(userID, func(u *models.User) {
		u.Name = name
	})
	if !ok {
		return models.User{}, ErrNotFound
	}

	subscriptionMirrors := updated.updateUsersWhere(
		func(u models.User) bool {
			_, subscribed := u.Subscription(userID)
			return subscribed
		},
		func(u *models.User) {
			for i := range u.Subscriptions {
				if u.Subscriptions[i].ChannelID == userID {
					u.Subscriptions[i].Name = name
				}
			}
		},
	)

	videoMirrors := updated.updateVideosWhere(
		func(v models.Video) bool { return v.Owner.ID == userID },
		func(v *models.Video) { v.Owner.Name = name },
	)

	if err := s.commit(updated); err != nil {
		return models.User{}, err
	}
	s.observeFanout("rename_channel", "users", 1+subscriptionMirrors)
	s.observeFanout("rename_channel", "videos", videoMirrors)
	s.logger.Debug("rename fan-out applied",
		"userId", userID,
		"subscriptionMirrors", subscriptionMirrors,
		"videoMirrors", videoMirrors)
	return cloneUser(user), nil
}

// ChangeAvatar updates a user's profile image and mirrors it into
// subscription snapshots and video owner snapshots.
func (s *Storage) ChangeAvatar(userID, imagePath string) (models.User, error) {
	path := strings.TrimSpace(imagePath)
	if path == "" {
		return models.User{}, fmt.Errorf("image path is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	updated := cloneDataset(s.data)

	user, ok := updated.findUserAndUpdate(userID, func(u *models.User) {
		u.Image = path
	})
	if !ok {
		return models.User{}, ErrNotFound
	}

	subscriptionMirrors := updated.updateUsersWhere(
		func(u models.User) bool {
			_, subscribed := u.Subscription(userID)
			return subscribed
		},
		func(u *models.User) {
			for i := range u.Subscriptions {
				if u.Subscriptions[i].ChannelID == userID {
					u.Subscriptions[i].Image = path
				}
			}
		},
	)

	videoMirrors := updated.updateVideosWhere(
		func(v models.Video) bool { return v.Owner.ID == userID },
		func(v *models.Video) { v.Owner.Image = path },
	)

	if err := s.commit(updated); err != nil {
		return models.User{}, err
	}
	s.observeFanout("change_avatar", "users", 1+subscriptionMirrors)
	s.observeFanout("change_avatar", "videos", videoMirrors)
	return cloneUser(user), nil
}

// ChangeCover updates a user's cover photo. The cover has no mirrors, so the
// fan-out is a single canonical write.
func (s *Storage) ChangeCover(userID, imagePath string) (models.User, error) {
	path := strings.TrimSpace(imagePath)
	if path == "" {
		return models.User{}, fmt.Errorf("image path is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	updated := cloneDataset(s.data)
	user, ok := updated.findUserAndUpdate(userID, func(u *models.User) {
		u.CoverPhoto = path
	})
	if !ok {
		return models.User{}, ErrNotFound
	}
	if err := s.commit(updated); err != nil {
		return models.User{}, err
	}
	return cloneUser(user), nil
}

// Subscribe adds subscriberID as a follower of channelID. The fan-out is
// three steps: increment the channel's canonical subscriber count, append the
// channel snapshot (carrying the post-increment count) to the subscriber's
// list, then bump the mirror on every video the channel owns. Uniqueness of
// (subscriber, channel) is enforced inside the storage critical section, not
// by the caller's pre-check.
func (s *Storage) Subscribe(subscriberID, channelID string) (SubscribeOutcome, error) {
	if subscriberID == "" {
		return "", ErrUnauthenticated
	}
	if subscriberID == channelID {
		return "", ErrSelfSubscribe
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	subscriber, ok := s.data.Users[subscriberID]
	if !ok {
		return "", fmt.Errorf("subscriber %s: %w", subscriberID, ErrNotFound)
	}
	if _, ok := s.data.Users[channelID]; !ok {
		return "", fmt.Errorf("channel %s: %w", channelID, ErrNotFound)
	}
	if _, already := subscriber.Subscription(channelID); already {
		return SubscribeNoop, nil
	}

	updated := cloneDataset(s.data)

	channel, _ := updated.findUserAndUpdate(channelID, func(u *models.User) {
		u.Subscribers++
	})

	inserted := false
	updated.updateUser(subscriberID, func(u *models.User) {
		// Second check under the same critical section; the constraint
		// lives here, not in the pre-check above.
		if _, dup := u.Subscription(channelID); dup {
			return
		}
		u.Subscriptions = append(u.Subscriptions, models.SubscriptionEntry{
			ChannelID:    channelID,
			Name:         channel.Name,
			Image:        channel.Image,
			Subscribers:  channel.Subscribers,
			SubscribedAt: s.now(),
		})
		inserted = true
	})
	if !inserted {
		return "", ErrConstraintViolation
	}

	videoMirrors := updated.updateVideosWhere(
		func(v models.Video) bool { return v.Owner.ID == channelID },
		func(v *models.Video) { v.Owner.Subscribers++ },
	)

	if err := s.commit(updated); err != nil {
		return "", err
	}
	s.observeFanout("subscribe", "users", 2)
	s.observeFanout("subscribe", "videos", videoMirrors)
	s.logger.Debug("subscribe fan-out applied",
		"subscriberId", subscriberID,
		"channelId", channelID,
		"channelSubscribers", channel.Subscribers,
		"videoMirrors", videoMirrors)
	return SubscribeAdded, nil
}

// Unsubscribe removes the subscription snapshot and, only when the removal
// actually matched an entry, decrements the channel's canonical count and the
// mirrors on its videos. The matched-removal guard is what makes a duplicate
// or retried call safe: an absent entry means no counters move.
func (s *Storage) Unsubscribe(subscriberID, channelID string) (SubscribeOutcome, error) {
	if subscriberID == "" {
		return "", ErrUnauthenticated
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Users[subscriberID]; !ok {
		return "", fmt.Errorf("subscriber %s: %w", subscriberID, ErrNotFound)
	}

	updated := cloneDataset(s.data)

	removed := false
	updated.updateUser(subscriberID, func(u *models.User) {
		for i, entry := range u.Subscriptions {
			if entry.ChannelID == channelID {
				u.Subscriptions = append(u.Subscriptions[:i], u.Subscriptions[i+1:]...)
				removed = true
				return
			}
		}
	})
	if !removed {
		return UnsubscribeNoop, nil
	}

	updated.updateUser(channelID, func(u *models.User) {
		if u.Subscribers > 0 {
			u.Subscribers--
		}
	})
	videoMirrors := updated.updateVideosWhere(
		func(v models.Video) bool { return v.Owner.ID == channelID },
		func(v *models.Video) {
			if v.Owner.Subscribers > 0 {
				v.Owner.Subscribers--
			}
		},
	)

	if err := s.commit(updated); err != nil {
		return "", err
	}
	s.observeFanout("unsubscribe", "users", 2)
	s.observeFanout("unsubscribe", "videos", videoMirrors)
	return UnsubscribeRemoved, nil
}
