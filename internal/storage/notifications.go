package storage

import (
	"sort"

	"clipstream/internal/models"
)

// notify is the event-to-notification mapper's single write path: it appends
// a notification (read=false, fresh id) to the recipient's document inside an
// already-cloned dataset. Failures are logged and swallowed; callers treat
// delivery as best-effort and never let it fail the parent mutation.
func (s *Storage) notify(updated *dataset, recipientID string, notification models.Notification) {
	id, err := generateID()
	if err != nil {
		s.logger.Warn("notification id generation failed, delivery skipped",
			"recipientId", recipientID, "error", err)
		s.observeNotification("skipped")
		return
	}
	notification.ID = id
	notification.Read = false
	notification.CreatedAt = s.now()

	if updated.updateUser(recipientID, func(u *models.User) {
		u.Notifications = append(u.Notifications, notification)
	}) == 0 {
		s.logger.Warn("notification recipient missing, delivery skipped",
			"recipientId", recipientID, "type", notification.Type)
		s.observeNotification("skipped")
		return
	}
	s.observeNotification("delivered")
}

// ListNotifications returns the user's notifications, newest first.
func (s *Storage) ListNotifications(userID string) ([]models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.data.Users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	notifications := append([]models.Notification(nil), user.Notifications...)
	sort.Slice(notifications, func(i, j int) bool {
		return notifications[i].CreatedAt.After(notifications[j].CreatedAt)
	})
	return notifications, nil
}

// MarkNotificationRead flips the read flag of a single notification. Marking
// an already-read notification is a no-op.
func (s *Storage) MarkNotificationRead(userID, notificationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := cloneDataset(s.data)

	matched := false
	if updated.updateUser(userID, func(u *models.User) {
		for i := range u.Notifications {
			if u.Notifications[i].ID == notificationID {
				u.Notifications[i].Read = true
				matched = true
				return
			}
		}
	}) == 0 {
		return ErrNotFound
	}
	if !matched {
		return ErrNotFound
	}
	return s.commit(updated)
}
