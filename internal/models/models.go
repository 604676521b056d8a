package models

import (
	"time"
)

// Notification type tags understood by clients.
const (
	NotificationNewComment = "new_comment"
	NotificationNewReply   = "new_reply"
)

// Duration is a wall-clock video length split into display components. The
// split is computed once at publish time from the probed length in seconds;
// the storage layer never re-derives it.
type Duration struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

// DurationFromSeconds converts a probed length in seconds into its display
// components, truncating sub-second precision.
func DurationFromSeconds(total float64) Duration {
	whole := int(total)
	if whole < 0 {
		whole = 0
	}
	return Duration{
		Hours:   whole / 3600,
		Minutes: (whole / 60) % 60,
		Seconds: whole % 60,
	}
}

// IsZero reports whether the duration is entirely unset.
func (d Duration) IsZero() bool {
	return d.Hours == 0 && d.Minutes == 0 && d.Seconds == 0
}

// ChannelRef is the author snapshot embedded wherever a user is referenced
// from another document (comments, replies, notifications). It is a copy, not
// a reference: the replication engine re-synchronises it when the source user
// changes.
type ChannelRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

// OwnerSnapshot is the channel snapshot embedded in every canonical Video.
// Subscribers mirrors the owner's live subscriber count and is adjusted by
// the replication engine on every subscribe/unsubscribe.
type OwnerSnapshot struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Image       string `json:"image,omitempty"`
	Subscribers int    `json:"subscribers"`
}

// SubscriptionEntry is the channel snapshot stored in a subscriber's list at
// subscribe time. Counters drift until the next replication or reconcile
// pass touches them.
type SubscriptionEntry struct {
	ChannelID    string    `json:"channelId"`
	Name         string    `json:"name"`
	Image        string    `json:"image,omitempty"`
	Subscribers  int       `json:"subscribers"`
	SubscribedAt time.Time `json:"subscribedAt"`
}

// OwnedVideoEntry is the owned-video snapshot kept on the uploader's User
// document for channel-page rendering without touching the videos collection.
type OwnedVideoEntry struct {
	VideoID   string `json:"videoId"`
	Title     string `json:"title"`
	Views     int64  `json:"views"`
	Thumbnail string `json:"thumbnail"`
	WatchKey  int64  `json:"watchKey"`
}

// PlaylistVideoEntry is the snapshot of a video held inside a playlist.
type PlaylistVideoEntry struct {
	VideoID   string `json:"videoId"`
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail"`
	WatchKey  int64  `json:"watchKey"`
}

// Playlist is an ordered collection of video snapshots owned by a single user.
type Playlist struct {
	ID        string               `json:"id"`
	Title     string               `json:"title"`
	Videos    []PlaylistVideoEntry `json:"videos"`
	CreatedAt time.Time            `json:"createdAt"`
}

// HistoryEntry records the most recent watch of a video by a user. Exactly
// one entry exists per (user, video) pair; re-watching updates Position only.
type HistoryEntry struct {
	ID        string    `json:"id"`
	VideoID   string    `json:"videoId"`
	WatchKey  int64     `json:"watchKey"`
	Title     string    `json:"title"`
	Thumbnail string    `json:"thumbnail"`
	Duration  Duration  `json:"duration"`
	Position  float64   `json:"position"`
	WatchedAt time.Time `json:"watchedAt"`
}

// Notification is appended to the recipient's document by the notification
// mapper. Read defaults to false and flips at most once.
type Notification struct {
	ID        string     `json:"id"`
	Type      string     `json:"type"`
	Content   string     `json:"content"`
	Read      bool       `json:"read"`
	WatchKey  int64      `json:"watchKey,omitempty"`
	Actor     ChannelRef `json:"actor"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Reply is a nested response to a comment, carrying its own author snapshot.
type Reply struct {
	ID        string     `json:"id"`
	Author    ChannelRef `json:"author"`
	Text      string     `json:"text"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Comment is embedded in the canonical Video document.
type Comment struct {
	ID        string     `json:"id"`
	Author    ChannelRef `json:"author"`
	Text      string     `json:"text"`
	CreatedAt time.Time  `json:"createdAt"`
	Replies   []Reply    `json:"replies"`
}

// User is a canonical top-level document: account identity plus every
// denormalized list the original schema hangs off the user (subscriptions,
// playlists, owned-video snapshots, watch history, notifications).
type User struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	Email         string              `json:"email"`
	PasswordHash  string              `json:"passwordHash,omitempty"`
	Image         string              `json:"image,omitempty"`
	CoverPhoto    string              `json:"coverPhoto,omitempty"`
	Subscribers   int                 `json:"subscribers"`
	Subscriptions []SubscriptionEntry `json:"subscriptions"`
	Playlists     []Playlist          `json:"playlists"`
	Videos        []OwnedVideoEntry   `json:"videos"`
	History       []HistoryEntry      `json:"history"`
	Notifications []Notification      `json:"notifications"`
	CreatedAt     time.Time           `json:"createdAt"`
}

// ChannelRef returns the author snapshot for this user as embedded in
// comments, replies, and notifications.
func (u User) ChannelRef() ChannelRef {
	return ChannelRef{ID: u.ID, Name: u.Name, Image: u.Image}
}

// Subscription returns the subscription entry matching channelID, if any.
func (u User) Subscription(channelID string) (SubscriptionEntry, bool) {
	for _, entry := range u.Subscriptions {
		if entry.ChannelID == channelID {
			return entry, true
		}
	}
	return SubscriptionEntry{}, false
}

// PlaylistByID returns the playlist with the given id, if any.
func (u User) PlaylistByID(id string) (Playlist, bool) {
	for _, playlist := range u.Playlists {
		if playlist.ID == id {
			return playlist, true
		}
	}
	return Playlist{}, false
}

// Video is the canonical record for an uploaded video. Owner, reaction sets,
// and comments are embedded; LikedBy and DislikedBy are sets of user IDs with
// uniqueness enforced by the storage layer, and a user may legitimately
// appear in both (the original system never made them exclusive).
type Video struct {
	ID          string        `json:"id"`
	Owner       OwnerSnapshot `json:"owner"`
	FilePath    string        `json:"filePath"`
	Thumbnail   string        `json:"thumbnail"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Tags        []string      `json:"tags,omitempty"`
	Category    string        `json:"category,omitempty"`
	Duration    Duration      `json:"duration"`
	WatchKey    int64         `json:"watchKey"`
	Views       int64         `json:"views"`
	PlaylistID  string        `json:"playlistId,omitempty"`
	LikedBy     []string      `json:"likedBy,omitempty"`
	DislikedBy  []string      `json:"dislikedBy,omitempty"`
	Comments    []Comment     `json:"comments"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// OwnedEntry derives the snapshot stored on the uploader's User document.
func (v Video) OwnedEntry() OwnedVideoEntry {
	return OwnedVideoEntry{
		VideoID:   v.ID,
		Title:     v.Title,
		Views:     v.Views,
		Thumbnail: v.Thumbnail,
		WatchKey:  v.WatchKey,
	}
}

// PlaylistEntry derives the snapshot stored inside a playlist's video list.
func (v Video) PlaylistEntry() PlaylistVideoEntry {
	return PlaylistVideoEntry{
		VideoID:   v.ID,
		Title:     v.Title,
		Thumbnail: v.Thumbnail,
		WatchKey:  v.WatchKey,
	}
}

// Comment returns the embedded comment with the given id, if any.
func (v Video) Comment(id string) (Comment, bool) {
	for _, comment := range v.Comments {
		if comment.ID == id {
			return comment, true
		}
	}
	return Comment{}, false
}
