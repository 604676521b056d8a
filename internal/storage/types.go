package storage

import (
	"errors"
	"time"

	"clipstream/internal/models"
)

const (
	passwordHashSaltLength = 16
	passwordHashKeyLength  = 32
	passwordHashIterations = 120000

	// MaxTitleLength bounds video, playlist, and display-name titles.
	MaxTitleLength = 200
	// MaxCommentLength bounds comment and reply bodies.
	MaxCommentLength = 1000
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailExists        = errors.New("email already exists")

	// ErrNotFound reports that a referenced user, video, playlist, or
	// comment does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrNotOwner reports an authorization mismatch on edit or delete.
	ErrNotOwner = errors.New("caller does not own this record")
	// ErrSelfSubscribe reports an attempt to subscribe to one's own channel.
	ErrSelfSubscribe = errors.New("cannot subscribe to own channel")
	// ErrUnauthenticated reports a request with no caller identity.
	ErrUnauthenticated = errors.New("caller identity required")
	// ErrStorageTimeout reports a store call that exceeded its deadline.
	// Callers may retry the fan-out from the last uncompleted step.
	ErrStorageTimeout = errors.New("storage operation timed out")
	// ErrStorageUnavailable reports a store that cannot currently serve
	// requests. Retryable.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrConstraintViolation reports a storage uniqueness constraint firing.
	// Treated as the idempotent-duplicate case by replication operations.
	ErrConstraintViolation = errors.New("uniqueness constraint violation")
)

// IsRetryable reports whether the error indicates a transient storage
// condition that a caller may retry without operator intervention.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStorageTimeout) || errors.Is(err, ErrStorageUnavailable)
}

// dataset holds the two canonical collections. Every embedded list
// (subscriptions, playlists, history, comments, notifications) lives inside
// its owning document, mirroring the original document-store schema.
type dataset struct {
	Users  map[string]models.User  `json:"users"`
	Videos map[string]models.Video `json:"videos"`
}

func newDataset() dataset {
	return dataset{
		Users:  make(map[string]models.User),
		Videos: make(map[string]models.Video),
	}
}

// CreateUserParams captures the attributes set at signup.
type CreateUserParams struct {
	Name     string
	Email    string
	Password string
}

// PublishVideoParams captures everything the upload collaborator hands over
// once the media file and thumbnail have been moved into place and the
// duration probed.
type PublishVideoParams struct {
	OwnerID         string
	FilePath        string
	Thumbnail       string
	Title           string
	Description     string
	Tags            []string
	Category        string
	DurationSeconds float64
}

// VideoEdit describes the canonical fields EditVideo may change. Nil fields
// are left untouched. PlaylistID moves the video between playlists; the empty
// string removes it from its current playlist.
type VideoEdit struct {
	Title       *string
	Description *string
	Tags        *[]string
	Category    *string
	Thumbnail   *string
	PlaylistID  *string
}

// ReactionKind names an embedded reaction set on a video document.
type ReactionKind string

const (
	ReactionLike    ReactionKind = "like"
	ReactionDislike ReactionKind = "dislike"
)

// ToggleOutcome reports the result of an idempotent set insertion.
type ToggleOutcome string

const (
	ToggleAdded          ToggleOutcome = "added"
	ToggleAlreadyPresent ToggleOutcome = "already_present"
)

// SubscribeOutcome reports the result of a subscribe request.
type SubscribeOutcome string

const (
	SubscribeAdded     SubscribeOutcome = "subscribed"
	SubscribeNoop      SubscribeOutcome = "already_subscribed"
	UnsubscribeNoop    SubscribeOutcome = "not_subscribed"
	UnsubscribeRemoved SubscribeOutcome = "unsubscribed"
)

// ReconcileReport summarises a mirror-repair pass.
type ReconcileReport struct {
	UsersScanned          int           `json:"usersScanned"`
	VideosScanned         int           `json:"videosScanned"`
	OwnerSnapshotsFixed   int           `json:"ownerSnapshotsFixed"`
	SubscriptionsFixed    int           `json:"subscriptionsFixed"`
	OwnedVideosFixed      int           `json:"ownedVideosFixed"`
	SubscriberCountsFixed int           `json:"subscriberCountsFixed"`
	HistoryEntriesFixed   int           `json:"historyEntriesFixed"`
	OrphanSnapshotsPruned int           `json:"orphanSnapshotsPruned"`
	PlaylistRefsCleared   int           `json:"playlistRefsCleared"`
	StartedAt             time.Time     `json:"startedAt"`
	Duration              time.Duration `json:"duration"`
}

// Repaired reports the total number of corrections applied.
func (r ReconcileReport) Repaired() int {
	return r.OwnerSnapshotsFixed +
		r.SubscriptionsFixed +
		r.OwnedVideosFixed +
		r.SubscriberCountsFixed +
		r.HistoryEntriesFixed +
		r.OrphanSnapshotsPruned +
		r.PlaylistRefsCleared
}
