package storage

import (
	"context"

	"clipstream/internal/models"
)

// Repository exposes the datastore operations required by the API handlers
// and the background reconcile loop. Every mutation is a complete fan-out:
// callers never update mirrors themselves.
type Repository interface {
	Ping(ctx context.Context) error

	CreateUser(params CreateUserParams) (models.User, error)
	AuthenticateUser(email, password string) (models.User, error)
	SetUserPassword(id, password string) error
	GetUser(id string) (models.User, bool)
	FindUserByEmail(email string) (models.User, bool)
	ListUsers() []models.User

	RenameChannel(userID, newName string) (models.User, error)
	ChangeAvatar(userID, imagePath string) (models.User, error)
	ChangeCover(userID, imagePath string) (models.User, error)
	Subscribe(subscriberID, channelID string) (SubscribeOutcome, error)
	Unsubscribe(subscriberID, channelID string) (SubscribeOutcome, error)

	PublishVideo(params PublishVideoParams) (models.Video, error)
	GetVideo(id string) (models.Video, bool)
	GetVideoByWatchKey(watchKey int64) (models.Video, bool)
	ListVideos() []models.Video
	RegisterView(watchKey int64) (models.Video, error)
	EditVideo(videoID, ownerID string, edit VideoEdit) (models.Video, error)
	DeleteVideo(videoID, ownerID string) (models.Video, error)
	RelatedVideos(category, excludeVideoID string) []models.Video
	SearchVideos(field SearchField, query string) []models.Video

	ToggleReaction(videoID, userID string, kind ReactionKind) (ToggleOutcome, error)
	ReactionCounts(videoID string) (likes, dislikes int, err error)

	AddComment(videoID, authorID, text string) (models.Comment, error)
	AddReply(videoID, commentID, authorID, text string) (models.Reply, error)

	ListNotifications(userID string) ([]models.Notification, error)
	MarkNotificationRead(userID, notificationID string) error

	RecordWatch(userID, videoID string, position float64) (models.HistoryEntry, error)
	ListHistory(userID string) ([]models.HistoryEntry, error)
	RemoveHistoryEntry(userID, videoID string) error

	CreatePlaylist(userID, title string) (models.Playlist, error)
	DeletePlaylist(userID, playlistID string) error
	PlaylistVideos(userID, playlistID string) ([]models.PlaylistVideoEntry, error)

	Reconcile(ctx context.Context) (ReconcileReport, error)
}

var _ Repository = (*Storage)(nil)
