package storage

import (
	"context"
	"fmt"
	"strings"

	"clipstream/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrPostgresUnavailable is returned by repository operations that have not
// yet been ported to the Postgres backend. The schema, the uniqueness
// constraints, and the snapshot importer are live; the per-operation CRUD is
// staged behind it.
var ErrPostgresUnavailable = fmt.Errorf("postgres repository unavailable")

type postgresRepository struct {
	pool *pgxpool.Pool
	cfg  PostgresConfig
}

// NewPostgresRepository opens a Postgres-backed repository. Migrate must
// have been run against the target database first.
func NewPostgresRepository(dsn string, opts ...Option) (Repository, error) {
	cfg := newPostgresConfig(dsn, opts...)
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("postgres dsn required")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if cfg.MaxConnections > 0 {
		poolCfg.MaxConns = cfg.MaxConnections
	}
	if cfg.MinConnections >= 0 {
		poolCfg.MinConns = cfg.MinConnections
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.HealthCheckInterval > 0 {
		poolCfg.HealthCheckPeriod = cfg.HealthCheckInterval
	}
	if cfg.AcquireTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.AcquireTimeout
	}
	if cfg.ApplicationName != "" {
		if poolCfg.ConnConfig.RuntimeParams == nil {
			poolCfg.ConnConfig.RuntimeParams = make(map[string]string)
		}
		poolCfg.ConnConfig.RuntimeParams["application_name"] = cfg.ApplicationName
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	return &postgresRepository{pool: pool, cfg: cfg}, nil
}

// Close releases the connection pool, bounded by the context deadline.
func (r *postgresRepository) Close(ctx context.Context) error {
	if r == nil || r.pool == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		r.pool.Close()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (r *postgresRepository) Ping(ctx context.Context) error {
	if r == nil || r.pool == nil {
		return ErrStorageUnavailable
	}
	if err := r.pool.Ping(ctx); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", ErrStorageTimeout, err)
		}
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

func (r *postgresRepository) CreateUser(params CreateUserParams) (models.User, error) {
	return models.User{}, ErrPostgresUnavailable
}

func (r *postgresRepository) AuthenticateUser(email, password string) (models.User, error) {
	return models.User{}, ErrPostgresUnavailable
}

func (r *postgresRepository) SetUserPassword(id, password string) error {
	return ErrPostgresUnavailable
}

func (r *postgresRepository) GetUser(id string) (models.User, bool) {
	return models.User{}, false
}

func (r *postgresRepository) FindUserByEmail(email string) (models.User, bool) {
	return models.User{}, false
}

func (r *postgresRepository) ListUsers() []models.User {
	return nil
}

func (r *postgresRepository) RenameChannel(userID, newName string) (models.User, error) {
	return models.User{}, ErrPostgresUnavailable
}

func (r *postgresRepository) ChangeAvatar(userID, imagePath string) (models.User, error) {
	return models.User{}, ErrPostgresUnavailable
}

func (r *postgresRepository) ChangeCover(userID, imagePath string) (models.User, error) {
	return models.User{}, ErrPostgresUnavailable
}

func (r *postgresRepository) Subscribe(subscriberID, channelID string) (SubscribeOutcome, error) {
	return "", ErrPostgresUnavailable
}

func (r *postgresRepository) Unsubscribe(subscriberID, channelID string) (SubscribeOutcome, error) {
	return "", ErrPostgresUnavailable
}

func (r *postgresRepository) PublishVideo(params PublishVideoParams) (models.Video, error) {
	return models.Video{}, ErrPostgresUnavailable
}

func (r *postgresRepository) GetVideo(id string) (models.Video, bool) {
	return models.Video{}, false
}

func (r *postgresRepository) GetVideoByWatchKey(watchKey int64) (models.Video, bool) {
	return models.Video{}, false
}

func (r *postgresRepository) ListVideos() []models.Video {
	return nil
}

func (r *postgresRepository) RegisterView(watchKey int64) (models.Video, error) {
	return models.Video{}, ErrPostgresUnavailable
}

func (r *postgresRepository) EditVideo(videoID, ownerID string, edit VideoEdit) (models.Video, error) {
	return models.Video{}, ErrPostgresUnavailable
}

func (r *postgresRepository) DeleteVideo(videoID, ownerID string) (models.Video, error) {
	return models.Video{}, ErrPostgresUnavailable
}

func (r *postgresRepository) RelatedVideos(category, excludeVideoID string) []models.Video {
	return nil
}

func (r *postgresRepository) SearchVideos(field SearchField, query string) []models.Video {
	return nil
}

func (r *postgresRepository) ToggleReaction(videoID, userID string, kind ReactionKind) (ToggleOutcome, error) {
	return "", ErrPostgresUnavailable
}

func (r *postgresRepository) ReactionCounts(videoID string) (int, int, error) {
	return 0, 0, ErrPostgresUnavailable
}

func (r *postgresRepository) AddComment(videoID, authorID, text string) (models.Comment, error) {
	return models.Comment{}, ErrPostgresUnavailable
}

func (r *postgresRepository) AddReply(videoID, commentID, authorID, text string) (models.Reply, error) {
	return models.Reply{}, ErrPostgresUnavailable
}

func (r *postgresRepository) ListNotifications(userID string) ([]models.Notification, error) {
	return nil, ErrPostgresUnavailable
}

func (r *postgresRepository) MarkNotificationRead(userID, notificationID string) error {
	return ErrPostgresUnavailable
}

func (r *postgresRepository) RecordWatch(userID, videoID string, position float64) (models.HistoryEntry, error) {
	return models.HistoryEntry{}, ErrPostgresUnavailable
}

func (r *postgresRepository) ListHistory(userID string) ([]models.HistoryEntry, error) {
	return nil, ErrPostgresUnavailable
}

func (r *postgresRepository) RemoveHistoryEntry(userID, videoID string) error {
	return ErrPostgresUnavailable
}

func (r *postgresRepository) CreatePlaylist(userID, title string) (models.Playlist, error) {
	return models.Playlist{}, ErrPostgresUnavailable
}

func (r *postgresRepository) DeletePlaylist(userID, playlistID string) error {
	return ErrPostgresUnavailable
}

func (r *postgresRepository) PlaylistVideos(userID, playlistID string) ([]models.PlaylistVideoEntry, error) {
	return nil, ErrPostgresUnavailable
}

func (r *postgresRepository) Reconcile(ctx context.Context) (ReconcileReport, error) {
	return ReconcileReport{}, ErrPostgresUnavailable
}

var _ Repository = (*postgresRepository)(nil)
