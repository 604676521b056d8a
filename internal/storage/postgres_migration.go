package storage

import (
	"context"
	"fmt"
	"sort"
	"time"

	"clipstream/internal/models"
	"github.com/jackc/pgx/v5"
)

// migrationStatements create the relational projection of the document
// schema. The unique keys are load-bearing: (subscriber_id, channel_id),
// (video_id, kind, user_id), and (user_id, video_id) are the storage-level
// constraints that make duplicate subscribe, reaction, and history writes
// fail cleanly instead of double-applying.
var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL DEFAULT '',
		image TEXT NOT NULL DEFAULT '',
		cover_photo TEXT NOT NULL DEFAULT '',
		subscribers INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS subscriptions (
		subscriber_id TEXT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		channel_id TEXT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		channel_name TEXT NOT NULL,
		channel_image TEXT NOT NULL DEFAULT '',
		channel_subscribers INTEGER NOT NULL DEFAULT 0,
		subscribed_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (subscriber_id, channel_id),
		CHECK (subscriber_id <> channel_id)
	)`,
	`CREATE TABLE IF NOT EXISTS videos (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL REFERENCES users (id),
		owner_name TEXT NOT NULL,
		owner_image TEXT NOT NULL DEFAULT '',
		owner_subscribers INTEGER NOT NULL DEFAULT 0,
		file_path TEXT NOT NULL,
		thumbnail TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		tags TEXT[] NOT NULL DEFAULT '{}',
		category TEXT NOT NULL DEFAULT '',
		duration_hours INTEGER NOT NULL DEFAULT 0,
		duration_minutes INTEGER NOT NULL DEFAULT 0,
		duration_seconds INTEGER NOT NULL DEFAULT 0,
		watch_key BIGINT NOT NULL UNIQUE,
		views BIGINT NOT NULL DEFAULT 0,
		playlist_id TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS videos_owner_idx ON videos (owner_id)`,
	`CREATE TABLE IF NOT EXISTS owned_videos (
		user_id TEXT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		video_id TEXT NOT NULL,
		title TEXT NOT NULL,
		views BIGINT NOT NULL DEFAULT 0,
		thumbnail TEXT NOT NULL DEFAULT '',
		watch_key BIGINT NOT NULL,
		PRIMARY KEY (user_id, video_id)
	)`,
	`CREATE TABLE IF NOT EXISTS video_reactions (
		video_id TEXT NOT NULL REFERENCES videos (id) ON DELETE CASCADE,
		kind TEXT NOT NULL CHECK (kind IN ('like', 'dislike')),
		user_id TEXT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		PRIMARY KEY (video_id, kind, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS history (
		user_id TEXT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		video_id TEXT NOT NULL,
		watch_key BIGINT NOT NULL,
		title TEXT NOT NULL,
		thumbnail TEXT NOT NULL DEFAULT '',
		duration_hours INTEGER NOT NULL DEFAULT 0,
		duration_minutes INTEGER NOT NULL DEFAULT 0,
		duration_seconds INTEGER NOT NULL DEFAULT 0,
		position DOUBLE PRECISION NOT NULL DEFAULT 0,
		watched_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (user_id, video_id)
	)`,
	`CREATE TABLE IF NOT EXISTS playlists (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS playlist_videos (
		playlist_id TEXT NOT NULL REFERENCES playlists (id) ON DELETE CASCADE,
		video_id TEXT NOT NULL,
		title TEXT NOT NULL,
		thumbnail TEXT NOT NULL DEFAULT '',
		watch_key BIGINT NOT NULL,
		PRIMARY KEY (playlist_id, video_id)
	)`,
	`CREATE TABLE IF NOT EXISTS comments (
		id TEXT PRIMARY KEY,
		video_id TEXT NOT NULL REFERENCES videos (id) ON DELETE CASCADE,
		author_id TEXT NOT NULL,
		author_name TEXT NOT NULL,
		author_image TEXT NOT NULL DEFAULT '',
		body TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS replies (
		id TEXT PRIMARY KEY,
		comment_id TEXT NOT NULL REFERENCES comments (id) ON DELETE CASCADE,
		author_id TEXT NOT NULL,
		author_name TEXT NOT NULL,
		author_image TEXT NOT NULL DEFAULT '',
		body TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		type TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		read BOOLEAN NOT NULL DEFAULT FALSE,
		watch_key BIGINT NOT NULL DEFAULT 0,
		actor_id TEXT NOT NULL DEFAULT '',
		actor_name TEXT NOT NULL DEFAULT '',
		actor_image TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL
	)`,
}

// Migrate applies the schema. Statements are individually idempotent so the
// call is safe on every startup.
func (r *postgresRepository) Migrate(ctx context.Context) error {
	if r == nil || r.pool == nil {
		return ErrPostgresUnavailable
	}
	for _, stmt := range migrationStatements {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	return nil
}

// ImportSnapshot loads a dataset snapshot into the relational schema inside
// one transaction. Conflicting rows are skipped, so a partially-imported
// database can be re-imported safely.
func (r *postgresRepository) ImportSnapshot(ctx context.Context, snapshot *Snapshot) error {
	if r == nil || r.pool == nil {
		return ErrPostgresUnavailable
	}
	if snapshot == nil {
		return fmt.Errorf("snapshot is required")
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin snapshot transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := importSnapshotUsers(ctx, tx, snapshot.Users); err != nil {
		return err
	}
	if err := importSnapshotVideos(ctx, tx, snapshot.Videos); err != nil {
		return err
	}
	if err := importSnapshotUserLists(ctx, tx, snapshot.Users); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit snapshot transaction: %w", err)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

func importSnapshotUsers(ctx context.Context, tx pgx.Tx, users map[string]models.User) error {
	for _, id := range sortedKeys(users) {
		user := users[id]
		_, err := tx.Exec(ctx,
			`INSERT INTO users (id, name, email, password_hash, image, cover_photo, subscribers, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) ON CONFLICT (id) DO NOTHING`,
			id, user.Name, user.Email, user.PasswordHash, user.Image, user.CoverPhoto,
			user.Subscribers, timeOrNow(user.CreatedAt))
		if err != nil {
			return fmt.Errorf("insert user %s: %w", id, err)
		}
	}
	return nil
}

func importSnapshotVideos(ctx context.Context, tx pgx.Tx, videos map[string]models.Video) error {
	for _, id := range sortedKeys(videos) {
		video := videos[id]
		tags := append([]string(nil), video.Tags...)
		if tags == nil {
			tags = []string{}
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO videos (id, owner_id, owner_name, owner_image, owner_subscribers,
				file_path, thumbnail, title, description, tags, category,
				duration_hours, duration_minutes, duration_seconds,
				watch_key, views, playlist_id, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
			 ON CONFLICT (id) DO NOTHING`,
			id, video.Owner.ID, video.Owner.Name, video.Owner.Image, video.Owner.Subscribers,
			video.FilePath, video.Thumbnail, video.Title, video.Description, tags, video.Category,
			video.Duration.Hours, video.Duration.Minutes, video.Duration.Seconds,
			video.WatchKey, video.Views, video.PlaylistID, timeOrNow(video.CreatedAt))
		if err != nil {
			return fmt.Errorf("insert video %s: %w", id, err)
		}
		for _, userID := range video.LikedBy {
			if err := insertReaction(ctx, tx, id, "like", userID); err != nil {
				return err
			}
		}
		for _, userID := range video.DislikedBy {
			if err := insertReaction(ctx, tx, id, "dislike", userID); err != nil {
				return err
			}
		}
		for _, comment := range video.Comments {
			_, err := tx.Exec(ctx,
				`INSERT INTO comments (id, video_id, author_id, author_name, author_image, body, created_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT (id) DO NOTHING`,
				comment.ID, id, comment.Author.ID, comment.Author.Name, comment.Author.Image,
				comment.Text, timeOrNow(comment.CreatedAt))
			if err != nil {
				return fmt.Errorf("insert comment %s: %w", comment.ID, err)
			}
			for _, reply := range comment.Replies {
				_, err := tx.Exec(ctx,
					`INSERT INTO replies (id, comment_id, author_id, author_name, author_image, body, created_at)
					 VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT (id) DO NOTHING`,
					reply.ID, comment.ID, reply.Author.ID, reply.Author.Name, reply.Author.Image,
					reply.Text, timeOrNow(reply.CreatedAt))
				if err != nil {
					return fmt.Errorf("insert reply %s: %w", reply.ID, err)
				}
			}
		}
	}
	return nil
}

func insertReaction(ctx context.Context, tx pgx.Tx, videoID, kind, userID string) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO video_reactions (video_id, kind, user_id) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
		videoID, kind, userID)
	if err != nil {
		return fmt.Errorf("insert %s reaction on %s: %w", kind, videoID, err)
	}
	return nil
}

func importSnapshotUserLists(ctx context.Context, tx pgx.Tx, users map[string]models.User) error {
	for _, id := range sortedKeys(users) {
		user := users[id]
		for _, entry := range user.Subscriptions {
			_, err := tx.Exec(ctx,
				`INSERT INTO subscriptions (subscriber_id, channel_id, channel_name, channel_image, channel_subscribers, subscribed_at)
				 VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT DO NOTHING`,
				id, entry.ChannelID, entry.Name, entry.Image, entry.Subscribers, timeOrNow(entry.SubscribedAt))
			if err != nil {
				return fmt.Errorf("insert subscription %s->%s: %w", id, entry.ChannelID, err)
			}
		}
		for _, entry := range user.Videos {
			_, err := tx.Exec(ctx,
				`INSERT INTO owned_videos (user_id, video_id, title, views, thumbnail, watch_key)
				 VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT DO NOTHING`,
				id, entry.VideoID, entry.Title, entry.Views, entry.Thumbnail, entry.WatchKey)
			if err != nil {
				return fmt.Errorf("insert owned video %s/%s: %w", id, entry.VideoID, err)
			}
		}
		for _, playlist := range user.Playlists {
			_, err := tx.Exec(ctx,
				`INSERT INTO playlists (id, owner_id, title, created_at)
				 VALUES ($1, $2, $3, $4) ON CONFLICT (id) DO NOTHING`,
				playlist.ID, id, playlist.Title, timeOrNow(playlist.CreatedAt))
			if err != nil {
				return fmt.Errorf("insert playlist %s: %w", playlist.ID, err)
			}
			for _, entry := range playlist.Videos {
				_, err := tx.Exec(ctx,
					`INSERT INTO playlist_videos (playlist_id, video_id, title, thumbnail, watch_key)
					 VALUES ($1, $2, $3, $4, $5) ON CONFLICT DO NOTHING`,
					playlist.ID, entry.VideoID, entry.Title, entry.Thumbnail, entry.WatchKey)
				if err != nil {
					return fmt.Errorf("insert playlist video %s/%s: %w", playlist.ID, entry.VideoID, err)
				}
			}
		}
		for _, entry := range user.History {
			_, err := tx.Exec(ctx,
				`INSERT INTO history (user_id, video_id, watch_key, title, thumbnail,
					duration_hours, duration_minutes, duration_seconds, position, watched_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) ON CONFLICT DO NOTHING`,
				id, entry.VideoID, entry.WatchKey, entry.Title, entry.Thumbnail,
				entry.Duration.Hours, entry.Duration.Minutes, entry.Duration.Seconds,
				entry.Position, timeOrNow(entry.WatchedAt))
			if err != nil {
				return fmt.Errorf("insert history %s/%s: %w", id, entry.VideoID, err)
			}
		}
		for _, notification := range user.Notifications {
			_, err := tx.Exec(ctx,
				`INSERT INTO notifications (id, user_id, type, content, read, watch_key, actor_id, actor_name, actor_image, created_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) ON CONFLICT (id) DO NOTHING`,
				notification.ID, id, notification.Type, notification.Content, notification.Read,
				notification.WatchKey, notification.Actor.ID, notification.Actor.Name,
				notification.Actor.Image, timeOrNow(notification.CreatedAt))
			if err != nil {
				return fmt.Errorf("insert notification %s: %w", notification.ID, err)
			}
		}
	}
	return nil
}
