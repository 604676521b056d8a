// Command migrate-json-to-postgres copies a JSON datastore into Postgres.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"clipstream/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
)

type snapshotImporter interface {
	ImportSnapshot(ctx context.Context, snapshot *storage.Snapshot) error
}

func main() {
	jsonPath := flag.String("json", "data/clipstream.json", "path to the JSON datastore to migrate")
	postgresDSN := flag.String("postgres-dsn", "", "Postgres connection string")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	dsn := strings.TrimSpace(*postgresDSN)
	if dsn == "" {
		dsn = strings.TrimSpace(os.Getenv("CLIPSTREAM_POSTGRES_DSN"))
	}
	if dsn == "" {
		dsn = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	}
	if dsn == "" {
		logger.Error("postgres DSN required", "hint", "set --postgres-dsn, CLIPSTREAM_POSTGRES_DSN, or DATABASE_URL")
		os.Exit(1)
	}

	file, err := os.Open(*jsonPath)
	if err != nil {
		logger.Error("failed to open JSON datastore", "error", err)
		os.Exit(1)
	}
	snapshot, err := storage.ReadSnapshot(file)
	file.Close()
	if err != nil {
		logger.Error("failed to parse JSON datastore", "error", err)
		os.Exit(1)
	}
	counts := snapshot.Counts()
	logger.Info("loaded JSON snapshot", "path", *jsonPath,
		"users", counts.Users, "videos", counts.Videos,
		"subscriptions", counts.Subscriptions, "comments", counts.Comments)

	repo, err := storage.NewPostgresRepository(dsn)
	if err != nil {
		logger.Error("failed to open postgres repository", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closer, ok := repo.(interface{ Close(context.Context) error }); ok {
			_ = closer.Close(context.Background())
		}
	}()

	importer, ok := repo.(snapshotImporter)
	if !ok {
		logger.Error("postgres repository does not support snapshot import")
		os.Exit(1)
	}
	if err := importer.ImportSnapshot(context.Background(), snapshot); err != nil {
		logger.Error("failed to import snapshot", "error", err)
		os.Exit(1)
	}

	if err := verifyCounts(context.Background(), dsn, counts); err != nil {
		logger.Error("verification failed", "error", err)
		os.Exit(1)
	}

	logger.Info("migration completed", "users", counts.Users, "videos", counts.Videos)
}

func verifyCounts(ctx context.Context, dsn string, counts storage.SnapshotCounts) error {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return fmt.Errorf("parse verification config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open verification connection: %w", err)
	}
	defer pool.Close()

	checks := []struct {
		name     string
		query    string
		expected int
	}{
		{"users", "SELECT COUNT(*) FROM users", counts.Users},
		{"videos", "SELECT COUNT(*) FROM videos", counts.Videos},
		{"subscriptions", "SELECT COUNT(*) FROM subscriptions", counts.Subscriptions},
		{"playlists", "SELECT COUNT(*) FROM playlists", counts.Playlists},
		{"history", "SELECT COUNT(*) FROM history", counts.HistoryItems},
		{"comments", "SELECT COUNT(*) FROM comments", counts.Comments},
	}

	for _, check := range checks {
		var actual int
		if err := pool.QueryRow(ctx, check.query).Scan(&actual); err != nil {
			return fmt.Errorf("query %s: %w", check.name, err)
		}
		if actual != check.expected {
			return fmt.Errorf("mismatch for %s: expected %d, got %d", check.name, check.expected, actual)
		}
	}
	return nil
}
