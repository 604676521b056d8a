package storage

import (
	"errors"
	"testing"
)

func TestPublishVideoSnapshotsOwnerAndOwnedList(t *testing.T) {
	store := newTestStore(t)
	ownerID := createTestUser(t, store, "Owner")

	video, err := store.PublishVideo(PublishVideoParams{
		OwnerID:         ownerID,
		FilePath:        "media/clip.mp4",
		Thumbnail:       "thumbs/clip.jpg",
		Title:           "  First Upload  ",
		Description:     "a description",
		Tags:            []string{"go", "GO", " music "},
		Category:        "tech",
		DurationSeconds: 3724,
	})
	if err != nil {
		t.Fatalf("PublishVideo error: %v", err)
	}
	if video.Title != "First Upload" {
		t.Fatalf("expected trimmed title, got %q", video.Title)
	}
	if len(video.Tags) != 2 {
		t.Fatalf("expected deduplicated tags, got %v", video.Tags)
	}
	if video.Duration.Hours != 1 || video.Duration.Minutes != 2 || video.Duration.Seconds != 4 {
		t.Fatalf("unexpected duration split: %+v", video.Duration)
	}
	if video.WatchKey == 0 {
		t.Fatal("expected a watch key")
	}
	if video.Owner.ID != ownerID || video.Owner.Name != "Owner" {
		t.Fatalf("unexpected owner snapshot: %+v", video.Owner)
	}

	owner, _ := store.GetUser(ownerID)
	if len(owner.Videos) != 1 {
		t.Fatalf("expected one owned-video entry, got %d", len(owner.Videos))
	}
	if owner.Videos[0].VideoID != video.ID || owner.Videos[0].Title != "First Upload" {
		t.Fatalf("unexpected owned entry: %+v", owner.Videos[0])
	}
	if owner.Videos[0].WatchKey != video.WatchKey {
		t.Fatal("owned entry watch key mismatch")
	}
}

func TestPublishVideoValidation(t *testing.T) {
	store := newTestStore(t)
	ownerID := createTestUser(t, store, "Owner")

	if _, err := store.PublishVideo(PublishVideoParams{OwnerID: ownerID, FilePath: "a.mp4"}); err == nil {
		t.Fatal("expected error for missing title")
	}
	if _, err := store.PublishVideo(PublishVideoParams{OwnerID: ownerID, Title: "t"}); err == nil {
		t.Fatal("expected error for missing file path")
	}
	if _, err := store.PublishVideo(PublishVideoParams{OwnerID: "missing", Title: "t", FilePath: "a.mp4"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown owner, got %v", err)
	}
}

func TestRegisterViewIncrementsCanonicalCounterOnly(t *testing.T) {
	store := newTestStore(t)
	ownerID := createTestUser(t, store, "Owner")
	videoID := publishTestVideo(t, store, ownerID, "viewed")
	video, _ := store.GetVideo(videoID)

	updated, err := store.RegisterView(video.WatchKey)
	if err != nil {
		t.Fatalf("RegisterView error: %v", err)
	}
	if updated.Views != 1 {
		t.Fatalf("expected 1 view, got %d", updated.Views)
	}

	// The owned-video snapshot catches up at reconcile time, not here.
	owner, _ := store.GetUser(ownerID)
	if owner.Videos[0].Views != 0 {
		t.Fatalf("owned snapshot must lag until reconcile, got %d", owner.Videos[0].Views)
	}

	if _, err := store.RegisterView(404); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown watch key, got %v", err)
	}
}

func TestEditVideoUpdatesOwnedSnapshot(t *testing.T) {
	store := newTestStore(t)
	ownerID := createTestUser(t, store, "Owner")
	videoID := publishTestVideo(t, store, ownerID, "original title")

	title := "edited title"
	thumbnail := "thumbs/edited.jpg"
	video, err := store.EditVideo(videoID, ownerID, VideoEdit{Title: &title, Thumbnail: &thumbnail})
	if err != nil {
		t.Fatalf("EditVideo error: %v", err)
	}
	if video.Title != "edited title" {
		t.Fatalf("canonical title not updated: %q", video.Title)
	}

	owner, _ := store.GetUser(ownerID)
	if owner.Videos[0].Title != "edited title" || owner.Videos[0].Thumbnail != "thumbs/edited.jpg" {
		t.Fatalf("owned snapshot not re-synchronised: %+v", owner.Videos[0])
	}
}

func TestEditVideoRejectsNonOwner(t *testing.T) {
	store := newTestStore(t)
	ownerID := createTestUser(t, store, "Owner")
	otherID := createTestUser(t, store, "Other")
	videoID := publishTestVideo(t, store, ownerID, "guarded")

	title := "stolen"
	if _, err := store.EditVideo(videoID, otherID, VideoEdit{Title: &title}); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if _, err := store.EditVideo(videoID, "", VideoEdit{Title: &title}); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestEditVideoMovesBetweenPlaylists(t *testing.T) {
	store := newTestStore(t)
	ownerID := createTestUser(t, store, "Owner")
	videoID := publishTestVideo(t, store, ownerID, "playlisted")

	first, err := store.CreatePlaylist(ownerID, "first")
	if err != nil {
		t.Fatalf("CreatePlaylist error: %v", err)
	}
	second, err := store.CreatePlaylist(ownerID, "second")
	if err != nil {
		t.Fatalf("CreatePlaylist error: %v", err)
	}

	assign := first.ID
	if _, err := store.EditVideo(videoID, ownerID, VideoEdit{PlaylistID: &assign}); err != nil {
		t.Fatalf("assign playlist error: %v", err)
	}
	entries, err := store.PlaylistVideos(ownerID, first.ID)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one entry in first playlist, got %d err=%v", len(entries), err)
	}

	move := second.ID
	if _, err := store.EditVideo(videoID, ownerID, VideoEdit{PlaylistID: &move}); err != nil {
		t.Fatalf("move playlist error: %v", err)
	}
	entries, _ = store.PlaylistVideos(ownerID, first.ID)
	if len(entries) != 0 {
		t.Fatalf("expected move to remove from the old playlist, got %d entries", len(entries))
	}
	entries, _ = store.PlaylistVideos(ownerID, second.ID)
	if len(entries) != 1 {
		t.Fatalf("expected move to insert into the new playlist, got %d entries", len(entries))
	}

	video, _ := store.GetVideo(videoID)
	if video.PlaylistID != second.ID {
		t.Fatalf("canonical playlist id not updated: %q", video.PlaylistID)
	}

	clear := ""
	if _, err := store.EditVideo(videoID, ownerID, VideoEdit{PlaylistID: &clear}); err != nil {
		t.Fatalf("clear playlist error: %v", err)
	}
	entries, _ = store.PlaylistVideos(ownerID, second.ID)
	if len(entries) != 0 {
		t.Fatal("expected clearing to remove the playlist entry")
	}

	missing := "nope"
	if _, err := store.EditVideo(videoID, ownerID, VideoEdit{PlaylistID: &missing}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown playlist, got %v", err)
	}
}

func TestDeleteVideoCascades(t *testing.T) {
	store := newTestStore(t)
	ownerID := createTestUser(t, store, "Owner")
	watcherID := createTestUser(t, store, "Watcher")
	videoID := publishTestVideo(t, store, ownerID, "doomed")
	keptID := publishTestVideo(t, store, ownerID, "survivor")

	playlist, err := store.CreatePlaylist(ownerID, "mix")
	if err != nil {
		t.Fatalf("CreatePlaylist error: %v", err)
	}
	assign := playlist.ID
	if _, err := store.EditVideo(videoID, ownerID, VideoEdit{PlaylistID: &assign}); err != nil {
		t.Fatalf("assign playlist error: %v", err)
	}
	if _, err := store.RecordWatch(watcherID, videoID, 30); err != nil {
		t.Fatalf("RecordWatch error: %v", err)
	}
	if _, err := store.RecordWatch(watcherID, keptID, 5); err != nil {
		t.Fatalf("RecordWatch error: %v", err)
	}

	deleted, err := store.DeleteVideo(videoID, ownerID)
	if err != nil {
		t.Fatalf("DeleteVideo error: %v", err)
	}
	if deleted.FilePath == "" {
		t.Fatal("expected the deleted document back for media cleanup")
	}

	if _, ok := store.GetVideo(videoID); ok {
		t.Fatal("canonical record still present")
	}
	owner, _ := store.GetUser(ownerID)
	for _, entry := range owner.Videos {
		if entry.VideoID == videoID {
			t.Fatal("owned-video entry not removed")
		}
	}
	history, _ := store.ListHistory(watcherID)
	if len(history) != 1 || history[0].VideoID != keptID {
		t.Fatalf("expected only the surviving video in history, got %+v", history)
	}
	entries, _ := store.PlaylistVideos(ownerID, playlist.ID)
	if len(entries) != 0 {
		t.Fatal("playlist entry not removed")
	}
}

func TestDeleteVideoRejectsNonOwner(t *testing.T) {
	store := newTestStore(t)
	ownerID := createTestUser(t, store, "Owner")
	otherID := createTestUser(t, store, "Other")
	videoID := publishTestVideo(t, store, ownerID, "kept")

	if _, err := store.DeleteVideo(videoID, otherID); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if _, ok := store.GetVideo(videoID); !ok {
		t.Fatal("video must survive a rejected delete")
	}
}

func TestRelatedVideosMatchesCategoryAndExcludesSelf(t *testing.T) {
	store := newTestStore(t)
	ownerID := createTestUser(t, store, "Owner")
	videoID := publishTestVideo(t, store, ownerID, "anchor")
	publishTestVideo(t, store, ownerID, "same category")
	otherID := publishTestVideo(t, store, ownerID, "different")
	other := "gaming"
	if _, err := store.EditVideo(otherID, ownerID, VideoEdit{Category: &other}); err != nil {
		t.Fatalf("EditVideo error: %v", err)
	}

	related := store.RelatedVideos("Music", videoID)
	if len(related) != 1 {
		t.Fatalf("expected one case-insensitive category match, got %d", len(related))
	}
	if related[0].ID == videoID {
		t.Fatal("related list must exclude the anchor video")
	}
}
