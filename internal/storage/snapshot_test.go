package storage

import (
	"bytes"
	"strings"
	"testing"
)

func TestSnapshotExportImportRoundTrip(t *testing.T) {
	source := newTestStore(t)
	channelID := createTestUser(t, source, "Channel")
	fanID := createTestUser(t, source, "Fan")
	videoID := publishTestVideo(t, source, channelID, "archived")
	if _, err := source.Subscribe(fanID, channelID); err != nil {
		t.Fatalf("Subscribe error: %v", err)
	}
	if _, err := source.AddComment(videoID, fanID, "nice one"); err != nil {
		t.Fatalf("AddComment error: %v", err)
	}
	if _, err := source.RecordWatch(fanID, videoID, 30); err != nil {
		t.Fatalf("RecordWatch error: %v", err)
	}

	snapshot := source.ExportSnapshot()
	counts := snapshot.Counts()
	if counts.Users != 2 || counts.Videos != 1 {
		t.Fatalf("unexpected snapshot counts: %+v", counts)
	}
	if counts.Subscriptions != 1 || counts.Comments != 1 || counts.HistoryItems != 1 {
		t.Fatalf("embedded collections missing from counts: %+v", counts)
	}

	target := newTestStore(t)
	createTestUser(t, target, "Discarded")
	if err := target.ImportSnapshot(snapshot); err != nil {
		t.Fatalf("ImportSnapshot error: %v", err)
	}

	fan, ok := target.GetUser(fanID)
	if !ok {
		t.Fatal("expected imported user to resolve")
	}
	if len(fan.Subscriptions) != 1 || fan.Subscriptions[0].ChannelID != channelID {
		t.Fatalf("expected subscriptions to survive import, got %+v", fan.Subscriptions)
	}
	video, ok := target.GetVideo(videoID)
	if !ok {
		t.Fatal("expected imported video to resolve")
	}
	if len(video.Comments) != 1 || video.Comments[0].Text != "nice one" {
		t.Fatalf("expected comments to survive import, got %+v", video.Comments)
	}
	if _, ok := target.FindUserByEmail("discarded@example.com"); ok {
		t.Fatal("import must replace existing data, not merge")
	}
}

func TestSnapshotWriteReadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ownerID := createTestUser(t, store, "Owner")
	publishTestVideo(t, store, ownerID, "serialised")

	var buf bytes.Buffer
	if err := WriteSnapshot(&buf, store.ExportSnapshot()); err != nil {
		t.Fatalf("WriteSnapshot error: %v", err)
	}

	parsed, err := ReadSnapshot(&buf)
	if err != nil {
		t.Fatalf("ReadSnapshot error: %v", err)
	}
	counts := parsed.Counts()
	if counts.Users != 1 || counts.Videos != 1 {
		t.Fatalf("unexpected round-trip counts: %+v", counts)
	}
}

func TestReadSnapshotInitialisesEmptyCollections(t *testing.T) {
	parsed, err := ReadSnapshot(strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("ReadSnapshot error: %v", err)
	}
	if parsed.Users == nil || parsed.Videos == nil {
		t.Fatal("expected empty maps, got nil")
	}
}

func TestImportSnapshotRejectsNil(t *testing.T) {
	store := newTestStore(t)
	if err := store.ImportSnapshot(nil); err == nil {
		t.Fatal("expected error for nil snapshot")
	}
}
