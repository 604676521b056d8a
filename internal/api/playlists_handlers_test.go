package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"clipstream/internal/models"
	"clipstream/internal/storage"
)

func TestPlaylistLifecycle(t *testing.T) {
	handler, store := newTestHandler(t)
	owner, token := createTestAccount(t, handler, store, "Owner")
	video := publishTestVideo(t, store, owner.ID, "collected")

	createRec := httptest.NewRecorder()
	body := bytes.NewBufferString(`{"title":"Favorites"}`)
	handler.Playlists(createRec, authenticated(httptest.NewRequest(http.MethodPost, "/api/playlists", body), token))
	if createRec.Code != http.StatusCreated {
		t.Fatalf("unexpected create status: %d body %s", createRec.Code, createRec.Body.String())
	}
	var playlist models.Playlist
	if err := json.Unmarshal(createRec.Body.Bytes(), &playlist); err != nil {
		t.Fatalf("failed to decode playlist: %v", err)
	}
	if playlist.Title != "Favorites" || playlist.ID == "" {
		t.Fatalf("unexpected playlist: %+v", playlist)
	}

	if _, err := store.EditVideo(video.ID, owner.ID, storage.VideoEdit{PlaylistID: &playlist.ID}); err != nil {
		t.Fatalf("failed to assign video: %v", err)
	}

	entriesRec := httptest.NewRecorder()
	handler.PlaylistByID(entriesRec, authenticated(httptest.NewRequest(http.MethodGet, "/api/playlists/"+playlist.ID, nil), token))
	if entriesRec.Code != http.StatusOK {
		t.Fatalf("unexpected entries status: %d", entriesRec.Code)
	}
	var entries []models.PlaylistVideoEntry
	if err := json.Unmarshal(entriesRec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("failed to decode entries: %v", err)
	}
	if len(entries) != 1 || entries[0].VideoID != video.ID {
		t.Fatalf("unexpected playlist entries: %+v", entries)
	}

	deleteRec := httptest.NewRecorder()
	handler.PlaylistByID(deleteRec, authenticated(httptest.NewRequest(http.MethodDelete, "/api/playlists/"+playlist.ID, nil), token))
	if deleteRec.Code != http.StatusNoContent {
		t.Fatalf("unexpected delete status: %d", deleteRec.Code)
	}

	cleared, ok := store.GetVideo(video.ID)
	if !ok {
		t.Fatal("expected video to survive playlist deletion")
	}
	if cleared.PlaylistID != "" {
		t.Fatalf("expected membership cleared, got %q", cleared.PlaylistID)
	}
}

func TestCreatePlaylistValidation(t *testing.T) {
	handler, store := newTestHandler(t)
	_, token := createTestAccount(t, handler, store, "Owner")

	rec := httptest.NewRecorder()
	body := bytes.NewBufferString(`{"title":"   "}`)
	handler.Playlists(rec, authenticated(httptest.NewRequest(http.MethodPost, "/api/playlists", body), token))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected bad request for blank title, got %d", rec.Code)
	}
}

func TestDeletePlaylistOwnedByAnotherForbidden(t *testing.T) {
	handler, store := newTestHandler(t)
	owner, _ := createTestAccount(t, handler, store, "Owner")
	_, intruderToken := createTestAccount(t, handler, store, "Intruder")

	playlist, err := store.CreatePlaylist(owner.ID, "private mix")
	if err != nil {
		t.Fatalf("failed to create playlist: %v", err)
	}

	rec := httptest.NewRecorder()
	handler.PlaylistByID(rec, authenticated(httptest.NewRequest(http.MethodDelete, "/api/playlists/"+playlist.ID, nil), intruderToken))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected forbidden, got %d", rec.Code)
	}
}
