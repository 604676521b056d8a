package api

import (
	"fmt"
	"net/http"
	"strings"
)

type createPlaylistRequest struct {
	Title string `json:"title"`
}

// Playlists serves the authenticated user's playlists:
//
//	GET  /api/playlists  list playlists
//	POST /api/playlists  create a playlist
func (h *Handler) Playlists(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, user.Playlists)
	case http.MethodPost:
		var req createPlaylistRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		playlist, err := h.Store.CreatePlaylist(user.ID, req.Title)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, playlist)
	default:
		methodNotAllowed(w, r, "GET, POST")
	}
}

// PlaylistByID serves a single playlist:
//
//	GET    /api/playlists/{id}         playlist video entries
//	DELETE /api/playlists/{id}         delete the playlist
func (h *Handler) PlaylistByID(w http.ResponseWriter, r *http.Request) {
	playlistID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/playlists/"), "/")
	if playlistID == "" {
		writeError(w, http.StatusNotFound, fmt.Errorf("playlist id missing"))
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		entries, err := h.Store.PlaylistVideos(user.ID, playlistID)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entries)
	case http.MethodDelete:
		if err := h.Store.DeletePlaylist(user.ID, playlistID); err != nil {
			writeStorageError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, "GET, DELETE")
	}
}
