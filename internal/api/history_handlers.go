package api

import (
	"fmt"
	"net/http"
	"strings"
)

type recordWatchRequest struct {
	VideoID  string  `json:"videoId"`
	Position float64 `json:"position"`
}

// History serves the authenticated user's watch history:
//
//	GET /api/history  list entries, most recent first
//	PUT /api/history  upsert the entry for a video
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		entries, err := h.Store.ListHistory(user.ID)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entries)
	case http.MethodPut:
		var req recordWatchRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		entry, err := h.Store.RecordWatch(user.ID, req.VideoID, req.Position)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entry)
	default:
		methodNotAllowed(w, r, "GET, PUT")
	}
}

// HistoryByVideo removes a single history entry:
//
//	DELETE /api/history/{videoId}
func (h *Handler) HistoryByVideo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, r, "DELETE")
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	videoID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/history/"), "/")
	if videoID == "" {
		writeError(w, http.StatusNotFound, fmt.Errorf("video id missing"))
		return
	}
	if err := h.Store.RemoveHistoryEntry(user.ID, videoID); err != nil {
		writeStorageError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
