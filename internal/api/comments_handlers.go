package api

import (
	"fmt"
	"net/http"
)

type commentRequest struct {
	Text string `json:"text"`
}

// videoComments serves the comment sub-resources of a video:
//
//	GET  /api/videos/{id}/comments                 list comments
//	POST /api/videos/{id}/comments                 add a comment
//	POST /api/videos/{id}/comments/{cid}/replies   add a reply
func (h *Handler) videoComments(w http.ResponseWriter, r *http.Request, videoID string, rest []string) {
	if len(rest) == 0 {
		switch r.Method {
		case http.MethodGet:
			video, ok := h.Store.GetVideo(videoID)
			if !ok {
				writeError(w, http.StatusNotFound, fmt.Errorf("video %s not found", videoID))
				return
			}
			writeJSON(w, http.StatusOK, video.Comments)
		case http.MethodPost:
			user, ok := h.requireAuthenticatedUser(w, r)
			if !ok {
				return
			}
			var req commentRequest
			if err := decodeJSON(r, &req); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			comment, err := h.Store.AddComment(videoID, user.ID, req.Text)
			if err != nil {
				writeStorageError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, comment)
		default:
			methodNotAllowed(w, r, "GET, POST")
		}
		return
	}

	if len(rest) != 2 || rest[1] != "replies" {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown comment resource"))
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, "POST")
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	var req commentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	reply, err := h.Store.AddReply(videoID, rest[0], user.ID, req.Text)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, reply)
}
