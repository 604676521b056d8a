package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"clipstream/internal/models"
	"clipstream/internal/storage"
)

type publishVideoRequest struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Tags            []string `json:"tags"`
	Category        string   `json:"category"`
	FilePath        string   `json:"filePath"`
	Thumbnail       string   `json:"thumbnail"`
	DurationSeconds float64  `json:"durationSeconds"`
}

type editVideoRequest struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Tags        *[]string `json:"tags"`
	Category    *string   `json:"category"`
	Thumbnail   *string   `json:"thumbnail"`
	PlaylistID  *string   `json:"playlistId"`
}

type reactionResponse struct {
	Status   string `json:"status"`
	Likes    int    `json:"likes"`
	Dislikes int    `json:"dislikes"`
}

type watchResponse struct {
	Video   models.Video   `json:"video"`
	Related []models.Video `json:"related"`
}

// Videos serves the video collection:
//
//	GET  /api/videos  list all videos, newest first
//	POST /api/videos  publish a new video
func (h *Handler) Videos(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.Store.ListVideos())
	case http.MethodPost:
		user, ok := h.requireAuthenticatedUser(w, r)
		if !ok {
			return
		}
		var req publishVideoRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		video, err := h.Store.PublishVideo(storage.PublishVideoParams{
			OwnerID:         user.ID,
			Title:           req.Title,
			Description:     req.Description,
			Tags:            req.Tags,
			Category:        req.Category,
			FilePath:        req.FilePath,
			Thumbnail:       req.Thumbnail,
			DurationSeconds: req.DurationSeconds,
		})
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, video)
	default:
		methodNotAllowed(w, r, "GET, POST")
	}
}

// VideoByID serves a single video document and its sub-resources:
//
//	GET    /api/videos/{id}           canonical document
//	PATCH  /api/videos/{id}           edit fields, owner only
//	DELETE /api/videos/{id}           delete with cascade, owner only
//	POST   /api/videos/{id}/like      toggle like
//	POST   /api/videos/{id}/dislike   toggle dislike
//	GET    /api/videos/{id}/reactions reaction counts
func (h *Handler) VideoByID(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.TrimPrefix(r.URL.Path, "/api/videos/")
	parts := strings.Split(strings.Trim(trimmed, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusNotFound, fmt.Errorf("video id missing"))
		return
	}
	videoID := parts[0]

	if len(parts) == 1 {
		h.videoDocument(w, r, videoID)
		return
	}

	switch parts[1] {
	case "like":
		h.toggleReaction(w, r, videoID, storage.ReactionLike)
	case "dislike":
		h.toggleReaction(w, r, videoID, storage.ReactionDislike)
	case "reactions":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, "GET")
			return
		}
		likes, dislikes, err := h.Store.ReactionCounts(videoID)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, reactionResponse{Likes: likes, Dislikes: dislikes})
	case "comments":
		h.videoComments(w, r, videoID, parts[2:])
	default:
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown video resource %s", parts[1]))
	}
}

func (h *Handler) videoDocument(w http.ResponseWriter, r *http.Request, videoID string) {
	switch r.Method {
	case http.MethodGet:
		video, ok := h.Store.GetVideo(videoID)
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Errorf("video %s not found", videoID))
			return
		}
		writeJSON(w, http.StatusOK, video)
	case http.MethodPatch:
		user, ok := h.requireAuthenticatedUser(w, r)
		if !ok {
			return
		}
		var req editVideoRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		video, err := h.Store.EditVideo(videoID, user.ID, storage.VideoEdit{
			Title:       req.Title,
			Description: req.Description,
			Tags:        req.Tags,
			Category:    req.Category,
			Thumbnail:   req.Thumbnail,
			PlaylistID:  req.PlaylistID,
		})
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, video)
	case http.MethodDelete:
		user, ok := h.requireAuthenticatedUser(w, r)
		if !ok {
			return
		}
		if _, err := h.Store.DeleteVideo(videoID, user.ID); err != nil {
			writeStorageError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, "GET, PATCH, DELETE")
	}
}

func (h *Handler) toggleReaction(w http.ResponseWriter, r *http.Request, videoID string, kind storage.ReactionKind) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, "POST")
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	outcome, err := h.Store.ToggleReaction(videoID, user.ID, kind)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	likes, dislikes, err := h.Store.ReactionCounts(videoID)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	status := "added"
	if outcome == storage.ToggleAlreadyPresent {
		status = "already_present"
	}
	writeJSON(w, http.StatusOK, reactionResponse{Status: status, Likes: likes, Dislikes: dislikes})
}

// Watch resolves a shareable watch key:
//
//	GET  /api/watch/{key}       video plus related videos
//	POST /api/watch/{key}/view  register a view
func (h *Handler) Watch(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.TrimPrefix(r.URL.Path, "/api/watch/")
	parts := strings.Split(strings.Trim(trimmed, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusNotFound, fmt.Errorf("watch key missing"))
		return
	}
	watchKey, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid watch key %s", parts[0]))
		return
	}

	if len(parts) > 1 && parts[1] == "view" {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, "POST")
			return
		}
		video, err := h.Store.RegisterView(watchKey)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, video)
		return
	}

	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, "GET")
		return
	}
	video, ok := h.Store.GetVideoByWatchKey(watchKey)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("watch key %d not found", watchKey))
		return
	}
	writeJSON(w, http.StatusOK, watchResponse{
		Video:   video,
		Related: h.Store.RelatedVideos(video.Category, video.ID),
	})
}

// Search performs a case-folded substring search over a single field:
//
//	GET /api/search?field=title&q=...
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, "GET")
		return
	}
	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("query parameter q is required"))
		return
	}
	field := storage.SearchField(r.URL.Query().Get("field"))
	switch field {
	case "":
		field = storage.SearchByTitle
	case storage.SearchByTitle, storage.SearchByTag, storage.SearchByCategory:
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown search field %s", field))
		return
	}
	writeJSON(w, http.StatusOK, h.Store.SearchVideos(field, query))
}
