package api

import (
	"fmt"
	"net/http"
	"strings"

	"clipstream/internal/models"
	"clipstream/internal/storage"
)

type channelPageResponse struct {
	Channel channelResponse `json:"channel"`
	Videos  []models.Video  `json:"videos"`
}

type subscriptionResponse struct {
	Status string `json:"status"`
}

// ChannelByID serves the public channel surface:
//
//	GET    /api/channels/{id}               channel page with its videos
//	GET    /api/channels/{id}/videos        just the channel's videos
//	POST   /api/channels/{id}/subscription  subscribe
//	DELETE /api/channels/{id}/subscription  unsubscribe
func (h *Handler) ChannelByID(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.TrimPrefix(r.URL.Path, "/api/channels/")
	parts := strings.Split(strings.Trim(trimmed, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusNotFound, fmt.Errorf("channel id missing"))
		return
	}
	channelID := parts[0]

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, "GET")
			return
		}
		h.channelPage(w, channelID)
		return
	}

	switch parts[1] {
	case "videos":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, "GET")
			return
		}
		if _, ok := h.Store.GetUser(channelID); !ok {
			writeError(w, http.StatusNotFound, fmt.Errorf("channel %s not found", channelID))
			return
		}
		writeJSON(w, http.StatusOK, h.channelVideos(channelID))
	case "subscription":
		h.subscription(w, r, channelID)
	default:
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown channel resource %s", parts[1]))
	}
}

func (h *Handler) channelPage(w http.ResponseWriter, channelID string) {
	channel, ok := h.Store.GetUser(channelID)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("channel %s not found", channelID))
		return
	}
	writeJSON(w, http.StatusOK, channelPageResponse{
		Channel: newChannelResponse(channel),
		Videos:  h.channelVideos(channelID),
	})
}

func (h *Handler) channelVideos(channelID string) []models.Video {
	videos := make([]models.Video, 0)
	for _, video := range h.Store.ListVideos() {
		if video.Owner.ID == channelID {
			videos = append(videos, video)
		}
	}
	return videos
}

func (h *Handler) subscription(w http.ResponseWriter, r *http.Request, channelID string) {
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodPost:
		outcome, err := h.Store.Subscribe(user.ID, channelID)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		status := "subscribed"
		if outcome == storage.SubscribeNoop {
			status = "already_subscribed"
		}
		writeJSON(w, http.StatusOK, subscriptionResponse{Status: status})
	case http.MethodDelete:
		outcome, err := h.Store.Unsubscribe(user.ID, channelID)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		status := "unsubscribed"
		if outcome == storage.UnsubscribeNoop {
			status = "not_subscribed"
		}
		writeJSON(w, http.StatusOK, subscriptionResponse{Status: status})
	default:
		methodNotAllowed(w, r, "POST, DELETE")
	}
}
