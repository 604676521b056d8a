package api

import (
	"fmt"
	"net/http"
	"strings"
)

// Notifications lists the authenticated user's notifications, newest first:
//
//	GET /api/notifications
func (h *Handler) Notifications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, "GET")
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	notifications, err := h.Store.ListNotifications(user.ID)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notifications)
}

// NotificationByID marks a single notification as read:
//
//	POST /api/notifications/{id}/read
func (h *Handler) NotificationByID(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.TrimPrefix(r.URL.Path, "/api/notifications/")
	parts := strings.Split(strings.Trim(trimmed, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "read" {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown notification resource"))
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
	if err := h.Store.MarkNotificationRead(user.ID, parts[0]); err != nil {
		writeStorageError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
