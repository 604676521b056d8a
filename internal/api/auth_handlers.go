package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"clipstream/internal/models"
	"clipstream/internal/storage"
)

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// channelResponse is the public shape of a user document: no email, no
// password material, no embedded lists.
type channelResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Image       string    `json:"image,omitempty"`
	CoverPhoto  string    `json:"coverPhoto,omitempty"`
	Subscribers int       `json:"subscribers"`
	CreatedAt   time.Time `json:"createdAt"`
}

// accountResponse is the owner's view of their own document.
type accountResponse struct {
	channelResponse
	Email         string                     `json:"email"`
	Subscriptions []models.SubscriptionEntry `json:"subscriptions"`
	Videos        []models.OwnedVideoEntry   `json:"videos"`
	Playlists     []models.Playlist          `json:"playlists"`
}

type authResponse struct {
	User      accountResponse `json:"user"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

func newChannelResponse(user models.User) channelResponse {
	return channelResponse{
		ID:          user.ID,
		Name:        user.Name,
		Image:       user.Image,
		CoverPhoto:  user.CoverPhoto,
		Subscribers: user.Subscribers,
		CreatedAt:   user.CreatedAt,
	}
}

func newAccountResponse(user models.User) accountResponse {
	return accountResponse{
		channelResponse: newChannelResponse(user),
		Email:           user.Email,
		Subscriptions:   user.Subscriptions,
		Videos:          user.Videos,
		Playlists:       user.Playlists,
	}
}

func newAuthResponse(user models.User, expiresAt time.Time) authResponse {
	return authResponse{User: newAccountResponse(user), ExpiresAt: expiresAt}
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, "POST")
		return
	}

	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	user, err := h.Store.CreateUser(storage.CreateUserParams{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		slog.Warn("signup create user failed", "email", req.Email, "error", err)
		writeStorageError(w, err)
		return
	}

	token, expiresAt, err := h.sessionManager().Create(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	h.setSessionCookie(w, r, token, expiresAt)
	writeJSON(w, http.StatusCreated, newAuthResponse(user, expiresAt))
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, "POST")
		return
	}

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	user, err := h.Store.AuthenticateUser(req.Email, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, fmt.Errorf("invalid credentials"))
		return
	}

	token, expiresAt, err := h.sessionManager().Create(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	h.setSessionCookie(w, r, token, expiresAt)
	writeJSON(w, http.StatusOK, newAuthResponse(user, expiresAt))
}

func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		token := ExtractToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, fmt.Errorf("missing session token"))
			return
		}
		userID, expiresAt, ok, err := h.sessionManager().Validate(token)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if !ok {
			writeError(w, http.StatusUnauthorized, fmt.Errorf("invalid or expired session"))
			return
		}
		user, exists := h.Store.GetUser(userID)
		if !exists {
			writeError(w, http.StatusUnauthorized, fmt.Errorf("account not found"))
			return
		}
		writeJSON(w, http.StatusOK, newAuthResponse(user, expiresAt))
	case http.MethodDelete:
		token := ExtractToken(r)
		if token == "" {
			writeError(w, http.StatusBadRequest, fmt.Errorf("missing session token"))
			return
		}
		if err := h.sessionManager().Revoke(token); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		h.ClearSessionCookie(w, r)
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, "GET, DELETE")
	}
}
