package handler

import (
	"encoding/json"
	"net/http"

	"github.com/dukerupert/hearth/internal/store"
)

const sessionCookieName = "hearth_session"

type AuthHandler struct {
	users    *store.UserStore
	sessions *store.SessionStore
}

func NewAuthHandler(users *store.UserStore, sessions *store.SessionStore) *AuthHandler {
	return &AuthHandler{users: users, sessions: sessions}
}

type loginRequest struct {
	UserID string `json:"user_id"`
	PIN    string `json:"pin"`
}

// Login verifies the member PIN and issues a session cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON", Code: "bad_request"})
		return
	}

	u, err := h.users.GetByID(req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	if u == nil {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid credentials", Code: "invalid_credentials"})
		return
	}

	ok, err := h.users.VerifyPIN(req.UserID, req.PIN)
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid credentials", Code: "invalid_credentials"})
		return
	}

	sess, token, err := h.sessions.Create(u.ID, u.FamilyID)
	if err != nil {
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, u)
}

// Logout deletes the session and clears the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		if err := h.sessions.Delete(cookie.Value); err != nil {
			writeError(w, err)
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}
