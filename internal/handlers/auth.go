package handlers

import (
	"net/http"
	"time"

	"github.com/AnshRaj112/bolt-backend/internal/middleware"
	"github.com/AnshRaj112/bolt-backend/internal/services"
)

type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Signup handles account registration
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	sess, err := h.auth.Signup(ctx, req.Username, req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeSession(w, http.StatusCreated, sess)
}

// Login handles sign in with email and password
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	sess, err := h.auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeSession(w, http.StatusOK, sess)
}

// Me returns the authenticated account
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	acct, _ := middleware.AccountFrom(r.Context())
	writeJSON(w, http.StatusOK, envelope{"user": acct})
}

// Refresh issues a new token for the current session
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	acct, _ := middleware.AccountFrom(r.Context())
	sess, err := h.auth.Refresh(acct)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeSession(w, http.StatusOK, sess)
}

// Logout clears the session cookie and revokes the presented token, if any.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := middleware.TokenFromRequest(r); token != "" {
		if claims, err := h.tokens.Parse(r.Context(), token); err == nil {
			if err := h.tokens.Revoke(r.Context(), claims); err != nil {
				h.log.Warn("token revoke failed", "error", err)
			}
		}
	}
	h.setSessionCookie(w, "", -1)
	writeJSON(w, http.StatusOK, envelope{"message": "Logged out successfully"})
}

func (h *Handler) writeSession(w http.ResponseWriter, status int, sess *services.Session) {
	h.setSessionCookie(w, sess.Token, int(time.Until(sess.ExpiresAt).Seconds()))
	writeJSON(w, status, envelope{
		"message": "Authentication successful",
		"token":   sess.Token,
		"user":    sess.Account,
	})
}

// setSessionCookie writes the auth cookie; maxAge < 0 deletes it.
func (h *Handler) setSessionCookie(w http.ResponseWriter, token string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
