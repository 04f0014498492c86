package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/AnshRaj112/bolt-backend/internal/apierr"
	"github.com/AnshRaj112/bolt-backend/internal/ledger"
	"github.com/AnshRaj112/bolt-backend/internal/services"
	"github.com/AnshRaj112/bolt-backend/internal/store"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

type envelope map[string]interface{}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return apierr.BadRequest("Invalid request body", err)
	}
	return nil
}

// toAPIError maps domain errors onto the HTTP surface.
func toAPIError(err error) *apierr.Error {
	var ae *apierr.Error
	if errors.As(err, &ae) {
		return ae
	}
	var verrs services.ValidationErrors
	if errors.As(err, &verrs) {
		return apierr.BadRequest("Validation failed", err).WithDetails(envelope{"errors": verrs})
	}
	var ice *ledger.InsufficientCoinsError
	if errors.As(err, &ice) {
		return apierr.BadRequest("Insufficient coins", err).WithDetails(envelope{
			"required":  ice.Required,
			"available": ice.Available,
		})
	}

	switch {
	case errors.Is(err, ledger.ErrInvalidAmount):
		return apierr.BadRequest("Invalid amount", err)
	case errors.Is(err, ledger.ErrInvalidTask):
		return apierr.BadRequest("Invalid task ID", err)
	case errors.Is(err, ledger.ErrInvalidItem):
		return apierr.BadRequest("Invalid item ID", err)
	case errors.Is(err, store.ErrEmailTaken):
		return apierr.BadRequest("Email already registered", err)
	case errors.Is(err, store.ErrUsernameTaken):
		return apierr.BadRequest("Username already taken", err)
	case errors.Is(err, services.ErrInvalidCredentials):
		return apierr.New(http.StatusUnauthorized, "Invalid email or password", err)
	case errors.Is(err, store.ErrNotFound):
		return apierr.New(http.StatusNotFound, "User not found", err)
	case errors.Is(err, services.ErrConflict):
		return apierr.New(http.StatusConflict, "Account was updated by another request, please retry", err)
	case errors.Is(err, services.ErrAvatarsDisabled):
		return apierr.New(http.StatusServiceUnavailable, "Avatar uploads are not available", err)
	case errors.Is(err, services.ErrAvatarTooLarge):
		return apierr.New(http.StatusRequestEntityTooLarge, "Avatar must be 5MB or smaller", err)
	}
	return apierr.New(http.StatusInternalServerError, "Server error", err)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ae := toAPIError(err)
	if ae.Status >= 500 {
		h.log.Error("request failed", "path", r.URL.Path, "error", err)
	}
	body := envelope{"success": false, "message": ae.Message}
	for k, v := range ae.Details {
		body[k] = v
	}
	writeJSON(w, ae.Status, body)
}

// NotFound answers unknown routes.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, envelope{"success": false, "message": "Route not found"})
}

// MethodNotAllowed answers known routes hit with the wrong verb.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, envelope{"success": false, "message": "Method not allowed"})
}
