package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/AnshRaj112/bolt-backend/internal/apierr"
	"github.com/AnshRaj112/bolt-backend/internal/middleware"
	"github.com/AnshRaj112/bolt-backend/internal/models"
	"github.com/AnshRaj112/bolt-backend/internal/services"
	"github.com/AnshRaj112/bolt-backend/internal/store"
	"github.com/AnshRaj112/bolt-backend/pkg/utils"
)

// UpdateProfileRequest carries optional profile fields; nil means unchanged.
type UpdateProfileRequest struct {
	Username      *string `json:"username"`
	AvatarURL     *string `json:"avatarUrl"`
	Notifications *bool   `json:"notifications"`
	Theme         *string `json:"theme"`
}

type AmountRequest struct {
	Amount int64 `json:"amount"`
}

// GetProfile returns the authenticated account
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	acct, _ := middleware.AccountFrom(r.Context())
	writeJSON(w, http.StatusOK, envelope{"user": acct})
}

// UpdateProfile changes username, avatar, notifications or theme
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	acct, _ := middleware.AccountFrom(r.Context())

	var req UpdateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	var verrs services.ValidationErrors
	if req.Username != nil {
		u := strings.TrimSpace(*req.Username)
		req.Username = &u
		if err := services.ValidateUsername(u); err != nil {
			verrs = append(verrs, err.(*utils.ValidationError))
		}
	}
	if req.Theme != nil && *req.Theme != models.ThemeDark && *req.Theme != models.ThemeLight {
		verrs = append(verrs, &utils.ValidationError{Field: "theme", Message: "Theme must be dark or light"})
	}
	if len(verrs) > 0 {
		h.writeError(w, r, verrs)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	if req.Username != nil && *req.Username != acct.Username {
		other, err := h.store.FindByUsername(ctx, *req.Username)
		if err == nil && other.ID != acct.ID {
			h.writeError(w, r, store.ErrUsernameTaken)
			return
		}
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			h.writeError(w, r, err)
			return
		}
	}

	updated, err := h.progression.Apply(ctx, acct.ID, services.EventProfile, func(a *models.Account) (bool, error) {
		if req.Username != nil {
			a.Username = *req.Username
		}
		if req.AvatarURL != nil {
			a.AvatarURL = req.AvatarURL
		}
		if req.Notifications != nil {
			a.Notifications = *req.Notifications
		}
		if req.Theme != nil {
			a.Theme = *req.Theme
		}
		return false, nil
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"user": updated, "message": "Profile updated successfully"})
}

// UploadAvatar stores a new profile picture and saves its URL
func (h *Handler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	if h.avatars == nil {
		h.writeError(w, r, services.ErrAvatarsDisabled)
		return
	}
	acct, _ := middleware.AccountFrom(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, services.MaxAvatarBytes+(1<<20))
	if err := r.ParseMultipartForm(services.MaxAvatarBytes); err != nil {
		h.writeError(w, r, apierr.BadRequest("Failed to parse form", err))
		return
	}
	file, fh, err := r.FormFile("avatar")
	if err != nil {
		h.writeError(w, r, apierr.BadRequest("No avatar file provided", err))
		return
	}
	file.Close()

	url, err := h.avatars.UploadAvatar(r.Context(), fh, acct.Username, acct.ID.Hex())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()
	updated, err := h.progression.Apply(ctx, acct.ID, services.EventProfile, func(a *models.Account) (bool, error) {
		a.AvatarURL = &url
		return false, nil
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"user": updated, "avatarUrl": url, "message": "Avatar uploaded successfully"})
}

// Stats returns the full progression summary including coin rank
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	acct, _ := middleware.AccountFrom(r.Context())

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	rank, err := h.board.Rank(ctx, acct)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"stats": envelope{
		"level":                acct.Level,
		"xp":                   acct.XP,
		"coins":                acct.Coins,
		"lifetimeCoins":        acct.LifetimeCoins,
		"currentStreak":        acct.CurrentStreak,
		"longestStreak":        acct.LongestStreak,
		"gamesPlayed":          acct.GamesPlayed,
		"gamesWon":             acct.GamesWon,
		"winRate":              acct.WinRate(),
		"totalPlayTime":        acct.TotalPlayTime,
		"tasksCompleted":       acct.TasksCompleted,
		"dailyTasksCompleted":  acct.DailyTasksCompleted,
		"weeklyTasksCompleted": acct.WeeklyTasksCompleted,
		"friendsCount":         len(acct.Friends),
		"rank":                 rank,
	}})
}

// Leaderboard lists top accounts by ?type=coins|level|streak|games
func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := services.DefaultLeaderboardLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			h.writeError(w, r, apierr.BadRequest("Invalid limit", err))
			return
		}
		limit = n
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	entries, err := h.board.Top(ctx, store.ParseSortField(q.Get("type")), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"leaderboard": entries})
}

// AddCoins grants coins to the authenticated account
func (h *Handler) AddCoins(w http.ResponseWriter, r *http.Request) {
	acct, _ := middleware.AccountFrom(r.Context())

	var req AmountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	updated, err := h.progression.AddCoins(ctx, acct.ID, req.Amount)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"message": "Coins added successfully", "newBalance": updated.Coins})
}

// AddXP grants xp, paying any level-up bonus
func (h *Handler) AddXP(w http.ResponseWriter, r *http.Request) {
	acct, _ := middleware.AccountFrom(r.Context())

	var req AmountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	updated, up, err := h.progression.AddXP(ctx, acct.ID, req.Amount)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		"message":      "XP added successfully",
		"newXP":        updated.XP,
		"newLevel":     updated.Level,
		"leveledUp":    up.LeveledUp,
		"levelUpBonus": up.Bonus,
	})
}
