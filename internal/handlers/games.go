package handlers

import (
	"net/http"
	"time"

	"github.com/AnshRaj112/bolt-backend/internal/apierr"
	"github.com/AnshRaj112/bolt-backend/internal/ledger"
	"github.com/AnshRaj112/bolt-backend/internal/middleware"
)

type StartGameRequest struct {
	GameID int `json:"gameId"`
}

// CompleteGameRequest reports a finished game. Duration is in seconds.
type CompleteGameRequest struct {
	GameID   int   `json:"gameId"`
	Score    int64 `json:"score"`
	Duration int64 `json:"duration"`
	Won      bool  `json:"won"`
}

// ListGames returns the game catalog
func (h *Handler) ListGames(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, envelope{"games": h.catalog.Games()})
}

func (h *Handler) GameCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, envelope{"categories": h.catalog.GameCategories()})
}

// StartGame acknowledges a game session. Nothing is persisted until completion.
func (h *Handler) StartGame(w http.ResponseWriter, r *http.Request) {
	var req StartGameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.GameID == 0 {
		h.writeError(w, r, apierr.BadRequest("Game ID is required", nil))
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		"message":   "Game started successfully",
		"gameId":    req.GameID,
		"startTime": time.Now().UTC(),
	})
}

// CompleteGame records the result and pays rewards
func (h *Handler) CompleteGame(w http.ResponseWriter, r *http.Request) {
	acct, _ := middleware.AccountFrom(r.Context())

	var req CompleteGameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.GameID == 0 {
		h.writeError(w, r, apierr.BadRequest("Game ID is required", nil))
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	updated, out, err := h.progression.CompleteGame(ctx, acct.ID, ledger.GameResult{
		GameID:          req.GameID,
		Score:           req.Score,
		DurationSeconds: req.Duration,
		Won:             req.Won,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		"message": "Game completed successfully",
		"rewards": rewardsBody(out.CoinsEarned, out.XPEarned, out.LevelUp, updated.Coins, updated.XP, updated.Level),
		"stats":   out.Stats,
	})
}

// GameStats returns the caller's play statistics
func (h *Handler) GameStats(w http.ResponseWriter, r *http.Request) {
	acct, _ := middleware.AccountFrom(r.Context())
	writeJSON(w, http.StatusOK, envelope{"stats": envelope{
		"gamesPlayed":     acct.GamesPlayed,
		"gamesWon":        acct.GamesWon,
		"winRate":         acct.WinRate(),
		"totalPlayTime":   acct.TotalPlayTime,
		"averagePlayTime": acct.AveragePlayTime(),
	}})
}

func rewardsBody(coins, xp int64, up ledger.LevelUp, balance, totalXP int64, level int) envelope {
	return envelope{
		"coins":        coins,
		"xp":           xp,
		"newBalance":   balance,
		"newXP":        totalXP,
		"newLevel":     level,
		"leveledUp":    up.LeveledUp,
		"levelUpBonus": up.Bonus,
	}
}
