// Package store persists account records.
package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/AnshRaj112/bolt-backend/internal/models"
)

var (
	ErrNotFound        = errors.New("account not found")
	ErrEmailTaken      = errors.New("email already registered")
	ErrUsernameTaken   = errors.New("username already taken")
	ErrVersionConflict = errors.New("account was modified concurrently")
)

// SortField names a leaderboard ordering.
type SortField string

const (
	SortCoins       SortField = "coins"
	SortLevel       SortField = "level"
	SortStreak      SortField = "longestStreak"
	SortGamesPlayed SortField = "gamesPlayed"
)

// ParseSortField maps the public leaderboard type to a field, defaulting to coins.
func ParseSortField(s string) SortField {
	switch s {
	case "level", "xp":
		return SortLevel
	case "streak", "longestStreak":
		return SortStreak
	case "games", "gamesPlayed":
		return SortGamesPlayed
	default:
		return SortCoins
	}
}

// AccountStore is implemented by MongoStore and MemoryStore.
type AccountStore interface {
	Create(ctx context.Context, a *models.Account) error
	Load(ctx context.Context, id primitive.ObjectID) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	FindByUsername(ctx context.Context, username string) (*models.Account, error)
	// Save writes a only if the stored version still matches a.Version, and
	// bumps a.Version on success.
	Save(ctx context.Context, a *models.Account) error
	CountGreaterCoins(ctx context.Context, threshold int64) (int64, error)
	Top(ctx context.Context, field SortField, limit int) ([]*models.Account, error)
	All(ctx context.Context) ([]*models.Account, error)
}
