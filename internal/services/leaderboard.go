package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/AnshRaj112/bolt-backend/internal/logger"
	"github.com/AnshRaj112/bolt-backend/internal/models"
	"github.com/AnshRaj112/bolt-backend/internal/store"
)

const (
	LeaderboardCoinsKey  = "leaderboard:coins"
	LeaderboardLevelKey  = "leaderboard:level"
	LeaderboardStreakKey = "leaderboard:streak"
	LeaderboardGamesKey  = "leaderboard:games"

	DefaultLeaderboardLimit = 50
	MaxLeaderboardLimit     = 100
)

// LeaderboardEntry is one row of a ranking.
type LeaderboardEntry struct {
	Rank int `json:"rank"`
	models.PublicProfile
}

// Leaderboard mirrors ranking fields into Redis sorted sets so a player's rank
// is one round-trip. The account store stays the source of truth.
type Leaderboard struct {
	rdb   *redis.Client
	store store.AccountStore
	log   *logger.Logger
}

func NewLeaderboard(rdb *redis.Client, st store.AccountStore, log *logger.Logger) *Leaderboard {
	return &Leaderboard{rdb: rdb, store: st, log: log}
}

func queueAccount(ctx context.Context, pipe redis.Pipeliner, a *models.Account) {
	member := a.ID.Hex()
	pipe.ZAdd(ctx, LeaderboardCoinsKey, redis.Z{Score: float64(a.Coins), Member: member})
	// XP orders within a level the same way the level itself would.
	pipe.ZAdd(ctx, LeaderboardLevelKey, redis.Z{Score: float64(a.XP), Member: member})
	pipe.ZAdd(ctx, LeaderboardStreakKey, redis.Z{Score: float64(a.LongestStreak), Member: member})
	pipe.ZAdd(ctx, LeaderboardGamesKey, redis.Z{Score: float64(a.GamesPlayed), Member: member})
}

// Update writes the account's current standings. No-op without Redis.
func (l *Leaderboard) Update(ctx context.Context, a *models.Account) error {
	if l.rdb == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pipe := l.rdb.Pipeline()
	queueAccount(ctx, pipe, a)
	_, err := pipe.Exec(ctx)
	return err
}

// Rank is 1 + the number of accounts holding strictly more coins.
func (l *Leaderboard) Rank(ctx context.Context, a *models.Account) (int64, error) {
	if l.rdb != nil {
		rank, err := l.redisRank(ctx, a)
		if err == nil {
			return rank, nil
		}
		if !errors.Is(err, redis.Nil) {
			l.log.Warn("redis rank failed, using store", "error", err)
		}
	}
	n, err := l.store.CountGreaterCoins(ctx, a.Coins)
	if err != nil {
		return 0, err
	}
	return n + 1, nil
}

func (l *Leaderboard) redisRank(ctx context.Context, a *models.Account) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	// Missing member means the set is stale; redis.Nil sends us to the store.
	if err := l.rdb.ZScore(ctx, LeaderboardCoinsKey, a.ID.Hex()).Err(); err != nil {
		return 0, err
	}
	above, err := l.rdb.ZCount(ctx, LeaderboardCoinsKey, "("+strconv.FormatInt(a.Coins, 10), "+inf").Result()
	if err != nil {
		return 0, err
	}
	return above + 1, nil
}

// Top returns display rows ordered by field. Rows come from the sorted set
// when Redis holds one; an empty or stale set falls back to the store.
func (l *Leaderboard) Top(ctx context.Context, field store.SortField, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	if limit > MaxLeaderboardLimit {
		limit = MaxLeaderboardLimit
	}
	if l.rdb != nil {
		accounts, err := l.redisTop(ctx, field, limit)
		switch {
		case err == nil && len(accounts) > 0:
			return entries(accounts), nil
		case err != nil && !errors.Is(err, store.ErrNotFound):
			l.log.Warn("redis leaderboard failed, using store", "field", string(field), "error", err)
		}
	}
	accounts, err := l.store.Top(ctx, field, limit)
	if err != nil {
		return nil, err
	}
	return entries(accounts), nil
}

func (l *Leaderboard) redisTop(ctx context.Context, field store.SortField, limit int) ([]*models.Account, error) {
	rctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	ids, err := l.rdb.ZRevRange(rctx, leaderboardKey(field), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	accounts := make([]*models.Account, 0, len(ids))
	for _, hex := range ids {
		id, err := primitive.ObjectIDFromHex(hex)
		if err != nil {
			return nil, fmt.Errorf("leaderboard member %q: %w", hex, err)
		}
		a, err := l.store.Load(ctx, id)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, nil
}

func leaderboardKey(field store.SortField) string {
	switch field {
	case store.SortLevel:
		return LeaderboardLevelKey
	case store.SortStreak:
		return LeaderboardStreakKey
	case store.SortGamesPlayed:
		return LeaderboardGamesKey
	default:
		return LeaderboardCoinsKey
	}
}

func entries(accounts []*models.Account) []LeaderboardEntry {
	out := make([]LeaderboardEntry, 0, len(accounts))
	for i, a := range accounts {
		out = append(out, LeaderboardEntry{Rank: i + 1, PublicProfile: a.Public()})
	}
	return out
}

// Resync rebuilds every sorted set from the store.
func (l *Leaderboard) Resync(ctx context.Context) (int, error) {
	if l.rdb == nil {
		return 0, nil
	}
	accounts, err := l.store.All(ctx)
	if err != nil {
		return 0, err
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	pipe := l.rdb.TxPipeline()
	pipe.Del(ctx, LeaderboardCoinsKey, LeaderboardLevelKey, LeaderboardStreakKey, LeaderboardGamesKey)
	for _, a := range accounts {
		queueAccount(ctx, pipe, a)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return len(accounts), nil
}
