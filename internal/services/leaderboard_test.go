package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/AnshRaj112/bolt-backend/internal/logger"
	"github.com/AnshRaj112/bolt-backend/internal/models"
	"github.com/AnshRaj112/bolt-backend/internal/store"
)

func newRedisBoard(t *testing.T) (*Leaderboard, *store.MemoryStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	st := store.NewMemoryStore()
	return NewLeaderboard(rdb, st, logger.Nop()), st, mr
}

func seedRanked(t *testing.T, st *store.MemoryStore, name string, coins int64, longest int) *models.Account {
	t.Helper()
	a := models.NewAccount(name, name+"@example.com", "h", time.Now())
	a.Coins = coins
	a.LongestStreak = longest
	if err := st.Create(context.Background(), a); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return a
}

func TestLeaderboardRankFromRedis(t *testing.T) {
	board, st, _ := newRedisBoard(t)
	ctx := context.Background()

	low := seedRanked(t, st, "low", 500, 0)
	tiedA := seedRanked(t, st, "tied_a", 1500, 0)
	tiedB := seedRanked(t, st, "tied_b", 1500, 0)
	if n, err := board.Resync(ctx); err != nil || n != 3 {
		t.Fatalf("Resync: want=3 got=%d err=%v", n, err)
	}

	for _, tc := range []struct {
		a    *models.Account
		want int64
	}{{tiedA, 1}, {tiedB, 1}, {low, 3}} {
		got, err := board.Rank(ctx, tc.a)
		if err != nil {
			t.Fatalf("Rank: %v", err)
		}
		if got != tc.want {
			t.Fatalf("rank of %s: want=%d got=%d", tc.a.Username, tc.want, got)
		}
	}

	// not yet mirrored: answered by the store
	late := seedRanked(t, st, "late", 2000, 0)
	if got, err := board.Rank(ctx, late); err != nil || got != 1 {
		t.Fatalf("rank of unsynced account: want=1 got=%d err=%v", got, err)
	}
}

func TestLeaderboardTopReadsSortedSet(t *testing.T) {
	board, st, mr := newRedisBoard(t)
	ctx := context.Background()

	steady := seedRanked(t, st, "steady", 100, 5)
	rising := seedRanked(t, st, "rising", 100, 2)
	if _, err := board.Resync(ctx); err != nil {
		t.Fatalf("Resync: %v", err)
	}

	// The store moves ahead of the set; ordering still follows the set.
	rising.LongestStreak = 9
	if err := st.Save(ctx, rising); err != nil {
		t.Fatalf("Save: %v", err)
	}
	top, err := board.Top(ctx, store.SortStreak, 10)
	if err != nil {
		t.Fatalf("Top: %v", err)
	}
	if len(top) != 2 || top[0].Username != steady.Username || top[1].LongestStreak != 9 {
		t.Fatalf("top from redis: got=%+v", top)
	}

	if err := board.Update(ctx, rising); err != nil {
		t.Fatalf("Update: %v", err)
	}
	top, _ = board.Top(ctx, store.SortStreak, 10)
	if top[0].Username != rising.Username || top[0].Rank != 1 {
		t.Fatalf("top after update: got=%+v", top)
	}

	// A member the store no longer knows makes the set stale.
	if _, err := mr.ZAdd(LeaderboardStreakKey, 99, primitive.NewObjectID().Hex()); err != nil {
		t.Fatalf("ZAdd: %v", err)
	}
	top, err = board.Top(ctx, store.SortStreak, 10)
	if err != nil || len(top) != 2 || top[0].Username != rising.Username {
		t.Fatalf("top with stale member: got=%+v err=%v", top, err)
	}

	mr.FlushAll()
	top, err = board.Top(ctx, store.SortStreak, 1)
	if err != nil || len(top) != 1 || top[0].Username != rising.Username {
		t.Fatalf("top with empty set: got=%+v err=%v", top, err)
	}
}
