package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/AnshRaj112/bolt-backend/internal/models"
)

func seed(t *testing.T, s *MemoryStore, username, email string, coins int64) *models.Account {
	t.Helper()
	a := models.NewAccount(username, email, "hash", time.Now())
	a.Coins = coins
	if err := s.Create(context.Background(), a); err != nil {
		t.Fatalf("Create %s: %v", username, err)
	}
	return a
}

func TestMemoryCreateRejectsDuplicates(t *testing.T) {
	s := NewMemoryStore()
	seed(t, s, "alice", "alice@example.com", 1000)

	ctx := context.Background()
	err := s.Create(ctx, models.NewAccount("other", "alice@example.com", "h", time.Now()))
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("duplicate email: want=%v got=%v", ErrEmailTaken, err)
	}
	err = s.Create(ctx, models.NewAccount("alice", "new@example.com", "h", time.Now()))
	if !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("duplicate username: want=%v got=%v", ErrUsernameTaken, err)
	}
}

func TestMemoryLoadReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	a := seed(t, s, "alice", "alice@example.com", 1000)
	ctx := context.Background()

	got, err := s.Load(ctx, a.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got.Coins = 0
	got.Friends = append(got.Friends, primitive.NewObjectID())

	again, _ := s.Load(ctx, a.ID)
	if again.Coins != 1000 || len(again.Friends) != 0 {
		t.Fatalf("stored record changed through a loaded copy: %+v", again.Progress)
	}

	if _, err := s.Load(ctx, primitive.NewObjectID()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load missing: want=%v got=%v", ErrNotFound, err)
	}
}

func TestMemorySaveVersionConflict(t *testing.T) {
	s := NewMemoryStore()
	a := seed(t, s, "alice", "alice@example.com", 1000)
	ctx := context.Background()

	first, _ := s.Load(ctx, a.ID)
	second, _ := s.Load(ctx, a.ID)

	first.Coins = 500
	if err := s.Save(ctx, first); err != nil {
		t.Fatalf("Save first: %v", err)
	}
	if first.Version != 2 {
		t.Fatalf("version: want=%d got=%d", 2, first.Version)
	}

	second.Coins = 200
	if err := s.Save(ctx, second); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("Save stale: want=%v got=%v", ErrVersionConflict, err)
	}
	cur, _ := s.Load(ctx, a.ID)
	if cur.Coins != 500 {
		t.Fatalf("coins: want=%d got=%d", 500, cur.Coins)
	}
}

func TestMemorySaveRenameKeepsIndex(t *testing.T) {
	s := NewMemoryStore()
	a := seed(t, s, "alice", "alice@example.com", 1000)
	seed(t, s, "bob", "bob@example.com", 1000)
	ctx := context.Background()

	a.Username = "bob"
	if err := s.Save(ctx, a); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("rename to taken: want=%v got=%v", ErrUsernameTaken, err)
	}
	a.Username = "alicia"
	if err := s.Save(ctx, a); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if _, err := s.FindByUsername(ctx, "alice"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("old username still indexed: %v", err)
	}
	if got, err := s.FindByUsername(ctx, "alicia"); err != nil || got.ID != a.ID {
		t.Fatalf("FindByUsername(alicia): got=%v err=%v", got, err)
	}
}

func TestMemoryRankingQueries(t *testing.T) {
	s := NewMemoryStore()
	seed(t, s, "a", "a@example.com", 300)
	seed(t, s, "b", "b@example.com", 900)
	seed(t, s, "c", "c@example.com", 600)
	ctx := context.Background()

	n, err := s.CountGreaterCoins(ctx, 600)
	if err != nil || n != 1 {
		t.Fatalf("CountGreaterCoins(600): want=1 got=%d err=%v", n, err)
	}

	top, err := s.Top(ctx, SortCoins, 2)
	if err != nil {
		t.Fatalf("Top: %v", err)
	}
	if len(top) != 2 || top[0].Username != "b" || top[1].Username != "c" {
		t.Fatalf("Top order: got=%v,%v", top[0].Username, top[1].Username)
	}
}

func TestParseSortField(t *testing.T) {
	cases := map[string]SortField{
		"":       SortCoins,
		"coins":  SortCoins,
		"level":  SortLevel,
		"streak": SortStreak,
		"games":  SortGamesPlayed,
		"bogus":  SortCoins,
	}
	for in, want := range cases {
		if got := ParseSortField(in); got != want {
			t.Fatalf("ParseSortField(%q): want=%q got=%q", in, want, got)
		}
	}
}
