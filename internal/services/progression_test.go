package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/AnshRaj112/bolt-backend/internal/catalog"
	"github.com/AnshRaj112/bolt-backend/internal/ledger"
	"github.com/AnshRaj112/bolt-backend/internal/logger"
	"github.com/AnshRaj112/bolt-backend/internal/models"
	"github.com/AnshRaj112/bolt-backend/internal/store"
)

// racingStore lets another writer win the first n saves.
type racingStore struct {
	*store.MemoryStore
	mu       sync.Mutex
	losses   int
	attempts int
}

func (r *racingStore) Save(ctx context.Context, a *models.Account) error {
	r.mu.Lock()
	r.attempts++
	lose := r.losses > 0
	if lose {
		r.losses--
	}
	r.mu.Unlock()

	if lose {
		// Another request bumps the version first.
		other, err := r.MemoryStore.Load(ctx, a.ID)
		if err != nil {
			return err
		}
		other.GamesPlayed += 100
		if err := r.MemoryStore.Save(ctx, other); err != nil {
			return err
		}
	}
	return r.MemoryStore.Save(ctx, a)
}

func newTestProgression(t *testing.T, st store.AccountStore) *ProgressionService {
	t.Helper()
	c, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	log := logger.Nop()
	return NewProgressionService(st, ledger.New(c), NewLeaderboard(nil, st, log), NewEventHub(nil, log), log)
}

func seedAccount(t *testing.T, st store.AccountStore) *models.Account {
	t.Helper()
	a := models.NewAccount("player_one", "p@example.com", "hash", time.Now())
	if err := st.Create(context.Background(), a); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return a
}

func TestApplyRetriesAfterConflict(t *testing.T) {
	st := &racingStore{MemoryStore: store.NewMemoryStore(), losses: 2}
	svc := newTestProgression(t, st)
	a := seedAccount(t, st)

	got, out, err := svc.CompleteGame(context.Background(), a.ID, ledger.GameResult{GameID: 1, Score: 1500, Won: true})
	if err != nil {
		t.Fatalf("CompleteGame: %v", err)
	}
	if st.attempts != 3 {
		t.Fatalf("attempts: want=%d got=%d", 3, st.attempts)
	}
	if out.CoinsEarned != 75 {
		t.Fatalf("coinsEarned: want=%d got=%d", 75, out.CoinsEarned)
	}
	// Both interleaved writers' changes survive.
	if got.GamesPlayed != 201 || got.Coins != 1075 {
		t.Fatalf("account: gamesPlayed=%d coins=%d", got.GamesPlayed, got.Coins)
	}
}

func TestApplyGivesUpAfterMaxAttempts(t *testing.T) {
	st := &racingStore{MemoryStore: store.NewMemoryStore(), losses: MaxSaveAttempts}
	svc := newTestProgression(t, st)
	a := seedAccount(t, st)

	_, err := svc.AddCoins(context.Background(), a.ID, 10)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("AddCoins: want=%v got=%v", ErrConflict, err)
	}
	cur, _ := st.Load(context.Background(), a.ID)
	if cur.Coins != models.WelcomeBonus {
		t.Fatalf("coins: want=%d got=%d", models.WelcomeBonus, cur.Coins)
	}
}

func TestApplyLedgerErrorSkipsSave(t *testing.T) {
	st := &racingStore{MemoryStore: store.NewMemoryStore()}
	svc := newTestProgression(t, st)
	a := seedAccount(t, st)

	_, _, err := svc.Purchase(context.Background(), a.ID, 5)
	if !errors.Is(err, ledger.ErrInsufficientCoins) {
		t.Fatalf("Purchase: want=%v got=%v", ledger.ErrInsufficientCoins, err)
	}
	if st.attempts != 0 {
		t.Fatalf("saves: want=%d got=%d", 0, st.attempts)
	}
}

func TestConcurrentPurchasesNeverOverspend(t *testing.T) {
	st := store.NewMemoryStore()
	svc := newTestProgression(t, st)
	a := seedAccount(t, st)

	// 1000 coins buys exactly one $5 card (1000).
	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.Purchase(context.Background(), a.ID, 2)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok int
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		if !errors.Is(err, ledger.ErrInsufficientCoins) && !errors.Is(err, ErrConflict) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	cur, _ := st.Load(context.Background(), a.ID)
	if ok != 1 || cur.Coins != 0 {
		t.Fatalf("purchases=%d coins=%d", ok, cur.Coins)
	}
}

func TestAddXPReportsLevelUp(t *testing.T) {
	st := store.NewMemoryStore()
	svc := newTestProgression(t, st)
	a := seedAccount(t, st)

	got, up, err := svc.AddXP(context.Background(), a.ID, 1000)
	if err != nil {
		t.Fatalf("AddXP: %v", err)
	}
	if !up.LeveledUp || up.Level != 2 || up.Bonus != 200 {
		t.Fatalf("level up: got=%+v", up)
	}
	if got.Coins != 1200 || got.Version != 2 {
		t.Fatalf("account: coins=%d version=%d", got.Coins, got.Version)
	}
}

func TestRecordLoginExtendsStreak(t *testing.T) {
	st := store.NewMemoryStore()
	svc := newTestProgression(t, st)
	a := seedAccount(t, st)

	got, err := svc.RecordLogin(context.Background(), a.ID, a.LastLoginDate.Add(26*time.Hour))
	if err != nil {
		t.Fatalf("RecordLogin: %v", err)
	}
	if got.CurrentStreak != 1 || got.LongestStreak != 1 {
		t.Fatalf("streak: current=%d longest=%d", got.CurrentStreak, got.LongestStreak)
	}
}

func TestLeaderboardRankFallsBackToStore(t *testing.T) {
	st := store.NewMemoryStore()
	log := logger.Nop()
	board := NewLeaderboard(nil, st, log)

	var accts []*models.Account
	for i, coins := range []int64{500, 1500, 900, 1500} {
		a := models.NewAccount("user_"+string(rune('a'+i)), string(rune('a'+i))+"@example.com", "h", time.Now())
		a.Coins = coins
		if err := st.Create(context.Background(), a); err != nil {
			t.Fatalf("Create: %v", err)
		}
		accts = append(accts, a)
	}
	want := []int64{4, 1, 3, 1}
	for i, a := range accts {
		got, err := board.Rank(context.Background(), a)
		if err != nil {
			t.Fatalf("Rank: %v", err)
		}
		if got != want[i] {
			t.Fatalf("rank of %d coins: want=%d got=%d", a.Coins, want[i], got)
		}
	}

	top, err := board.Top(context.Background(), store.SortCoins, 0)
	if err != nil {
		t.Fatalf("Top: %v", err)
	}
	if len(top) != 4 || top[0].Rank != 1 || top[3].Coins != 500 {
		t.Fatalf("top: got=%+v", top)
	}
}
