package ledger

import (
	"errors"
	"math"
	"regexp"
	"testing"
	"time"

	"github.com/AnshRaj112/bolt-backend/internal/catalog"
	"github.com/AnshRaj112/bolt-backend/internal/models"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newLedger(t *testing.T, opts ...Option) *Ledger {
	t.Helper()
	c, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return New(c, opts...)
}

func freshAccount() *models.Account {
	return models.NewAccount("player_one", "p@example.com", "hash", t0)
}

func TestGrantCoinsRejectsNonPositive(t *testing.T) {
	a := freshAccount()
	for _, amt := range []int64{0, -5} {
		if err := GrantCoins(a, amt); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("GrantCoins(%d): want=%v got=%v", amt, ErrInvalidAmount, err)
		}
	}
	if a.Coins != models.WelcomeBonus || a.LifetimeCoins != models.WelcomeBonus {
		t.Fatalf("account mutated: coins=%d lifetime=%d", a.Coins, a.LifetimeCoins)
	}
	if err := GrantCoins(a, 40); err != nil {
		t.Fatalf("GrantCoins: %v", err)
	}
	if a.Coins != 1040 || a.LifetimeCoins != 1040 {
		t.Fatalf("after grant: coins=%d lifetime=%d", a.Coins, a.LifetimeCoins)
	}
}

func TestGrantXPSingleBonusAcrossTiers(t *testing.T) {
	a := freshAccount()
	up, err := GrantXP(a, 3500)
	if err != nil {
		t.Fatalf("GrantXP: %v", err)
	}
	if !up.LeveledUp || up.Level != 4 || up.Bonus != 400 {
		t.Fatalf("level up: got=%+v", up)
	}
	if a.Level != 4 || a.XP != 3500 {
		t.Fatalf("account: level=%d xp=%d", a.Level, a.XP)
	}
	if a.Coins != 1400 || a.LifetimeCoins != 1400 {
		t.Fatalf("bonus: coins=%d lifetime=%d", a.Coins, a.LifetimeCoins)
	}

	up, err = GrantXP(a, 10)
	if err != nil {
		t.Fatalf("GrantXP: %v", err)
	}
	if up.LeveledUp || up.Bonus != 0 || a.Coins != 1400 {
		t.Fatalf("no level up expected: got=%+v coins=%d", up, a.Coins)
	}

	if _, err := GrantXP(a, 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("GrantXP(0): want=%v got=%v", ErrInvalidAmount, err)
	}
}

func TestRecordLogin(t *testing.T) {
	cases := []struct {
		name        string
		elapsed     time.Duration
		current     int
		longest     int
		wantCurrent int
		wantLongest int
	}{
		{"same day", 5 * time.Hour, 3, 5, 3, 5},
		{"exactly one day", 24 * time.Hour, 3, 5, 4, 5},
		{"next day", 25 * time.Hour, 3, 5, 4, 5},
		{"just under two days", 48*time.Hour - time.Second, 3, 5, 4, 5},
		{"next day new record", 30 * time.Hour, 5, 5, 6, 6},
		{"missed days", 72 * time.Hour, 4, 9, 1, 9},
		{"reset from zero", 48 * time.Hour, 0, 0, 1, 1},
		{"clock skew", -2 * time.Hour, 2, 2, 2, 2},
	}
	for _, tc := range cases {
		a := freshAccount()
		a.CurrentStreak = tc.current
		a.LongestStreak = tc.longest
		now := t0.Add(tc.elapsed)
		RecordLogin(a, now)
		if a.CurrentStreak != tc.wantCurrent || a.LongestStreak != tc.wantLongest {
			t.Fatalf("%s: want=%d/%d got=%d/%d", tc.name, tc.wantCurrent, tc.wantLongest, a.CurrentStreak, a.LongestStreak)
		}
		if !a.LastLoginDate.Equal(now) {
			t.Fatalf("%s: lastLoginDate not updated", tc.name)
		}
	}
}

func TestCompleteGameScoredWin(t *testing.T) {
	l := newLedger(t)
	a := freshAccount()
	out, err := l.CompleteGame(a, GameResult{GameID: 1, Score: 1500, DurationSeconds: 300, Won: true})
	if err != nil {
		t.Fatalf("CompleteGame: %v", err)
	}
	if out.CoinsEarned != 75 || out.XPEarned != 125 {
		t.Fatalf("earned: want=75/125 got=%d/%d", out.CoinsEarned, out.XPEarned)
	}
	if a.Coins != 1075 || a.XP != 125 || a.Level != 1 {
		t.Fatalf("account: coins=%d xp=%d level=%d", a.Coins, a.XP, a.Level)
	}
	if out.Stats.GamesPlayed != 1 || out.Stats.GamesWon != 1 || out.Stats.WinRate != 100 || out.Stats.TotalPlayTime != 5 {
		t.Fatalf("stats: got=%+v", out.Stats)
	}
}

func TestCompleteGameRewardRules(t *testing.T) {
	l := newLedger(t)
	cases := []struct {
		name      string
		res       GameResult
		wantCoins int64
		wantXP    int64
	}{
		{"loss", GameResult{GameID: 3, Score: 500}, 100, 50},
		{"win without score", GameResult{GameID: 3, Won: true}, 100, 100},
		{"high score loss", GameResult{GameID: 2, Score: 1001}, 75, 75},
		{"score at cutoff", GameResult{GameID: 2, Score: 1000, Won: true}, 110, 100},
		{"unknown game", GameResult{GameID: 99, Score: 10, Won: true}, 75, 100},
	}
	for _, tc := range cases {
		a := freshAccount()
		out, err := l.CompleteGame(a, tc.res)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if out.CoinsEarned != tc.wantCoins || out.XPEarned != tc.wantXP {
			t.Fatalf("%s: want=%d/%d got=%d/%d", tc.name, tc.wantCoins, tc.wantXP, out.CoinsEarned, out.XPEarned)
		}
	}
}

func TestCompleteGameTruncatesPlayTime(t *testing.T) {
	l := newLedger(t)
	a := freshAccount()
	for _, secs := range []int64{59, 119, -30} {
		if _, err := l.CompleteGame(a, GameResult{GameID: 1, DurationSeconds: secs}); err != nil {
			t.Fatalf("CompleteGame: %v", err)
		}
	}
	if a.TotalPlayTime != 1 {
		t.Fatalf("totalPlayTime: want=%d got=%d", 1, a.TotalPlayTime)
	}
	if a.GamesPlayed != 3 || a.GamesWon != 0 {
		t.Fatalf("counters: played=%d won=%d", a.GamesPlayed, a.GamesWon)
	}
}

func TestCompleteTaskLevelUp(t *testing.T) {
	l := newLedger(t)
	a := freshAccount()
	a.XP = 4600
	a.Level = 5
	a.Coins = 1000

	out, err := l.CompleteTask(a, 8)
	if err != nil {
		t.Fatalf("CompleteTask: %v", err)
	}
	if !out.LevelUp.LeveledUp || out.LevelUp.Level != 6 || out.LevelUp.Bonus != 600 {
		t.Fatalf("level up: got=%+v", out.LevelUp)
	}
	if a.Coins != 2600 || a.Level != 6 || a.XP != 5100 {
		t.Fatalf("account: coins=%d level=%d xp=%d", a.Coins, a.Level, a.XP)
	}
	if out.Stats.TasksCompleted != 1 || out.Stats.WeeklyTasksCompleted != 1 || out.Stats.DailyTasksCompleted != 0 {
		t.Fatalf("stats: got=%+v", out.Stats)
	}
}

func TestCompleteTaskIsNotIdempotent(t *testing.T) {
	l := newLedger(t)
	a := freshAccount()
	for i := 0; i < 2; i++ {
		if _, err := l.CompleteTask(a, 1); err != nil {
			t.Fatalf("CompleteTask #%d: %v", i, err)
		}
	}
	if a.TasksCompleted != 2 || a.DailyTasksCompleted != 2 {
		t.Fatalf("counters: total=%d daily=%d", a.TasksCompleted, a.DailyTasksCompleted)
	}
	if a.Coins != 1300 || a.XP != 200 {
		t.Fatalf("rewards paid twice: coins=%d xp=%d", a.Coins, a.XP)
	}
}

func TestCompleteTaskUnknownLeavesAccount(t *testing.T) {
	l := newLedger(t)
	a := freshAccount()
	before := a.Clone()
	if _, err := l.CompleteTask(a, 11); !errors.Is(err, ErrInvalidTask) {
		t.Fatalf("CompleteTask(11): want=%v got=%v", ErrInvalidTask, err)
	}
	if a.Coins != before.Coins || a.XP != before.XP || a.TasksCompleted != 0 {
		t.Fatalf("account mutated on failure")
	}
}

func TestPurchaseInsufficientCoins(t *testing.T) {
	l := newLedger(t)
	a := freshAccount()
	a.Coins = 1999
	_, err := l.PurchaseItem(a, 1)
	if !errors.Is(err, ErrInsufficientCoins) {
		t.Fatalf("PurchaseItem: want=%v got=%v", ErrInsufficientCoins, err)
	}
	var ice *InsufficientCoinsError
	if !errors.As(err, &ice) || ice.Required != 2000 || ice.Available != 1999 {
		t.Fatalf("details: got=%+v", ice)
	}
	if a.Coins != 1999 {
		t.Fatalf("coins changed: %d", a.Coins)
	}
}

func TestPurchaseUnknownItem(t *testing.T) {
	l := newLedger(t)
	if _, err := l.PurchaseItem(freshAccount(), 0); !errors.Is(err, ErrInvalidItem) {
		t.Fatalf("PurchaseItem(0): want=%v got=%v", ErrInvalidItem, err)
	}
}

func TestPurchaseGiftCardIssuesCode(t *testing.T) {
	l := newLedger(t, WithCodeGenerator(func() string { return "BOLT-1-ABCDEFGHI" }))
	a := freshAccount()
	a.Coins = 2500
	out, err := l.PurchaseItem(a, 1)
	if err != nil {
		t.Fatalf("PurchaseItem: %v", err)
	}
	if out.Reward == nil || out.Reward.Type != catalog.ItemGiftCard || out.Reward.Code != "BOLT-1-ABCDEFGHI" {
		t.Fatalf("reward: got=%+v", out.Reward)
	}
	if a.Coins != 500 || a.LifetimeCoins != models.WelcomeBonus {
		t.Fatalf("account: coins=%d lifetime=%d", a.Coins, a.LifetimeCoins)
	}
}

func TestPurchaseMysteryBoxGrants(t *testing.T) {
	var gotN int
	l := newLedger(t, WithRand(func(n int) int { gotN = n; return 0 }))
	a := freshAccount()
	out, err := l.PurchaseItem(a, 6)
	if err != nil {
		t.Fatalf("PurchaseItem: %v", err)
	}
	if gotN != 901 {
		t.Fatalf("rand range: want=%d got=%d", 901, gotN)
	}
	if out.Reward.Type != "coins" || out.Reward.Amount != 100 {
		t.Fatalf("reward: got=%+v", out.Reward)
	}
	if a.Coins != 600 || a.LifetimeCoins != 1100 {
		t.Fatalf("account: coins=%d lifetime=%d", a.Coins, a.LifetimeCoins)
	}
}

func TestPurchaseBoostReturnsEffect(t *testing.T) {
	l := newLedger(t)
	a := freshAccount()
	out, err := l.PurchaseItem(a, 7)
	if err != nil {
		t.Fatalf("PurchaseItem: %v", err)
	}
	if out.Reward.Type != "boost" || out.Reward.Effect != "xp-2x" {
		t.Fatalf("reward: got=%+v", out.Reward)
	}
	if a.Coins != 700 {
		t.Fatalf("coins: want=%d got=%d", 700, a.Coins)
	}
}

func TestLifetimeTracksGrants(t *testing.T) {
	l := newLedger(t, WithRand(func(n int) int { return n - 1 }))
	a := freshAccount()
	steps := []struct {
		name    string
		granted int64
		run     func() error
	}{
		// tower defense scored win: 120 base + 60 bonus
		{"game", 180, func() error { _, err := l.CompleteGame(a, GameResult{GameID: 5, Score: 2000, Won: true}); return err }},
		// mystery box pays the maximum 1000
		{"mystery box", 1000, func() error { _, err := l.PurchaseItem(a, 6); return err }},
		{"task", 750, func() error { _, err := l.CompleteTask(a, 10); return err }},
		{"subscription", 0, func() error { _, err := l.PurchaseItem(a, 4); return err }},
		// 525 + 2500 xp reaches level 4: bonus 400
		{"xp", 400, func() error { _, err := GrantXP(a, 2500); return err }},
	}
	want := int64(models.WelcomeBonus)
	for _, step := range steps {
		if err := step.run(); err != nil {
			t.Fatalf("%s: %v", step.name, err)
		}
		want += step.granted
		if a.LifetimeCoins != want {
			t.Fatalf("%s: lifetime want=%d got=%d", step.name, want, a.LifetimeCoins)
		}
		if a.Coins < 0 {
			t.Fatalf("%s: negative coins %d", step.name, a.Coins)
		}
		if a.Level != models.LevelForXP(a.XP) {
			t.Fatalf("%s: level=%d xp=%d", step.name, a.Level, a.XP)
		}
	}
	if a.Coins != 1330 {
		t.Fatalf("coins: want=%d got=%d", 1330, a.Coins)
	}
}

func TestGrantCoinsRejectsOverflow(t *testing.T) {
	a := freshAccount()
	if err := GrantCoins(a, math.MaxInt64); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("GrantCoins(max): want=%v got=%v", ErrInvalidAmount, err)
	}
	if a.Coins != models.WelcomeBonus || a.LifetimeCoins != models.WelcomeBonus {
		t.Fatalf("account mutated: coins=%d lifetime=%d", a.Coins, a.LifetimeCoins)
	}
	if err := GrantCoins(a, math.MaxInt64-models.WelcomeBonus); err != nil {
		t.Fatalf("GrantCoins(to max): %v", err)
	}
	if err := GrantCoins(a, 1); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("GrantCoins past max: want=%v got=%v", ErrInvalidAmount, err)
	}
	if a.Coins != math.MaxInt64 || a.LifetimeCoins != math.MaxInt64 {
		t.Fatalf("at max: coins=%d lifetime=%d", a.Coins, a.LifetimeCoins)
	}
}

func TestGrantXPRejectsOverflow(t *testing.T) {
	a := freshAccount()
	if _, err := GrantXP(a, math.MaxInt64-500); err != nil {
		t.Fatalf("GrantXP: %v", err)
	}
	xp, level, coins := a.XP, a.Level, a.Coins
	if _, err := GrantXP(a, 1000); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("GrantXP past max: want=%v got=%v", ErrInvalidAmount, err)
	}
	if a.XP != xp || a.Level != level || a.Coins != coins {
		t.Fatalf("account mutated: xp=%d level=%d coins=%d", a.XP, a.Level, a.Coins)
	}
	if a.Level < 1 || a.Level != models.LevelForXP(a.XP) {
		t.Fatalf("level=%d xp=%d", a.Level, a.XP)
	}
}

func TestGrantXPBonusOverflowLeavesAccount(t *testing.T) {
	a := freshAccount()
	a.Coins = math.MaxInt64 - 10
	a.LifetimeCoins = a.Coins
	if _, err := GrantXP(a, 1000); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("GrantXP: want=%v got=%v", ErrInvalidAmount, err)
	}
	if a.XP != 0 || a.Level != 1 {
		t.Fatalf("account mutated: xp=%d level=%d", a.XP, a.Level)
	}
}

func TestCompleteGameRejectsPlayTimeOverflow(t *testing.T) {
	l := newLedger(t)
	a := freshAccount()
	a.TotalPlayTime = math.MaxInt64 - 1
	_, err := l.CompleteGame(a, GameResult{GameID: 1, DurationSeconds: 600, Won: true, Score: 10})
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("CompleteGame: want=%v got=%v", ErrInvalidAmount, err)
	}
	if a.GamesPlayed != 0 || a.Coins != models.WelcomeBonus || a.TotalPlayTime != math.MaxInt64-1 {
		t.Fatalf("account mutated: games=%d coins=%d playtime=%d", a.GamesPlayed, a.Coins, a.TotalPlayTime)
	}
}

func TestRedemptionCodeFormat(t *testing.T) {
	re := regexp.MustCompile(`^BOLT-\d+-[A-Z0-9]{9}$`)
	if code := RedemptionCode(); !re.MatchString(code) {
		t.Fatalf("code %q does not match %s", code, re)
	}
}
