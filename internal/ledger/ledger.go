// Package ledger applies progression events (logins, games, tasks, purchases)
// to an account. Every operation is pure: it mutates the account in memory or
// returns an error without touching it. Persisting the result is the caller's job.
package ledger

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AnshRaj112/bolt-backend/internal/catalog"
	"github.com/AnshRaj112/bolt-backend/internal/models"
)

const (
	// LevelUpBonusPerLevel is multiplied by the new level on level-up.
	LevelUpBonusPerLevel = 100

	baseGameXP      = 50
	winXP           = 50
	highScoreXP     = 25
	highScoreCutoff = 1000

	mysteryMin = 100
	mysteryMax = 1000

	day = 24 * time.Hour
)

// Ledger binds the pure operations to a catalog and sources of randomness.
type Ledger struct {
	catalog *catalog.Catalog
	intn    func(n int) int
	newCode func() string
}

type Option func(*Ledger)

// WithRand replaces the source used for mystery box payouts.
func WithRand(intn func(n int) int) Option {
	return func(l *Ledger) { l.intn = intn }
}

// WithCodeGenerator replaces the redemption code generator.
func WithCodeGenerator(gen func() string) Option {
	return func(l *Ledger) { l.newCode = gen }
}

func New(c *catalog.Catalog, opts ...Option) *Ledger {
	l := &Ledger{
		catalog: c,
		intn:    rand.Intn,
		newCode: RedemptionCode,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Catalog exposes the tables the ledger prices against.
func (l *Ledger) Catalog() *catalog.Catalog { return l.catalog }

// RedemptionCode returns BOLT-<unix millis>-<9 uppercase alphanumerics>.
func RedemptionCode() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:9]
	return fmt.Sprintf("BOLT-%d-%s", time.Now().UnixMilli(), suffix)
}

// LevelUp reports the effect of an XP grant on the level.
type LevelUp struct {
	LeveledUp bool  `json:"leveledUp"`
	Level     int   `json:"newLevel"`
	Bonus     int64 `json:"levelUpBonus"`
}

// GrantCoins credits amount to both the balance and the lifetime total.
// Amounts that would overflow either counter are rejected unapplied.
func GrantCoins(a *models.Account, amount int64) error {
	if amount <= 0 || !fits(a.Coins, amount) || !fits(a.LifetimeCoins, amount) {
		return ErrInvalidAmount
	}
	a.Coins += amount
	a.LifetimeCoins += amount
	return nil
}

// GrantXP adds xp and re-derives the level. Crossing several tiers at once
// pays a single bonus for the final level reached.
func GrantXP(a *models.Account, amount int64) (LevelUp, error) {
	if amount <= 0 || !fits(a.XP, amount) {
		return LevelUp{Level: a.Level}, ErrInvalidAmount
	}
	newLevel := models.LevelForXP(a.XP + amount)
	up := LevelUp{Level: newLevel}
	if newLevel > a.Level {
		up.LeveledUp = true
		up.Bonus = int64(newLevel) * LevelUpBonusPerLevel
		if err := GrantCoins(a, up.Bonus); err != nil {
			return LevelUp{Level: a.Level}, err
		}
	}
	a.XP += amount
	a.Level = newLevel
	return up, nil
}

// fits reports whether total+amount stays within int64.
func fits(total, amount int64) bool {
	return amount <= math.MaxInt64-total
}

// StreakChange describes what a login did to the streak counters.
type StreakChange struct {
	DaysSinceLast int  `json:"daysSinceLast"`
	Extended      bool `json:"extended"`
	Reset         bool `json:"reset"`
}

// RecordLogin updates the login streak for a login at now. Elapsed time is
// measured in whole 24h periods since the previous login, not calendar days.
func RecordLogin(a *models.Account, now time.Time) StreakChange {
	diff := int(now.Sub(a.LastLoginDate) / day)
	change := StreakChange{DaysSinceLast: diff}
	switch {
	case diff == 1:
		a.CurrentStreak++
		change.Extended = true
	case diff > 1:
		a.CurrentStreak = 1
		change.Reset = true
	}
	// A reset from zero would otherwise leave current above longest.
	if a.CurrentStreak > a.LongestStreak {
		a.LongestStreak = a.CurrentStreak
	}
	a.LastLoginDate = now
	return change
}

// GameResult is a client-reported game completion.
type GameResult struct {
	GameID          int
	Score           int64
	DurationSeconds int64
	Won             bool
}

type GameStats struct {
	GamesPlayed   int     `json:"gamesPlayed"`
	GamesWon      int     `json:"gamesWon"`
	WinRate       float64 `json:"winRate"`
	TotalPlayTime int64   `json:"totalPlayTime"`
}

type GameOutcome struct {
	CoinsEarned int64
	XPEarned    int64
	LevelUp     LevelUp
	Stats       GameStats
}

// CompleteGame records a finished game and pays its rewards. Unknown game ids
// pay the default tier.
func (l *Ledger) CompleteGame(a *models.Account, res GameResult) (GameOutcome, error) {
	w := a.Clone()

	if res.DurationSeconds > 0 {
		minutes := res.DurationSeconds / 60
		if !fits(w.TotalPlayTime, minutes) {
			return GameOutcome{}, ErrInvalidAmount
		}
		w.TotalPlayTime += minutes
	}
	w.GamesPlayed++
	if res.Won {
		w.GamesWon++
	}

	reward := l.catalog.GameReward(res.GameID)
	coins := reward.Base
	if res.Won && res.Score > 0 {
		coins += reward.Bonus
	}
	xp := int64(baseGameXP)
	if res.Won {
		xp += winXP
	}
	if res.Score > highScoreCutoff {
		xp += highScoreXP
	}

	if err := GrantCoins(w, coins); err != nil {
		return GameOutcome{}, err
	}
	up, err := GrantXP(w, xp)
	if err != nil {
		return GameOutcome{}, err
	}

	*a = *w
	return GameOutcome{
		CoinsEarned: coins,
		XPEarned:    xp,
		LevelUp:     up,
		Stats: GameStats{
			GamesPlayed:   a.GamesPlayed,
			GamesWon:      a.GamesWon,
			WinRate:       a.WinRate(),
			TotalPlayTime: a.TotalPlayTime,
		},
	}, nil
}

type TaskStats struct {
	TasksCompleted       int `json:"tasksCompleted"`
	DailyTasksCompleted  int `json:"dailyTasksCompleted"`
	WeeklyTasksCompleted int `json:"weeklyTasksCompleted"`
}

type TaskOutcome struct {
	Task    catalog.Task
	LevelUp LevelUp
	Stats   TaskStats
}

// CompleteTask pays the reward for taskID. Completing the same task again pays
// again; nothing tracks which tasks were already claimed.
func (l *Ledger) CompleteTask(a *models.Account, taskID int) (TaskOutcome, error) {
	task, ok := l.catalog.Task(taskID)
	if !ok {
		return TaskOutcome{}, ErrInvalidTask
	}
	w := a.Clone()
	if err := GrantCoins(w, task.Coins); err != nil {
		return TaskOutcome{}, err
	}
	up, err := GrantXP(w, task.XP)
	if err != nil {
		return TaskOutcome{}, err
	}
	w.TasksCompleted++
	if task.IsDaily() {
		w.DailyTasksCompleted++
	} else {
		w.WeeklyTasksCompleted++
	}

	*a = *w
	return TaskOutcome{
		Task:    task,
		LevelUp: up,
		Stats: TaskStats{
			TasksCompleted:       a.TasksCompleted,
			DailyTasksCompleted:  a.DailyTasksCompleted,
			WeeklyTasksCompleted: a.WeeklyTasksCompleted,
		},
	}, nil
}

// PurchaseReward is what the buyer receives besides the item itself.
type PurchaseReward struct {
	Type   string `json:"type"`
	Amount int64  `json:"amount,omitempty"`
	Effect string `json:"effect,omitempty"`
	Code   string `json:"code,omitempty"`
}

type PurchaseOutcome struct {
	Item   catalog.Item
	Reward *PurchaseReward
}

// PurchaseItem spends coins on itemID. Spending leaves lifetimeCoins alone; a
// mystery box payout is a grant and does count toward it.
func (l *Ledger) PurchaseItem(a *models.Account, itemID int) (PurchaseOutcome, error) {
	item, ok := l.catalog.Item(itemID)
	if !ok {
		return PurchaseOutcome{}, ErrInvalidItem
	}
	if a.Coins < item.Coins {
		return PurchaseOutcome{}, &InsufficientCoinsError{Required: item.Coins, Available: a.Coins}
	}

	w := a.Clone()
	w.Coins -= item.Coins

	var reward *PurchaseReward
	switch item.Type {
	case catalog.ItemMystery:
		amount := int64(mysteryMin + l.intn(mysteryMax-mysteryMin+1))
		if err := GrantCoins(w, amount); err != nil {
			return PurchaseOutcome{}, err
		}
		reward = &PurchaseReward{Type: "coins", Amount: amount}
	case catalog.ItemBoost:
		reward = &PurchaseReward{Type: "boost", Effect: item.Value}
	case catalog.ItemGiftCard, catalog.ItemSubscription:
		reward = &PurchaseReward{Type: item.Type, Code: l.newCode()}
	}

	*a = *w
	return PurchaseOutcome{Item: item, Reward: reward}, nil
}
