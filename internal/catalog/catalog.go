// Package catalog holds the static game, shop and task tables. The tables are
// read once at startup and never mutated afterwards.
package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/AnshRaj112/bolt-backend/internal/models"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Item types understood by the shop.
const (
	ItemGiftCard     = "gift-card"
	ItemSubscription = "subscription"
	ItemMystery      = "mystery"
	ItemBoost        = "boost"
)

// Task cadences.
const (
	TaskDaily  = "daily"
	TaskWeekly = "weekly"
)

// Reward is the coin payout of a game: base always, bonus on a scored win.
type Reward struct {
	Base  int64 `yaml:"base" json:"base"`
	Bonus int64 `yaml:"bonus" json:"bonus"`
}

type Game struct {
	ID           int     `yaml:"id" json:"id"`
	Title        string  `yaml:"title" json:"title"`
	Category     string  `yaml:"category" json:"category"`
	Image        string  `yaml:"image" json:"image"`
	Coins        int64   `yaml:"coins" json:"coins"`
	Difficulty   string  `yaml:"difficulty" json:"difficulty"`
	Players      int     `yaml:"players" json:"players"`
	Rating       float64 `yaml:"rating" json:"rating"`
	Duration     string  `yaml:"duration" json:"duration"`
	Description  string  `yaml:"description" json:"description"`
	Instructions string  `yaml:"instructions" json:"instructions"`
	Reward       Reward  `yaml:"reward" json:"-"`
}

type Item struct {
	ID          int    `yaml:"id" json:"id"`
	Title       string `yaml:"title" json:"title"`
	Image       string `yaml:"image" json:"image"`
	Coins       int64  `yaml:"coins" json:"coins"`
	Discount    int    `yaml:"discount" json:"discount"`
	Popular     bool   `yaml:"popular" json:"popular"`
	Category    string `yaml:"category" json:"category"`
	Description string `yaml:"description" json:"description"`
	Stock       int    `yaml:"stock" json:"stock"`
	Available   bool   `yaml:"-" json:"available"`
	Sales       int    `yaml:"sales" json:"-"`
	Type        string `yaml:"type" json:"-"`
	Value       string `yaml:"value" json:"-"`
}

type Task struct {
	ID          int    `yaml:"id" json:"id"`
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
	Coins       int64  `yaml:"coins" json:"coins"`
	XP          int64  `yaml:"xp" json:"-"`
	Total       int64  `yaml:"total" json:"total"`
	Type        string `yaml:"type" json:"type"`
	Category    string `yaml:"category" json:"category"`
	Metric      string `yaml:"metric" json:"-"`
}

// IsDaily reports whether completing the task counts toward the daily total.
func (t Task) IsDaily() bool { return t.ID <= 5 }

type Category struct {
	ID    string `yaml:"id" json:"id"`
	Name  string `yaml:"name" json:"name"`
	Count int    `yaml:"count" json:"count"`
}

type file struct {
	Games             []Game     `yaml:"games"`
	DefaultGameReward Reward     `yaml:"default_game_reward"`
	GameCategories    []Category `yaml:"game_categories"`
	Shop              []Item     `yaml:"shop"`
	ShopCategories    []Category `yaml:"shop_categories"`
	Tasks             []Task     `yaml:"tasks"`
	TaskCategories    []Category `yaml:"task_categories"`
}

// Catalog is the immutable lookup over the static tables.
type Catalog struct {
	f     file
	games map[int]Game
	items map[int]Item
	tasks map[int]Task
}

// Default parses the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads the catalog at path, or the embedded one when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse builds a catalog from YAML bytes.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	c := &Catalog{
		f:     f,
		games: make(map[int]Game, len(f.Games)),
		items: make(map[int]Item, len(f.Shop)),
		tasks: make(map[int]Task, len(f.Tasks)),
	}
	for _, g := range f.Games {
		if _, dup := c.games[g.ID]; dup {
			return nil, fmt.Errorf("duplicate game id %d", g.ID)
		}
		c.games[g.ID] = g
	}
	for i := range c.f.Shop {
		it := &c.f.Shop[i]
		if _, dup := c.items[it.ID]; dup {
			return nil, fmt.Errorf("duplicate shop item id %d", it.ID)
		}
		switch it.Type {
		case ItemGiftCard, ItemSubscription, ItemMystery, ItemBoost:
		default:
			return nil, fmt.Errorf("shop item %d: unknown type %q", it.ID, it.Type)
		}
		if it.Coins <= 0 {
			return nil, fmt.Errorf("shop item %d: price must be positive", it.ID)
		}
		// Stock is display-only; nothing decrements it.
		it.Available = true
		c.items[it.ID] = *it
	}
	for _, t := range f.Tasks {
		if _, dup := c.tasks[t.ID]; dup {
			return nil, fmt.Errorf("duplicate task id %d", t.ID)
		}
		if t.Coins <= 0 || t.XP <= 0 {
			return nil, fmt.Errorf("task %d: rewards must be positive", t.ID)
		}
		if t.Total <= 0 {
			return nil, fmt.Errorf("task %d: total must be positive", t.ID)
		}
		c.tasks[t.ID] = t
	}
	for _, g := range f.Games {
		if g.Reward.Base <= 0 || g.Reward.Bonus < 0 {
			return nil, fmt.Errorf("game %d: reward must be positive", g.ID)
		}
	}
	if f.DefaultGameReward.Base <= 0 {
		return nil, fmt.Errorf("default game reward must be positive")
	}
	return c, nil
}

// Game returns the game metadata for id.
func (c *Catalog) Game(id int) (Game, bool) {
	g, ok := c.games[id]
	return g, ok
}

// GameReward never fails: unknown ids get the default tier.
func (c *Catalog) GameReward(id int) Reward {
	if g, ok := c.games[id]; ok {
		return g.Reward
	}
	return c.f.DefaultGameReward
}

func (c *Catalog) Item(id int) (Item, bool) {
	it, ok := c.items[id]
	return it, ok
}

func (c *Catalog) Task(id int) (Task, bool) {
	t, ok := c.tasks[id]
	return t, ok
}

// Listing accessors return copies so callers cannot mutate the tables.

func (c *Catalog) Games() []Game              { return append([]Game(nil), c.f.Games...) }
func (c *Catalog) Items() []Item              { return append([]Item(nil), c.f.Shop...) }
func (c *Catalog) Tasks() []Task              { return append([]Task(nil), c.f.Tasks...) }
func (c *Catalog) GameCategories() []Category { return append([]Category(nil), c.f.GameCategories...) }
func (c *Catalog) ShopCategories() []Category { return append([]Category(nil), c.f.ShopCategories...) }
func (c *Catalog) TaskCategories() []Category { return append([]Category(nil), c.f.TaskCategories...) }

// PopularItems returns the items flagged popular, in catalog order.
func (c *Catalog) PopularItems() []Item {
	var out []Item
	for _, it := range c.f.Shop {
		if it.Popular {
			out = append(out, it)
		}
	}
	return out
}

// TaskProgress computes how far acct is toward t.
func TaskProgress(t Task, acct *models.Account) int64 {
	switch t.Metric {
	case "games_played_mod":
		return minInt64(int64(acct.GamesPlayed)%t.Total, t.Total)
	case "games_won_mod":
		return minInt64(int64(acct.GamesWon)%t.Total, t.Total)
	case "play_time_mod":
		return minInt64(acct.TotalPlayTime%t.Total, t.Total)
	case "current_streak_raw":
		return int64(acct.CurrentStreak)
	case "current_streak":
		return minInt64(int64(acct.CurrentStreak), t.Total)
	case "coins_earned":
		return minInt64(acct.LifetimeCoins-models.WelcomeBonus, t.Total)
	case "friends":
		return minInt64(int64(len(acct.Friends)), t.Total)
	case "level":
		return minInt64(int64(acct.Level), t.Total)
	default:
		return 0
	}
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
