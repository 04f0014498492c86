package models

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	// WelcomeBonus is the coin balance every new account starts with.
	WelcomeBonus = 1000
	// XPPerLevel is the XP width of one level tier.
	XPPerLevel = 1000

	ThemeDark  = "dark"
	ThemeLight = "light"
)

// Identity holds who the account is and how it signs in.
type Identity struct {
	Username  string  `bson:"username" json:"username"`
	Email     string  `bson:"email" json:"email"`
	Password  string  `bson:"password" json:"-"` // Never returned in JSON
	AvatarURL *string `bson:"avatarUrl" json:"avatarUrl"`
}

// Progress is the coin/xp/level state mutated by the ledger.
type Progress struct {
	Level         int   `bson:"level" json:"level"`
	XP            int64 `bson:"xp" json:"xp"`
	Coins         int64 `bson:"coins" json:"coins"`
	LifetimeCoins int64 `bson:"lifetimeCoins" json:"lifetimeCoins"`
}

// Streak tracks consecutive daily logins.
type Streak struct {
	CurrentStreak int       `bson:"currentStreak" json:"currentStreak"`
	LongestStreak int       `bson:"longestStreak" json:"longestStreak"`
	LastLoginDate time.Time `bson:"lastLoginDate" json:"lastLoginDate"`
}

// Activity counters, all monotonically non-decreasing.
type Activity struct {
	GamesPlayed          int   `bson:"gamesPlayed" json:"gamesPlayed"`
	GamesWon             int   `bson:"gamesWon" json:"gamesWon"`
	TotalPlayTime        int64 `bson:"totalPlayTime" json:"totalPlayTime"` // minutes
	TasksCompleted       int   `bson:"tasksCompleted" json:"tasksCompleted"`
	DailyTasksCompleted  int   `bson:"dailyTasksCompleted" json:"dailyTasksCompleted"`
	WeeklyTasksCompleted int   `bson:"weeklyTasksCompleted" json:"weeklyTasksCompleted"`
}

// Social holds friend references by account id.
type Social struct {
	Friends        []primitive.ObjectID `bson:"friends" json:"friends"`
	FriendRequests []primitive.ObjectID `bson:"friendRequests" json:"friendRequests"`
}

type Preferences struct {
	Notifications bool   `bson:"notifications" json:"notifications"`
	Theme         string `bson:"theme" json:"theme"`
}

// Account is the persisted user record. Sub-structures are inlined so the
// stored document and the JSON view stay flat.
type Account struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"_id"`

	Identity    `bson:",inline"`
	Progress    `bson:",inline"`
	Streak      `bson:",inline"`
	Activity    `bson:",inline"`
	Social      `bson:",inline"`
	Preferences `bson:",inline"`

	IsVerified bool      `bson:"isVerified" json:"isVerified"`
	CreatedAt  time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time `bson:"updatedAt" json:"updatedAt"`

	// Version guards read-modify-write cycles; bumped by the store on every save.
	Version int64 `bson:"version" json:"-"`
}

// NewAccount returns an account with the default progression state.
func NewAccount(username, email, passwordHash string, now time.Time) *Account {
	return &Account{
		ID: primitive.NewObjectID(),
		Identity: Identity{
			Username: username,
			Email:    email,
			Password: passwordHash,
		},
		Progress: Progress{
			Level:         1,
			Coins:         WelcomeBonus,
			LifetimeCoins: WelcomeBonus,
		},
		Streak: Streak{LastLoginDate: now},
		Social: Social{
			Friends:        []primitive.ObjectID{},
			FriendRequests: []primitive.ObjectID{},
		},
		Preferences: Preferences{
			Notifications: true,
			Theme:         ThemeDark,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// LevelForXP derives the level from total xp.
func LevelForXP(xp int64) int {
	return int(xp/XPPerLevel) + 1
}

// WinRate returns the win percentage rounded to one decimal, or 0 with no games.
func (a *Account) WinRate() float64 {
	if a.GamesPlayed == 0 {
		return 0
	}
	return math.Round(float64(a.GamesWon)/float64(a.GamesPlayed)*1000) / 10
}

// AveragePlayTime is minutes per game, rounded.
func (a *Account) AveragePlayTime() int64 {
	if a.GamesPlayed == 0 {
		return 0
	}
	return int64(math.Round(float64(a.TotalPlayTime) / float64(a.GamesPlayed)))
}

// HasFriend reports whether id is in the friend set.
func (a *Account) HasFriend(id primitive.ObjectID) bool {
	return containsID(a.Friends, id)
}

// HasFriendRequest reports whether id has a pending request to this account.
func (a *Account) HasFriendRequest(id primitive.ObjectID) bool {
	return containsID(a.FriendRequests, id)
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy, safe to mutate independently.
func (a *Account) Clone() *Account {
	c := *a
	if a.AvatarURL != nil {
		u := *a.AvatarURL
		c.AvatarURL = &u
	}
	c.Friends = append([]primitive.ObjectID{}, a.Friends...)
	c.FriendRequests = append([]primitive.ObjectID{}, a.FriendRequests...)
	return &c
}

// PublicProfile is the subset of an account shown to other users.
type PublicProfile struct {
	ID            primitive.ObjectID `json:"_id"`
	Username      string             `json:"username"`
	AvatarURL     *string            `json:"avatarUrl"`
	Level         int                `json:"level"`
	Coins         int64              `json:"coins"`
	LongestStreak int                `json:"longestStreak"`
	GamesPlayed   int                `json:"gamesPlayed"`
}

func (a *Account) Public() PublicProfile {
	return PublicProfile{
		ID:            a.ID,
		Username:      a.Username,
		AvatarURL:     a.AvatarURL,
		Level:         a.Level,
		Coins:         a.Coins,
		LongestStreak: a.LongestStreak,
		GamesPlayed:   a.GamesPlayed,
	}
}
