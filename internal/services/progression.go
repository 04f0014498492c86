package services

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/AnshRaj112/bolt-backend/internal/ledger"
	"github.com/AnshRaj112/bolt-backend/internal/logger"
	"github.com/AnshRaj112/bolt-backend/internal/models"
	"github.com/AnshRaj112/bolt-backend/internal/store"
)

// MaxSaveAttempts bounds the load-apply-save loop under contention.
const MaxSaveAttempts = 3

// ErrConflict is returned when every attempt lost the version race.
var ErrConflict = errors.New("account is busy, please retry")

// Op mutates a freshly loaded account. It may run more than once, so it must
// derive everything from the account it is given.
type Op func(a *models.Account) (leveledUp bool, err error)

// ProgressionService is the only writer of progression state. Every request
// becomes one ledger operation followed by one conditional save.
type ProgressionService struct {
	store  store.AccountStore
	ledger *ledger.Ledger
	board  *Leaderboard
	events *EventHub
	log    *logger.Logger
}

func NewProgressionService(st store.AccountStore, l *ledger.Ledger, board *Leaderboard, events *EventHub, log *logger.Logger) *ProgressionService {
	return &ProgressionService{store: st, ledger: l, board: board, events: events, log: log}
}

func (s *ProgressionService) Ledger() *ledger.Ledger { return s.ledger }

// Apply loads the account, runs op and saves, retrying on version conflicts.
// Errors from op abort without saving.
func (s *ProgressionService) Apply(ctx context.Context, id primitive.ObjectID, eventType string, op Op) (*models.Account, error) {
	for attempt := 1; attempt <= MaxSaveAttempts; attempt++ {
		a, err := s.store.Load(ctx, id)
		if err != nil {
			return nil, err
		}
		leveledUp, err := op(a)
		if err != nil {
			return nil, err
		}
		err = s.store.Save(ctx, a)
		if errors.Is(err, store.ErrVersionConflict) {
			s.log.Debug("version conflict, retrying", "accountId", id.Hex(), "attempt", attempt)
			continue
		}
		if err != nil {
			return nil, err
		}
		s.afterSave(ctx, a, eventType, leveledUp)
		return a, nil
	}
	s.log.Warn("giving up after version conflicts", "accountId", id.Hex(), "attempts", MaxSaveAttempts)
	return nil, ErrConflict
}

func (s *ProgressionService) afterSave(ctx context.Context, a *models.Account, eventType string, leveledUp bool) {
	if s.board != nil {
		if err := s.board.Update(ctx, a); err != nil {
			s.log.Warn("leaderboard update failed", "accountId", a.ID.Hex(), "error", err)
		}
	}
	if s.events != nil && eventType != "" {
		if err := s.events.Publish(ctx, NewEvent(eventType, a, leveledUp)); err != nil {
			s.log.Warn("event publish failed", "accountId", a.ID.Hex(), "error", err)
		}
	}
}

func (s *ProgressionService) CompleteGame(ctx context.Context, id primitive.ObjectID, res ledger.GameResult) (*models.Account, ledger.GameOutcome, error) {
	var out ledger.GameOutcome
	a, err := s.Apply(ctx, id, EventGameCompleted, func(a *models.Account) (bool, error) {
		var err error
		out, err = s.ledger.CompleteGame(a, res)
		return out.LevelUp.LeveledUp, err
	})
	return a, out, err
}

func (s *ProgressionService) CompleteTask(ctx context.Context, id primitive.ObjectID, taskID int) (*models.Account, ledger.TaskOutcome, error) {
	var out ledger.TaskOutcome
	a, err := s.Apply(ctx, id, EventTaskCompleted, func(a *models.Account) (bool, error) {
		var err error
		out, err = s.ledger.CompleteTask(a, taskID)
		return out.LevelUp.LeveledUp, err
	})
	return a, out, err
}

func (s *ProgressionService) Purchase(ctx context.Context, id primitive.ObjectID, itemID int) (*models.Account, ledger.PurchaseOutcome, error) {
	var out ledger.PurchaseOutcome
	a, err := s.Apply(ctx, id, EventPurchase, func(a *models.Account) (bool, error) {
		var err error
		out, err = s.ledger.PurchaseItem(a, itemID)
		return false, err
	})
	return a, out, err
}

func (s *ProgressionService) AddCoins(ctx context.Context, id primitive.ObjectID, amount int64) (*models.Account, error) {
	return s.Apply(ctx, id, EventCoinsAdded, func(a *models.Account) (bool, error) {
		return false, ledger.GrantCoins(a, amount)
	})
}

func (s *ProgressionService) AddXP(ctx context.Context, id primitive.ObjectID, amount int64) (*models.Account, ledger.LevelUp, error) {
	var up ledger.LevelUp
	a, err := s.Apply(ctx, id, EventXPAdded, func(a *models.Account) (bool, error) {
		var err error
		up, err = ledger.GrantXP(a, amount)
		return up.LeveledUp, err
	})
	return a, up, err
}

func (s *ProgressionService) RecordLogin(ctx context.Context, id primitive.ObjectID, now time.Time) (*models.Account, error) {
	return s.Apply(ctx, id, EventLogin, func(a *models.Account) (bool, error) {
		ledger.RecordLogin(a, now)
		return false, nil
	})
}
