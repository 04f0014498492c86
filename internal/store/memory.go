package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/AnshRaj112/bolt-backend/internal/models"
)

// MemoryStore keeps accounts in process. Records are copied on the way in and
// out so callers never share memory with the store.
type MemoryStore struct {
	mu         sync.RWMutex
	accounts   map[primitive.ObjectID]*models.Account
	byEmail    map[string]primitive.ObjectID
	byUsername map[string]primitive.ObjectID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:   make(map[primitive.ObjectID]*models.Account),
		byEmail:    make(map[string]primitive.ObjectID),
		byUsername: make(map[string]primitive.ObjectID),
	}
}

func (s *MemoryStore) Create(_ context.Context, a *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[a.Email]; ok {
		return ErrEmailTaken
	}
	if _, ok := s.byUsername[a.Username]; ok {
		return ErrUsernameTaken
	}
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	a.Version = 1
	s.accounts[a.ID] = a.Clone()
	s.byEmail[a.Email] = a.ID
	s.byUsername[a.Username] = a.ID
	return nil
}

func (s *MemoryStore) Load(_ context.Context, id primitive.ObjectID) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return a.Clone(), nil
}

func (s *MemoryStore) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	s.mu.RLock()
	id, ok := s.byEmail[email]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s.Load(ctx, id)
}

func (s *MemoryStore) FindByUsername(ctx context.Context, username string) (*models.Account, error) {
	s.mu.RLock()
	id, ok := s.byUsername[username]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s.Load(ctx, id)
}

func (s *MemoryStore) Save(_ context.Context, a *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.accounts[a.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.Version != a.Version {
		return ErrVersionConflict
	}
	if a.Username != cur.Username {
		if other, taken := s.byUsername[a.Username]; taken && other != a.ID {
			return ErrUsernameTaken
		}
		delete(s.byUsername, cur.Username)
		s.byUsername[a.Username] = a.ID
	}

	a.Version++
	a.UpdatedAt = time.Now().UTC()
	s.accounts[a.ID] = a.Clone()
	return nil
}

func (s *MemoryStore) CountGreaterCoins(_ context.Context, threshold int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, a := range s.accounts {
		if a.Coins > threshold {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Top(ctx context.Context, field SortField, limit int) ([]*models.Account, error) {
	all, _ := s.All(ctx)
	key := sortKey(field)
	sort.SliceStable(all, func(i, j int) bool {
		ki, kj := key(all[i]), key(all[j])
		if ki != kj {
			return ki > kj
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s *MemoryStore) All(_ context.Context) ([]*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a.Clone())
	}
	return out, nil
}

func sortKey(field SortField) func(*models.Account) int64 {
	switch field {
	case SortLevel:
		return func(a *models.Account) int64 { return a.XP }
	case SortStreak:
		return func(a *models.Account) int64 { return int64(a.LongestStreak) }
	case SortGamesPlayed:
		return func(a *models.Account) int64 { return int64(a.GamesPlayed) }
	default:
		return func(a *models.Account) int64 { return a.Coins }
	}
}
