package account

import (
	"context"
	"sync"
	"time"
)

type memoryRepository struct {
	mu     sync.RWMutex
	byID   map[string]Account
	byUser map[string]string
}

// NewMemoryRepository constructs an in-memory repository for tests and
// development.
func NewMemoryRepository() Repository {
	return &memoryRepository{byID: make(map[string]Account), byUser: make(map[string]string)}
}

func (r *memoryRepository) CreateIfAbsent(_ context.Context, a Account) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, exists := r.byUser[a.UserID]; exists {
		return clone(r.byID[id]), nil
	}
	r.byID[a.ID] = clone(a)
	r.byUser[a.UserID] = a.ID
	return clone(a), nil
}

func (r *memoryRepository) Get(_ context.Context, id string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	return clone(a), nil
}

func (r *memoryRepository) GetByUser(_ context.Context, userID string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byUser[userID]
	if !ok {
		return Account{}, ErrNotFound
	}
	return clone(r.byID[id]), nil
}

func (r *memoryRepository) MarkFull(_ context.Context, id string, at time.Time) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	if a.Tier != TierFull {
		a.Tier = TierFull
		a.DailyLimit = nil
		t := at.UTC()
		a.UpgradedAt = &t
		r.byID[id] = a
	}
	return clone(a), nil
}

func clone(a Account) Account {
	if a.DailyLimit != nil {
		v := *a.DailyLimit
		a.DailyLimit = &v
	}
	if a.UpgradedAt != nil {
		t := *a.UpgradedAt
		a.UpgradedAt = &t
	}
	return a
}
