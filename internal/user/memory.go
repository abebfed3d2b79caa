package user

import (
	"context"
	"sync"
)

// MemoryRepository serves users from process memory.
type MemoryRepository struct {
	mu    sync.RWMutex
	users map[string]*User
}

func NewMemoryRepository(seed ...*User) *MemoryRepository {
	r := &MemoryRepository{users: make(map[string]*User, len(seed))}
	for _, u := range seed {
		r.Put(u)
	}
	return r
}

func (r *MemoryRepository) Put(u *User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	r.users[u.ID] = &cp
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}
