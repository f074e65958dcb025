package users

import (
	"context"
	"sync"
)

// MemoryRepo is an in-memory user store for tests.
type MemoryRepo struct {
	mu    sync.Mutex
	users map[string]User // by id
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{users: map[string]User{}} }

func (r *MemoryRepo) Put(u User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = u
}

func (r *MemoryRepo) FindByEmail(ctx context.Context, email string) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (r *MemoryRepo) FindByID(ctx context.Context, id string) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return User{}, ErrNotFound
}
