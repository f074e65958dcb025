package leads

import (
	"context"
	"sync"
)

// MemoryRepo is an in-memory lead store for tests.
type MemoryRepo struct {
	mu    sync.Mutex
	leads []Lead
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Put(l Lead) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leads = append(r.leads, l)
}

func (r *MemoryRepo) FindByPhone(ctx context.Context, phone string) (Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range phoneVariants(phone) {
		for _, l := range r.leads {
			if l.Phone == v {
				return l, nil
			}
		}
	}
	return Lead{}, ErrNotFound
}
