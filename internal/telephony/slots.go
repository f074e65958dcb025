package telephony

import (
	"context"
	"sync"
	"time"

	"claims-dialer/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// CallSlots caps simultaneous outbound calls per user. Telemarketers
// mashing the dial button while a call is still tearing down would
// otherwise fan out multiple PSTN legs under one caller ID.
type CallSlots interface {
	Acquire(ctx context.Context, userID string) (bool, error)
	Release(ctx context.Context, userID string) error
}

const slotKeyPrefix = "dialer:activecalls:"

// Slot TTL bounds a leaked reservation when the terminal webhook never
// arrives (process crash, webhook disabled).
const slotTTL = 15 * time.Minute

// RedisCallSlots shares the cap across server instances.
type RedisCallSlots struct {
	rdb   *redis.Client
	limit int
}

func NewRedisCallSlots(rdb *redis.Client, limit int) *RedisCallSlots {
	if limit <= 0 {
		limit = 1
	}
	return &RedisCallSlots{rdb: rdb, limit: limit}
}

func (s *RedisCallSlots) Acquire(ctx context.Context, userID string) (bool, error) {
	return utils.AcquireCallSlot(ctx, s.rdb, slotKeyPrefix+userID, s.limit, slotTTL)
}

func (s *RedisCallSlots) Release(ctx context.Context, userID string) error {
	return utils.ReleaseCallSlot(ctx, s.rdb, slotKeyPrefix+userID)
}

// MemoryCallSlots is a single-node implementation for tests.
type MemoryCallSlots struct {
	mu     sync.Mutex
	limit  int
	counts map[string]int
}

func NewMemoryCallSlots(limit int) *MemoryCallSlots {
	if limit <= 0 {
		limit = 1
	}
	return &MemoryCallSlots{limit: limit, counts: map[string]int{}}
}

func (s *MemoryCallSlots) Acquire(ctx context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.counts[userID] >= s.limit {
		return false, nil
	}
	s.counts[userID]++
	return true, nil
}

func (s *MemoryCallSlots) Release(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.counts[userID] > 0 {
		s.counts[userID]--
	}
	if s.counts[userID] == 0 {
		delete(s.counts, userID)
	}
	return nil
}
