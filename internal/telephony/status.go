package telephony

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// StatusRecord is the last known status for one call ref (a provider
// call SID, or the local ref embedded in a conference name before the
// SID exists). Every write is an unconditional overwrite stamped with
// arrival time: webhook delivery is at-least-once and unordered, and
// last-write-wins by arrival is the tracking policy.
type StatusRecord struct {
	CallSid     string     `json:"callSid"`
	UserID      string     `json:"userId,omitempty"`
	Status      CallStatus `json:"status"`
	Message     string     `json:"message,omitempty"`
	LastUpdated time.Time  `json:"lastUpdated"`
}

// StatusStore is the shared call-status table. Keyed by call ref with a
// bounded TTL; calls are short-lived and stale records have no value.
type StatusStore interface {
	Set(ctx context.Context, rec StatusRecord) error
	Get(ctx context.Context, callSid string) (StatusRecord, bool, error)
}

// MemoryStatusStore keeps statuses in process memory. Single-node only;
// used by tests and local development.
type MemoryStatusStore struct {
	mu   sync.Mutex
	recs map[string]StatusRecord
}

func NewMemoryStatusStore() *MemoryStatusStore {
	return &MemoryStatusStore{recs: map[string]StatusRecord{}}
}

func (s *MemoryStatusStore) Set(ctx context.Context, rec StatusRecord) error {
	if rec.CallSid == "" {
		return errors.New("telephony: status record requires a call sid")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs[rec.CallSid] = rec
	return nil
}

func (s *MemoryStatusStore) Get(ctx context.Context, callSid string) (StatusRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[callSid]
	return rec, ok, nil
}

const statusKeyPrefix = "dialer:callstatus:"

// RedisStatusStore shares the status table across server instances and
// survives process restarts, which a per-process map cannot.
type RedisStatusStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStatusStore(rdb *redis.Client, ttl time.Duration) *RedisStatusStore {
	if ttl <= 0 {
		ttl = 4 * time.Hour
	}
	return &RedisStatusStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStatusStore) Set(ctx context.Context, rec StatusRecord) error {
	if rec.CallSid == "" {
		return errors.New("telephony: status record requires a call sid")
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, statusKeyPrefix+rec.CallSid, b, s.ttl).Err(); err != nil {
		return fmt.Errorf("telephony: status write failed: %w", err)
	}
	return nil
}

func (s *RedisStatusStore) Get(ctx context.Context, callSid string) (StatusRecord, bool, error) {
	b, err := s.rdb.Get(ctx, statusKeyPrefix+callSid).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return StatusRecord{}, false, nil
		}
		return StatusRecord{}, false, fmt.Errorf("telephony: status read failed: %w", err)
	}
	var rec StatusRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return StatusRecord{}, false, err
	}
	return rec, true, nil
}
