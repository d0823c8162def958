package cache

import (
	"context"
	"errors"
	"time"

	"github.com/viccon/sturdyc"
)

const (
	memoryShards             = 10
	memoryEvictionPercentage = 10
)

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// MemoryStore is an in-process cache for single-node deployments and tests.
// The client evicts on capacity and drops entries after maxTTL; shorter
// per-entry lifetimes are enforced on read.
type MemoryStore struct {
	client *sturdyc.Client[memoryEntry]
	maxTTL time.Duration
	now    func() time.Time
}

// NewMemoryStore creates a store that holds at most capacity entries, none
// of them longer than maxTTL.
func NewMemoryStore(capacity int, maxTTL time.Duration) (*MemoryStore, error) {
	if capacity <= 0 {
		return nil, errors.New("cache capacity must be positive")
	}
	if maxTTL <= 0 {
		return nil, errors.New("cache ttl must be positive")
	}
	client := sturdyc.New[memoryEntry](
		capacity,
		memoryShards,
		maxTTL,
		memoryEvictionPercentage,
		sturdyc.WithEvictionInterval(time.Minute),
	)
	return &MemoryStore{client: client, maxTTL: maxTTL, now: time.Now}, nil
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	e, ok := s.client.Get(key)
	if !ok {
		return nil, false, nil
	}
	if !s.now().Before(e.expires) {
		s.client.Delete(key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 || ttl > s.maxTTL {
		ttl = s.maxTTL
	}
	buf := make([]byte, len(value))
	copy(buf, value)
	s.client.Set(key, memoryEntry{value: buf, expires: s.now().Add(ttl)})
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
