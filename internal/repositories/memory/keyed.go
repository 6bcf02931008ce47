package memory

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"tekpay/internal/repositories/cache"
)

type entry struct {
	data    []byte
	counter int64
	expires time.Time
}

// KeyedStore is an in-memory cache.KeyedStore.
type KeyedStore struct {
	mu    sync.Mutex
	now   func() time.Time
	items map[string]entry
}

var _ cache.KeyedStore = (*KeyedStore)(nil)

func NewKeyedStore() *KeyedStore {
	return &KeyedStore{now: time.Now, items: make(map[string]entry)}
}

// SetClock replaces the time source used for expiry.
func (s *KeyedStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *KeyedStore) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = entry{data: data, expires: s.expiry(ttl)}
	return nil
}

func (s *KeyedStore) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	s.mu.Lock()
	e, ok := s.live(key)
	s.mu.Unlock()
	if !ok {
		return false, nil
	}
	data := e.data
	if data == nil {
		data, _ = json.Marshal(e.counter)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (s *KeyedStore) Delete(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.items, k)
	}
	return nil
}

func (s *KeyedStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(key)
	if !ok {
		e = entry{expires: s.expiry(ttl)}
	}
	e.counter++
	s.items[key] = e
	return e.counter, nil
}

func (s *KeyedStore) live(key string) (entry, bool) {
	e, ok := s.items[key]
	if !ok {
		return entry{}, false
	}
	if !e.expires.IsZero() && !s.now().Before(e.expires) {
		delete(s.items, key)
		return entry{}, false
	}
	return e, true
}

func (s *KeyedStore) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return s.now().Add(ttl)
}
