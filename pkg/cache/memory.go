package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryItem stores a cached value with its absolute expiry.
type MemoryItem struct {
	Value    []byte
	ExpireAt time.Time
}

// IsExpired checks if item has expired at now.
func (m *MemoryItem) IsExpired(now time.Time) bool {
	return !now.Before(m.ExpireAt)
}

// MemoryCache is the process-local tier. Entries expire lazily on access;
// expired entries are purged, then the least recently used one evicted, only
// when the size limit is reached.
type MemoryCache struct {
	data    map[string]*MemoryItem
	access  map[string]time.Time
	mutex   sync.Mutex
	maxSize int
	now     func() time.Time
}

// NewMemoryCache creates an in-memory cache.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := &MemoryConfig{
		MaxSize: 1000,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return &MemoryCache{
		data:    make(map[string]*MemoryItem),
		access:  make(map[string]time.Time),
		maxSize: cfg.MaxSize,
		now:     time.Now,
	}
}

func (mc *MemoryCache) SetBytes(_ context.Context, key string, value []byte, expiration time.Duration) error {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	now := mc.now()
	if _, exists := mc.data[key]; !exists && len(mc.data) >= mc.maxSize {
		mc.purgeExpired(now)
		if len(mc.data) >= mc.maxSize {
			mc.evictLRU()
		}
	}

	expireAt := now.Add(expiration)
	if expiration <= 0 {
		expireAt = now.Add(24 * time.Hour)
	}

	mc.data[key] = &MemoryItem{
		Value:    value,
		ExpireAt: expireAt,
	}
	mc.access[key] = now
	return nil
}

func (mc *MemoryCache) GetBytes(_ context.Context, key string) ([]byte, error) {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	now := mc.now()
	item, exists := mc.data[key]
	if !exists {
		return nil, ErrCacheMiss
	}
	if item.IsExpired(now) {
		delete(mc.data, key)
		delete(mc.access, key)
		return nil, ErrCacheMiss
	}

	mc.access[key] = now
	return item.Value, nil
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	for _, key := range keys {
		delete(mc.data, key)
		delete(mc.access, key)
	}
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (mc *MemoryCache) Len() int {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()
	return len(mc.data)
}

func (mc *MemoryCache) purgeExpired(now time.Time) {
	for key, item := range mc.data {
		if item.IsExpired(now) {
			delete(mc.data, key)
			delete(mc.access, key)
		}
	}
}

func (mc *MemoryCache) evictLRU() {
	if len(mc.data) == 0 {
		return
	}

	var (
		oldestKey  string
		oldestTime time.Time
		first      = true
	)
	for key, accessTime := range mc.access {
		if first || accessTime.Before(oldestTime) {
			oldestTime = accessTime
			oldestKey = key
			first = false
		}
	}

	delete(mc.data, oldestKey)
	delete(mc.access, oldestKey)
}
