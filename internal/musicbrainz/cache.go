package musicbrainz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheTTL is the duration after which cached recordings are considered stale.
const CacheTTL = 30 * 24 * time.Hour // 30 days

const redisKeyPrefix = "mixtape:mb:recording:"

// Cache stores recordings by MBID.
type Cache interface {
	Get(ctx context.Context, mbid string) (*Recording, bool, error)
	Set(ctx context.Context, rec *Recording) error
}

type memoryEntry struct {
	rec       *Recording
	fetchedAt time.Time
}

// MemoryCache is a process-local Cache with lazy expiry.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryCache creates a MemoryCache whose entries expire after ttl.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns a cached recording; stale entries count as misses.
func (m *MemoryCache) Get(_ context.Context, mbid string) (*Recording, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[mbid]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if m.now().Sub(e.fetchedAt) > m.ttl {
		m.mu.Lock()
		delete(m.entries, mbid)
		m.mu.Unlock()
		return nil, false, nil
	}
	return e.rec, true, nil
}

// Set stores rec.
func (m *MemoryCache) Set(_ context.Context, rec *Recording) error {
	m.mu.Lock()
	m.entries[rec.ID] = memoryEntry{rec: rec, fetchedAt: m.now()}
	m.mu.Unlock()
	return nil
}

// RedisCache is a Cache shared between processes through Redis.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisCache creates a RedisCache whose keys expire after ttl.
func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

// Get returns a cached recording.
func (r *RedisCache) Get(ctx context.Context, mbid string) (*Recording, bool, error) {
	data, err := r.rdb.Get(ctx, redisKeyPrefix+mbid).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cached recording: %w", err)
	}

	var rec Recording
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, false, fmt.Errorf("decoding cached recording: %w", err)
	}
	return &rec, true, nil
}

// Set stores rec with the cache TTL.
func (r *RedisCache) Set(ctx context.Context, rec *Recording) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding recording: %w", err)
	}
	if err := r.rdb.Set(ctx, redisKeyPrefix+rec.ID, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("writing cached recording: %w", err)
	}
	return nil
}
