package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned when a key is not cached
var ErrMiss = errors.New("cache miss")

// Store caches YouTube video ids by search query
type Store interface {
	GetVideoID(ctx context.Context, query string) (string, error)
	SetVideoID(ctx context.Context, query, videoID string) error
}

const keyPrefix = "musicbridge:video:"

// MemoryStore is an in-process Store with per-entry expiry.
type MemoryStore struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	videoID   string
	expiresAt time.Time
}

// NewMemoryStore creates a MemoryStore. ttl <= 0 keeps entries forever.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *MemoryStore) GetVideoID(ctx context.Context, query string) (string, error) {
	m.mu.RLock()
	e, ok := m.entries[query]
	m.mu.RUnlock()
	if !ok {
		return "", ErrMiss
	}
	if !e.expiresAt.IsZero() && m.now().After(e.expiresAt) {
		m.mu.Lock()
		delete(m.entries, query)
		m.mu.Unlock()
		return "", ErrMiss
	}
	return e.videoID, nil
}

func (m *MemoryStore) SetVideoID(ctx context.Context, query, videoID string) error {
	e := memoryEntry{videoID: videoID}
	if m.ttl > 0 {
		e.expiresAt = m.now().Add(m.ttl)
	}
	m.mu.Lock()
	m.entries[query] = e
	m.mu.Unlock()
	return nil
}

// RedisStore keeps video ids in Redis so they survive restarts and are
// shared between instances.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (r *RedisStore) GetVideoID(ctx context.Context, query string) (string, error) {
	v, err := r.rdb.Get(ctx, keyPrefix+query).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

func (r *RedisStore) SetVideoID(ctx context.Context, query, videoID string) error {
	return r.rdb.Set(ctx, keyPrefix+query, videoID, r.ttl).Err()
}

// Open returns a RedisStore when addr is reachable and a MemoryStore
// otherwise. The returned bool reports whether Redis is in use.
func Open(ctx context.Context, addr, password string, db int, ttl time.Duration) (Store, bool) {
	if addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
		if err := rdb.Ping(ctx).Err(); err == nil {
			return NewRedisStore(rdb, ttl), true
		}
		rdb.Close()
	}
	return NewMemoryStore(ttl), false
}
