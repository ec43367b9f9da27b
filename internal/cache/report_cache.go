// Package cache keeps computed report payloads between writes.
// Every write path calls Invalidate after its unit of work commits.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type ReportCache interface {
	// Get loads key into dest and reports whether it was present.
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	// Invalidate drops every cached report.
	Invalidate(ctx context.Context) error
}

// Noop never stores anything.
type Noop struct{}

func (Noop) Get(context.Context, string, any) (bool, error) { return false, nil }
func (Noop) Set(context.Context, string, any) error         { return nil }
func (Noop) Invalidate(context.Context) error               { return nil }

// Memory is a process-local cache for the single-terminal setup.
// A Set for a key whose last miss came before an Invalidate is dropped,
// so a report computed against pre-write data is never stored.
type Memory struct {
	mu         sync.Mutex
	ttl        time.Duration
	entries    map[string]memoryEntry
	generation uint64
	misses     map[string]uint64
	now        func() time.Time
}

type memoryEntry struct {
	payload []byte
	expires time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		misses:  make(map[string]uint64),
		now:     time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string, dest any) (bool, error) {
	m.mu.Lock()
	entry, ok := m.entries[key]
	if ok && m.now().After(entry.expires) {
		delete(m.entries, key)
		ok = false
	}
	if !ok {
		m.misses[key] = m.generation
	}
	m.mu.Unlock()

	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(entry.payload, dest)
}

func (m *Memory) Set(_ context.Context, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen, ok := m.misses[key]; ok && gen != m.generation {
		return nil
	}
	m.entries[key] = memoryEntry{payload: payload, expires: m.now().Add(m.ttl)}
	return nil
}

func (m *Memory) Invalidate(context.Context) error {
	m.mu.Lock()
	m.entries = make(map[string]memoryEntry)
	m.generation++
	m.mu.Unlock()
	return nil
}

// Redis shares cached reports between processes pointed at the same store.
// Invalidation bumps a generation counter so stale keys simply age out.
type Redis struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

const generationKey = "generation"

func NewRedis(redisURL string, ttl time.Duration) (*Redis, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	rdb := redis.NewClient(opt)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &Redis{rdb: rdb, ttl: ttl, prefix: "pos:report:"}, nil
}

func (r *Redis) generation(ctx context.Context) (string, error) {
	gen, err := r.rdb.Get(ctx, r.prefix+generationKey).Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	return gen, err
}

func (r *Redis) key(ctx context.Context, key string) (string, error) {
	gen, err := r.generation(ctx)
	if err != nil {
		return "", err
	}
	return r.prefix + gen + ":" + key, nil
}

func (r *Redis) Get(ctx context.Context, key string, dest any) (bool, error) {
	fullKey, err := r.key(ctx, key)
	if err != nil {
		return false, err
	}
	val, err := r.rdb.Get(ctx, fullKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(val, dest)
}

func (r *Redis) Set(ctx context.Context, key string, value any) error {
	fullKey, err := r.key(ctx, key)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	return r.rdb.Set(ctx, fullKey, payload, r.ttl).Err()
}

func (r *Redis) Invalidate(ctx context.Context) error {
	return r.rdb.Incr(ctx, r.prefix+generationKey).Err()
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}

// New picks the cache for the configured setup: Redis when a URL is given,
// an in-process cache when only a TTL is set, and no caching otherwise.
// The returned close func is never nil.
func New(redisURL string, ttl time.Duration) (ReportCache, func() error, error) {
	switch {
	case redisURL != "":
		r, err := NewRedis(redisURL, ttl)
		if err != nil {
			return nil, nil, err
		}
		return r, r.Close, nil
	case ttl > 0:
		return NewMemory(ttl), func() error { return nil }, nil
	default:
		return Noop{}, func() error { return nil }, nil
	}
}
