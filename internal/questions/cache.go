package questions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/mind-engage/denken-trainer/internal/formats"
	"github.com/mind-engage/denken-trainer/internal/quiz"
)

// Cache holds loaded questions per format. Source content is static, so
// entries are never invalidated explicitly.
type Cache interface {
	Get(ctx context.Context, f formats.Format) ([]quiz.Question, bool, error)
	Set(ctx context.Context, f formats.Format, qs []quiz.Question) error
}

type noCache struct{}

func (noCache) Get(context.Context, formats.Format) ([]quiz.Question, bool, error) {
	return nil, false, nil
}
func (noCache) Set(context.Context, formats.Format, []quiz.Question) error { return nil }

// NoCache reloads from the source on every call.
func NoCache() Cache { return noCache{} }

type MemoryCache struct {
	mu sync.RWMutex
	m  map[formats.Format][]quiz.Question
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{m: map[formats.Format][]quiz.Question{}}
}

func (c *MemoryCache) Get(_ context.Context, f formats.Format) ([]quiz.Question, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	qs, ok := c.m[f]
	return qs, ok, nil
}

func (c *MemoryCache) Set(_ context.Context, f formats.Format, qs []quiz.Question) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[f] = qs
	return nil
}

// RedisCache shares loaded questions between trainer instances.
type RedisCache struct {
	rdb    *goredis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisCache(ctx context.Context, addr string, ttl time.Duration) (*RedisCache, error) {
	if addr == "" {
		return nil, errors.New("missing redis address")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisCache{rdb: rdb, prefix: "denken:questions:", ttl: ttl}, nil
}

func (c *RedisCache) key(f formats.Format) string { return c.prefix + string(f) }

func (c *RedisCache) Get(ctx context.Context, f formats.Format) ([]quiz.Question, bool, error) {
	raw, err := c.rdb.Get(ctx, c.key(f)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var qs []quiz.Question
	if err := json.Unmarshal(raw, &qs); err != nil {
		return nil, false, err
	}
	return qs, true, nil
}

func (c *RedisCache) Set(ctx context.Context, f formats.Format, qs []quiz.Question) error {
	raw, err := json.Marshal(qs)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key(f), raw, c.ttl).Err()
}

func (c *RedisCache) Close() error { return c.rdb.Close() }
