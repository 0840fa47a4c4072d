package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"creativelens/internal/domain"
)

// RedisAnalysisCache keeps analyses in Redis. Keys expire server-side after the
// TTL and the stored timestamp is checked again on read.
type RedisAnalysisCache struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

func NewRedisAnalysisCache(client *redis.Client, ttl time.Duration) *RedisAnalysisCache {
	return &RedisAnalysisCache{client: client, ttl: ttl, now: time.Now}
}

// NewRedisClient builds a client from a redis:// URL.
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

func (c *RedisAnalysisCache) TTL() time.Duration { return c.ttl }

func (c *RedisAnalysisCache) Get(ctx context.Context, key domain.AnalysisCacheKey) (*domain.CachedAnalysis, error) {
	raw, err := c.client.Get(ctx, key.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis GET: %w", err)
	}

	var cached domain.CachedAnalysis
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil, fmt.Errorf("failed to decode cached analysis: %w", err)
	}
	if cached.Expired(c.now(), c.ttl) {
		return nil, nil
	}
	return &cached, nil
}

func (c *RedisAnalysisCache) Set(ctx context.Context, key domain.AnalysisCacheKey, result domain.AnalysisResult) error {
	payload, err := json.Marshal(domain.CachedAnalysis{Result: result, CreatedAt: c.now()})
	if err != nil {
		return fmt.Errorf("failed to encode analysis: %w", err)
	}
	if err := c.client.Set(ctx, key.String(), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis SET: %w", err)
	}
	return nil
}

// Purge removes every cached analysis using SCAN and DEL.
func (c *RedisAnalysisCache) Purge(ctx context.Context) error {
	pattern := domain.AnalysisCachePrefix + "*"
	iter := c.client.Scan(ctx, 0, pattern, 200).Iterator()
	pipe := c.client.Pipeline()
	batch := 0

	for iter.Next(ctx) {
		pipe.Del(ctx, iter.Val())
		batch++
		if batch >= 500 {
			if _, err := pipe.Exec(ctx); err != nil {
				return fmt.Errorf("redis purge pipeline exec: %w", err)
			}
			pipe = c.client.Pipeline()
			batch = 0
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis SCAN %s: %w", pattern, err)
	}
	if batch > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("redis purge pipeline exec: %w", err)
		}
	}
	return nil
}

// MemoryAnalysisCache is the in-process cache. Expired entries are dropped on read.
type MemoryAnalysisCache struct {
	entries map[string]domain.CachedAnalysis
	ttl     time.Duration
	mutex   sync.RWMutex
	now     func() time.Time
}

func NewMemoryAnalysisCache(ttl time.Duration) *MemoryAnalysisCache {
	return &MemoryAnalysisCache{
		entries: make(map[string]domain.CachedAnalysis),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *MemoryAnalysisCache) TTL() time.Duration { return c.ttl }

func (c *MemoryAnalysisCache) Get(ctx context.Context, key domain.AnalysisCacheKey) (*domain.CachedAnalysis, error) {
	k := key.String()

	c.mutex.RLock()
	cached, ok := c.entries[k]
	c.mutex.RUnlock()
	if !ok {
		return nil, nil
	}
	if cached.Expired(c.now(), c.ttl) {
		c.mutex.Lock()
		if current, ok := c.entries[k]; ok && current.Expired(c.now(), c.ttl) {
			delete(c.entries, k)
		}
		c.mutex.Unlock()
		return nil, nil
	}
	return &cached, nil
}

func (c *MemoryAnalysisCache) Set(ctx context.Context, key domain.AnalysisCacheKey, result domain.AnalysisResult) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.entries[key.String()] = domain.CachedAnalysis{Result: result, CreatedAt: c.now()}
	return nil
}

func (c *MemoryAnalysisCache) Purge(ctx context.Context) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	for k := range c.entries {
		if strings.HasPrefix(k, domain.AnalysisCachePrefix) {
			delete(c.entries, k)
		}
	}
	return nil
}
