package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/flexsearch/indexer/internal/config"
	"github.com/flexsearch/indexer/internal/model"
	"github.com/flexsearch/indexer/internal/util"
)

const (
	keyPrefix        = "search:"
	generationPrefix = "searchgen:"
)

// RedisCache stores search responses per index. A disabled cache never hits
// and never fails.
type RedisCache struct {
	client     *redis.Client
	logger     *util.Logger
	metrics    *util.Metrics
	defaultTTL time.Duration
	enabled    bool

	hits   atomic.Int64
	misses atomic.Int64
	size   atomic.Int64
}

// NewRedisClient connects to Redis and checks the connection with a ping.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// NewRedisCache returns a cache over client. A nil client or a disabled
// config yields a disabled cache.
func NewRedisCache(client *redis.Client, cfg config.CacheConfig, logger *util.Logger, metrics *util.Metrics) *RedisCache {
	c := &RedisCache{
		client:     client,
		logger:     logger,
		metrics:    metrics,
		defaultTTL: cfg.DefaultTTL,
		enabled:    cfg.Enabled && client != nil,
	}
	if c.enabled {
		logger.Infow("Redis cache enabled", "default_ttl", cfg.DefaultTTL)
	}
	return c
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if !c.enabled {
		return nil, false
	}

	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Errorw("Cache get failed", "key", key, "error", err)
			c.metrics.IncrementError("cache_get", "cache")
		}
		c.misses.Add(1)
		c.metrics.IncrementCacheMiss()
		return nil, false
	}

	c.hits.Add(1)
	c.metrics.IncrementCacheHit()
	return val, true
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if !c.enabled {
		return nil
	}

	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		c.logger.Errorw("Cache set failed", "key", key, "error", err)
		return util.ErrCacheError.Wrap(err)
	}

	c.size.Add(1)
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if !c.enabled {
		return nil
	}

	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Errorw("Cache delete failed", "key", key, "error", err)
		return util.ErrCacheError.Wrap(err)
	}
	return nil
}

func (c *RedisCache) GetStats() *model.CacheStats {
	stats := &model.CacheStats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Size:   c.size.Load(),
	}
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}
	return stats
}

// IndexPrefix is the key prefix of every cached response of index.
func IndexPrefix(index string) string {
	return keyPrefix + index + ":"
}

func generationKey(index string) string {
	return generationPrefix + index
}

// GenerateCacheKey hashes everything in req that shapes the engine answer.
// The request id is left out. generation is the write generation of index
// read before the engine was queried.
func GenerateCacheKey(index string, generation int64, req *model.SearchRequest) string {
	keyReq := *req
	keyReq.RequestID = ""

	jsonData, _ := json.Marshal(keyReq)
	hash := md5.Sum(jsonData)
	return IndexPrefix(index) + strconv.FormatInt(generation, 10) + ":" + hex.EncodeToString(hash[:])
}

// Generation returns the write generation of index. Invalidate bumps it, so
// a response stored under an older generation is never read again.
func (c *RedisCache) Generation(ctx context.Context, index string) (int64, error) {
	if !c.enabled {
		return 0, nil
	}

	gen, err := c.client.Get(ctx, generationKey(index)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		c.metrics.IncrementError("cache_generation", "cache")
		return 0, util.ErrCacheError.Wrap(err)
	}
	return gen, nil
}

func (c *RedisCache) GetSearchResponse(ctx context.Context, index string, generation int64, req *model.SearchRequest) (*model.SearchResponse, bool) {
	data, found := c.Get(ctx, GenerateCacheKey(index, generation, req))
	if !found {
		return nil, false
	}

	var response model.SearchResponse
	if err := json.Unmarshal(data, &response); err != nil {
		c.logger.Errorw("Failed to unmarshal cached response", "error", err)
		return nil, false
	}

	response.CacheHit = true
	return &response, true
}

func (c *RedisCache) SetSearchResponse(ctx context.Context, index string, generation int64, req *model.SearchRequest, response *model.SearchResponse, ttl time.Duration) error {
	data, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}

	return c.Set(ctx, GenerateCacheKey(index, generation, req), data, ttl)
}

// Invalidate moves index to a new generation and drops the responses cached
// so far. A search that read the engine before the write can still store its
// response afterwards, but only under the old generation.
func (c *RedisCache) Invalidate(ctx context.Context, index string) error {
	if !c.enabled {
		return nil
	}

	if err := c.client.Incr(ctx, generationKey(index)).Err(); err != nil {
		c.logger.Errorw("Cache generation bump failed", "index", index, "error", err)
		return util.ErrCacheError.Wrap(err)
	}
	return c.DeleteByPrefix(ctx, IndexPrefix(index))
}

func (c *RedisCache) DeleteByPrefix(ctx context.Context, prefix string) error {
	if !c.enabled {
		return nil
	}

	iter := c.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	var keys []string

	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}

	if err := iter.Err(); err != nil {
		return util.ErrCacheError.Wrap(fmt.Errorf("failed to scan keys: %w", err))
	}

	if len(keys) > 0 {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			return util.ErrCacheError.Wrap(fmt.Errorf("failed to delete keys: %w", err))
		}
		c.size.Add(-int64(len(keys)))
	}

	c.logger.Debugw("Cache invalidated", "prefix", prefix, "keys", len(keys))
	return nil
}

func (c *RedisCache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func (c *RedisCache) IsEnabled() bool {
	return c.enabled
}
