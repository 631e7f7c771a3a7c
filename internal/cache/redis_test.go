package cache

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flexsearch/indexer/internal/config"
	"github.com/flexsearch/indexer/internal/model"
	"github.com/flexsearch/indexer/internal/util"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	c := NewRedisCache(client, config.CacheConfig{Enabled: true, DefaultTTL: time.Minute}, util.NewNopLogger(), nil)
	return c, mr
}

func TestSearchResponseRoundTrip(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	req := &model.SearchRequest{FreeText: model.Terms{"Dupont"}, Size: 5, RequestID: "r1"}

	_, found := c.GetSearchResponse(ctx, "documents", 0, req)
	assert.False(t, found)

	resp := &model.SearchResponse{Total: 1, Hits: []model.Hit{{ID: "42"}}}
	require.NoError(t, c.SetSearchResponse(ctx, "documents", 0, req, resp, 0))
	assert.Equal(t, time.Minute, mr.TTL(GenerateCacheKey("documents", 0, req)))

	other := *req
	other.RequestID = "r2"
	got, found := c.GetSearchResponse(ctx, "documents", 0, &other)
	require.True(t, found)
	assert.True(t, got.CacheHit)
	assert.Equal(t, "42", got.Hits[0].ID)

	stats := c.GetStats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 0.5, stats.HitRate, 0.001)
}

func TestGenerateCacheKey(t *testing.T) {
	a := &model.SearchRequest{FreeText: model.Terms{"a"}}
	b := &model.SearchRequest{FreeText: model.Terms{"b"}}

	assert.NotEqual(t, GenerateCacheKey("documents", 0, a), GenerateCacheKey("documents", 0, b))
	assert.NotEqual(t, GenerateCacheKey("documents", 0, a), GenerateCacheKey("archive", 0, a))
	assert.NotEqual(t, GenerateCacheKey("documents", 0, a), GenerateCacheKey("documents", 1, a))
	assert.Contains(t, GenerateCacheKey("documents", 0, a), IndexPrefix("documents"))
}

func TestInvalidate(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	resp := &model.SearchResponse{}

	require.NoError(t, c.SetSearchResponse(ctx, "documents", 0, &model.SearchRequest{Size: 1}, resp, 0))
	require.NoError(t, c.SetSearchResponse(ctx, "documents", 0, &model.SearchRequest{Size: 2}, resp, 0))
	require.NoError(t, c.SetSearchResponse(ctx, "archive", 0, &model.SearchRequest{Size: 1}, resp, 0))

	require.NoError(t, c.Invalidate(ctx, "documents"))

	assert.ElementsMatch(t, []string{GenerateCacheKey("archive", 0, &model.SearchRequest{Size: 1}), "searchgen:documents"}, mr.Keys())
	_, found := c.GetSearchResponse(ctx, "archive", 0, &model.SearchRequest{Size: 1})
	assert.True(t, found)
}

func TestInvalidate_OrphansInFlightWrite(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	req := &model.SearchRequest{FreeText: model.Terms{"Dupont"}}

	before, err := c.Generation(ctx, "documents")
	require.NoError(t, err)
	assert.Zero(t, before)

	// A search read the engine under generation 0, then a write landed.
	require.NoError(t, c.Invalidate(ctx, "documents"))
	require.NoError(t, c.SetSearchResponse(ctx, "documents", before, req, &model.SearchResponse{Total: 0}, 0))

	after, err := c.Generation(ctx, "documents")
	require.NoError(t, err)
	assert.Equal(t, int64(1), after)

	_, found := c.GetSearchResponse(ctx, "documents", after, req)
	assert.False(t, found)

	archive, err := c.Generation(ctx, "archive")
	require.NoError(t, err)
	assert.Zero(t, archive)
}

func TestGeneration_RedisDown(t *testing.T) {
	c, mr := newTestCache(t)
	mr.Close()

	_, err := c.Generation(context.Background(), "documents")
	assert.True(t, errors.Is(err, util.ErrCacheError))
}

func TestDisabledCache(t *testing.T) {
	c := NewRedisCache(nil, config.CacheConfig{Enabled: true}, util.NewNopLogger(), nil)
	ctx := context.Background()

	assert.False(t, c.IsEnabled())
	assert.NoError(t, c.SetSearchResponse(ctx, "documents", 0, &model.SearchRequest{}, &model.SearchResponse{}, 0))
	_, found := c.GetSearchResponse(ctx, "documents", 0, &model.SearchRequest{})
	assert.False(t, found)
	gen, err := c.Generation(ctx, "documents")
	assert.NoError(t, err)
	assert.Zero(t, gen)
	assert.NoError(t, c.Invalidate(ctx, "documents"))
	assert.NoError(t, c.Close())
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.RedisConfig{Host: mr.Host(), Port: mustPort(t, mr)}

	client, err := NewRedisClient(context.Background(), cfg)
	require.NoError(t, err)
	client.Close()

	mr.Close()
	_, err = NewRedisClient(context.Background(), cfg)
	assert.Error(t, err)
}

func mustPort(t *testing.T, mr *miniredis.Miniredis) int {
	t.Helper()
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)
	return port
}
