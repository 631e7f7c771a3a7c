// Package service exposes the indexer operations behind one typed object.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/flexsearch/indexer/internal/bulk"
	"github.com/flexsearch/indexer/internal/cache"
	"github.com/flexsearch/indexer/internal/config"
	"github.com/flexsearch/indexer/internal/engine"
	"github.com/flexsearch/indexer/internal/lifecycle"
	"github.com/flexsearch/indexer/internal/model"
	"github.com/flexsearch/indexer/internal/query"
	"github.com/flexsearch/indexer/internal/resolver"
	"github.com/flexsearch/indexer/internal/util"
)

// DefaultScrollKeepAlive applies to scroll pages requested without one.
const DefaultScrollKeepAlive = time.Minute

// Engine is the read side of the engine client.
type Engine interface {
	Search(ctx context.Context, index string, body map[string]interface{}, scroll time.Duration) (*model.SearchResponse, error)
	Scroll(ctx context.Context, scrollID string, keepAlive time.Duration) (*model.SearchResponse, error)
	ClearScroll(ctx context.Context, scrollIDs ...string) error
	Count(ctx context.Context, index string, body map[string]interface{}) (int64, error)
	ClusterHealth(ctx context.Context) (*engine.ClusterHealth, error)
	Address() string
}

// Cache stores search responses per index and write generation.
type Cache interface {
	Generation(ctx context.Context, index string) (int64, error)
	GetSearchResponse(ctx context.Context, index string, generation int64, req *model.SearchRequest) (*model.SearchResponse, bool)
	SetSearchResponse(ctx context.Context, index string, generation int64, req *model.SearchRequest, response *model.SearchResponse, ttl time.Duration) error
	Invalidate(ctx context.Context, index string) error
	IsEnabled() bool
	GetStats() *model.CacheStats
}

type SearchService struct {
	config    *config.Config
	logger    *util.Logger
	queries   *util.QueryLogger
	engine    Engine
	cache     Cache
	builder   *query.Builder
	resolver  *resolver.Resolver
	indexer   *bulk.Indexer
	lifecycle *lifecycle.Manager
	metrics   *util.Metrics
}

type SearchServiceConfig struct {
	Config    *config.Config
	Logger    *util.Logger
	Engine    Engine
	Cache     Cache
	Indexer   *bulk.Indexer
	Lifecycle *lifecycle.Manager
	Metrics   *util.Metrics
}

func NewSearchService(cfg *SearchServiceConfig) *SearchService {
	fields := cfg.Config.Elasticsearch.Fields
	return &SearchService{
		config:    cfg.Config,
		logger:    cfg.Logger,
		queries:   util.NewQueryLogger(cfg.Logger),
		engine:    cfg.Engine,
		cache:     cfg.Cache,
		builder:   query.NewBuilder(fields),
		resolver:  resolver.New(fields, ""),
		indexer:   cfg.Indexer,
		lifecycle: cfg.Lifecycle,
		metrics:   cfg.Metrics,
	}
}

func (s *SearchService) index() string {
	return s.config.Elasticsearch.Index
}

func (s *SearchService) cacheEnabled() bool {
	return s.cache != nil && s.cache.IsEnabled()
}

// Search runs req against the default index. Responses of non-scroll
// searches are cached until the next write.
func (s *SearchService) Search(ctx context.Context, req *model.SearchRequest) (*model.SearchResponse, error) {
	startTime := time.Now()

	if req.RequestID == "" {
		req.RequestID = generateRequestID()
	}

	keepAlive, err := parseKeepAlive(req.Scroll, 0)
	if err != nil {
		return nil, err
	}

	body, err := s.builder.Build(req)
	if err != nil {
		s.logger.Debugw("Rejected search request", "request_id", req.RequestID, "error", err)
		return nil, err
	}

	// The generation is read before the engine so that a write landing
	// while the search runs leaves its response under a stale key.
	var generation int64
	useCache := s.cacheEnabled() && keepAlive == 0
	if useCache {
		generation, err = s.cache.Generation(ctx, s.index())
		if err != nil {
			s.logger.Warnw("Bypassing cache", "request_id", req.RequestID, "error", err)
			useCache = false
		}
	}
	if useCache {
		key := cache.GenerateCacheKey(s.index(), generation, req)
		if cached, found := s.cache.GetSearchResponse(ctx, s.index(), generation, req); found {
			s.queries.LogCacheHit(key, req.RequestID)
			cached.RequestID = req.RequestID
			return cached, nil
		}
		s.queries.LogCacheMiss(key, req.RequestID)
	}

	response, err := s.engine.Search(ctx, s.index(), body, keepAlive)
	if err != nil {
		s.queries.LogError("search", s.index(), err, req.RequestID)
		s.metrics.IncrementError("search", "service")
		return nil, err
	}
	response.RequestID = req.RequestID

	if useCache {
		if err := s.cache.SetSearchResponse(ctx, s.index(), generation, req, response, s.config.Cache.DefaultTTL); err != nil {
			s.logger.Warnw("Failed to cache search response", "request_id", req.RequestID, "error", err)
		}
	}

	totalTime := time.Since(startTime)
	mode := string(req.SearchMode)
	if mode == "" {
		mode = string(model.SearchModeFulltext)
	}
	s.queries.LogSearch(s.index(), req.DocumentTypes, mode, response.Total, totalTime.Milliseconds(), req.RequestID)
	s.metrics.RecordSearchLatency(mode, totalTime)

	return response, nil
}

// Hints runs a search and resolves its hits into display rows.
func (s *SearchService) Hints(ctx context.Context, req *model.SearchRequest) (*model.ResolvedRows, error) {
	response, err := s.Search(ctx, req)
	if err != nil {
		return nil, err
	}
	rows := s.resolver.WithValueField(req.ValueField).Resolve(response.Hits)
	return &rows, nil
}

// Count returns the number of documents req would match.
func (s *SearchService) Count(ctx context.Context, req *model.SearchRequest) (int64, error) {
	body, err := s.builder.BuildCount(req)
	if err != nil {
		return 0, err
	}

	count, err := s.engine.Count(ctx, s.index(), body)
	if err != nil {
		s.queries.LogError("count", s.index(), err, req.RequestID)
		return 0, err
	}
	return count, nil
}

// Facets returns the raw aggregation of every requested facet.
func (s *SearchService) Facets(ctx context.Context, req *model.FacetRequest) (map[string]json.RawMessage, error) {
	body, err := s.builder.BuildFacets(req.DocumentTypes, req.Facets)
	if err != nil {
		return nil, err
	}

	response, err := s.engine.Search(ctx, s.index(), body, 0)
	if err != nil {
		s.queries.LogError("facets", s.index(), err, "")
		return nil, err
	}
	if response.Aggregations == nil {
		return map[string]json.RawMessage{}, nil
	}
	return response.Aggregations, nil
}

// Scroll returns the next page of an open scroll.
func (s *SearchService) Scroll(ctx context.Context, req *model.ScrollRequest) (*model.SearchResponse, error) {
	if req.ScrollID == "" {
		return nil, util.ErrBadRequest.Wrap(fmt.Errorf("scrollId is required"))
	}
	keepAlive, err := parseKeepAlive(req.Scroll, DefaultScrollKeepAlive)
	if err != nil {
		return nil, err
	}

	response, err := s.engine.Scroll(ctx, req.ScrollID, keepAlive)
	if err != nil {
		s.queries.LogError("scroll", s.index(), err, "")
		return nil, err
	}
	return response, nil
}

func (s *SearchService) ClearScroll(ctx context.Context, scrollID string) error {
	if scrollID == "" {
		return util.ErrBadRequest.Wrap(fmt.Errorf("scrollId is required"))
	}
	if err := s.engine.ClearScroll(ctx, scrollID); err != nil {
		s.queries.LogError("clear_scroll", s.index(), err, "")
		return err
	}
	return nil
}

// Bulk writes batch and drops the cached responses of the index.
func (s *SearchService) Bulk(ctx context.Context, batch []model.BulkOperation, mode model.ReportMode) (*model.BulkResult, error) {
	result, err := s.indexer.Bulk(ctx, batch, mode)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, s.index())
	return result, nil
}

// Unindex removes one document. A document that is already gone is not an
// error.
func (s *SearchService) Unindex(ctx context.Context, docType, id string) error {
	result, err := s.Bulk(ctx, []model.BulkOperation{model.DeleteOperation(docType, id)}, model.ReportAggregate)
	if err != nil {
		s.logger.Errorw("Unindex failed", "type", docType, "id", id, "error", err)
		return err
	}
	if msg, failed := result.Report.Errors[id]; failed {
		s.logger.Errorw("Unindex failed", "type", docType, "id", id, "error", msg)
		return util.ErrInternalServer.Wrap(fmt.Errorf("unindex %s: %s", id, msg))
	}
	return nil
}

func (s *SearchService) EnsureIndex(ctx context.Context) (bool, error) {
	return s.lifecycle.EnsureIndex(ctx, s.index())
}

func (s *SearchService) EnsureType(ctx context.Context, docType string, properties map[string]interface{}) error {
	return s.lifecycle.EnsureType(ctx, docType, properties)
}

func (s *SearchService) ResetIndex(ctx context.Context) error {
	if err := s.lifecycle.ResetIndex(ctx, s.index()); err != nil {
		return err
	}
	s.invalidate(ctx, s.index())
	return nil
}

func (s *SearchService) DeleteIndex(ctx context.Context) error {
	if err := s.lifecycle.DeleteIndex(ctx, s.index()); err != nil {
		return err
	}
	s.invalidate(ctx, s.index())
	return nil
}

func (s *SearchService) ResetAllIndices(ctx context.Context) ([]string, error) {
	deleted, err := s.lifecycle.ResetAllIndices(ctx)
	for _, index := range deleted {
		s.invalidate(ctx, index)
	}
	return deleted, err
}

func (s *SearchService) invalidate(ctx context.Context, index string) {
	if !s.cacheEnabled() {
		return
	}
	if err := s.cache.Invalidate(ctx, index); err != nil {
		s.logger.Warnw("Failed to invalidate cache", "index", index, "error", err)
	}
}

// Health reports the engine cluster state.
func (s *SearchService) Health(ctx context.Context) *model.HealthResponse {
	response := &model.HealthResponse{
		Service:   "indexer",
		Status:    "healthy",
		Uptime:    s.metrics.GetUptime().Round(time.Second).String(),
		Timestamp: time.Now(),
		Engine:    model.EngineHealth{Address: s.engine.Address()},
	}

	health, err := s.engine.ClusterHealth(ctx)
	if health != nil {
		response.Engine.Cluster = health.ClusterName
		response.Engine.Status = health.Status
	}
	if err != nil {
		response.Status = "unhealthy"
		response.Engine.Error = err.Error()
		if response.Engine.Status == "" {
			response.Engine.Status = "unreachable"
		}
	}
	s.metrics.SetEngineUp(err == nil)
	return response
}

func (s *SearchService) GetCacheStats() *model.CacheStats {
	if s.cache == nil {
		return &model.CacheStats{}
	}
	return s.cache.GetStats()
}

func parseKeepAlive(value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return 0, util.ErrQueryInvalid.Wrap(fmt.Errorf("invalid scroll keep-alive %q", value))
	}
	return d, nil
}

func generateRequestID() string {
	return uuid.New().String()
}
