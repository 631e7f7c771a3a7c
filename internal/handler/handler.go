// Package handler exposes the indexer service over a REST API.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flexsearch/indexer/internal/middleware"
	"github.com/flexsearch/indexer/internal/model"
	"github.com/flexsearch/indexer/internal/util"
)

// Service is the set of operations served over HTTP.
type Service interface {
	Search(ctx context.Context, req *model.SearchRequest) (*model.SearchResponse, error)
	Hints(ctx context.Context, req *model.SearchRequest) (*model.ResolvedRows, error)
	Count(ctx context.Context, req *model.SearchRequest) (int64, error)
	Facets(ctx context.Context, req *model.FacetRequest) (map[string]json.RawMessage, error)
	Scroll(ctx context.Context, req *model.ScrollRequest) (*model.SearchResponse, error)
	ClearScroll(ctx context.Context, scrollID string) error
	Bulk(ctx context.Context, batch []model.BulkOperation, mode model.ReportMode) (*model.BulkResult, error)
	Unindex(ctx context.Context, docType, id string) error
	EnsureIndex(ctx context.Context) (bool, error)
	EnsureType(ctx context.Context, docType string, properties map[string]interface{}) error
	ResetIndex(ctx context.Context) error
	DeleteIndex(ctx context.Context) error
	ResetAllIndices(ctx context.Context) ([]string, error)
	Health(ctx context.Context) *model.HealthResponse
	GetCacheStats() *model.CacheStats
}

type Handler struct {
	service Service
	logger  *util.Logger
}

func NewHandler(service Service, logger *util.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the API under /api/v1 and the health check at /health.
func (h *Handler) Register(router gin.IRouter) {
	router.GET("/health", h.Health)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/search", h.Search)
		v1.POST("/hints", h.Hints)
		v1.POST("/count", h.Count)
		v1.POST("/facets", h.Facets)
		v1.POST("/scroll", h.Scroll)
		v1.DELETE("/scroll", h.ClearScroll)

		v1.POST("/bulk", h.Bulk)
		v1.DELETE("/documents/:type/:id", h.Unindex)

		indices := v1.Group("/indices")
		indices.POST("/ensure", h.EnsureIndex)
		indices.PUT("/types/:type", h.EnsureType)
		indices.POST("/reset", h.ResetIndex)
		indices.DELETE("", h.DeleteIndex)
		indices.DELETE("/all", h.ResetAllIndices)

		v1.GET("/cache/stats", h.CacheStats)
	}
}

func (h *Handler) bind(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		_ = c.Error(util.ErrBadRequest.Wrap(fmt.Errorf("invalid request body: %w", err)))
		return false
	}
	return true
}

func (h *Handler) searchRequest(c *gin.Context) (*model.SearchRequest, bool) {
	var req model.SearchRequest
	if !h.bind(c, &req) {
		return nil, false
	}
	if req.RequestID == "" {
		req.RequestID = middleware.GetRequestID(c)
	}
	return &req, true
}

func (h *Handler) Search(c *gin.Context) {
	req, ok := h.searchRequest(c)
	if !ok {
		return
	}
	resp, err := h.service.Search(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) Hints(c *gin.Context) {
	req, ok := h.searchRequest(c)
	if !ok {
		return
	}
	rows, err := h.service.Hints(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handler) Count(c *gin.Context) {
	req, ok := h.searchRequest(c)
	if !ok {
		return
	}
	count, err := h.service.Count(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, model.CountResponse{Count: count})
}

func (h *Handler) Facets(c *gin.Context) {
	var req model.FacetRequest
	if !h.bind(c, &req) {
		return
	}
	aggs, err := h.service.Facets(c.Request.Context(), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"aggregations": aggs})
}

func (h *Handler) Scroll(c *gin.Context) {
	var req model.ScrollRequest
	if !h.bind(c, &req) {
		return
	}
	resp, err := h.service.Scroll(c.Request.Context(), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) ClearScroll(c *gin.Context) {
	var req model.ScrollRequest
	if !h.bind(c, &req) {
		return
	}
	if err := h.service.ClearScroll(c.Request.Context(), req.ScrollID); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Bulk takes a JSON array of operations. The report query parameter selects
// none, aggregate (default) or byType.
func (h *Handler) Bulk(c *gin.Context) {
	mode, err := model.ParseReportMode(c.Query("report"))
	if err != nil {
		_ = c.Error(util.ErrBadRequest.Wrap(err))
		return
	}
	var batch []model.BulkOperation
	if !h.bind(c, &batch) {
		return
	}

	result, err := h.service.Bulk(c.Request.Context(), batch, mode)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if result == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) Unindex(c *gin.Context) {
	if err := h.service.Unindex(c.Request.Context(), c.Param("type"), c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) EnsureIndex(c *gin.Context) {
	created, err := h.service.EnsureIndex(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"created": created})
}

func (h *Handler) EnsureType(c *gin.Context) {
	var req model.TypeMappingRequest
	if c.Request.ContentLength != 0 && !h.bind(c, &req) {
		return
	}
	if err := h.service.EnsureType(c.Request.Context(), c.Param("type"), req.Properties); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ResetIndex(c *gin.Context) {
	if err := h.service.ResetIndex(c.Request.Context()); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) DeleteIndex(c *gin.Context) {
	if err := h.service.DeleteIndex(c.Request.Context()); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ResetAllIndices(c *gin.Context) {
	deleted, err := h.service.ResetAllIndices(c.Request.Context())
	if err != nil {
		_ = c.Error(err).SetMeta(gin.H{"deleted": deleted})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

func (h *Handler) Health(c *gin.Context) {
	health := h.service.Health(c.Request.Context())
	status := http.StatusOK
	if health.Status != "healthy" {
		h.logger.Warnw("Health check failed", "engine_status", health.Engine.Status, "error", health.Engine.Error)
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, health)
}

func (h *Handler) CacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.GetCacheStats())
}
