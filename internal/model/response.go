package model

import (
	"encoding/json"
	"time"
)

type Hit struct {
	ID        string                 `json:"_id"`
	Index     string                 `json:"_index,omitempty"`
	Score     *float64               `json:"_score,omitempty"`
	Source    map[string]interface{} `json:"_source,omitempty"`
	Highlight map[string][]string    `json:"highlight,omitempty"`
	Sort      []interface{}          `json:"sort,omitempty"`
}

type SearchResponse struct {
	RequestID    string                     `json:"requestId,omitempty"`
	Took         int                        `json:"took"`
	TimedOut     bool                       `json:"timedOut"`
	Total        int64                      `json:"total"`
	MaxScore     *float64                   `json:"maxScore,omitempty"`
	Hits         []Hit                      `json:"hits"`
	Aggregations map[string]json.RawMessage `json:"aggregations,omitempty"`
	ScrollID     string                     `json:"scrollId,omitempty"`
	CacheHit     bool                       `json:"cacheHit"`
}

// ResolvedRows holds one entry per hit, in hit order, in every slice.
type ResolvedRows struct {
	Rows     []string                 `json:"rows"`
	Glyphs   []interface{}            `json:"glyphs"`
	Status   []interface{}            `json:"status"`
	Values   []interface{}            `json:"values"`
	Payloads []map[string]interface{} `json:"payloads"`
}

type BulkReport struct {
	Created int               `json:"created"`
	Updated int               `json:"updated"`
	Deleted int               `json:"deleted"`
	Failed  int               `json:"failed"`
	Errors  map[string]string `json:"errors"`
	Total   int               `json:"total"`
}

func NewBulkReport() *BulkReport {
	return &BulkReport{Errors: map[string]string{}}
}

// BulkResult carries the aggregate report or the per-type partitions,
// depending on the requested report mode.
type BulkResult struct {
	Report *BulkReport            `json:"report,omitempty"`
	ByType map[string]*BulkReport `json:"byType,omitempty"`
}

type CountResponse struct {
	Count int64 `json:"count"`
}

type HealthResponse struct {
	Service   string       `json:"service"`
	Status    string       `json:"status"`
	Uptime    string       `json:"uptime,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
	Engine    EngineHealth `json:"engine"`
}

type EngineHealth struct {
	Cluster string `json:"cluster,omitempty"`
	Status  string `json:"status"`
	Address string `json:"address,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ErrorResponse is the body of every failed request. Partial carries what
// the operation completed before it failed, when that is known.
type ErrorResponse struct {
	RequestID string      `json:"requestId,omitempty"`
	Code      int         `json:"code"`
	Message   string      `json:"message"`
	Details   string      `json:"details,omitempty"`
	Partial   interface{} `json:"partial,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type CacheStats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hitRate"`
	Size    int64   `json:"size"`
}
