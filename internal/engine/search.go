package engine

import (
	"context"
	"encoding/json"
	"time"

	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/flexsearch/indexer/internal/model"
)

type searchResponse struct {
	Took     int  `json:"took"`
	TimedOut bool `json:"timed_out"`
	Hits     struct {
		Total struct {
			Value    int64  `json:"value"`
			Relation string `json:"relation"`
		} `json:"total"`
		MaxScore *float64    `json:"max_score"`
		Hits     []model.Hit `json:"hits"`
	} `json:"hits"`
	Aggregations map[string]json.RawMessage `json:"aggregations"`
	ScrollID     string                     `json:"_scroll_id"`
}

func (r *searchResponse) toModel() *model.SearchResponse {
	hits := r.Hits.Hits
	if hits == nil {
		hits = []model.Hit{}
	}
	return &model.SearchResponse{
		Took:         r.Took,
		TimedOut:     r.TimedOut,
		Total:        r.Hits.Total.Value,
		MaxScore:     r.Hits.MaxScore,
		Hits:         hits,
		Aggregations: r.Aggregations,
		ScrollID:     r.ScrollID,
	}
}

// Search runs body against index. A positive scroll opens a scroll context
// kept alive for that long.
func (c *Client) Search(ctx context.Context, index string, body map[string]interface{}, scroll time.Duration) (*model.SearchResponse, error) {
	r, err := bodyReader(body)
	if err != nil {
		return nil, err
	}

	opts := []func(*esapi.SearchRequest){
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(index),
		c.es.Search.WithBody(r),
		c.es.Search.WithTrackTotalHits(true),
	}
	if scroll > 0 {
		opts = append(opts, c.es.Search.WithScroll(scroll))
	}

	start := time.Now()
	res, err := c.es.Search(opts...)

	var out searchResponse
	if err := c.decode("search", start, res, err, &out); err != nil {
		return nil, err
	}
	return out.toModel(), nil
}

// Scroll fetches the next page of an open scroll context.
func (c *Client) Scroll(ctx context.Context, scrollID string, keepAlive time.Duration) (*model.SearchResponse, error) {
	start := time.Now()
	res, err := c.es.Scroll(
		c.es.Scroll.WithContext(ctx),
		c.es.Scroll.WithScrollID(scrollID),
		c.es.Scroll.WithScroll(keepAlive),
	)

	var out searchResponse
	if err := c.decode("scroll", start, res, err, &out); err != nil {
		return nil, err
	}
	return out.toModel(), nil
}

// ClearScroll releases scroll contexts. A context that already expired is
// not an error.
func (c *Client) ClearScroll(ctx context.Context, scrollIDs ...string) error {
	start := time.Now()
	res, err := c.es.ClearScroll(
		c.es.ClearScroll.WithContext(ctx),
		c.es.ClearScroll.WithScrollID(scrollIDs...),
	)
	if err := c.decode("clear_scroll", start, res, err, nil); err != nil && !IsNotFound(err) {
		return err
	}
	return nil
}

// Count returns the number of documents of index matching body.
func (c *Client) Count(ctx context.Context, index string, body map[string]interface{}) (int64, error) {
	r, err := bodyReader(body)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	res, err := c.es.Count(
		c.es.Count.WithContext(ctx),
		c.es.Count.WithIndex(index),
		c.es.Count.WithBody(r),
	)

	var out struct {
		Count int64 `json:"count"`
	}
	if err := c.decode("count", start, res, err, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}
