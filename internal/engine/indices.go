package engine

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/flexsearch/indexer/internal/util"
)

// IndexExists reports whether index is present.
func (c *Client) IndexExists(ctx context.Context, index string) (bool, error) {
	start := time.Now()
	res, err := c.es.Indices.Exists(
		[]string{index},
		c.es.Indices.Exists.WithContext(ctx),
	)
	c.metrics.RecordEngineLatency("index_exists", time.Since(start))
	if err != nil {
		return false, util.ErrEngineUnavailable.Wrap(err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, classify(decodeError(res))
	}
}

// CreateIndex creates index with the given settings and mappings body.
func (c *Client) CreateIndex(ctx context.Context, index string, body map[string]interface{}) error {
	r, err := bodyReader(body)
	if err != nil {
		return err
	}

	start := time.Now()
	res, err := c.es.Indices.Create(
		index,
		c.es.Indices.Create.WithContext(ctx),
		c.es.Indices.Create.WithBody(r),
	)
	return c.decode("create_index", start, res, err, nil)
}

// DeleteIndex deletes the given indices. Wildcards are accepted.
func (c *Client) DeleteIndex(ctx context.Context, indices ...string) error {
	start := time.Now()
	res, err := c.es.Indices.Delete(
		indices,
		c.es.Indices.Delete.WithContext(ctx),
	)
	return c.decode("delete_index", start, res, err, nil)
}

// PutMapping adds field mappings to index. Existing compatible fields are
// left as they are by the engine.
func (c *Client) PutMapping(ctx context.Context, index string, body map[string]interface{}) error {
	r, err := bodyReader(body)
	if err != nil {
		return err
	}

	start := time.Now()
	res, err := c.es.Indices.PutMapping(
		[]string{index},
		r,
		c.es.Indices.PutMapping.WithContext(ctx),
	)
	return c.decode("put_mapping", start, res, err, nil)
}

// ListIndices returns the names of the indices matching pattern. Hidden and
// system indices (leading dot) are left out.
func (c *Client) ListIndices(ctx context.Context, pattern string) ([]string, error) {
	start := time.Now()
	res, err := c.es.Cat.Indices(
		c.es.Cat.Indices.WithContext(ctx),
		c.es.Cat.Indices.WithIndex(pattern),
		c.es.Cat.Indices.WithFormat("json"),
		c.es.Cat.Indices.WithH("index"),
	)

	var rows []struct {
		Index string `json:"index"`
	}
	if err := c.decode("list_indices", start, res, err, &rows); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(rows))
	for _, row := range rows {
		if row.Index == "" || strings.HasPrefix(row.Index, ".") {
			continue
		}
		names = append(names, row.Index)
	}
	sort.Strings(names)
	return names, nil
}
