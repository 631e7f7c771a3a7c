package engine

import (
	"bytes"
	"context"
	"time"
)

// BulkResponse is the decoded _bulk answer. Items are in request order.
type BulkResponse struct {
	Took   int                   `json:"took"`
	Errors bool                  `json:"errors"`
	Items  []map[string]BulkItem `json:"items"`
}

type BulkItem struct {
	Index   string         `json:"_index"`
	ID      string         `json:"_id"`
	Status  int            `json:"status"`
	Result  string         `json:"result"`
	Created *bool          `json:"created,omitempty"`
	Found   *bool          `json:"found,omitempty"`
	Error   *BulkItemError `json:"error,omitempty"`
}

type BulkItemError struct {
	Type     string         `json:"type"`
	Reason   string         `json:"reason"`
	CausedBy *BulkItemError `json:"caused_by,omitempty"`
}

// Item returns the single action result of the i-th item together with its
// action name.
func (r *BulkResponse) Item(i int) (string, BulkItem) {
	for action, item := range r.Items[i] {
		return action, item
	}
	return "", BulkItem{}
}

// Bulk sends an NDJSON body to index and always asks for a refresh so the
// writes are visible to the next search.
func (c *Client) Bulk(ctx context.Context, index string, body []byte) (*BulkResponse, error) {
	start := time.Now()
	res, err := c.es.Bulk(
		bytes.NewReader(body),
		c.es.Bulk.WithContext(ctx),
		c.es.Bulk.WithIndex(index),
		c.es.Bulk.WithRefresh("true"),
	)

	var out BulkResponse
	if err := c.decode("bulk", start, res, err, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
