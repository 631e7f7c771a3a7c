// Package engine wraps the Elasticsearch REST client.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/flexsearch/indexer/internal/config"
	"github.com/flexsearch/indexer/internal/util"
)

// HealthStatus is the minimum cluster status the service starts on.
const HealthStatus = "yellow"

type Client struct {
	es      *elasticsearch.Client
	address string
	logger  *util.Logger
	metrics *util.Metrics
}

type ClusterHealth struct {
	ClusterName   string `json:"cluster_name"`
	Status        string `json:"status"`
	NumberOfNodes int    `json:"number_of_nodes"`
	TimedOut      bool   `json:"timed_out"`
}

// NewClient builds a client without contacting the cluster. The transport
// retries of the underlying client are disabled; RequestTimeout bounds every
// call.
func NewClient(cfg config.ElasticsearchConfig, logger *util.Logger, metrics *util.Metrics) (*Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.RequestTimeout > 0 {
		transport.ResponseHeaderTimeout = cfg.RequestTimeout
	}

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:    cfg.Addresses(),
		Username:     cfg.Username,
		Password:     cfg.Password,
		Transport:    transport,
		DisableRetry: true,
	})
	if err != nil {
		return nil, util.ErrConnection.Wrap(fmt.Errorf("failed to create Elasticsearch client: %w", err))
	}

	return &Client{
		es:      es,
		address: cfg.URL,
		logger:  logger,
		metrics: metrics,
	}, nil
}

// Dial builds a client and blocks until the cluster reports at least a
// yellow status.
func Dial(ctx context.Context, cfg config.ElasticsearchConfig, logger *util.Logger, metrics *util.Metrics) (*Client, error) {
	c, err := NewClient(cfg, logger, metrics)
	if err != nil {
		return nil, err
	}
	if err := c.WaitForHealth(ctx, cfg.HealthCheckAttempts, cfg.HealthCheckDelay); err != nil {
		return nil, err
	}
	return c, nil
}

// WaitForHealth polls the cluster health with a fixed delay between
// attempts. After the last attempt the last failure is returned wrapped in
// util.ErrConnection.
func (c *Client) WaitForHealth(ctx context.Context, attempts int, delay time.Duration) error {
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return util.ErrConnection.Wrap(ctx.Err())
			}
		}

		health, err := c.ClusterHealth(ctx)
		if err == nil {
			c.logger.Infow("Elasticsearch cluster is available",
				"address", c.address,
				"cluster", health.ClusterName,
				"status", health.Status,
				"attempt", attempt,
			)
			c.metrics.SetEngineUp(true)
			return nil
		}

		lastErr = err
		c.logger.Warnw("Elasticsearch cluster not available yet",
			"address", c.address,
			"attempt", attempt,
			"max_attempts", attempts,
			"error", err,
		)
	}

	c.metrics.SetEngineUp(false)
	return util.ErrConnection.Wrap(fmt.Errorf("cluster health after %d attempts: %w", attempts, lastErr))
}

// ClusterHealth waits briefly for a yellow status and fails when the cluster
// is red or does not answer.
func (c *Client) ClusterHealth(ctx context.Context) (*ClusterHealth, error) {
	start := time.Now()
	res, err := c.es.Cluster.Health(
		c.es.Cluster.Health.WithContext(ctx),
		c.es.Cluster.Health.WithWaitForStatus(HealthStatus),
		c.es.Cluster.Health.WithTimeout(5*time.Second),
	)

	var health ClusterHealth
	if err := c.decode("cluster_health", start, res, err, &health); err != nil {
		return nil, err
	}
	if health.TimedOut || health.Status == "red" {
		return &health, util.ErrEngineUnavailable.Wrap(fmt.Errorf("cluster %s is %s", health.ClusterName, health.Status))
	}
	return &health, nil
}

// Ping reports whether the cluster is currently usable.
func (c *Client) Ping(ctx context.Context) bool {
	_, err := c.ClusterHealth(ctx)
	up := err == nil
	c.metrics.SetEngineUp(up)
	return up
}

func (c *Client) Address() string {
	return c.address
}

// decode closes the response and either decodes a successful body into out
// or turns the error body into a classified error.
func (c *Client) decode(op string, start time.Time, res *esapi.Response, err error, out interface{}) error {
	c.metrics.RecordEngineLatency(op, time.Since(start))

	if err != nil {
		c.logger.Debugw("Engine call failed", "operation", op, "error", err)
		return util.ErrEngineUnavailable.Wrap(fmt.Errorf("%s: %w", op, err))
	}
	defer res.Body.Close()

	if res.IsError() {
		rerr := decodeError(res)
		c.logger.Debugw("Engine returned an error",
			"operation", op,
			"status", rerr.Status,
			"type", rerr.Type,
			"reason", rerr.Reason,
		)
		return classify(rerr)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return util.ErrInternalServer.Wrap(fmt.Errorf("%s: decode response: %w", op, err))
	}
	return nil
}

func bodyReader(body interface{}) (*bytes.Reader, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, util.ErrQueryInvalid.Wrap(fmt.Errorf("encode request body: %w", err))
	}
	return bytes.NewReader(raw), nil
}
