// Package lifecycle creates, maps, resets and deletes engine indices.
package lifecycle

import (
	"context"
	"fmt"

	"github.com/flexsearch/indexer/internal/analysis"
	"github.com/flexsearch/indexer/internal/config"
	"github.com/flexsearch/indexer/internal/engine"
	"github.com/flexsearch/indexer/internal/util"
)

// AllIndices is the scope of ResetAllIndices.
const AllIndices = "*"

// Indices is the engine surface the manager needs.
type Indices interface {
	IndexExists(ctx context.Context, index string) (bool, error)
	CreateIndex(ctx context.Context, index string, body map[string]interface{}) error
	DeleteIndex(ctx context.Context, indices ...string) error
	PutMapping(ctx context.Context, index string, body map[string]interface{}) error
	ListIndices(ctx context.Context, pattern string) ([]string, error)
}

// Manager owns the index state transitions. Every transition of one index
// name runs under the lock of that name.
type Manager struct {
	engine    Indices
	index     string
	stopwords []string
	fields    config.FieldsConfig
	locks     *KeyedMutex
	logger    *util.Logger
	metrics   *util.Metrics
}

func NewManager(indices Indices, cfg config.ElasticsearchConfig, locks *KeyedMutex, logger *util.Logger, metrics *util.Metrics) *Manager {
	if locks == nil {
		locks = NewKeyedMutex()
	}
	return &Manager{
		engine:    indices,
		index:     cfg.Index,
		stopwords: cfg.Stopwords,
		fields:    cfg.Fields,
		locks:     locks,
		logger:    logger,
		metrics:   metrics,
	}
}

// Index returns the default index name.
func (m *Manager) Index() string {
	return m.index
}

func (m *Manager) resolve(index string) string {
	if index == "" {
		return m.index
	}
	return index
}

// EnsureIndex creates index with the analysis settings and base mappings
// unless it already exists. It reports whether this call created it.
func (m *Manager) EnsureIndex(ctx context.Context, index string) (bool, error) {
	index = m.resolve(index)
	unlock := m.locks.Lock(index)
	defer unlock()

	return m.ensureLocked(ctx, index)
}

func (m *Manager) ensureLocked(ctx context.Context, index string) (bool, error) {
	exists, err := m.engine.IndexExists(ctx, index)
	if err != nil {
		m.fail("ensure_index", index, err)
		return false, err
	}
	if exists {
		m.metrics.IncrementLifecycle("ensure_index", "exists")
		return false, nil
	}

	body := analysis.BuildSettings(m.stopwords).Body(analysis.BaseMappings(m.fields))
	if err := m.engine.CreateIndex(ctx, index, body); err != nil {
		if engine.IsAlreadyExists(err) {
			m.logger.Debugw("Index created concurrently", "index", index)
			m.metrics.IncrementLifecycle("ensure_index", "exists")
			return false, nil
		}
		m.fail("ensure_index", index, err)
		return false, err
	}

	m.logger.Infow("Index created", "index", index, "stopwords", m.stopwords)
	m.metrics.IncrementLifecycle("ensure_index", "created")
	return true, nil
}

// EnsureType makes sure the default index exists and declares the mapping of
// docType: the always-present text fields plus properties.
func (m *Manager) EnsureType(ctx context.Context, docType string, properties map[string]interface{}) error {
	if docType == "" {
		return util.ErrBadRequest.Wrap(fmt.Errorf("document type is required"))
	}
	if _, err := m.EnsureIndex(ctx, m.index); err != nil {
		return err
	}
	if err := m.PutMapping(ctx, m.index, properties); err != nil {
		return err
	}
	m.logger.Debugw("Type mapping declared", "index", m.index, "type", docType, "fields", len(properties))
	return nil
}

// PutMapping declares properties on index. Declaring the same mapping twice
// is a no-op on the engine side.
func (m *Manager) PutMapping(ctx context.Context, index string, properties map[string]interface{}) error {
	index = m.resolve(index)
	unlock := m.locks.Lock(index)
	defer unlock()

	if err := m.engine.PutMapping(ctx, index, analysis.TypeMappings(m.fields, properties)); err != nil {
		m.fail("put_mapping", index, err)
		return err
	}
	m.metrics.IncrementLifecycle("put_mapping", "ok")
	return nil
}

// ResetIndex drops index when present and creates it again.
func (m *Manager) ResetIndex(ctx context.Context, index string) error {
	index = m.resolve(index)
	unlock := m.locks.Lock(index)
	defer unlock()

	if err := m.deleteLocked(ctx, index); err != nil {
		return err
	}
	if _, err := m.ensureLocked(ctx, index); err != nil {
		return err
	}
	m.logger.Infow("Index reset", "index", index)
	return nil
}

// DeleteIndex drops index. A missing index is not an error.
func (m *Manager) DeleteIndex(ctx context.Context, index string) error {
	index = m.resolve(index)
	unlock := m.locks.Lock(index)
	defer unlock()

	return m.deleteLocked(ctx, index)
}

func (m *Manager) deleteLocked(ctx context.Context, index string) error {
	if err := m.engine.DeleteIndex(ctx, index); err != nil {
		if engine.IsNotFound(err) {
			m.logger.Debugw("Index already absent", "index", index)
			m.metrics.IncrementLifecycle("delete_index", "absent")
			return nil
		}
		m.fail("delete_index", index, err)
		return err
	}
	m.logger.Infow("Index deleted", "index", index)
	m.metrics.IncrementLifecycle("delete_index", "deleted")
	return nil
}

// ResetAllIndices deletes every non-system index. Each index is deleted under
// its own lock; the first failure stops the sweep.
func (m *Manager) ResetAllIndices(ctx context.Context) ([]string, error) {
	unlock := m.locks.Lock(AllIndices)
	defer unlock()

	names, err := m.engine.ListIndices(ctx, AllIndices)
	if err != nil {
		m.fail("reset_all", AllIndices, err)
		return nil, err
	}

	deleted := make([]string, 0, len(names))
	for _, name := range names {
		if err := m.DeleteIndex(ctx, name); err != nil {
			return deleted, err
		}
		deleted = append(deleted, name)
	}

	m.logger.Infow("All indices deleted", "count", len(deleted))
	m.metrics.IncrementLifecycle("reset_all", "ok")
	return deleted, nil
}

func (m *Manager) fail(operation, index string, err error) {
	m.logger.Errorw("Index lifecycle operation failed",
		"operation", operation,
		"index", index,
		"error", err,
	)
	m.metrics.IncrementLifecycle(operation, "error")
}
