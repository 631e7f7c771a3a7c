// Package bulk writes batches of index and delete operations to the engine
// behind a process-wide concurrency gate.
package bulk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/flexsearch/indexer/internal/config"
	"github.com/flexsearch/indexer/internal/engine"
	"github.com/flexsearch/indexer/internal/model"
	"github.com/flexsearch/indexer/internal/util"
)

const DefaultMaxConcurrent = 50

// Writer sends one NDJSON bulk body to the engine.
type Writer interface {
	Bulk(ctx context.Context, index string, body []byte) (*engine.BulkResponse, error)
}

type Indexer struct {
	writer  Writer
	index   string
	fields  config.FieldsConfig
	sem     *semaphore.Weighted
	logger  *util.Logger
	metrics *util.Metrics
}

func NewIndexer(writer Writer, index string, fields config.FieldsConfig, maxConcurrent int, logger *util.Logger, metrics *util.Metrics) *Indexer {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	return &Indexer{
		writer:  writer,
		index:   index,
		fields:  fields,
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		logger:  logger,
		metrics: metrics,
	}
}

// Bulk writes batch in a single engine call. Callers beyond the concurrency
// limit wait for a permit. Item failures end up in the report; only a failed
// engine call is returned as an error. ReportNone yields a nil result.
func (ix *Indexer) Bulk(ctx context.Context, batch []model.BulkOperation, mode model.ReportMode) (*model.BulkResult, error) {
	if mode == "" {
		mode = model.ReportAggregate
	}
	for _, op := range batch {
		if err := op.Validate(); err != nil {
			return nil, util.ErrBadRequest.Wrap(err)
		}
	}

	if len(batch) == 0 {
		empty := &engine.BulkResponse{}
		return ix.result(mode, batch, empty, BuildReport(empty)), nil
	}

	body, err := ix.encode(batch)
	if err != nil {
		return nil, err
	}

	resp, err := ix.send(ctx, body)
	if err != nil {
		ix.logger.Errorw("Bulk request failed",
			"index", ix.index,
			"operations", len(batch),
			"first_id", batch[0].ID,
			"error", err,
		)
		ix.metrics.IncrementError("bulk", "indexer")
		return nil, err
	}

	report := BuildReport(resp)
	ix.metrics.AddBulkItems(outcomeCreated, report.Created)
	ix.metrics.AddBulkItems(outcomeUpdated, report.Updated)
	ix.metrics.AddBulkItems(outcomeDeleted, report.Deleted)
	ix.metrics.AddBulkItems(outcomeFailed, report.Failed)
	if report.Failed > 0 {
		ix.logger.Warnw("Bulk request had failed items",
			"index", ix.index,
			"failed", report.Failed,
			"total", report.Total,
		)
	} else {
		ix.logger.Debugw("Bulk request done",
			"index", ix.index,
			"created", report.Created,
			"updated", report.Updated,
			"deleted", report.Deleted,
			"took_ms", resp.Took,
		)
	}

	return ix.result(mode, batch, resp, report), nil
}

// send holds one permit for the duration of the engine call.
func (ix *Indexer) send(ctx context.Context, body []byte) (*engine.BulkResponse, error) {
	ix.metrics.IncrementBulkWaiting()
	err := ix.sem.Acquire(ctx, 1)
	ix.metrics.DecrementBulkWaiting()
	if err != nil {
		return nil, fmt.Errorf("waiting for bulk permit: %w", err)
	}
	defer ix.sem.Release(1)

	ix.metrics.IncrementBulkInFlight()
	defer ix.metrics.DecrementBulkInFlight()

	start := time.Now()
	resp, err := ix.writer.Bulk(ctx, ix.index, body)
	ix.metrics.RecordEngineLatency("bulk_batch", time.Since(start))
	return resp, err
}

// result shapes the answer for mode. report is the aggregate already built
// from resp.
func (ix *Indexer) result(mode model.ReportMode, batch []model.BulkOperation, resp *engine.BulkResponse, report *model.BulkReport) *model.BulkResult {
	switch mode {
	case model.ReportNone:
		return nil
	case model.ReportByType:
		return &model.BulkResult{ByType: BuildReportByType(batch, resp)}
	default:
		return &model.BulkResult{Report: report}
	}
}

type actionMeta struct {
	ID string `json:"_id"`
}

// encode renders batch as NDJSON. Indexed documents carry the type and id
// keyword fields so searches can filter by type and page on id.
func (ix *Indexer) encode(batch []model.BulkOperation) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)

	for _, op := range batch {
		meta := map[string]actionMeta{string(op.Action): {ID: op.ID}}
		if err := enc.Encode(meta); err != nil {
			return nil, util.ErrBadRequest.Wrap(fmt.Errorf("encode action for %q: %w", op.ID, err))
		}
		if op.Action != model.BulkIndex {
			continue
		}

		doc := make(map[string]interface{}, len(op.Document)+2)
		for k, v := range op.Document {
			doc[k] = v
		}
		doc[ix.fields.Type] = op.Type
		doc[ix.fields.ID] = op.ID
		if err := enc.Encode(doc); err != nil {
			return nil, util.ErrBadRequest.Wrap(fmt.Errorf("encode document %q: %w", op.ID, err))
		}
	}
	return buf.Bytes(), nil
}
