package bulk

import (
	"github.com/flexsearch/indexer/internal/engine"
	"github.com/flexsearch/indexer/internal/model"
)

const (
	outcomeCreated = "created"
	outcomeUpdated = "updated"
	outcomeDeleted = "deleted"
	outcomeFailed  = "failed"
	outcomeIgnored = "ignored"
)

// BuildReport folds every item of resp into one report.
func BuildReport(resp *engine.BulkResponse) *model.BulkReport {
	report := model.NewBulkReport()
	for i := range resp.Items {
		action, item := resp.Item(i)
		apply(report, action, item)
		report.Total++
	}
	return report
}

// BuildReportByType partitions the items by the declared type of the
// operation at the same position in batch.
func BuildReportByType(batch []model.BulkOperation, resp *engine.BulkResponse) map[string]*model.BulkReport {
	byType := make(map[string]*model.BulkReport)
	for i := range resp.Items {
		var docType string
		if i < len(batch) {
			docType = batch[i].Type
		}

		report, ok := byType[docType]
		if !ok {
			report = model.NewBulkReport()
			byType[docType] = report
		}

		action, item := resp.Item(i)
		apply(report, action, item)
		report.Total++
	}
	return byType
}

func apply(report *model.BulkReport, action string, item engine.BulkItem) {
	switch classify(action, item) {
	case outcomeCreated:
		report.Created++
	case outcomeUpdated:
		report.Updated++
	case outcomeDeleted:
		report.Deleted++
	case outcomeFailed:
		report.Failed++
		report.Errors[item.ID] = errorMessage(item.Error)
	}
}

// classify returns the outcome of one item. A delete only counts when the
// document was found; a missing document is ignored, not failed.
func classify(action string, item engine.BulkItem) string {
	if item.Error != nil {
		return outcomeFailed
	}

	if action == string(model.BulkDelete) {
		if item.Result == "deleted" || (item.Found != nil && *item.Found) {
			return outcomeDeleted
		}
		return outcomeIgnored
	}

	switch {
	case item.Result == "created" || (item.Created != nil && *item.Created):
		return outcomeCreated
	case item.Result == "updated":
		return outcomeUpdated
	default:
		return outcomeIgnored
	}
}

func errorMessage(e *engine.BulkItemError) string {
	var cause string
	if e.CausedBy != nil {
		cause = e.CausedBy.Reason
	}
	return e.Reason + ": " + cause
}
