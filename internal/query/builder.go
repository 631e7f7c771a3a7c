// Package query translates search requests into engine query bodies.
package query

import (
	"fmt"
	"strings"

	"github.com/flexsearch/indexer/internal/config"
	"github.com/flexsearch/indexer/internal/model"
	"github.com/flexsearch/indexer/internal/util"
)

const (
	DefaultSize      = 10
	DefaultFuzziness = "AUTO"
)

type obj = map[string]interface{}

type Builder struct {
	fields config.FieldsConfig
}

func NewBuilder(fields config.FieldsConfig) *Builder {
	return &Builder{fields: fields}
}

// Build returns the complete _search body for req.
func (b *Builder) Build(req *model.SearchRequest) (map[string]interface{}, error) {
	if err := b.validate(req); err != nil {
		return nil, err
	}

	mode := req.SearchMode
	if mode == "" {
		mode = model.SearchModeFulltext
	}
	hasText := !req.FreeText.Empty()
	filter := b.filterClause(req.Filters)

	var q, postFilter obj
	switch {
	case hasText && mode == model.SearchModeMixed:
		q = b.mixedQuery(req)
		postFilter = filter
	case hasText:
		q = b.multiMatch(req, req.FreeText.Text())
		postFilter = filter
	case filter != nil:
		q = filter
	case req.MustExist && req.Sort != nil && req.Sort.Field != "":
		q = obj{"bool": obj{"filter": []interface{}{
			obj{"exists": obj{"field": req.Sort.Field}},
		}}}
	default:
		q = obj{"match_all": obj{}}
	}

	body := obj{
		"query": b.restrictTypes(q, req.DocumentTypes),
		"size":  size(req.Size),
	}
	if req.From > 0 {
		body["from"] = req.From
	}
	if postFilter != nil {
		body["post_filter"] = postFilter
	}
	if hasText {
		body["highlight"] = b.highlight(req)
	}
	if req.Sort != nil && req.Sort.Field != "" {
		sort := []interface{}{
			obj{req.Sort.Field: obj{"order": req.Sort.Order(), "unmapped_type": "keyword"}},
		}
		if len(req.SearchAfter) > 0 {
			// the primary key is not unique, page on (key, id)
			sort = append(sort, obj{b.fields.ID: obj{"order": "desc", "unmapped_type": "keyword"}})
			body["search_after"] = req.SearchAfter
		}
		body["sort"] = sort
	}
	if len(req.Source) > 0 {
		body["_source"] = req.Source
	}
	return body, nil
}

// BuildCount returns the _count body matching the same documents as Build.
func (b *Builder) BuildCount(req *model.SearchRequest) (map[string]interface{}, error) {
	body, err := b.Build(req)
	if err != nil {
		return nil, err
	}
	q := body["query"]
	if pf, ok := body["post_filter"]; ok {
		q = obj{"bool": obj{
			"must":   []interface{}{q},
			"filter": []interface{}{pf},
		}}
	}
	return obj{"query": q}, nil
}

func (b *Builder) validate(req *model.SearchRequest) error {
	if req == nil {
		return util.ErrQueryInvalid.Wrap(fmt.Errorf("nil request"))
	}
	switch req.SearchMode {
	case "", model.SearchModeFulltext, model.SearchModeMixed:
	default:
		return util.ErrQueryInvalid.Wrap(fmt.Errorf("unknown search mode %q", req.SearchMode))
	}
	for _, f := range req.Filters {
		if err := f.Validate(); err != nil {
			return util.ErrQueryInvalid.Wrap(err)
		}
	}
	if len(req.SearchAfter) > 0 && (req.Sort == nil || req.Sort.Field == "") {
		return util.ErrQueryInvalid.Wrap(fmt.Errorf("searchAfter requires a sort"))
	}
	if len(req.SearchAfter) > 0 && req.From > 0 {
		return util.ErrQueryInvalid.Wrap(fmt.Errorf("from cannot be combined with searchAfter"))
	}
	return nil
}

func (b *Builder) fullTextFields(req *model.SearchRequest) []string {
	if len(req.FullTextFields) > 0 {
		return req.FullTextFields
	}
	return b.fields.FullTextFields()
}

func (b *Builder) multiMatch(req *model.SearchRequest, text string) obj {
	fuzziness := req.Fuzziness
	if fuzziness == "" {
		fuzziness = DefaultFuzziness
	}
	return obj{"multi_match": obj{
		"query":     text,
		"fields":    b.fullTextFields(req),
		"type":      "most_fields",
		"operator":  "and",
		"fuzziness": fuzziness,
	}}
}

// mixedQuery ANDs one disjunction per token. A token matches through the
// full text fields, any term field, or any date field it parses for.
func (b *Builder) mixedQuery(req *model.SearchRequest) obj {
	var must []interface{}
	for _, token := range req.FreeText {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}

		should := []interface{}{b.multiMatch(req, token)}
		for _, field := range req.TermFields {
			if strings.Contains(token, "*") {
				should = append(should, obj{"wildcard": obj{field: obj{"value": token}}})
			} else {
				should = append(should, obj{"term": obj{field: token}})
			}
		}
		for _, field := range req.DateFields {
			date, ok := ParseDate(token)
			if !ok {
				continue
			}
			should = append(should, obj{"term": obj{field: date}})
		}

		must = append(must, obj{"bool": obj{
			"should":               should,
			"minimum_should_match": 1,
		}})
	}
	return obj{"bool": obj{"must": must}}
}

// filterClause ANDs the range filters (inclusive bounds) and excludes the
// values of the exclusion filters. It returns nil when there is nothing to
// filter on.
func (b *Builder) filterClause(filters []model.Filter) obj {
	var must, mustNot []interface{}
	for _, f := range filters {
		switch {
		case f.IsRange():
			bounds := obj{}
			if f.Range.From != nil {
				bounds["gte"] = f.Range.From
			}
			if f.Range.To != nil {
				bounds["lte"] = f.Range.To
			}
			must = append(must, obj{"range": obj{f.Field: bounds}})
		case f.IsExclusion() && len(f.ExcludedValues) > 0:
			mustNot = append(mustNot, obj{"terms": obj{f.Field: f.ExcludedValues}})
		}
	}
	if len(must) == 0 && len(mustNot) == 0 {
		return nil
	}

	clause := obj{}
	if len(must) > 0 {
		clause["must"] = must
	}
	if len(mustNot) > 0 {
		clause["must_not"] = mustNot
	}
	return obj{"bool": clause}
}

func (b *Builder) highlight(req *model.SearchRequest) obj {
	fields := req.HighlightFields
	if len(fields) == 0 {
		fields = b.fullTextFields(req)
	}
	hl := obj{}
	for _, f := range fields {
		// whole field, not excerpts
		hl[f] = obj{"number_of_fragments": 0}
	}
	return obj{"fields": hl}
}

func (b *Builder) restrictTypes(q obj, types model.TypeList) obj {
	if len(types) == 0 {
		return q
	}
	return obj{"bool": obj{
		"must":   []interface{}{q},
		"filter": []interface{}{obj{"terms": obj{b.fields.Type: []string(types)}}},
	}}
}

func size(n int) int {
	if n <= 0 {
		return DefaultSize
	}
	return n
}
