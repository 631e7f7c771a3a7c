package query

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flexsearch/indexer/internal/config"
	"github.com/flexsearch/indexer/internal/model"
	"github.com/flexsearch/indexer/internal/util"
)

func newTestBuilder() *Builder {
	return NewBuilder(config.Default().Elasticsearch.Fields)
}

func mustJSON(t *testing.T, v interface{}) string {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return string(raw)
}

func decodeRequest(t *testing.T, raw string) *model.SearchRequest {
	t.Helper()
	var req model.SearchRequest
	require.NoError(t, json.Unmarshal([]byte(raw), &req))
	return &req
}

func TestBuild_FulltextEndToEnd(t *testing.T) {
	req := decodeRequest(t, `{"searchMode":"fulltext","freeText":"Dupont","size":5}`)

	body, err := newTestBuilder().Build(req)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"query": {"multi_match": {
			"query": "Dupont",
			"fields": ["searchAutocomplete", "searchPhonetic"],
			"type": "most_fields",
			"operator": "and",
			"fuzziness": "AUTO"
		}},
		"size": 5,
		"highlight": {"fields": {
			"searchAutocomplete": {"number_of_fragments": 0},
			"searchPhonetic": {"number_of_fragments": 0}
		}}
	}`, mustJSON(t, body))
}

func TestBuild_FulltextFiltersArePostFilter(t *testing.T) {
	req := &model.SearchRequest{
		FreeText:  model.Terms{"acme"},
		Fuzziness: "1",
		Filters: []model.Filter{
			model.NewRangeFilter("amount", 10, 20),
			model.NewExclusionFilter("status", "archived", "draft"),
		},
	}

	body, err := newTestBuilder().Build(req)
	require.NoError(t, err)

	assert.Contains(t, mustJSON(t, body["query"]), `"fuzziness":"1"`)
	assert.JSONEq(t, `{"bool": {
		"must": [{"range": {"amount": {"gte": 10, "lte": 20}}}],
		"must_not": [{"terms": {"status": ["archived", "draft"]}}]
	}}`, mustJSON(t, body["post_filter"]))
}

func TestBuild_FiltersOnly(t *testing.T) {
	req := decodeRequest(t, `{
		"filters": [
			{"field": "date", "value": {"from": "2020-01-01", "to": "2020-12-31"}},
			{"field": "kind", "value": ["a", "b"]}
		]
	}`)

	body, err := newTestBuilder().Build(req)
	require.NoError(t, err)

	assert.JSONEq(t, `{"bool": {
		"must": [{"range": {"date": {"gte": "2020-01-01", "lte": "2020-12-31"}}}],
		"must_not": [{"terms": {"kind": ["a", "b"]}}]
	}}`, mustJSON(t, body["query"]))
	assert.NotContains(t, body, "post_filter")
	assert.NotContains(t, body, "highlight")
}

func TestBuild_OpenRange(t *testing.T) {
	req := &model.SearchRequest{Filters: []model.Filter{model.NewRangeFilter("amount", nil, 100)}}

	body, err := newTestBuilder().Build(req)
	require.NoError(t, err)

	assert.JSONEq(t, `{"bool": {"must": [{"range": {"amount": {"lte": 100}}}]}}`, mustJSON(t, body["query"]))
}

func TestBuild_InvalidFilterShape(t *testing.T) {
	var req model.SearchRequest
	err := json.Unmarshal([]byte(`{"filters":[{"field":"x","value":"scalar"}]}`), &req)
	require.Error(t, err)

	bad := &model.SearchRequest{Filters: []model.Filter{{
		Field:          "x",
		Range:          &model.RangeBounds{From: 1},
		ExcludedValues: []interface{}{"a"},
	}}}
	_, err = newTestBuilder().Build(bad)
	require.Error(t, err)
	assert.True(t, errors.Is(err, util.ErrQueryInvalid))
}

func TestBuild_MixedTokensAreAndedClausesOred(t *testing.T) {
	req := &model.SearchRequest{
		SearchMode: model.SearchModeMixed,
		FreeText:   model.Terms{"dup*", "12.03.2021"},
		TermFields: []string{"reference"},
		DateFields: []string{"createdAt"},
	}

	body, err := newTestBuilder().Build(req)
	require.NoError(t, err)

	mm := func(token string) string {
		return `{"multi_match": {"query": "` + token + `",
			"fields": ["searchAutocomplete", "searchPhonetic"],
			"type": "most_fields", "operator": "and", "fuzziness": "AUTO"}}`
	}
	assert.JSONEq(t, `{"bool": {"must": [
		{"bool": {"minimum_should_match": 1, "should": [
			`+mm("dup*")+`,
			{"wildcard": {"reference": {"value": "dup*"}}}
		]}},
		{"bool": {"minimum_should_match": 1, "should": [
			`+mm("12.03.2021")+`,
			{"term": {"reference": "12.03.2021"}},
			{"term": {"createdAt": "2021-03-12"}}
		]}}
	]}}`, mustJSON(t, body["query"]))
}

func TestBuild_MixedScalarEqualsOneElementArray(t *testing.T) {
	b := newTestBuilder()
	scalar := decodeRequest(t, `{"searchMode":"mixed","freeText":"Dupont","termFields":["ref"]}`)
	array := decodeRequest(t, `{"searchMode":"mixed","freeText":["Dupont"],"termFields":["ref"]}`)

	a, err := b.Build(scalar)
	require.NoError(t, err)
	c, err := b.Build(array)
	require.NoError(t, err)

	assert.JSONEq(t, mustJSON(t, a), mustJSON(t, c))
}

func TestBuild_MixedUnparsableDateIsSkipped(t *testing.T) {
	req := &model.SearchRequest{
		SearchMode: model.SearchModeMixed,
		FreeText:   model.Terms{"hello"},
		DateFields: []string{"createdAt"},
	}

	body, err := newTestBuilder().Build(req)
	require.NoError(t, err)
	assert.NotContains(t, mustJSON(t, body["query"]), "createdAt")
}

func TestBuild_SortAndSearchAfter(t *testing.T) {
	req := &model.SearchRequest{
		Sort:        &model.SortSpec{Field: "name", Direction: model.SortDesc},
		SearchAfter: []interface{}{"dupont", "doc-42"},
	}

	body, err := newTestBuilder().Build(req)
	require.NoError(t, err)

	assert.JSONEq(t, `[
		{"name": {"order": "desc", "unmapped_type": "keyword"}},
		{"id": {"order": "desc", "unmapped_type": "keyword"}}
	]`, mustJSON(t, body["sort"]))
	assert.Equal(t, []interface{}{"dupont", "doc-42"}, body["search_after"])
}

func TestBuild_SortWithoutSearchAfterHasNoTiebreak(t *testing.T) {
	req := &model.SearchRequest{Sort: &model.SortSpec{Field: "name"}}

	body, err := newTestBuilder().Build(req)
	require.NoError(t, err)

	assert.JSONEq(t, `[{"name": {"order": "asc", "unmapped_type": "keyword"}}]`, mustJSON(t, body["sort"]))
	assert.NotContains(t, body, "search_after")
}

func TestBuild_SearchAfterWithoutSort(t *testing.T) {
	_, err := newTestBuilder().Build(&model.SearchRequest{SearchAfter: []interface{}{1}})
	assert.True(t, errors.Is(err, util.ErrQueryInvalid))
}

func TestBuild_SearchAfterWithFrom(t *testing.T) {
	req := &model.SearchRequest{
		From:        20,
		Sort:        &model.SortSpec{Field: "name"},
		SearchAfter: []interface{}{"dupont", "doc-42"},
	}

	_, err := newTestBuilder().Build(req)
	assert.True(t, errors.Is(err, util.ErrQueryInvalid))
	assert.Contains(t, err.Error(), "searchAfter")

	req.From = 0
	body, err := newTestBuilder().Build(req)
	require.NoError(t, err)
	assert.NotContains(t, body, "from")
}

func TestBuild_MustExistOnSortKey(t *testing.T) {
	req := &model.SearchRequest{MustExist: true, Sort: &model.SortSpec{Field: "dueDate"}}

	body, err := newTestBuilder().Build(req)
	require.NoError(t, err)

	assert.JSONEq(t, `{"bool": {"filter": [{"exists": {"field": "dueDate"}}]}}`, mustJSON(t, body["query"]))
}

func TestBuild_MatchAllAndDefaults(t *testing.T) {
	body, err := newTestBuilder().Build(&model.SearchRequest{From: 20, Source: []string{"info"}})
	require.NoError(t, err)

	assert.JSONEq(t, `{"match_all": {}}`, mustJSON(t, body["query"]))
	assert.Equal(t, DefaultSize, body["size"])
	assert.Equal(t, 20, body["from"])
	assert.Equal(t, []string{"info"}, body["_source"])
}

func TestBuild_DocumentTypesRestrictQuery(t *testing.T) {
	req := decodeRequest(t, `{"documentTypes":"customer,supplier"}`)

	body, err := newTestBuilder().Build(req)
	require.NoError(t, err)

	assert.JSONEq(t, `{"bool": {
		"must": [{"match_all": {}}],
		"filter": [{"terms": {"type": ["customer", "supplier"]}}]
	}}`, mustJSON(t, body["query"]))
}

func TestBuild_CustomHighlightFields(t *testing.T) {
	req := &model.SearchRequest{
		FreeText:        model.Terms{"x"},
		FullTextFields:  []string{"a", "b"},
		HighlightFields: []string{"c"},
	}

	body, err := newTestBuilder().Build(req)
	require.NoError(t, err)

	assert.JSONEq(t, `{"fields": {"c": {"number_of_fragments": 0}}}`, mustJSON(t, body["highlight"]))
	assert.Contains(t, mustJSON(t, body["query"]), `"fields":["a","b"]`)
}

func TestBuildCount_FoldsPostFilter(t *testing.T) {
	req := &model.SearchRequest{
		FreeText: model.Terms{"x"},
		Filters:  []model.Filter{model.NewExclusionFilter("s", "a")},
	}

	body, err := newTestBuilder().BuildCount(req)
	require.NoError(t, err)

	require.Len(t, body, 1)
	q := mustJSON(t, body["query"])
	assert.Contains(t, q, `"must_not":[{"terms":{"s":["a"]}}]`)
	assert.Contains(t, q, `"multi_match"`)
}

func TestBuild_UnknownMode(t *testing.T) {
	_, err := newTestBuilder().Build(&model.SearchRequest{SearchMode: "semantic"})
	assert.True(t, errors.Is(err, util.ErrQueryInvalid))
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2021-03-12", "2021-03-12", true},
		{"12.03.2021", "2021-03-12", true},
		{"1.2.2021", "2021-02-01", true},
		{"12/03/2021", "2021-03-12", true},
		{"2021-03-12T10:00:00Z", "2021-03-12", true},
		{"31.02.2021", "", false},
		{"dupont", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDate(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
