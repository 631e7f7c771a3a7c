package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type SearchMode string

const (
	SearchModeFulltext SearchMode = "fulltext"
	SearchModeMixed    SearchMode = "mixed"
)

type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

type SearchRequest struct {
	DocumentTypes   TypeList      `json:"documentTypes,omitempty"`
	FreeText        Terms         `json:"freeText,omitempty"`
	SearchMode      SearchMode    `json:"searchMode,omitempty"`
	Filters         []Filter      `json:"filters,omitempty"`
	TermFields      []string      `json:"termFields,omitempty"`
	DateFields      []string      `json:"dateFields,omitempty"`
	FullTextFields  []string      `json:"fullTextFields,omitempty"`
	HighlightFields []string      `json:"highlightFields,omitempty"`
	Sort            *SortSpec     `json:"sort,omitempty"`
	MustExist       bool          `json:"mustExist,omitempty"`
	From            int           `json:"from,omitempty"`
	Size            int           `json:"size,omitempty"`
	SearchAfter     []interface{} `json:"searchAfter,omitempty"`
	Fuzziness       string        `json:"fuzziness,omitempty"`
	Source          []string      `json:"source,omitempty"`
	Scroll          string        `json:"scroll,omitempty"`
	ValueField      string        `json:"valueField,omitempty"`
	RequestID       string        `json:"requestId,omitempty"`
}

type SortSpec struct {
	Field     string        `json:"field"`
	Direction SortDirection `json:"direction,omitempty"`
}

// Order returns the engine sort order, ascending unless desc was asked for.
func (s SortSpec) Order() string {
	if strings.EqualFold(string(s.Direction), string(SortDesc)) {
		return string(SortDesc)
	}
	return string(SortAsc)
}

// Terms is the free text of a request. It decodes from a JSON string (one
// element), an array of scalars, or null.
type Terms []string

func (t *Terms) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = nil
		return nil
	}

	if data[0] == '[' {
		var raw []interface{}
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		out := make(Terms, 0, len(raw))
		for _, v := range raw {
			if v == nil {
				continue
			}
			out = append(out, scalarString(v))
		}
		*t = out
		return nil
	}

	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	s := scalarString(v)
	if s == "" {
		*t = nil
		return nil
	}
	*t = Terms{s}
	return nil
}

// Empty reports whether no term carries any text.
func (t Terms) Empty() bool {
	for _, s := range t {
		if strings.TrimSpace(s) != "" {
			return false
		}
	}
	return true
}

// Text joins the terms into a single query string.
func (t Terms) Text() string {
	return strings.TrimSpace(strings.Join(t, " "))
}

// TypeList decodes either a comma-joined string or an array of type tags.
type TypeList []string

func (l *TypeList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if data[0] == '[' {
		var raw []string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		*l = ParseTypeList(strings.Join(raw, ","))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*l = ParseTypeList(s)
	return nil
}

func ParseTypeList(s string) TypeList {
	var out TypeList
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (l TypeList) String() string {
	return strings.Join(l, ",")
}

// Filter is either an inclusive range filter or an exclusion filter. On the
// wire an object value {"from","to"} is a range and an array value is the set
// of excluded values.
type Filter struct {
	Field          string
	Range          *RangeBounds
	ExcludedValues []interface{}
}

type RangeBounds struct {
	From interface{} `json:"from,omitempty"`
	To   interface{} `json:"to,omitempty"`
}

func NewRangeFilter(field string, from, to interface{}) Filter {
	return Filter{Field: field, Range: &RangeBounds{From: from, To: to}}
}

func NewExclusionFilter(field string, values ...interface{}) Filter {
	if values == nil {
		values = []interface{}{}
	}
	return Filter{Field: field, ExcludedValues: values}
}

func (f Filter) IsRange() bool {
	return f.Range != nil
}

func (f Filter) IsExclusion() bool {
	return f.Range == nil && f.ExcludedValues != nil
}

func (f Filter) Validate() error {
	if f.Field == "" {
		return fmt.Errorf("filter without field")
	}
	if f.Range != nil && f.ExcludedValues != nil {
		return fmt.Errorf("filter %q is both a range and an exclusion", f.Field)
	}
	if f.Range == nil && f.ExcludedValues == nil {
		return fmt.Errorf("filter %q has no value", f.Field)
	}
	return nil
}

type filterWire struct {
	Field string          `json:"field"`
	Value json.RawMessage `json:"value"`
}

func (f *Filter) UnmarshalJSON(data []byte) error {
	var w filterWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	value := bytes.TrimSpace(w.Value)
	if len(value) == 0 {
		return fmt.Errorf("filter %q has no value", w.Field)
	}

	*f = Filter{Field: w.Field}
	switch value[0] {
	case '[':
		var values []interface{}
		if err := json.Unmarshal(value, &values); err != nil {
			return err
		}
		if values == nil {
			values = []interface{}{}
		}
		f.ExcludedValues = values
	case '{':
		var bounds RangeBounds
		if err := json.Unmarshal(value, &bounds); err != nil {
			return err
		}
		f.Range = &bounds
	default:
		return fmt.Errorf("filter %q: value must be an array or an object", w.Field)
	}
	return nil
}

func (f Filter) MarshalJSON() ([]byte, error) {
	var value interface{}
	if f.Range != nil {
		value = f.Range
	} else {
		value = f.ExcludedValues
	}
	return json.Marshal(map[string]interface{}{
		"field": f.Field,
		"value": value,
	})
}

type FacetKind string

const (
	FacetKeyword FacetKind = "keyword"
	FacetDate    FacetKind = "date"
)

type FacetSpec struct {
	Name  string    `json:"name"`
	Field string    `json:"field"`
	Kind  FacetKind `json:"kind,omitempty"`
}

type FacetRequest struct {
	DocumentTypes TypeList    `json:"documentTypes,omitempty"`
	Facets        []FacetSpec `json:"facets"`
}

type ScrollRequest struct {
	ScrollID string `json:"scrollId"`
	Scroll   string `json:"scroll,omitempty"`
}

type BulkAction string

const (
	BulkIndex  BulkAction = "index"
	BulkDelete BulkAction = "delete"
)

type BulkOperation struct {
	Action   BulkAction             `json:"action"`
	Type     string                 `json:"type"`
	ID       string                 `json:"id"`
	Document map[string]interface{} `json:"document,omitempty"`
}

func IndexOperation(docType, id string, document map[string]interface{}) BulkOperation {
	return BulkOperation{Action: BulkIndex, Type: docType, ID: id, Document: document}
}

func DeleteOperation(docType, id string) BulkOperation {
	return BulkOperation{Action: BulkDelete, Type: docType, ID: id}
}

func (op BulkOperation) Validate() error {
	if op.ID == "" {
		return fmt.Errorf("bulk operation without id")
	}
	switch op.Action {
	case BulkIndex:
		if op.Document == nil {
			return fmt.Errorf("index operation %q without document", op.ID)
		}
	case BulkDelete:
	default:
		return fmt.Errorf("unknown bulk action %q for %q", op.Action, op.ID)
	}
	return nil
}

type ReportMode string

const (
	ReportNone      ReportMode = "none"
	ReportAggregate ReportMode = "aggregate"
	ReportByType    ReportMode = "byType"
)

func ParseReportMode(s string) (ReportMode, error) {
	switch ReportMode(s) {
	case "", ReportAggregate:
		return ReportAggregate, nil
	case ReportNone:
		return ReportNone, nil
	case ReportByType:
		return ReportByType, nil
	default:
		return "", fmt.Errorf("unknown report mode %q", s)
	}
}

type TypeMappingRequest struct {
	Properties map[string]interface{} `json:"properties,omitempty"`
}

func scalarString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return fmt.Sprintf("%t", t)
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}
