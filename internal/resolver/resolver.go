// Package resolver turns raw engine hits into display rows.
package resolver

import (
	"fmt"
	"strings"

	"github.com/flexsearch/indexer/internal/config"
	"github.com/flexsearch/indexer/internal/model"
)

const (
	emphasisOpen  = "<em>"
	emphasisClose = "</em>"
	// Delimiter replaces the engine emphasis tags in resolved rows.
	Delimiter = "`"
)

var emphasisReplacer = strings.NewReplacer(emphasisOpen, Delimiter, emphasisClose, Delimiter)

type Resolver struct {
	fields     config.FieldsConfig
	valueField string
}

// New returns a resolver. When valueField is empty the hit id is used as
// the row value.
func New(fields config.FieldsConfig, valueField string) *Resolver {
	return &Resolver{fields: fields, valueField: valueField}
}

// WithValueField returns a copy of r using valueField for row values.
func (r *Resolver) WithValueField(valueField string) *Resolver {
	return &Resolver{fields: r.fields, valueField: valueField}
}

// Resolve returns one entry per hit in every output slice, in hit order.
func (r *Resolver) Resolve(hits []model.Hit) model.ResolvedRows {
	out := model.ResolvedRows{
		Rows:     make([]string, len(hits)),
		Glyphs:   make([]interface{}, len(hits)),
		Status:   make([]interface{}, len(hits)),
		Values:   make([]interface{}, len(hits)),
		Payloads: make([]map[string]interface{}, len(hits)),
	}

	for i, hit := range hits {
		out.Rows[i] = r.Row(hit)
		out.Glyphs[i] = hit.Source[r.fields.Glyph]
		out.Status[i] = hit.Source[r.fields.Status]
		out.Payloads[i] = hit.Source

		if r.valueField != "" {
			out.Values[i] = hit.Source[r.valueField]
		} else {
			out.Values[i] = hit.ID
		}
	}
	return out
}

// Row picks the display text of a hit. The phonetic fragment is preferred
// unless the autocomplete fragment has strictly more matched terms.
func (r *Resolver) Row(hit model.Hit) string {
	phonetic, hasPhonetic := firstFragment(hit.Highlight, r.fields.Phonetic)
	autocomplete, hasAutocomplete := firstFragment(hit.Highlight, r.fields.Autocomplete)

	switch {
	case hasPhonetic && hasAutocomplete:
		if strings.Count(autocomplete, emphasisOpen) > strings.Count(phonetic, emphasisOpen) {
			return emphasisReplacer.Replace(autocomplete)
		}
		return emphasisReplacer.Replace(phonetic)
	case hasPhonetic:
		return emphasisReplacer.Replace(phonetic)
	case hasAutocomplete:
		return emphasisReplacer.Replace(autocomplete)
	default:
		return displayText(hit.Source[r.fields.Display])
	}
}

func firstFragment(highlight map[string][]string, field string) (string, bool) {
	fragments := highlight[field]
	if len(fragments) == 0 {
		return "", false
	}
	return fragments[0], true
}

func displayText(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
