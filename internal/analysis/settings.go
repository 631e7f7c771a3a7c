// Package analysis builds the engine index configuration: tokenizers,
// analyzers, stopword filters and the field mappings of the two parallel
// text representations (autocomplete n-grams and phonetic codes).
package analysis

import (
	"strings"

	"github.com/flexsearch/indexer/internal/config"
)

const (
	AutocompleteAnalyzer       = "autocomplete"
	AutocompleteSearchAnalyzer = "autocomplete_search"
	PhoneticAnalyzer           = "phonetic"

	AutocompleteTokenizer = "autocomplete"
	PhoneticFilter        = "phonetic_filter"

	stopFilterPrefix = "stop_"
)

type Analyzer struct {
	Type      string   `json:"type"`
	Tokenizer string   `json:"tokenizer"`
	Filter    []string `json:"filter,omitempty"`
}

type Tokenizer struct {
	Type       string   `json:"type"`
	MinGram    int      `json:"min_gram,omitempty"`
	MaxGram    int      `json:"max_gram,omitempty"`
	TokenChars []string `json:"token_chars,omitempty"`
}

type TokenFilter struct {
	Type      string `json:"type"`
	Stopwords string `json:"stopwords,omitempty"`
	Encoder   string `json:"encoder,omitempty"`
	Replace   *bool  `json:"replace,omitempty"`
}

type IndexSettings struct {
	Analyzers  map[string]Analyzer    `json:"analyzer"`
	Tokenizers map[string]Tokenizer   `json:"tokenizer"`
	Filters    map[string]TokenFilter `json:"filter"`
}

// StopFilterName returns the filter name used for a stopword language.
func StopFilterName(language string) string {
	return stopFilterPrefix + strings.ToLower(strings.TrimSpace(language))
}

// BuildSettings returns the base analysis configuration with one stop filter
// per language. The stop filters are prepended, in the given order, to both
// the indexing and the search side autocomplete analyzers.
func BuildSettings(stopwords []string) IndexSettings {
	replace := false
	s := IndexSettings{
		Analyzers: map[string]Analyzer{},
		Tokenizers: map[string]Tokenizer{
			AutocompleteTokenizer: {
				Type:       "edge_ngram",
				MinGram:    1,
				MaxGram:    20,
				TokenChars: []string{"letter", "digit"},
			},
		},
		Filters: map[string]TokenFilter{
			PhoneticFilter: {
				Type:    "phonetic",
				Encoder: "double_metaphone",
				Replace: &replace,
			},
		},
	}

	var stops []string
	seen := map[string]bool{}
	for _, lang := range stopwords {
		name := StopFilterName(lang)
		if name == stopFilterPrefix || seen[name] {
			continue
		}
		seen[name] = true
		stops = append(stops, name)
		s.Filters[name] = TokenFilter{
			Type:      "stop",
			Stopwords: "_" + strings.ToLower(strings.TrimSpace(lang)) + "_",
		}
	}

	s.Analyzers[AutocompleteAnalyzer] = Analyzer{
		Type:      "custom",
		Tokenizer: AutocompleteTokenizer,
		Filter:    withPrefix(stops, "lowercase", "asciifolding"),
	}
	s.Analyzers[AutocompleteSearchAnalyzer] = Analyzer{
		Type:      "custom",
		Tokenizer: "lowercase",
		Filter:    withPrefix(stops, "lowercase", "asciifolding"),
	}
	s.Analyzers[PhoneticAnalyzer] = Analyzer{
		Type:      "custom",
		Tokenizer: "standard",
		Filter:    []string{"lowercase", "asciifolding", PhoneticFilter},
	}
	return s
}

// Body returns the index creation body: analysis settings plus mappings.
func (s IndexSettings) Body(mappings map[string]interface{}) map[string]interface{} {
	body := map[string]interface{}{
		"settings": map[string]interface{}{
			"analysis": s,
		},
	}
	if mappings != nil {
		body["mappings"] = mappings
	}
	return body
}

// BaseMappings declares the fields every document type carries.
func BaseMappings(fields config.FieldsConfig) map[string]interface{} {
	return map[string]interface{}{
		"properties": baseProperties(fields),
	}
}

// TypeMappings merges the per-type properties over the always-present ones.
// The always-present fields cannot be overridden.
func TypeMappings(fields config.FieldsConfig, extra map[string]interface{}) map[string]interface{} {
	props := make(map[string]interface{}, len(extra)+4)
	for name, def := range extra {
		props[name] = def
	}
	for name, def := range baseProperties(fields) {
		props[name] = def
	}
	return map[string]interface{}{
		"properties": props,
	}
}

func baseProperties(fields config.FieldsConfig) map[string]interface{} {
	return map[string]interface{}{
		fields.Autocomplete: map[string]interface{}{
			"type":            "text",
			"analyzer":        AutocompleteAnalyzer,
			"search_analyzer": AutocompleteSearchAnalyzer,
		},
		fields.Phonetic: map[string]interface{}{
			"type":     "text",
			"analyzer": PhoneticAnalyzer,
		},
		fields.Type: map[string]interface{}{
			"type": "keyword",
		},
		fields.ID: map[string]interface{}{
			"type": "keyword",
		},
	}
}

func withPrefix(prefix []string, rest ...string) []string {
	out := make([]string, 0, len(prefix)+len(rest))
	out = append(out, prefix...)
	return append(out, rest...)
}
