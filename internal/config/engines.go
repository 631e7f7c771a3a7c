package config

import (
	"strings"
	"time"
)

type ElasticsearchConfig struct {
	URL                 string        `mapstructure:"url"`
	Index               string        `mapstructure:"index"`
	Username            string        `mapstructure:"username"`
	Password            string        `mapstructure:"password"`
	RequestTimeout      time.Duration `mapstructure:"request_timeout"`
	HealthCheckAttempts int           `mapstructure:"health_check_attempts"`
	HealthCheckDelay    time.Duration `mapstructure:"health_check_delay"`
	Stopwords           []string      `mapstructure:"stopwords"`
	Fields              FieldsConfig  `mapstructure:"fields"`
}

// FieldsConfig names the engine fields shared by every document type.
type FieldsConfig struct {
	Autocomplete string `mapstructure:"autocomplete"`
	Phonetic     string `mapstructure:"phonetic"`
	Display      string `mapstructure:"display"`
	Glyph        string `mapstructure:"glyph"`
	Status       string `mapstructure:"status"`
	Type         string `mapstructure:"type"`
	ID           string `mapstructure:"id"`
}

type BulkConfig struct {
	MaxConcurrent int `mapstructure:"max_concurrent"`
}

// Addresses splits URL on commas so a cluster can be given as a list of
// nodes.
func (e *ElasticsearchConfig) Addresses() []string {
	var addrs []string
	for _, addr := range strings.Split(e.URL, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			addrs = append(addrs, addr)
		}
	}
	return addrs
}

// FullTextFields returns the two parallel text fields queried by default.
func (f FieldsConfig) FullTextFields() []string {
	return []string{f.Autocomplete, f.Phonetic}
}
