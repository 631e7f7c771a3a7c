package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Elasticsearch.URL != "http://localhost:9200" {
		t.Errorf("Unexpected default URL '%s'", cfg.Elasticsearch.URL)
	}
	if cfg.Elasticsearch.Index != "documents" {
		t.Errorf("Unexpected default index '%s'", cfg.Elasticsearch.Index)
	}
	if len(cfg.Elasticsearch.Stopwords) != 2 || cfg.Elasticsearch.Stopwords[0] != "french" || cfg.Elasticsearch.Stopwords[1] != "german" {
		t.Errorf("Unexpected default stopwords %v", cfg.Elasticsearch.Stopwords)
	}
	if cfg.Bulk.MaxConcurrent != 50 {
		t.Errorf("Expected 50 concurrent bulk calls, got %d", cfg.Bulk.MaxConcurrent)
	}
	if cfg.Elasticsearch.RequestTimeout != 5*time.Minute {
		t.Errorf("Unexpected request timeout %v", cfg.Elasticsearch.RequestTimeout)
	}
	if cfg.Elasticsearch.Fields.Autocomplete != "searchAutocomplete" || cfg.Elasticsearch.Fields.Phonetic != "searchPhonetic" {
		t.Errorf("Unexpected text fields %+v", cfg.Elasticsearch.Fields)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Defaults should be valid: %v", err)
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
elasticsearch:
  url: http://es-1:9200,http://es-2:9200
  index: customers
  stopwords: [english]
  health_check_delay: 500ms
bulk:
  max_concurrent: 8
cache:
  enabled: true
  default_ttl: 30s
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Elasticsearch.Index != "customers" {
		t.Errorf("Expected index 'customers', got '%s'", cfg.Elasticsearch.Index)
	}
	if len(cfg.Elasticsearch.Stopwords) != 1 || cfg.Elasticsearch.Stopwords[0] != "english" {
		t.Errorf("Unexpected stopwords %v", cfg.Elasticsearch.Stopwords)
	}
	if cfg.Elasticsearch.HealthCheckDelay != 500*time.Millisecond {
		t.Errorf("Unexpected health check delay %v", cfg.Elasticsearch.HealthCheckDelay)
	}
	if got := cfg.Elasticsearch.Addresses(); len(got) != 2 || got[1] != "http://es-2:9200" {
		t.Errorf("Unexpected addresses %v", got)
	}
	if cfg.Bulk.MaxConcurrent != 8 {
		t.Errorf("Expected 8 concurrent bulk calls, got %d", cfg.Bulk.MaxConcurrent)
	}
	if !cfg.Cache.Enabled || cfg.Cache.DefaultTTL != 30*time.Second {
		t.Errorf("Unexpected cache config %+v", cfg.Cache)
	}
	if cfg.HTTP.Port != 8080 {
		t.Errorf("Expected default HTTP port, got %d", cfg.HTTP.Port)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("INDEXER_ELASTICSEARCH_INDEX", "archive")
	path := writeConfig(t, "elasticsearch:\n  index: customers\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Elasticsearch.Index != "archive" {
		t.Errorf("Expected env override 'archive', got '%s'", cfg.Elasticsearch.Index)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected an error for a missing file")
	}
}

func TestLoad_Invalid(t *testing.T) {
	path := writeConfig(t, "bulk:\n  max_concurrent: 0\n")
	if _, err := Load(path); err == nil {
		t.Error("Expected a validation error")
	}
}

func TestAddresses(t *testing.T) {
	cfg := Default()
	if cfg.GetHTTPAddress() != "0.0.0.0:8080" {
		t.Errorf("Unexpected HTTP address '%s'", cfg.GetHTTPAddress())
	}
	if cfg.GetRedisAddress() != "localhost:6379" {
		t.Errorf("Unexpected Redis address '%s'", cfg.GetRedisAddress())
	}
}
