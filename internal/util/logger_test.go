package util

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedLogger(level zapcore.Level) (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	logger := zap.New(core)
	return &Logger{Logger: logger, sugar: logger.Sugar(), level: level}, logs
}

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		logger, err := NewLogger("debug", format, "stdout")
		if err != nil {
			t.Fatalf("NewLogger(%s) failed: %v", format, err)
		}
		if logger.level != zapcore.DebugLevel {
			t.Errorf("Expected debug level, got %v", logger.level)
		}
	}

	logger, err := NewLogger("bogus", "json", "stdout")
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	if logger.level != zapcore.InfoLevel {
		t.Errorf("Unknown level should default to info, got %v", logger.level)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
	}
	for name, want := range cases {
		if got := parseLevel(name); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", name, got, want)
		}
	}

	logger, err := NewLogger("error", "json", "stdout")
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	if logger.Core().Enabled(zapcore.WarnLevel) {
		t.Error("Warn should be disabled at error level")
	}
}

func TestNamed(t *testing.T) {
	logger, logs := newObservedLogger(zapcore.InfoLevel)
	logger.Named("engine").Infow("Cluster healthy", "status", "green")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	if entries[0].LoggerName != "engine" {
		t.Errorf("Expected logger name 'engine', got '%s'", entries[0].LoggerName)
	}
	if entries[0].ContextMap()["status"] != "green" {
		t.Errorf("Expected status field, got %v", entries[0].ContextMap())
	}
}

func TestQueryLogger(t *testing.T) {
	logger, logs := newObservedLogger(zapcore.DebugLevel)
	ql := NewQueryLogger(logger)

	ql.LogSearch("documents", []string{"customer"}, "fulltext", 3, 12, "r-1")
	ql.LogError("search", "documents", errors.New("timeout"), "r-2")
	ql.LogCacheHit("search:documents:4:9e107d9d372bb6826bd81d3542a419d6", "r-3")

	if logs.Len() != 3 {
		t.Fatalf("Expected 3 entries, got %d", logs.Len())
	}

	search := logs.FilterMessage("Search completed").All()
	if len(search) != 1 || search[0].ContextMap()["total"] != int64(3) {
		t.Errorf("Unexpected search entry %v", search)
	}

	hit := logs.FilterMessage("Cache hit").All()
	if len(hit) != 1 || hit[0].ContextMap()["key"] != "search:documents:4:9e107d9d372bb6826bd81d3542a419d6" {
		t.Errorf("Expected the cache key on the hit entry, got %v", hit)
	}

	failed := logs.FilterMessage("Engine call failed").All()
	if len(failed) != 1 || failed[0].Level != zapcore.ErrorLevel {
		t.Errorf("Expected one error entry, got %v", failed)
	}
	if failed[0].ContextMap()["error"] != "timeout" {
		t.Errorf("Expected error field, got %v", failed[0].ContextMap())
	}
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	logger.Infow("dropped", "key", "value")
	logger.Named("child").Errorw("dropped too")
}
