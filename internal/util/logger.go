package util

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger pairs a zap logger with its sugared form. Call sites use the
// key-value methods; the printf ones are kept for process start and stop.
type Logger struct {
	*zap.Logger
	sugar *zap.SugaredLogger
	level zapcore.Level
}

// parseLevel maps a config level name to zap. Unknown names mean info.
func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// NewLogger builds a JSON logger when format is "json" and a colored console
// logger otherwise. output is a zap sink path such as stdout or a file.
func NewLogger(level string, format string, output string) (*Logger, error) {
	zapLevel := parseLevel(level)

	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if format == "json" {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	cfg.OutputPaths = []string{output}
	cfg.ErrorOutputPaths = []string{output}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{Logger: logger, sugar: logger.Sugar(), level: zapLevel}, nil
}

func (l *Logger) Info(args ...interface{}) {
	l.sugar.Info(args...)
}

func (l *Logger) Infof(template string, args ...interface{}) {
	l.sugar.Infof(template, args...)
}

func (l *Logger) Errorf(template string, args ...interface{}) {
	l.sugar.Errorf(template, args...)
}

func (l *Logger) Debugw(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l *Logger) Infow(msg string, keysAndValues ...interface{}) {
	l.sugar.Infow(msg, keysAndValues...)
}

func (l *Logger) Warnw(msg string, keysAndValues ...interface{}) {
	l.sugar.Warnw(msg, keysAndValues...)
}

func (l *Logger) Errorw(msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, keysAndValues...)
}

func (l *Logger) Fatalw(msg string, keysAndValues ...interface{}) {
	l.sugar.Fatalw(msg, keysAndValues...)
}

// Sync flushes buffered entries. Errors from syncing a terminal are ignored.
func (l *Logger) Sync() {
	_ = l.sugar.Sync()
}

func NewNopLogger() *Logger {
	logger := zap.NewNop()
	return &Logger{
		Logger: logger,
		sugar:  logger.Sugar(),
		level:  zapcore.FatalLevel,
	}
}

// Named returns a child logger whose entries carry the component name.
func (l *Logger) Named(name string) *Logger {
	named := l.Logger.Named(name)
	return &Logger{
		Logger: named,
		sugar:  named.Sugar(),
		level:  l.level,
	}
}

type QueryLogger struct {
	logger *Logger
}

func NewQueryLogger(logger *Logger) *QueryLogger {
	return &QueryLogger{logger: logger}
}

func (ql *QueryLogger) LogSearch(index string, types []string, mode string, total int64, latencyMs int64, requestID string) {
	ql.logger.Infow("Search completed",
		"index", index,
		"types", types,
		"mode", mode,
		"total", total,
		"latency_ms", latencyMs,
		"request_id", requestID,
	)
}

func (ql *QueryLogger) LogError(operation string, index string, err error, requestID string) {
	ql.logger.Errorw("Engine call failed",
		"operation", operation,
		"index", index,
		"error", err.Error(),
		"request_id", requestID,
	)
}

func (ql *QueryLogger) LogCacheHit(key string, requestID string) {
	ql.logger.Debugw("Cache hit",
		"key", key,
		"request_id", requestID,
	)
}

func (ql *QueryLogger) LogCacheMiss(key string, requestID string) {
	ql.logger.Debugw("Cache miss",
		"key", key,
		"request_id", requestID,
	)
}
