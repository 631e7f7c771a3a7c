package middleware

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/flexsearch/indexer/internal/config"
	"github.com/flexsearch/indexer/internal/util"
)

type TracingMiddleware struct {
	tracer  trace.Tracer
	enabled bool
}

// InitTracing installs the global tracer provider. The returned function
// flushes and stops it.
func InitTracing(cfg config.TracingConfig, serviceName string, logger *util.Logger) (func(context.Context) error, error) {
	if !cfg.Enabled {
		return func(ctx context.Context) error { return nil }, nil
	}

	var writer io.Writer
	switch cfg.Exporter {
	case "", "stdout":
		writer = os.Stdout
	case "discard":
		writer = io.Discard
	default:
		return nil, fmt.Errorf("unknown trace exporter %q", cfg.Exporter)
	}

	exporter, err := stdouttrace.New(
		stdouttrace.WithPrettyPrint(),
		stdouttrace.WithWriter(writer),
	)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion("1.0.0"),
		),
	)
	if err != nil {
		return nil, err
	}

	var sampler sdktrace.Sampler
	if cfg.SampleRate >= 1.0 {
		sampler = sdktrace.AlwaysSample()
	} else {
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRate)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Infow("Tracing initialized", "exporter", cfg.Exporter, "sample_rate", cfg.SampleRate)

	return func(ctx context.Context) error {
		return tp.Shutdown(ctx)
	}, nil
}

func NewTracingMiddleware(serviceName string, enabled bool) *TracingMiddleware {
	return &TracingMiddleware{
		tracer:  otel.Tracer(serviceName),
		enabled: enabled,
	}
}

// Middleware opens a server span per request, continuing any trace the
// caller propagated.
func (tm *TracingMiddleware) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !tm.enabled {
			c.Next()
			return
		}

		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))

		ctx, span := tm.tracer.Start(ctx, c.Request.Method+" "+c.FullPath(),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Request.Method),
				attribute.String("http.target", c.Request.URL.Path),
				attribute.String("http.host", c.Request.Host),
				attribute.String("http.user_agent", c.Request.UserAgent()),
				attribute.String("http.request_id", GetRequestID(c)),
				attribute.String("http.client_ip", c.ClientIP()),
			),
		)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		c.Next()
		duration := time.Since(start)

		statusCode := c.Writer.Status()
		span.SetAttributes(
			attribute.Int("http.status_code", statusCode),
			attribute.Int64("http.response_content_length", int64(c.Writer.Size())),
			attribute.Float64("http.duration_ms", float64(duration.Milliseconds())),
		)

		if len(c.Errors) > 0 {
			span.RecordError(c.Errors.Last().Err)
		}
		if statusCode >= 500 {
			span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", statusCode))
		}
	}
}

// GetTraceID returns the trace id of the span in ctx, or "".
func GetTraceID(ctx context.Context) string {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}
