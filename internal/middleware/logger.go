package middleware

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/flexsearch/indexer/internal/model"
	"github.com/flexsearch/indexer/internal/util"
)

type LoggingMiddleware struct {
	logger  *util.Logger
	metrics *util.Metrics
}

func NewLoggingMiddleware(logger *util.Logger, metrics *util.Metrics) *LoggingMiddleware {
	return &LoggingMiddleware{logger: logger, metrics: metrics}
}

// Middleware logs every request once it completes and records its status
// and latency per route.
func (lm *LoggingMiddleware) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		lm.metrics.IncrementHTTPRequest(route, strconv.Itoa(status))
		lm.metrics.RecordHTTPDuration(route, latency)

		if query != "" {
			path = path + "?" + query
		}

		fields := []interface{}{
			"method", c.Request.Method,
			"path", path,
			"status_code", status,
			"latency_ms", latency.Milliseconds(),
			"ip", c.ClientIP(),
			"request_id", GetRequestID(c),
			"response_size", c.Writer.Size(),
		}
		if traceID := GetTraceID(c.Request.Context()); traceID != "" {
			fields = append(fields, "trace_id", traceID)
		}
		switch {
		case status >= 500:
			lm.logger.Errorw("HTTP request completed with error", fields...)
		case status >= 400:
			lm.logger.Warnw("HTTP request rejected", fields...)
		default:
			lm.logger.Infow("HTTP request completed", fields...)
		}
	}
}

// ErrorHandlerMiddleware renders the last error a handler attached with
// c.Error as an ErrorResponse, using the status carried by util.AppError.
func ErrorHandlerMiddleware(logger *util.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		last := c.Errors.Last()
		err := last.Err
		status := util.StatusCode(err)
		response := model.ErrorResponse{
			RequestID: GetRequestID(c),
			Code:      status,
			Message:   err.Error(),
			Partial:   last.Meta,
			Timestamp: time.Now(),
		}
		var appErr *util.AppError
		if errors.As(err, &appErr) {
			response.Message = appErr.Message
			response.Details = appErr.Details
		}

		if status >= 500 {
			logger.Errorw("Request error",
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
				"status", status,
				"request_id", response.RequestID,
				"error", err,
			)
		}

		c.JSON(status, response)
	}
}
