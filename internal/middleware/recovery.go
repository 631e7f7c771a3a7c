package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/flexsearch/indexer/internal/model"
	"github.com/flexsearch/indexer/internal/util"
)

func RecoveryMiddleware(logger *util.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Errorw("Panic recovered",
					"panic", err,
					"path", c.Request.URL.Path,
					"request_id", GetRequestID(c),
					"stack", string(debug.Stack()),
				)

				c.AbortWithStatusJSON(http.StatusInternalServerError, model.ErrorResponse{
					RequestID: GetRequestID(c),
					Code:      http.StatusInternalServerError,
					Message:   util.ErrInternalServer.Message,
					Details:   "An unexpected error occurred",
					Timestamp: time.Now(),
				})
			}
		}()

		c.Next()
	}
}
