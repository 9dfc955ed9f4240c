package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nimeshabuddhika/split-tender-processor/pkg"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/utils"
	"go.uber.org/zap"
)

// TraceID returns Gin middleware that assigns every request a trace id.
// An incoming X-Trace-Id is kept; otherwise X-Request-Id is reused, else a new UUID is generated.
func TraceID(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.Request.Header.Get(pkg.HeaderTraceId)
		if utils.IsEmpty(traceID) {
			traceID = c.Request.Header.Get(pkg.HeaderRequestId)
		}
		if utils.IsEmpty(traceID) {
			traceID = uuid.New().String()
		}
		c.Set(pkg.TraceId, traceID)
		c.Writer.Header().Set(pkg.HeaderTraceId, traceID)
		c.Next()

		if len(c.Errors) > 0 {
			logger.Warn("request_completed_with_errors",
				zap.String(pkg.TraceId, traceID),
				zap.String("path", c.FullPath()),
				zap.String("errors", c.Errors.String()))
		}
	}
}
