package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"bounty-uploader/pkg/logger"
)

// RequestIDKey is the gin context key holding the request id.
const RequestIDKey = "request_id"

// RequestContextMiddleware 注入 request_id，便于下游和日志使用。
func RequestContextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set(RequestIDKey, reqID)
		c.Writer.Header().Set("X-Request-ID", reqID)
		c.Next()
		logger.Debug("intake request", map[string]interface{}{
			"request_id": reqID,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
		})
	}
}
