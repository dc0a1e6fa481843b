package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"bounty-uploader/pkg/metrics"
)

// MetricsMiddleware 按路由模板统计请求数
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
