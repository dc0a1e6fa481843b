package http

import (
	stdhttp "net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bounty-uploader/pkg/errno"
	"bounty-uploader/pkg/middleware"
	"bounty-uploader/pkg/restapi"
)

// NewEngine 创建 gin 引擎，挂载中间件、健康检查与指标端点；业务路由由调用方注册
func NewEngine(mode string) *gin.Engine {
	if mode != "" {
		gin.SetMode(mode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery(), middleware.RequestContextMiddleware(), middleware.MetricsMiddleware())

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(stdhttp.StatusOK, gin.H{
			"status":    "ok",
			"service":   "bounty-uploader",
			"timestamp": time.Now().Unix(),
		})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	engine.NoRoute(func(c *gin.Context) {
		restapi.Failed(c, errno.ErrNotFound)
	})
	return engine
}
