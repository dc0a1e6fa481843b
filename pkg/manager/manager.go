package manager

import (
	"sort"
	"sync"

	"github.com/gin-gonic/gin"

	"bounty-uploader/pkg/logger"
)

// Resource 外部资源（Kafka、Redis 等），由 manager 统一打开与关闭
type Resource interface {
	MustOpen()
	Close()
}

// ResourcePlugin 资源插件，在 init 中注册
type ResourcePlugin interface {
	Name() string
	MustCreateResource() Resource
}

// Controller 提供一组 HTTP 路由
type Controller interface {
	RegisterRoutes(group *gin.RouterGroup)
}

// ControllerPlugin 控制器插件，在 init 中注册
type ControllerPlugin interface {
	Name() string
	MustCreateController() Controller
}

var (
	mu                sync.Mutex
	resourcePlugins   = map[string]ResourcePlugin{}
	controllerPlugins = map[string]ControllerPlugin{}
	openedResources   []Resource
)

// RegisterResourcePlugin 注册资源插件，同名插件后注册者覆盖
func RegisterResourcePlugin(p ResourcePlugin) {
	if p == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	resourcePlugins[p.Name()] = p
}

// RegisterControllerPlugin 注册控制器插件
func RegisterControllerPlugin(p ControllerPlugin) {
	if p == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	controllerPlugins[p.Name()] = p
}

// MustInitResources 按名称顺序打开全部已注册资源，失败直接 panic
func MustInitResources() {
	mu.Lock()
	defer mu.Unlock()
	for _, name := range sortedKeys(resourcePlugins) {
		r := resourcePlugins[name].MustCreateResource()
		r.MustOpen()
		openedResources = append(openedResources, r)
		logger.Debugf("resource opened name=%s", name)
	}
}

// CloseResources 逆序关闭已打开的资源
func CloseResources() {
	mu.Lock()
	defer mu.Unlock()
	for i := len(openedResources) - 1; i >= 0; i-- {
		openedResources[i].Close()
	}
	openedResources = nil
}

// RegisterAllRoutes 把全部控制器挂到 /api/v1 下
func RegisterAllRoutes(engine *gin.Engine) {
	mu.Lock()
	plugins := make([]ControllerPlugin, 0, len(controllerPlugins))
	for _, name := range sortedKeys(controllerPlugins) {
		plugins = append(plugins, controllerPlugins[name])
	}
	mu.Unlock()

	v1 := engine.Group("/api/v1")
	for _, p := range plugins {
		p.MustCreateController().RegisterRoutes(v1)
	}
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
