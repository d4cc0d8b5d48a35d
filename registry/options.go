package registry

import (
	"net/http"

	"github.com/ceyewan/cartmesh/clog"
)

// Option 组件初始化选项函数
type Option func(*options)

type options struct {
	logger clog.Logger
	client *http.Client
}

// WithLogger 设置 Logger，传入 nil 时使用 clog.Discard()
// 内部会自动添加 namespace: "registry"
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger == nil {
			o.logger = clog.Discard()
		} else {
			o.logger = logger.WithNamespace("registry")
		}
	}
}

// WithHTTPClient 设置探活使用的 HTTP 客户端，主要用于测试注入
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.client = client
	}
}
