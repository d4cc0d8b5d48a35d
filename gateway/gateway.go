// Package gateway 提供 cartmesh 的 API 网关。
//
// 网关是系统的同步流量入口，串起服务网格的三块核心设施：
//   - 路由/代理：按静态路由表把 /api/* 前缀映射到下游服务，
//     改写路径后转发，原样透传下游的状态码和响应体
//   - 熔断：每个下游服务一个独立熔断器，传输失败计数，
//     打开后快速失败返回 503
//   - 聚合：仪表盘与统一搜索并发扇出多个下游调用，
//     单分支失败只降级该分支，不影响整体成功
//
// 此外承载注册表的 HTTP 管理面（注册、注销、心跳）和
// 自省端点（/registry、/debug/services、/metrics）。
//
// ## 基本使用
//
//	gw, _ := gateway.New(cfg, reg, brk,
//	    gateway.WithLogger(logger),
//	    gateway.WithMeter(meter))
//	defer gw.Close()
//	http.ListenAndServe(cfg.ListenAddr, gw.Handler())
package gateway

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ceyewan/cartmesh/breaker"
	"github.com/ceyewan/cartmesh/clog"
	"github.com/ceyewan/cartmesh/metrics"
	"github.com/ceyewan/cartmesh/registry"
)

// Gateway API 网关
type Gateway struct {
	cfg    *Config
	reg    registry.Registry
	brk    breaker.Breaker
	logger clog.Logger
	meter  metrics.Meter

	client  *http.Client
	routes  []Route
	limiter *ipLimiter
	engine  *gin.Engine
}

// Option 组件初始化选项函数
type Option func(*options)

type options struct {
	logger clog.Logger
	meter  metrics.Meter
	client *http.Client
}

// WithLogger 设置 Logger，传入 nil 时使用 clog.Discard()
// 内部会自动添加 namespace: "gateway"
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger == nil {
			o.logger = clog.Discard()
		} else {
			o.logger = logger.WithNamespace("gateway")
		}
	}
}

// WithMeter 设置指标收集器，传入 nil 时使用 metrics.Discard()
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		if meter == nil {
			o.meter = metrics.Discard()
		} else {
			o.meter = meter
		}
	}
}

// WithHTTPClient 设置下游调用的 HTTP 客户端，便于测试注入
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.client = client
	}
}

// New 创建网关实例
//
// 注册表和熔断器由调用方构造后注入，网关不管理它们的生命周期。
func New(cfg *Config, reg registry.Registry, brk breaker.Breaker, opts ...Option) (*Gateway, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}
	if reg == nil {
		return nil, ErrRegistryNil
	}
	if brk == nil {
		return nil, ErrBreakerNil
	}

	cfg.setDefaults()

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = clog.Discard()
	}
	if o.meter == nil {
		o.meter = metrics.Discard()
	}
	if o.client == nil {
		o.client = &http.Client{Timeout: cfg.ProxyTimeout}
	}

	g := &Gateway{
		cfg:     cfg,
		reg:     reg,
		brk:     brk,
		logger:  o.logger,
		meter:   o.meter,
		client:  o.client,
		routes:  defaultRoutes(),
		limiter: newIPLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
	}
	g.setupEngine()

	g.logger.Info("gateway created",
		clog.String("listen_addr", cfg.ListenAddr),
		clog.Duration("proxy_timeout", cfg.ProxyTimeout),
		clog.Int("routes", len(g.routes)))

	return g, nil
}

// Handler 返回网关的 HTTP 处理器
func (g *Gateway) Handler() http.Handler {
	return g.engine
}

// Close 释放网关持有的后台资源
func (g *Gateway) Close() error {
	g.limiter.close()
	return nil
}

// setupEngine 装配 gin 路由
func (g *Gateway) setupEngine() {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(metrics.GinMiddleware(g.meter, "gateway"))

	// 自省端点不参与限流
	engine.GET("/health", g.handleHealth)
	engine.GET("/", g.handleIndex)
	engine.GET("/registry", g.handleListServices)
	engine.GET("/debug/services", g.handleDebugServices)
	engine.GET("/metrics", gin.WrapH(g.meter.Handler()))

	// 注册表管理面：下游服务自注册、注销与心跳
	engine.POST("/registry", g.handleRegister)
	engine.DELETE("/registry/:name", g.handleDeregister)
	engine.PUT("/registry/:name/heartbeat", g.handleHeartbeat)

	api := engine.Group("/", g.rateLimitMiddleware())

	// 聚合端点
	api.GET("/api/dashboard", g.authRequired(), g.handleDashboard)
	api.GET("/api/search", g.authOptional(), g.handleSearch)

	// 代理前缀：精确前缀与其下所有路径都转发
	for _, rt := range g.routes {
		h := g.proxyHandler(rt)
		api.Any(rt.Prefix, h)
		api.Any(rt.Prefix+"/*path", h)
	}

	g.engine = engine
}
