// Package listapp 实现 list-service：购物清单与结算。
//
// 清单归属于用户，所有读写都限定在调用方自己的清单内。
// 结算端点是异步事件管道的发布侧：立即应答 202，
// 事件通过 bus 发给通知和分析 worker。
//
// 调用方身份有两个来源：网关聚合端点注入的 X-User-Id/X-User-Email
// 头，或请求自带的 Bearer 令牌（交给 user-service 校验）。
package listapp

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ceyewan/cartmesh/bus"
	"github.com/ceyewan/cartmesh/clog"
	"github.com/ceyewan/cartmesh/metrics"
	"github.com/ceyewan/cartmesh/store"
	"github.com/ceyewan/cartmesh/xerrors"
)

// 错误定义
var (
	// ErrConfigNil 配置为空
	ErrConfigNil = xerrors.New("listapp: config is nil")

	// ErrBusNil 事件总线依赖为空
	ErrBusNil = xerrors.New("listapp: bus is nil")
)

// Entry 清单里的一个条目
type Entry struct {
	ItemID    string  `json:"itemId"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
	Purchased bool    `json:"purchased"`
}

// List 购物清单记录
type List struct {
	OwnerID      string     `json:"ownerId"`
	OwnerEmail   string     `json:"ownerEmail"`
	Name         string     `json:"name"`
	Entries      []Entry    `json:"entries"`
	CheckedOutAt *time.Time `json:"checkedOutAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// summary 结算时刻的清单汇总
func (l List) summary() bus.CheckoutSummary {
	s := bus.CheckoutSummary{TotalItems: len(l.Entries)}
	for _, e := range l.Entries {
		if e.Purchased {
			s.PurchasedItems++
		}
		qty := e.Quantity
		if qty <= 0 {
			qty = 1
		}
		s.EstimatedTotal += e.Price * float64(qty)
	}
	return s
}

// listView 带 ID 的对外视图
type listView struct {
	ID string `json:"id"`
	List
}

// TokenValidator 校验 Bearer 令牌并返回用户身份
//
// 生产路径指向 user-service 的 /auth/validate，测试里可以打桩。
type TokenValidator func(ctx context.Context, token string) (userID, email string, err error)

// Config list-service 配置
type Config struct {
	// DataPath 清单集合的存储文件，默认 data/lists.json
	DataPath string `mapstructure:"data_path"`
}

// App list-service 应用
type App struct {
	lists    *store.Collection[List]
	events   bus.Bus
	validate TokenValidator
	logger   clog.Logger
	engine   *gin.Engine
}

// Option 应用初始化选项函数
type Option func(*options)

type options struct {
	logger   clog.Logger
	meter    metrics.Meter
	validate TokenValidator
}

// WithLogger 设置 Logger，传入 nil 时使用 clog.Discard()
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger == nil {
			o.logger = clog.Discard()
		} else {
			o.logger = logger.WithNamespace("listapp")
		}
	}
}

// WithMeter 设置指标收集器
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) { o.meter = meter }
}

// WithTokenValidator 设置令牌校验函数
func WithTokenValidator(v TokenValidator) Option {
	return func(o *options) { o.validate = v }
}

// New 创建 list-service 应用
func New(cfg *Config, events bus.Bus, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}
	if events == nil {
		return nil, ErrBusNil
	}
	if cfg.DataPath == "" {
		cfg.DataPath = "data/lists.json"
	}

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

	lists, err := store.Open[List](cfg.DataPath, store.WithLogger(o.logger))
	if err != nil {
		return nil, err
	}

	app := &App{
		lists:    lists,
		events:   events,
		validate: o.validate,
		logger:   o.logger,
	}
	app.setupEngine(o.meter)
	return app, nil
}

// Handler 返回 HTTP 处理器
func (a *App) Handler() http.Handler {
	return a.engine
}

// Endpoints 返回注册到网关的端点声明
func (a *App) Endpoints() []string {
	return []string{
		"GET /lists", "POST /lists", "GET /lists/:id", "PUT /lists/:id",
		"DELETE /lists/:id", "POST /lists/:id/items", "PUT /lists/:id/items/:entry",
		"DELETE /lists/:id/items/:entry", "GET /lists/search", "GET /lists/count",
		"POST /lists/:id/checkout",
	}
}

func (a *App) setupEngine(meter metrics.Meter) {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(metrics.GinMiddleware(meter, "list-service"))

	engine.GET("/health", a.handleHealth)

	authed := engine.Group("/", a.identityMiddleware())
	authed.GET("/lists", a.handleList)
	authed.POST("/lists", a.handleCreate)
	authed.GET("/lists/search", a.handleSearch)
	authed.GET("/lists/count", a.handleCount)
	authed.GET("/lists/:id", a.handleGet)
	authed.PUT("/lists/:id", a.handleUpdate)
	authed.DELETE("/lists/:id", a.handleDelete)
	authed.POST("/lists/:id/items", a.handleAddEntry)
	authed.PUT("/lists/:id/items/:entry", a.handleUpdateEntry)
	authed.DELETE("/lists/:id/items/:entry", a.handleRemoveEntry)
	authed.POST("/lists/:id/checkout", a.handleCheckout)

	a.engine = engine
}
