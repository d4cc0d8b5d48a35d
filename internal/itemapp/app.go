// Package itemapp 实现 item-service：商品目录。
//
// 标准 CRUD 加文本搜索和分类列表，是聚合端点（仪表盘、统一搜索）
// 的主要数据来源。数据落在 JSON 文件集合里。
package itemapp

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ceyewan/cartmesh/clog"
	"github.com/ceyewan/cartmesh/metrics"
	"github.com/ceyewan/cartmesh/store"
	"github.com/ceyewan/cartmesh/xerrors"
)

// ErrConfigNil 配置为空
var ErrConfigNil = xerrors.New("itemapp: config is nil")

// Item 商品记录
type Item struct {
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Price     float64   `json:"price"`
	Unit      string    `json:"unit"`
	CreatedAt time.Time `json:"createdAt"`
}

// itemView 带 ID 的对外视图
type itemView struct {
	ID string `json:"id"`
	Item
}

// Config item-service 配置
type Config struct {
	// DataPath 商品集合的存储文件，默认 data/items.json
	DataPath string `mapstructure:"data_path"`

	// DefaultLimit 列表端点的默认分页条数，默认 50
	DefaultLimit int `mapstructure:"default_limit"`
}

// App item-service 应用
type App struct {
	cfg    *Config
	items  *store.Collection[Item]
	logger clog.Logger
	engine *gin.Engine
}

// Option 应用初始化选项函数
type Option func(*options)

type options struct {
	logger clog.Logger
	meter  metrics.Meter
}

// WithLogger 设置 Logger，传入 nil 时使用 clog.Discard()
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger == nil {
			o.logger = clog.Discard()
		} else {
			o.logger = logger.WithNamespace("itemapp")
		}
	}
}

// WithMeter 设置指标收集器
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) { o.meter = meter }
}

// New 创建 item-service 应用
func New(cfg *Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}
	if cfg.DataPath == "" {
		cfg.DataPath = "data/items.json"
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 50
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

	items, err := store.Open[Item](cfg.DataPath, store.WithLogger(o.logger))
	if err != nil {
		return nil, err
	}

	app := &App{cfg: cfg, items: items, logger: o.logger}
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
		"GET /items", "POST /items", "GET /items/:id", "PUT /items/:id",
		"DELETE /items/:id", "GET /items/search", "GET /items/categories",
		"GET /items/count",
	}
}

func (a *App) setupEngine(meter metrics.Meter) {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(metrics.GinMiddleware(meter, "item-service"))

	engine.GET("/health", a.handleHealth)

	engine.GET("/items", a.handleList)
	engine.POST("/items", a.handleCreate)
	engine.GET("/items/search", a.handleSearch)
	engine.GET("/items/categories", a.handleCategories)
	engine.GET("/items/count", a.handleCount)
	engine.GET("/items/:id", a.handleGet)
	engine.PUT("/items/:id", a.handleUpdate)
	engine.DELETE("/items/:id", a.handleDelete)

	a.engine = engine
}

func ok(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func fail(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{"success": false, "error": gin.H{"code": code, "message": message}})
}

// handleHealth 健康检查
func (a *App) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "item-service",
		"items":   a.items.Len(),
	})
}

// handleList 商品列表，支持 limit 截断（仪表盘取最近一页）
func (a *App) handleList(c *gin.Context) {
	limit := a.cfg.DefaultLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	views := a.sortedViews()
	if len(views) > limit {
		views = views[:limit]
	}
	ok(c, http.StatusOK, views)
}

type itemRequest struct {
	Name     string  `json:"name" binding:"required"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
	Unit     string  `json:"unit"`
}

// handleCreate 创建商品
func (a *App) handleCreate(c *gin.Context) {
	var req itemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "name is required")
		return
	}

	item := Item{
		Name:      req.Name,
		Category:  req.Category,
		Price:     req.Price,
		Unit:      req.Unit,
		CreatedAt: time.Now(),
	}
	id, err := a.items.Insert(item)
	if err != nil {
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to persist item")
		return
	}

	a.logger.InfoContext(c.Request.Context(), "item created",
		clog.String("item_id", id), clog.String("name", req.Name))

	ok(c, http.StatusCreated, itemView{ID: id, Item: item})
}

// handleGet 按 ID 查询
func (a *App) handleGet(c *gin.Context) {
	id := c.Param("id")
	item, found := a.items.Get(id)
	if !found {
		fail(c, http.StatusNotFound, "NOT_FOUND", "item not found")
		return
	}
	ok(c, http.StatusOK, itemView{ID: id, Item: item})
}

// handleUpdate 更新商品
func (a *App) handleUpdate(c *gin.Context) {
	id := c.Param("id")

	var req itemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "name is required")
		return
	}

	item, err := a.items.Update(id, func(it Item) (Item, error) {
		it.Name = req.Name
		it.Category = req.Category
		it.Price = req.Price
		it.Unit = req.Unit
		return it, nil
	})
	if err != nil {
		fail(c, http.StatusNotFound, "NOT_FOUND", "item not found")
		return
	}

	ok(c, http.StatusOK, itemView{ID: id, Item: item})
}

// handleDelete 删除商品
func (a *App) handleDelete(c *gin.Context) {
	id := c.Param("id")
	if err := a.items.Delete(id); err != nil {
		fail(c, http.StatusNotFound, "NOT_FOUND", "item not found")
		return
	}
	ok(c, http.StatusOK, gin.H{"deleted": id})
}

// handleSearch 名称与分类的大小写不敏感子串搜索
func (a *App) handleSearch(c *gin.Context) {
	q := strings.ToLower(c.Query("q"))
	if q == "" {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "query parameter q is required")
		return
	}

	var out []itemView
	for _, v := range a.sortedViews() {
		if strings.Contains(strings.ToLower(v.Name), q) ||
			strings.Contains(strings.ToLower(v.Category), q) {
			out = append(out, v)
		}
	}
	if out == nil {
		out = []itemView{}
	}
	ok(c, http.StatusOK, out)
}

// handleCategories 去重后的分类列表
func (a *App) handleCategories(c *gin.Context) {
	seen := make(map[string]struct{})
	var out []string
	for _, item := range a.items.List() {
		if item.Category == "" {
			continue
		}
		if _, dup := seen[item.Category]; dup {
			continue
		}
		seen[item.Category] = struct{}{}
		out = append(out, item.Category)
	}
	sort.Strings(out)
	if out == nil {
		out = []string{}
	}
	ok(c, http.StatusOK, out)
}

// handleCount 商品计数
func (a *App) handleCount(c *gin.Context) {
	ok(c, http.StatusOK, gin.H{"count": a.items.Len()})
}

// sortedViews 按创建时间倒序的商品视图
func (a *App) sortedViews() []itemView {
	all := a.items.List()
	out := make([]itemView, 0, len(all))
	for id, item := range all {
		out = append(out, itemView{ID: id, Item: item})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}
