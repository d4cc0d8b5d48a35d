// Package userapp 实现 user-service：用户账号与令牌校验。
//
// 对外契约分两块：/auth 下的注册、登录、令牌校验（网关的认证
// 中间件依赖 /auth/validate），/users 下的标准 CRUD。数据落在
// JSON 文件集合里，密码只存盐化哈希。
package userapp

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ceyewan/cartmesh/auth"
	"github.com/ceyewan/cartmesh/clog"
	"github.com/ceyewan/cartmesh/metrics"
	"github.com/ceyewan/cartmesh/store"
	"github.com/ceyewan/cartmesh/xerrors"
)

// ErrConfigNil 配置为空
var ErrConfigNil = xerrors.New("userapp: config is nil")

// User 用户记录
type User struct {
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"passwordHash"`
	Salt         string    `json:"salt"`
	CreatedAt    time.Time `json:"createdAt"`
}

// publicUser 对外可见的用户视图，不包含口令材料
type publicUser struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Config user-service 配置
type Config struct {
	// DataPath 用户集合的存储文件，默认 data/users.json
	DataPath string `mapstructure:"data_path"`

	// AuthSecret JWT 签名密钥
	AuthSecret string `mapstructure:"auth_secret"`
}

// App user-service 应用
type App struct {
	users  *store.Collection[User]
	authn  auth.Authenticator
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
			o.logger = logger.WithNamespace("userapp")
		}
	}
}

// WithMeter 设置指标收集器
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) { o.meter = meter }
}

// New 创建 user-service 应用
func New(cfg *Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}
	if cfg.DataPath == "" {
		cfg.DataPath = "data/users.json"
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

	users, err := store.Open[User](cfg.DataPath, store.WithLogger(o.logger))
	if err != nil {
		return nil, err
	}

	authn, err := auth.New(&auth.Config{Secret: cfg.AuthSecret}, auth.WithLogger(o.logger))
	if err != nil {
		return nil, err
	}

	app := &App{users: users, authn: authn, logger: o.logger}
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
		"POST /auth/register", "POST /auth/login", "POST /auth/validate",
		"GET /users", "GET /users/:id", "PUT /users/:id", "DELETE /users/:id",
		"GET /users/count",
	}
}

func (a *App) setupEngine(meter metrics.Meter) {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(metrics.GinMiddleware(meter, "user-service"))

	engine.GET("/health", a.handleHealth)

	engine.POST("/auth/register", a.handleRegister)
	engine.POST("/auth/login", a.handleLogin)
	engine.POST("/auth/validate", a.handleValidate)

	engine.GET("/users", a.handleList)
	engine.GET("/users/count", a.handleCount)
	engine.GET("/users/:id", a.handleGet)
	engine.PUT("/users/:id", a.handleUpdate)
	engine.DELETE("/users/:id", a.handleDelete)

	a.engine = engine
}

// hashPassword 盐化哈希口令
func hashPassword(password, salt string) string {
	sum := sha256.Sum256([]byte(salt + ":" + password))
	return hex.EncodeToString(sum[:])
}

func newSalt() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// verifyPassword 常数时间比较口令哈希
func verifyPassword(u User, password string) bool {
	got := hashPassword(password, u.Salt)
	return subtle.ConstantTimeCompare([]byte(got), []byte(u.PasswordHash)) == 1
}
