// Package auth 提供基于 JWT 的认证组件。
//
// auth 负责用户令牌的签发与校验（HS256 对称签名）。
// user-service 用它签发登录令牌并实现 /auth/validate 校验端点，
// 网关把请求头里的 Bearer 令牌转发给该端点换取用户身份。
//
// ## 基本使用
//
//	a, _ := auth.New(&auth.Config{Secret: "dev-secret"})
//	token, _ := a.GenerateToken("u1", "ada@example.com")
//	claims, err := a.ValidateToken(token)
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ceyewan/cartmesh/clog"
	"github.com/ceyewan/cartmesh/xerrors"
)

// 错误定义
var (
	// ErrConfigNil 配置为空
	ErrConfigNil = xerrors.New("auth: config is nil")

	// ErrSecretEmpty 签名密钥为空
	ErrSecretEmpty = xerrors.New("auth: secret is empty")

	// ErrInvalidToken 令牌非法
	ErrInvalidToken = xerrors.New("auth: invalid token")

	// ErrTokenExpired 令牌已过期
	ErrTokenExpired = xerrors.New("auth: token expired")
)

// Claims 令牌声明
type Claims struct {
	jwt.RegisteredClaims

	// UserID 用户 ID
	UserID string `json:"uid"`

	// Email 用户邮箱
	Email string `json:"email"`
}

// Config 认证配置
type Config struct {
	// Secret HS256 签名密钥
	Secret string `mapstructure:"secret"`

	// TokenTTL 令牌有效期，默认 24h
	TokenTTL time.Duration `mapstructure:"token_ttl"`

	// Issuer 签发方，默认 cartmesh
	Issuer string `mapstructure:"issuer"`
}

// Authenticator 认证器核心接口
type Authenticator interface {
	// GenerateToken 为指定用户签发令牌
	GenerateToken(userID, email string) (string, error)

	// ValidateToken 校验令牌并返回声明
	ValidateToken(token string) (*Claims, error)
}

// Option 组件初始化选项函数
type Option func(*options)

type options struct {
	logger clog.Logger
}

// WithLogger 设置 Logger，传入 nil 时使用 clog.Discard()
// 内部会自动添加 namespace: "auth"
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger == nil {
			o.logger = clog.Discard()
		} else {
			o.logger = logger.WithNamespace("auth")
		}
	}
}

// New 创建认证器实例
func New(cfg *Config, opts ...Option) (Authenticator, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}
	if cfg.Secret == "" {
		return nil, ErrSecretEmpty
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "cartmesh"
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = clog.Discard()
	}

	return &jwtAuthenticator{cfg: cfg, logger: o.logger}, nil
}

// jwtAuthenticator JWT 认证器实现（非导出）
type jwtAuthenticator struct {
	cfg    *Config
	logger clog.Logger
}

// GenerateToken 签发 HS256 令牌
func (a *jwtAuthenticator) GenerateToken(userID, email string) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.cfg.Issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.cfg.TokenTTL)),
		},
		UserID: userID,
		Email:  email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(a.cfg.Secret))
	if err != nil {
		return "", xerrors.Wrap(err, "sign token")
	}
	return signed, nil
}

// ValidateToken 校验令牌
func (a *jwtAuthenticator) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, xerrors.Wrapf(ErrInvalidToken, "unexpected signing method %v", t.Header["alg"])
		}
		return []byte(a.cfg.Secret), nil
	}, jwt.WithIssuer(a.cfg.Issuer))
	if err != nil {
		if xerrors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, xerrors.Wrap(ErrInvalidToken, err.Error())
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
