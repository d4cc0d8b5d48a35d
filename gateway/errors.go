package gateway

import (
	"github.com/gin-gonic/gin"

	"github.com/ceyewan/cartmesh/xerrors"
)

// 错误定义
var (
	// ErrConfigNil 配置为空
	ErrConfigNil = xerrors.New("gateway: config is nil")

	// ErrRegistryNil 注册表依赖为空
	ErrRegistryNil = xerrors.New("gateway: registry is nil")

	// ErrBreakerNil 熔断器依赖为空
	ErrBreakerNil = xerrors.New("gateway: breaker is nil")
)

// 稳定的对外错误码。客户端按码分支，文案可以变，码不能变。
const (
	// CodeServiceUnavailable 发现失败或下游传输失败
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"

	// CodeCircuitOpen 熔断器打开，快速失败
	CodeCircuitOpen = "CIRCUIT_OPEN"

	// CodeAuthRequired 缺少认证头
	CodeAuthRequired = "AUTH_REQUIRED"

	// CodeAuthInvalid 令牌校验失败
	CodeAuthInvalid = "AUTH_INVALID"

	// CodeRateLimited 客户端触发限流
	CodeRateLimited = "RATE_LIMITED"

	// CodeValidation 请求参数缺失或非法
	CodeValidation = "VALIDATION_ERROR"

	// CodeNotFound 资源不存在
	CodeNotFound = "NOT_FOUND"
)

// respondError 按统一信封写错误响应
//
// service 标记错误来源的下游服务，网关自身的错误留空。
func respondError(c *gin.Context, status int, code, message, service string) {
	body := gin.H{
		"code":    code,
		"message": message,
	}
	if service != "" {
		body["service"] = service
	}
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   body,
	})
}
