package breaker

import "github.com/ceyewan/cartmesh/xerrors"

// 错误定义
var (
	// ErrConfigNil 配置为空
	ErrConfigNil = xerrors.New("breaker: config is nil")

	// ErrServiceNameEmpty 服务名为空
	ErrServiceNameEmpty = xerrors.New("breaker: service name is empty")

	// ErrOpenState 熔断器处于打开状态
	ErrOpenState = xerrors.New("breaker: circuit breaker is open")
)
