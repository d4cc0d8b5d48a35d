package registry

import "github.com/ceyewan/cartmesh/xerrors"

var (
	// ErrServiceNotFound 服务名从未注册
	ErrServiceNotFound = xerrors.New("registry: service not found")

	// ErrServiceUnhealthy 服务已注册但当前不健康
	ErrServiceUnhealthy = xerrors.New("registry: service unhealthy")

	// ErrInvalidServiceInstance 无效的服务实例（缺少 name 或 url）
	ErrInvalidServiceInstance = xerrors.New("registry: invalid service instance")

	// ErrRegistryClosed registry 已关闭
	ErrRegistryClosed = xerrors.New("registry: registry is closed")
)
