package bus

import "github.com/ceyewan/cartmesh/xerrors"

// 错误定义
var (
	// ErrConfigNil 配置为空
	ErrConfigNil = xerrors.New("bus: config is nil")

	// ErrUnsupportedDriver 不支持的总线后端
	ErrUnsupportedDriver = xerrors.New("bus: unsupported driver")

	// ErrInvalidPattern 非法的主题模式
	ErrInvalidPattern = xerrors.New("bus: invalid topic pattern")

	// ErrQueueNameEmpty 队列名为空
	ErrQueueNameEmpty = xerrors.New("bus: queue name is empty")

	// ErrBusClosed 总线已关闭
	ErrBusClosed = xerrors.New("bus: bus is closed")
)
