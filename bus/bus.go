// Package bus 提供基于主题交换语义的事件总线组件。
//
// bus 是 cartmesh 结算事件管道的消息中间件抽象层，提供统一的发布-订阅语义：
//   - 路由键是点分层级字符串（如 list.checkout.completed），消息体是 UTF-8 JSON
//   - 订阅方以持久化命名队列绑定主题模式，支持精确匹配和通配符
//     （AMQP 风格：`*` 匹配单段，`#` 匹配尾部任意段）
//   - 投递语义是 at-least-once：处理成功才确认，失败会重投，
//     消费方必须幂等
//   - 发布是 fire-and-forget：TryPublish 返回布尔值表示代理是否接收，
//     从不向调用方抛错；代理不可用时按固定间隔重试连接
//
// 支持的后端：NATS JetStream（生产）、内存（测试与本地开发）。
//
// ## 基本使用
//
//	b, _ := bus.New(&bus.Config{
//	    Driver: bus.DriverNATS,
//	    URL:    "nats://127.0.0.1:4222",
//	}, bus.WithLogger(logger))
//	defer b.Close()
//
//	// 发布（结算路径，不阻塞调用方）
//	ok := b.TryPublish(ctx, bus.TopicCheckoutCompleted, event)
//
//	// 消费（worker 进程）
//	sub, _ := b.Subscribe(ctx, "notification-worker", bus.PatternCheckoutAll, func(msg bus.Message) error {
//	    var ev bus.CheckoutEvent
//	    if err := json.Unmarshal(msg.Data(), &ev); err != nil {
//	        return err
//	    }
//	    return process(ev) // 返回 nil 才确认，否则重投
//	})
package bus

import (
	"context"

	"github.com/ceyewan/cartmesh/clog"
)

// Handler 消息处理函数
//
// 返回 nil 表示处理成功，消息被确认；返回错误表示处理失败，
// 消息会被重投（at-least-once）。
type Handler func(msg Message) error

// Message 一条已投递的消息
type Message interface {
	// Context 返回订阅生命周期上下文
	Context() context.Context

	// Topic 返回消息的完整路由键
	Topic() string

	// Data 返回消息体（UTF-8 JSON）
	Data() []byte

	// ID 返回消息 ID，重投时保持不变，可用于幂等去重
	ID() string
}

// Subscription 一个活跃的订阅
type Subscription interface {
	// Unsubscribe 停止订阅
	Unsubscribe() error

	// Done 订阅结束时关闭
	Done() <-chan struct{}
}

// Bus 事件总线核心接口
type Bus interface {
	// TryPublish 将 v 序列化为 JSON 并发布到指定路由键
	//
	// 返回代理是否接收了消息。发布失败只记日志不抛错：
	// 结算端点不等待发布结果，调用方可见延迟与代理可用性解耦。
	TryPublish(ctx context.Context, key string, v any) bool

	// Subscribe 以持久化命名队列订阅主题模式
	//
	// queue 是队列名（同名队列的多个消费者竞争消费）；
	// pattern 支持精确键或通配符（`list.checkout.#`、`list.*.completed`）。
	Subscribe(ctx context.Context, queue, pattern string, handler Handler) (Subscription, error)

	// Close 关闭总线并断开代理连接
	Close() error
}

// New 创建 Bus 实例
//
// 根据 Config.Driver 选择底层实现。
func New(cfg *Config, opts ...Option) (Bus, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}

	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	o := applyOptions(opts...)

	switch cfg.Driver {
	case DriverNATS:
		return newNATSBus(cfg, o), nil
	case DriverMemory:
		return newMemoryBus(o.logger), nil
	default:
		return nil, ErrUnsupportedDriver
	}
}

// Option 组件初始化选项函数
type Option func(*options)

type options struct {
	logger clog.Logger
}

// WithLogger 设置 Logger，传入 nil 时使用 clog.Discard()
// 内部会自动添加 namespace: "bus"
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger == nil {
			o.logger = clog.Discard()
		} else {
			o.logger = logger.WithNamespace("bus")
		}
	}
}

func applyOptions(opts ...Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = clog.Discard()
	}
	return o
}
