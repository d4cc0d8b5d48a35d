// Package notifier 实现通知 worker。
//
// 绑定 list.checkout.# 消费结算事件，给清单主人发送结算确认通知
// （演示系统里通知只落日志）。处理是幂等的：按消息 ID 去重，
// 重投的消息直接确认跳过。
package notifier

import (
	"context"
	"encoding/json"

	"github.com/ceyewan/cartmesh/bus"
	"github.com/ceyewan/cartmesh/clog"
	"github.com/ceyewan/cartmesh/internal/dedupe"
)

// QueueName 通知 worker 的持久化队列名
const QueueName = "notification-worker"

// Worker 通知 worker
type Worker struct {
	logger clog.Logger
	seen   *dedupe.Set
}

// Option 初始化选项函数
type Option func(*Worker)

// WithLogger 设置 Logger，传入 nil 时使用 clog.Discard()
func WithLogger(logger clog.Logger) Option {
	return func(w *Worker) {
		if logger == nil {
			w.logger = clog.Discard()
		} else {
			w.logger = logger.WithNamespace("notifier")
		}
	}
}

// New 创建通知 worker
func New(opts ...Option) *Worker {
	w := &Worker{seen: dedupe.NewSet(4096)}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = clog.Discard()
	}
	return w
}

// Run 订阅结算事件，返回订阅句柄
func (w *Worker) Run(ctx context.Context, b bus.Bus) (bus.Subscription, error) {
	return b.Subscribe(ctx, QueueName, bus.PatternCheckoutAll, w.Handle)
}

// Handle 处理一条结算事件
//
// 返回错误会触发重投，所以解析失败这类永远不会成功的消息
// 也选择确认丢弃，只留日志。
func (w *Worker) Handle(msg bus.Message) error {
	if w.seen.Seen(msg.ID()) {
		w.logger.Debug("duplicate delivery skipped",
			clog.String("msg_id", msg.ID()), clog.String("topic", msg.Topic()))
		return nil
	}

	var ev bus.CheckoutEvent
	if err := json.Unmarshal(msg.Data(), &ev); err != nil {
		w.logger.Warn("malformed checkout event discarded",
			clog.String("topic", msg.Topic()), clog.Error(err))
		return nil
	}
	if ev.UserEmail == "" {
		w.logger.Warn("checkout event without user email discarded",
			clog.String("list_id", ev.ListID))
		return nil
	}

	// 演示系统：通知即日志
	w.logger.Info("checkout confirmation sent",
		clog.String("to", ev.UserEmail),
		clog.String("list_id", ev.ListID),
		clog.Int("total_items", ev.Summary.TotalItems),
		clog.Int("purchased_items", ev.Summary.PurchasedItems),
		clog.Float64("estimated_total", ev.Summary.EstimatedTotal))
	return nil
}
