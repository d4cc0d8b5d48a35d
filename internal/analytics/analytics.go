// Package analytics 实现分析 worker。
//
// 绑定 list.# 消费全部清单领域事件，维护运行期统计
// （按主题的事件计数、结算次数、预估营收），并通过指标导出。
// 与通知 worker 互不共享状态，各自独立消费同一批事件。
package analytics

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/ceyewan/cartmesh/bus"
	"github.com/ceyewan/cartmesh/clog"
	"github.com/ceyewan/cartmesh/internal/dedupe"
	"github.com/ceyewan/cartmesh/metrics"
)

// QueueName 分析 worker 的持久化队列名
const QueueName = "analytics-worker"

// Stats 运行期统计快照
type Stats struct {
	EventsByTopic    map[string]int64 `json:"eventsByTopic"`
	Checkouts        int64            `json:"checkouts"`
	EstimatedRevenue float64          `json:"estimatedRevenue"`
	LastEventAt      time.Time        `json:"lastEventAt"`
}

// Worker 分析 worker
type Worker struct {
	logger clog.Logger
	seen   *dedupe.Set

	eventsTotal metrics.Counter

	mu      sync.Mutex
	byTopic map[string]int64
	stats   Stats
}

// Option 初始化选项函数
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
			o.logger = logger.WithNamespace("analytics")
		}
	}
}

// WithMeter 设置指标收集器
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) { o.meter = meter }
}

// New 创建分析 worker
func New(opts ...Option) *Worker {
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

	eventsTotal, _ := o.meter.Counter(
		"analytics_events_total",
		"Total domain events processed",
		"topic",
	)

	return &Worker{
		logger:      o.logger,
		seen:        dedupe.NewSet(4096),
		eventsTotal: eventsTotal,
		byTopic:     make(map[string]int64),
	}
}

// Run 订阅清单领域事件，返回订阅句柄
func (w *Worker) Run(ctx context.Context, b bus.Bus) (bus.Subscription, error) {
	return b.Subscribe(ctx, QueueName, bus.PatternListAll, w.Handle)
}

// Handle 处理一条领域事件
func (w *Worker) Handle(msg bus.Message) error {
	if w.seen.Seen(msg.ID()) {
		return nil
	}

	topic := msg.Topic()

	w.mu.Lock()
	w.byTopic[topic]++
	w.stats.LastEventAt = time.Now()

	if topic == bus.TopicCheckoutCompleted {
		var ev bus.CheckoutEvent
		if err := json.Unmarshal(msg.Data(), &ev); err == nil {
			w.stats.Checkouts++
			w.stats.EstimatedRevenue += ev.Summary.EstimatedTotal
		}
	}
	w.mu.Unlock()

	if w.eventsTotal != nil {
		w.eventsTotal.Inc(topic)
	}

	w.logger.Debug("event recorded", clog.String("topic", topic))
	return nil
}

// Stats 返回统计快照
func (w *Worker) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := w.stats
	out.EventsByTopic = make(map[string]int64, len(w.byTopic))
	for k, v := range w.byTopic {
		out.EventsByTopic[k] = v
	}
	return out
}
