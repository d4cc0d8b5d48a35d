package bus

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/ceyewan/cartmesh/clog"
)

// memoryBus 进程内总线实现（非导出）
//
// 供测试与单进程本地开发使用。保留主题交换的路由语义：
// 每条消息投递给每个模式匹配的队列各一份，同名队列的多个
// 订阅者竞争消费（轮询选一个）。不持久化，进程退出即丢失。
type memoryBus struct {
	logger clog.Logger

	mu     sync.RWMutex
	queues map[string]*memoryQueue
	closed bool
}

// memoryQueue 一个命名队列及其绑定
type memoryQueue struct {
	pattern string
	next    int
	subs    []*memorySubscription
}

// newMemoryBus 创建内存总线实例（内部函数）
func newMemoryBus(logger clog.Logger) *memoryBus {
	logger.Info("memory bus created")
	return &memoryBus{
		logger: logger,
		queues: make(map[string]*memoryQueue),
	}
}

// TryPublish 同步投递给全部匹配队列
func (b *memoryBus) TryPublish(ctx context.Context, key string, v any) bool {
	if key == "" || strings.ContainsAny(key, "*#") {
		b.logger.WarnContext(ctx, "publish rejected: invalid routing key",
			clog.String("key", key))
		return false
	}

	data, err := json.Marshal(v)
	if err != nil {
		b.logger.WarnContext(ctx, "publish rejected: payload not serializable",
			clog.String("key", key), clog.Error(err))
		return false
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return false
	}

	id := uuid.NewString()
	var targets []*memorySubscription
	for _, q := range b.queues {
		if len(q.subs) == 0 || !MatchTopic(q.pattern, key) {
			continue
		}
		// 同名队列竞争消费：轮询选一个订阅者
		targets = append(targets, q.subs[q.next%len(q.subs)])
		q.next++
	}
	b.mu.Unlock()

	for _, sub := range targets {
		sub.deliver(&memoryMessage{ctx: ctx, topic: key, data: data, id: id})
	}
	return true
}

// Subscribe 将队列绑定到主题模式
func (b *memoryBus) Subscribe(ctx context.Context, queue, pattern string, handler Handler) (Subscription, error) {
	if queue == "" {
		return nil, ErrQueueNameEmpty
	}
	if err := ValidatePattern(pattern); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBusClosed
	}

	q, ok := b.queues[queue]
	if !ok {
		q = &memoryQueue{pattern: pattern}
		b.queues[queue] = q
	}

	sub := &memorySubscription{
		handler: handler,
		logger:  b.logger,
		done:    make(chan struct{}),
	}
	q.subs = append(q.subs, sub)

	b.logger.InfoContext(ctx, "subscription started",
		clog.String("queue", queue),
		clog.String("pattern", pattern))

	return sub, nil
}

// Close 关闭总线
func (b *memoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for _, q := range b.queues {
		for _, sub := range q.subs {
			sub.stop()
		}
	}
	b.queues = make(map[string]*memoryQueue)
	return nil
}

// memorySubscription 内存订阅
type memorySubscription struct {
	handler Handler
	logger  clog.Logger

	once sync.Once
	done chan struct{}
}

// deliver 投递消息，处理失败时同步重试一次（at-least-once 的近似）
func (s *memorySubscription) deliver(msg *memoryMessage) {
	select {
	case <-s.done:
		return
	default:
	}

	if err := s.handler(msg); err != nil {
		s.logger.Warn("message processing failed, redelivering once",
			clog.String("topic", msg.topic), clog.Error(err))
		_ = s.handler(msg)
	}
}

func (s *memorySubscription) stop() {
	s.once.Do(func() { close(s.done) })
}

func (s *memorySubscription) Unsubscribe() error {
	s.stop()
	return nil
}

func (s *memorySubscription) Done() <-chan struct{} {
	return s.done
}

// memoryMessage 内存消息
type memoryMessage struct {
	ctx   context.Context
	topic string
	data  []byte
	id    string
}

func (m *memoryMessage) Context() context.Context { return m.ctx }
func (m *memoryMessage) Topic() string            { return m.topic }
func (m *memoryMessage) Data() []byte             { return m.data }
func (m *memoryMessage) ID() string               { return m.id }
