package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/ceyewan/cartmesh/clog"
	"github.com/ceyewan/cartmesh/xerrors"
)

// natsBus 基于 NATS JetStream 的总线实现（非导出）
//
// 一个 JetStream 流扮演主题交换机：流按 Subjects 捕获全部领域路由键，
// 每个订阅队列对应一个 durable consumer，按翻译后的 FilterSubject 过滤。
// 连接是惰性建立的：首次发布或订阅时连接，失败后由客户端按固定间隔重连。
type natsBus struct {
	cfg    *Config
	logger clog.Logger

	mu          sync.Mutex
	conn        *nats.Conn
	js          jetstream.JetStream
	streamReady bool
	closed      bool
	subs        []*natsSubscription
}

// newNATSBus 创建 NATS 总线实例（内部函数）
func newNATSBus(cfg *Config, o *options) *natsBus {
	b := &natsBus{
		cfg:    cfg,
		logger: o.logger,
	}

	b.logger.Info("nats bus created",
		clog.String("url", cfg.URL),
		clog.String("stream", cfg.Stream),
		clog.Duration("reconnect_wait", cfg.ReconnectWait))

	return b
}

// TryPublish 发布消息，返回代理是否接收
func (b *natsBus) TryPublish(ctx context.Context, key string, v any) bool {
	if err := ValidatePattern(key); err != nil || strings.ContainsAny(key, "*#") {
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

	js, err := b.jetStream(ctx)
	if err != nil {
		b.logger.WarnContext(ctx, "publish dropped: broker unavailable",
			clog.String("key", key), clog.Error(err))
		return false
	}

	pubCtx, cancel := context.WithTimeout(ctx, b.cfg.PublishTimeout)
	defer cancel()

	msg := &nats.Msg{
		Subject: key,
		Data:    data,
		Header:  nats.Header{},
	}
	// 消息 ID 随消息持久化，重投时不变，消费方可据此幂等去重
	msg.Header.Set(nats.MsgIdHdr, uuid.NewString())

	if _, err := js.PublishMsg(pubCtx, msg); err != nil {
		b.logger.WarnContext(ctx, "publish dropped: broker rejected message",
			clog.String("key", key), clog.Error(err))
		return false
	}

	b.logger.DebugContext(ctx, "event published",
		clog.String("key", key), clog.Int("bytes", len(data)))
	return true
}

// Subscribe 以 durable consumer 订阅主题模式
func (b *natsBus) Subscribe(ctx context.Context, queue, pattern string, handler Handler) (Subscription, error) {
	if queue == "" {
		return nil, ErrQueueNameEmpty
	}

	subject, err := TranslatePattern(pattern)
	if err != nil {
		return nil, err
	}

	js, err := b.jetStream(ctx)
	if err != nil {
		return nil, xerrors.Wrapf(err, "subscribe %s", queue)
	}

	consumer, err := js.CreateOrUpdateConsumer(ctx, b.cfg.Stream, jetstream.ConsumerConfig{
		Durable:       durableName(queue),
		AckPolicy:     jetstream.AckExplicitPolicy,
		FilterSubject: subject,
	})
	if err != nil {
		return nil, xerrors.Wrapf(err, "create consumer %s", queue)
	}

	sub := &natsSubscription{done: make(chan struct{})}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		m := &natsMessage{ctx: ctx, msg: msg}

		if herr := handler(m); herr != nil {
			b.logger.WarnContext(ctx, "message processing failed, will redeliver",
				clog.String("queue", queue),
				clog.String("topic", m.Topic()),
				clog.Error(herr))
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	})
	if err != nil {
		return nil, xerrors.Wrapf(err, "consume %s", queue)
	}
	sub.cc = cc

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	b.logger.InfoContext(ctx, "subscription started",
		clog.String("queue", queue),
		clog.String("pattern", pattern),
		clog.String("subject", subject))

	return sub, nil
}

// Close 关闭总线
func (b *natsBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for _, sub := range b.subs {
		_ = sub.Unsubscribe()
	}
	b.subs = nil

	if b.conn != nil {
		if err := b.conn.Drain(); err != nil {
			b.conn.Close()
		}
		b.conn = nil
		b.js = nil
	}

	b.logger.Info("nats bus closed")
	return nil
}

// jetStream 惰性建立连接并确保流存在
func (b *natsBus) jetStream(ctx context.Context) (jetstream.JetStream, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBusClosed
	}

	if b.conn == nil {
		// RetryOnFailedConnect 让客户端在代理不可用时按固定间隔后台重连
		conn, err := nats.Connect(b.cfg.URL,
			nats.RetryOnFailedConnect(true),
			nats.ReconnectWait(b.cfg.ReconnectWait),
			nats.MaxReconnects(-1),
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				b.logger.Warn("broker disconnected", clog.Error(err))
			}),
			nats.ReconnectHandler(func(nc *nats.Conn) {
				b.logger.Info("broker reconnected", clog.String("url", nc.ConnectedUrl()))
			}),
		)
		if err != nil {
			return nil, xerrors.Wrap(err, "connect nats")
		}

		js, err := jetstream.New(conn)
		if err != nil {
			conn.Close()
			return nil, xerrors.Wrap(err, "init jetstream")
		}

		b.conn = conn
		b.js = js
	}

	if !b.streamReady {
		if _, err := b.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
			Name:     b.cfg.Stream,
			Subjects: b.cfg.Subjects,
			Storage:  jetstream.FileStorage,
		}); err != nil {
			return nil, xerrors.Wrapf(err, "ensure stream %s", b.cfg.Stream)
		}
		b.streamReady = true
	}

	return b.js, nil
}

// durableName 将队列名转换为合法的 durable consumer 名
//
// NATS consumer 名不允许包含点和通配符。
func durableName(queue string) string {
	r := strings.NewReplacer(".", "-", "*", "-", ">", "-", "#", "-")
	return r.Replace(queue)
}

// natsSubscription JetStream 订阅句柄
type natsSubscription struct {
	cc jetstream.ConsumeContext

	once sync.Once
	done chan struct{}
}

func (s *natsSubscription) Unsubscribe() error {
	s.once.Do(func() {
		if s.cc != nil {
			s.cc.Stop()
		}
		close(s.done)
	})
	return nil
}

func (s *natsSubscription) Done() <-chan struct{} {
	return s.done
}

// natsMessage JetStream 消息包装
type natsMessage struct {
	ctx context.Context
	msg jetstream.Msg
}

func (m *natsMessage) Context() context.Context { return m.ctx }
func (m *natsMessage) Topic() string            { return m.msg.Subject() }
func (m *natsMessage) Data() []byte             { return m.msg.Data() }

func (m *natsMessage) ID() string {
	if id := m.msg.Headers().Get(nats.MsgIdHdr); id != "" {
		return id
	}
	// 旧消息没有 ID 头时退化为流内序号
	if meta, err := m.msg.Metadata(); err == nil {
		return fmt.Sprintf("%s-%d", m.msg.Subject(), meta.Sequence.Stream)
	}
	return ""
}
