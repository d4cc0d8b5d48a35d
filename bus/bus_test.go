package bus

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/ceyewan/cartmesh/xerrors"
)

func newTestBus(t *testing.T) Bus {
	t.Helper()
	b, err := New(&Config{Driver: DriverMemory})
	if err != nil {
		t.Fatalf("New should not return error, got: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b
}

// collector 记录收到的消息（内存后端同步投递，无需等待）
type collector struct {
	mu     sync.Mutex
	topics []string
	data   [][]byte
}

func (c *collector) handle(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.topics = append(c.topics, msg.Topic())
	c.data = append(c.data, msg.Data())
	return nil
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.topics)
}

// TestNewValidation 测试构造参数校验
func TestNewValidation(t *testing.T) {
	if _, err := New(nil); !xerrors.Is(err, ErrConfigNil) {
		t.Fatalf("nil config must fail, got: %v", err)
	}
	if _, err := New(&Config{Driver: "kafka"}); !xerrors.Is(err, ErrUnsupportedDriver) {
		t.Fatalf("unknown driver must fail, got: %v", err)
	}
}

// TestCheckoutEventDelivery 测试结算事件按路由键投递给全部匹配绑定
func TestCheckoutEventDelivery(t *testing.T) {
	b := newTestBus(t)
	ctx := context.Background()

	var wildcard, exact, other collector

	// 通配符绑定与精确绑定都应收到结算事件
	if _, err := b.Subscribe(ctx, "notification-worker", PatternCheckoutAll, wildcard.handle); err != nil {
		t.Fatalf("Subscribe should not fail, got: %v", err)
	}
	if _, err := b.Subscribe(ctx, "audit-worker", TopicCheckoutCompleted, exact.handle); err != nil {
		t.Fatalf("Subscribe should not fail, got: %v", err)
	}
	// 不相关的精确绑定不应收到
	if _, err := b.Subscribe(ctx, "other-worker", "list.created", other.handle); err != nil {
		t.Fatalf("Subscribe should not fail, got: %v", err)
	}

	ev := CheckoutEvent{
		ListID:    "list-1",
		UserEmail: "ada@example.com",
		Summary:   CheckoutSummary{TotalItems: 5, PurchasedItems: 3, EstimatedTotal: 42.5},
	}
	if !b.TryPublish(ctx, TopicCheckoutCompleted, ev) {
		t.Fatal("TryPublish must succeed on the memory bus")
	}

	if wildcard.count() != 1 {
		t.Fatalf("wildcard binding must receive the event, got %d messages", wildcard.count())
	}
	if exact.count() != 1 {
		t.Fatalf("exact binding must receive the event, got %d messages", exact.count())
	}
	if other.count() != 0 {
		t.Fatalf("unrelated binding must not receive the event, got %d messages", other.count())
	}

	// 载荷是 UTF-8 JSON，字段原样往返
	var got CheckoutEvent
	if err := json.Unmarshal(wildcard.data[0], &got); err != nil {
		t.Fatalf("payload must be valid JSON, got: %v", err)
	}
	if got.ListID != ev.ListID || got.Summary.PurchasedItems != 3 {
		t.Fatalf("payload mismatch: %+v", got)
	}
	if wildcard.topics[0] != TopicCheckoutCompleted {
		t.Fatalf("topic mismatch: %s", wildcard.topics[0])
	}
}

// TestQueueCompetingConsumers 测试同名队列竞争消费
func TestQueueCompetingConsumers(t *testing.T) {
	b := newTestBus(t)
	ctx := context.Background()

	var c1, c2 collector
	if _, err := b.Subscribe(ctx, "workers", PatternListAll, c1.handle); err != nil {
		t.Fatalf("Subscribe should not fail, got: %v", err)
	}
	if _, err := b.Subscribe(ctx, "workers", PatternListAll, c2.handle); err != nil {
		t.Fatalf("Subscribe should not fail, got: %v", err)
	}

	for i := 0; i < 4; i++ {
		if !b.TryPublish(ctx, "list.created", map[string]int{"n": i}) {
			t.Fatal("TryPublish must succeed")
		}
	}

	// 每条消息只投递给队列中的一个订阅者
	if total := c1.count() + c2.count(); total != 4 {
		t.Fatalf("queue must deliver each message exactly once, got %d", total)
	}
	if c1.count() == 0 || c2.count() == 0 {
		t.Fatalf("deliveries must be shared across consumers, got %d/%d", c1.count(), c2.count())
	}
}

// TestHandlerErrorRedelivers 测试处理失败触发重投
func TestHandlerErrorRedelivers(t *testing.T) {
	b := newTestBus(t)
	ctx := context.Background()

	attempts := 0
	var firstID, secondID string
	_, err := b.Subscribe(ctx, "flaky-worker", TopicCheckoutCompleted, func(msg Message) error {
		attempts++
		if attempts == 1 {
			firstID = msg.ID()
			return xerrors.New("transient failure")
		}
		secondID = msg.ID()
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe should not fail, got: %v", err)
	}

	if !b.TryPublish(ctx, TopicCheckoutCompleted, CheckoutEvent{ListID: "l1"}) {
		t.Fatal("TryPublish must succeed")
	}

	if attempts != 2 {
		t.Fatalf("failed message must be redelivered, got %d attempts", attempts)
	}
	// 重投保持消息 ID 不变，消费方可幂等去重
	if firstID == "" || firstID != secondID {
		t.Fatalf("message ID must be stable across redelivery: %q vs %q", firstID, secondID)
	}
}

// TestPublishInvalidKey 测试非法路由键被拒绝
func TestPublishInvalidKey(t *testing.T) {
	b := newTestBus(t)
	ctx := context.Background()

	if b.TryPublish(ctx, "", struct{}{}) {
		t.Fatal("empty key must be rejected")
	}
	if b.TryPublish(ctx, "list.#", struct{}{}) {
		t.Fatal("wildcard key must be rejected")
	}
}

// TestSubscribeValidation 测试订阅参数校验
func TestSubscribeValidation(t *testing.T) {
	b := newTestBus(t)
	ctx := context.Background()

	if _, err := b.Subscribe(ctx, "", PatternListAll, func(Message) error { return nil }); !xerrors.Is(err, ErrQueueNameEmpty) {
		t.Fatalf("empty queue must fail, got: %v", err)
	}
	if _, err := b.Subscribe(ctx, "w", "list.#.x", func(Message) error { return nil }); !xerrors.Is(err, ErrInvalidPattern) {
		t.Fatalf("invalid pattern must fail, got: %v", err)
	}
}

// TestClosedBus 测试关闭后的行为
func TestClosedBus(t *testing.T) {
	b := newTestBus(t)
	ctx := context.Background()

	sub, err := b.Subscribe(ctx, "w", PatternListAll, func(Message) error { return nil })
	if err != nil {
		t.Fatalf("Subscribe should not fail, got: %v", err)
	}

	if err := b.Close(); err != nil {
		t.Fatalf("Close should not fail, got: %v", err)
	}
	// 幂等
	if err := b.Close(); err != nil {
		t.Fatalf("Close must be idempotent, got: %v", err)
	}

	select {
	case <-sub.Done():
	default:
		t.Fatal("closing the bus must end subscriptions")
	}

	if b.TryPublish(ctx, "list.created", struct{}{}) {
		t.Fatal("closed bus must not accept publishes")
	}
	if _, err := b.Subscribe(ctx, "w2", PatternListAll, func(Message) error { return nil }); !xerrors.Is(err, ErrBusClosed) {
		t.Fatalf("closed bus must reject subscriptions, got: %v", err)
	}
}
