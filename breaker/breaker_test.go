package breaker

import (
	"testing"
	"time"

	"github.com/ceyewan/cartmesh/xerrors"
)

func newTestBreaker(t *testing.T, cooldown time.Duration) Breaker {
	t.Helper()
	brk, err := New(&Config{
		FailureThreshold: 3,
		Cooldown:         cooldown,
		MaxTrialRequests: 1,
	})
	if err != nil {
		t.Fatalf("New should not return error, got: %v", err)
	}
	return brk
}

// fail 上报一次失败调用
func fail(t *testing.T, brk Breaker, service string) {
	t.Helper()
	done, err := brk.Allow(service)
	if err != nil {
		t.Fatalf("Allow should admit the call, got: %v", err)
	}
	done(false)
}

// TestNewNilConfig 测试 nil 配置
func TestNewNilConfig(t *testing.T) {
	if _, err := New(nil); !xerrors.Is(err, ErrConfigNil) {
		t.Fatalf("New with nil config should return ErrConfigNil, got: %v", err)
	}
}

// TestAllowEmptyService 测试空服务名
func TestAllowEmptyService(t *testing.T) {
	brk := newTestBreaker(t, time.Minute)
	if _, err := brk.Allow(""); !xerrors.Is(err, ErrServiceNameEmpty) {
		t.Fatalf("Allow with empty service should fail, got: %v", err)
	}
}

// TestOpensAfterThreshold 测试连续失败达到阈值后熔断打开
func TestOpensAfterThreshold(t *testing.T) {
	brk := newTestBreaker(t, time.Minute)

	// 两次失败还不够
	fail(t, brk, "item-service")
	fail(t, brk, "item-service")
	if brk.State("item-service") != StateClosed {
		t.Fatal("breaker must stay closed below the threshold")
	}

	// 第三次失败触发熔断
	fail(t, brk, "item-service")
	if brk.State("item-service") != StateOpen {
		t.Fatal("breaker must open at the failure threshold")
	}

	// 打开状态下拒绝调用
	if _, err := brk.Allow("item-service"); !xerrors.Is(err, ErrOpenState) {
		t.Fatalf("open breaker must reject calls, got: %v", err)
	}
}

// TestSuccessResetsFailureCount 测试成功调用清零失败计数
func TestSuccessResetsFailureCount(t *testing.T) {
	brk := newTestBreaker(t, time.Minute)

	fail(t, brk, "item-service")
	fail(t, brk, "item-service")

	// 一次成功打断连续失败
	done, err := brk.Allow("item-service")
	if err != nil {
		t.Fatalf("Allow should admit the call, got: %v", err)
	}
	done(true)

	// 再失败两次仍未达到连续阈值
	fail(t, brk, "item-service")
	fail(t, brk, "item-service")
	if brk.State("item-service") != StateClosed {
		t.Fatal("success must reset the consecutive failure count")
	}
}

// TestHalfOpenSingleTrial 测试冷却期后半开只放行一个试探请求
func TestHalfOpenSingleTrial(t *testing.T) {
	cooldown := 50 * time.Millisecond
	brk := newTestBreaker(t, cooldown)

	for i := 0; i < 3; i++ {
		fail(t, brk, "list-service")
	}
	if brk.State("list-service") != StateOpen {
		t.Fatal("breaker must be open after threshold failures")
	}

	// 冷却期内保持打开
	if _, err := brk.Allow("list-service"); !xerrors.Is(err, ErrOpenState) {
		t.Fatalf("breaker must stay open during cooldown, got: %v", err)
	}

	time.Sleep(cooldown + 20*time.Millisecond)

	// 冷却期过后恰好放行一个试探请求
	trialDone, err := brk.Allow("list-service")
	if err != nil {
		t.Fatalf("half-open breaker must admit one trial, got: %v", err)
	}
	if brk.State("list-service") != StateHalfOpen {
		t.Fatal("breaker must be half-open during the trial")
	}

	// 试探未完成前，第二个请求被拒绝
	if _, err := brk.Allow("list-service"); !xerrors.Is(err, ErrOpenState) {
		t.Fatalf("half-open breaker must admit exactly one trial, got: %v", err)
	}

	// 试探成功：闭合并清零失败计数
	trialDone(true)
	if brk.State("list-service") != StateClosed {
		t.Fatal("trial success must close the breaker")
	}

	snap := brk.Snapshot()
	if len(snap) != 1 || snap[0].ConsecutiveFailures != 0 {
		t.Fatalf("closing must zero the failure count, got: %+v", snap)
	}
}

// TestHalfOpenTrialFailureReopens 测试试探失败立即重新打开
func TestHalfOpenTrialFailureReopens(t *testing.T) {
	cooldown := 50 * time.Millisecond
	brk := newTestBreaker(t, cooldown)

	for i := 0; i < 3; i++ {
		fail(t, brk, "user-service")
	}

	time.Sleep(cooldown + 20*time.Millisecond)

	trialDone, err := brk.Allow("user-service")
	if err != nil {
		t.Fatalf("half-open breaker must admit one trial, got: %v", err)
	}
	trialDone(false)

	if brk.State("user-service") != StateOpen {
		t.Fatal("trial failure must reopen the breaker immediately")
	}
	if _, err := brk.Allow("user-service"); !xerrors.Is(err, ErrOpenState) {
		t.Fatalf("reopened breaker must reject calls, got: %v", err)
	}
}

// TestIndependentServices 测试各下游服务独立熔断
func TestIndependentServices(t *testing.T) {
	brk := newTestBreaker(t, time.Minute)

	for i := 0; i < 3; i++ {
		fail(t, brk, "item-service")
	}

	if brk.State("item-service") != StateOpen {
		t.Fatal("item-service breaker must be open")
	}
	// 其他服务不受影响
	if _, err := brk.Allow("user-service"); err != nil {
		t.Fatalf("user-service must not be affected, got: %v", err)
	}
}

// TestSnapshot 测试调试快照
func TestSnapshot(t *testing.T) {
	brk := newTestBreaker(t, time.Minute)

	fail(t, brk, "b-service")
	fail(t, brk, "a-service")

	snap := brk.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("expected 2 snapshots, got: %d", len(snap))
	}
	// 按服务名排序，输出稳定
	if snap[0].Service != "a-service" || snap[1].Service != "b-service" {
		t.Errorf("snapshot must be sorted by service, got: %+v", snap)
	}
	if snap[0].ConsecutiveFailures != 1 {
		t.Errorf("expected 1 consecutive failure, got: %d", snap[0].ConsecutiveFailures)
	}
	if snap[0].LastFailureAt.IsZero() {
		t.Error("last failure time must be recorded")
	}
}

// TestReset 测试手动重置
func TestReset(t *testing.T) {
	brk := newTestBreaker(t, time.Minute)

	for i := 0; i < 3; i++ {
		fail(t, brk, "item-service")
	}
	if brk.State("item-service") != StateOpen {
		t.Fatal("breaker must be open before reset")
	}

	brk.Reset("item-service")
	if brk.State("item-service") != StateClosed {
		t.Fatal("reset breaker must start closed")
	}
	if _, err := brk.Allow("item-service"); err != nil {
		t.Fatalf("reset breaker must admit calls, got: %v", err)
	}
}

// TestStateUnknownService 测试未知服务的状态查询
func TestStateUnknownService(t *testing.T) {
	brk := newTestBreaker(t, time.Minute)
	if brk.State("never-called") != StateClosed {
		t.Fatal("unknown service must report closed")
	}
}
