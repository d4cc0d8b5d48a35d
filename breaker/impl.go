package breaker

import (
	"sort"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/ceyewan/cartmesh/clog"
	"github.com/ceyewan/cartmesh/xerrors"
)

// circuitBreaker 熔断器实现（非导出）
type circuitBreaker struct {
	cfg    *Config
	logger clog.Logger

	// 服务级熔断器管理
	breakers sync.Map // map[string]*entry
}

// entry 单个下游服务的熔断器及其附加状态
//
// gobreaker 不暴露最后失败时间，这里自行记录用于调试快照。
type entry struct {
	cb *gobreaker.TwoStepCircuitBreaker[struct{}]

	mu            sync.Mutex
	lastFailureAt time.Time
}

// newBreaker 创建熔断器实例（内部函数）
func newBreaker(cfg *Config, logger clog.Logger) (Breaker, error) {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.Cooldown == 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.MaxTrialRequests == 0 {
		cfg.MaxTrialRequests = 1
	}

	cb := &circuitBreaker{
		cfg:    cfg,
		logger: logger,
	}

	logger.Info("circuit breaker created",
		clog.Int("failure_threshold", int(cfg.FailureThreshold)),
		clog.Duration("cooldown", cfg.Cooldown),
		clog.Int("max_trial_requests", int(cfg.MaxTrialRequests)))

	return cb, nil
}

// Allow 申请对指定下游服务发起一次调用
func (cb *circuitBreaker) Allow(service string) (func(success bool), error) {
	if service == "" {
		return nil, ErrServiceNameEmpty
	}

	e := cb.getOrCreateEntry(service)

	done, err := e.cb.Allow()
	if err != nil {
		if xerrors.Is(err, gobreaker.ErrOpenState) || xerrors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrOpenState
		}
		return nil, err
	}

	return func(success bool) {
		if !success {
			e.mu.Lock()
			e.lastFailureAt = time.Now()
			e.mu.Unlock()
		}
		done(success)
	}, nil
}

// State 获取指定服务的熔断器状态
func (cb *circuitBreaker) State(service string) State {
	val, ok := cb.breakers.Load(service)
	if !ok {
		return StateClosed
	}
	return fromGobreakerState(val.(*entry).cb.State())
}

// Snapshot 返回全部熔断器的只读快照
func (cb *circuitBreaker) Snapshot() []ServiceState {
	var out []ServiceState

	cb.breakers.Range(func(key, val any) bool {
		e := val.(*entry)

		e.mu.Lock()
		lastFailure := e.lastFailureAt
		e.mu.Unlock()

		out = append(out, ServiceState{
			Service:             key.(string),
			State:               fromGobreakerState(e.cb.State()).String(),
			ConsecutiveFailures: e.cb.Counts().ConsecutiveFailures,
			LastFailureAt:       lastFailure,
		})
		return true
	})

	sort.Slice(out, func(i, j int) bool { return out[i].Service < out[j].Service })
	return out
}

// Reset 丢弃指定服务的熔断器状态
func (cb *circuitBreaker) Reset(service string) {
	cb.breakers.Delete(service)
	cb.logger.Info("circuit breaker reset", clog.String("service", service))
}

// getOrCreateEntry 获取或创建服务级熔断器
func (cb *circuitBreaker) getOrCreateEntry(service string) *entry {
	val, ok := cb.breakers.Load(service)
	if ok {
		return val.(*entry)
	}

	settings := gobreaker.Settings{
		Name:        service,
		MaxRequests: cb.cfg.MaxTrialRequests,
		Timeout:     cb.cfg.Cooldown,
		ReadyToTrip: cb.readyToTrip,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			cb.onStateChange(name, from, to)
		},
	}

	e := &entry{cb: gobreaker.NewTwoStepCircuitBreaker[struct{}](settings)}

	// 可能有并发创建，使用 LoadOrStore
	actual, _ := cb.breakers.LoadOrStore(service, e)
	return actual.(*entry)
}

// readyToTrip 判断是否应该触发熔断：连续失败达到阈值
func (cb *circuitBreaker) readyToTrip(counts gobreaker.Counts) bool {
	return counts.ConsecutiveFailures >= cb.cfg.FailureThreshold
}

// onStateChange 状态变更回调
func (cb *circuitBreaker) onStateChange(name string, from gobreaker.State, to gobreaker.State) {
	cb.logger.Info("circuit breaker state changed",
		clog.String("service", name),
		clog.String("from", fromGobreakerState(from).String()),
		clog.String("to", fromGobreakerState(to).String()))
}

// fromGobreakerState 将 gobreaker.State 转换为本包状态
func fromGobreakerState(state gobreaker.State) State {
	switch state {
	case gobreaker.StateClosed:
		return StateClosed
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	case gobreaker.StateOpen:
		return StateOpen
	default:
		return StateClosed
	}
}
