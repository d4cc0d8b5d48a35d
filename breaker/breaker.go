// Package breaker 提供熔断器组件，专注于网关到下游服务的故障隔离与自动恢复。
//
// breaker 是 cartmesh 网关的治理层组件，它提供了：
// - 基于 gobreaker 的熔断器实现
// - 服务级粒度的熔断管理（按下游服务名独立熔断，一个服务故障不拖垮其他服务）
// - 连续失败计数：达到阈值（默认 3 次）后熔断打开
// - 冷却期（默认 30s）后进入半开状态，只放行一个试探请求：
//   试探成功则闭合并清零失败计数，试探失败立即重新打开
// - 两段式 API（Allow/done），适配反向代理"先放行、后上报"的调用形态
//
// ## 基本使用
//
//	brk, _ := breaker.New(&breaker.Config{
//		FailureThreshold: 3,
//		Cooldown:         30 * time.Second,
//	}, breaker.WithLogger(logger))
//
//	done, err := brk.Allow("item-service")
//	if err != nil {
//		// 熔断打开，快速失败（503）
//		return
//	}
//	resp, err := client.Do(req)
//	// 传输层失败才算熔断失败；下游给出任何 HTTP 响应都视为成功
//	done(err == nil)
package breaker

import (
	"time"

	"github.com/ceyewan/cartmesh/clog"
)

// Breaker 熔断器核心接口
type Breaker interface {
	// Allow 申请对指定下游服务发起一次调用
	//
	// 熔断打开时返回 ErrOpenState；放行时返回 done 回调，
	// 调用方必须在调用结束后以成功与否回报：done(true) 闭合/维持闭合
	// 并清零失败计数，done(false) 累积失败计数。
	Allow(service string) (done func(success bool), err error)

	// State 获取指定服务的熔断器状态
	// 从未发起过调用的服务返回 StateClosed
	State(service string) State

	// Snapshot 返回全部熔断器的只读快照，用于调试端点
	Snapshot() []ServiceState

	// Reset 丢弃指定服务的熔断器状态，下一次调用从闭合状态开始
	Reset(service string)
}

// State 熔断器状态
type State int

const (
	// StateClosed 闭合状态（正常）
	StateClosed State = iota
	// StateHalfOpen 半开状态（探测恢复，只放行一个试探请求）
	StateHalfOpen
	// StateOpen 打开状态（熔断中，冷却期未过）
	StateOpen
)

// String 返回状态的字符串表示
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half_open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// ServiceState 单个下游服务的熔断器快照
type ServiceState struct {
	Service             string    `json:"service"`
	State               string    `json:"state"`
	ConsecutiveFailures uint32    `json:"consecutive_failures"`
	LastFailureAt       time.Time `json:"last_failure_at,omitzero"`
}

// Config 熔断器配置
//
// 阈值与冷却期没有普适的正确值，这里保持可配置而不是硬编码。
type Config struct {
	// FailureThreshold 触发熔断的连续失败次数（默认：3）
	FailureThreshold uint32 `json:"failure_threshold" yaml:"failure_threshold" mapstructure:"failure_threshold"`

	// Cooldown 打开状态持续时间（默认：30s）
	// 冷却期过后进入半开状态进行探测
	Cooldown time.Duration `json:"cooldown" yaml:"cooldown" mapstructure:"cooldown"`

	// MaxTrialRequests 半开状态下允许通过的试探请求数（默认：1）
	MaxTrialRequests uint32 `json:"max_trial_requests" yaml:"max_trial_requests" mapstructure:"max_trial_requests"`
}

// New 创建熔断器实例
//
// 参数:
//   - cfg: 熔断器配置
//   - opts: 可选参数 (Logger)
func New(cfg *Config, opts ...Option) (Breaker, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}

	opt := options{}
	for _, o := range opts {
		o(&opt)
	}

	logger := opt.logger
	if logger == nil {
		logger = clog.Discard()
	}

	return newBreaker(cfg, logger)
}
