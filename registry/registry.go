// Package registry 提供进程内的服务注册发现组件，支持健康探活和尽力而为的快照持久化。
//
// registry 是 cartmesh 网关的目录层，它提供了：
// - 服务注册与发现能力（逻辑服务名 → 可达地址 + 健康状态）
// - 后台周期探活，探活失败的条目标记为不健康但不删除
// - 尽力而为的 JSON 快照落盘，内存状态始终是权威数据源
// - 与基础组件（日志、指标、错误）的集成
//
// ## 基本使用
//
//	reg, _ := registry.New(&registry.Config{
//		ProbeInterval: 10 * time.Second,
//		ProbeTimeout:  2 * time.Second,
//	}, registry.WithLogger(logger))
//	defer reg.Close()
//
//	// 注册服务
//	reg.Register(&registry.ServiceInstance{
//		Name: "item-service",
//		URL:  "http://127.0.0.1:9002",
//	})
//
//	// 服务发现
//	inst, err := reg.Discover("item-service")
//
// ## 健康模型
//
// 每个注册条目携带 healthy 标记。后台循环按固定周期对每个条目的
// GET <url>/health 端点发起探活，超时或非 2xx 视为失败，条目被标记为
// 不健康但保留在表中；下一次心跳或探活成功即恢复，不需要重新注册。
//
// ## 设计原则
//
// - **显式生命周期**：组件由构造函数创建、Close 销毁，不使用进程级单例
// - **后写覆盖**：服务名是唯一键，重复注册直接覆盖旧条目
// - **快照非权威**：落盘失败只记日志，不影响注册表行为
package registry

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ceyewan/cartmesh/clog"
)

// New 创建 Registry 实例（基于内存表）
//
// 参数:
//   - cfg: Registry 配置，nil 时使用默认配置
//   - opts: 可选参数 (Logger, HTTPClient)
func New(cfg *Config, opts ...Option) (Registry, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.setDefaults()

	opt := &options{}
	for _, o := range opts {
		o(opt)
	}
	if opt.logger == nil {
		opt.logger = clog.Discard()
	}
	if opt.client == nil {
		opt.client = &http.Client{Timeout: cfg.ProbeTimeout}
	}

	r := &memoryRegistry{
		cfg:      cfg,
		logger:   opt.logger,
		client:   opt.client,
		entries:  make(map[string]*ServiceInstance),
		stopChan: make(chan struct{}),
	}

	// 尽力恢复快照；恢复的条目先标记为不健康，等待探活或心跳确认
	if cfg.SnapshotPath != "" {
		r.loadSnapshot()
	}

	r.wg.Add(1)
	go r.probeLoop()

	return r, nil
}

// memoryRegistry 基于内存表的服务注册发现实现
type memoryRegistry struct {
	cfg    *Config
	logger clog.Logger
	client *http.Client

	mu      sync.RWMutex
	entries map[string]*ServiceInstance

	stopChan chan struct{}
	wg       sync.WaitGroup
	closed   uint32
}

func (r *memoryRegistry) isClosed() bool {
	return atomic.LoadUint32(&r.closed) == 1
}

func (r *memoryRegistry) ensureOpen() error {
	if r.isClosed() {
		return ErrRegistryClosed
	}
	return nil
}

// Register 注册服务实例
func (r *memoryRegistry) Register(service *ServiceInstance) error {
	if err := r.ensureOpen(); err != nil {
		return err
	}
	if service == nil || service.Name == "" || service.URL == "" {
		return ErrInvalidServiceInstance
	}

	now := time.Now()
	entry := service.clone()
	entry.Healthy = true
	entry.LastHeartbeat = now
	if entry.RegisteredAt.IsZero() {
		entry.RegisteredAt = now
	}

	r.mu.Lock()
	_, replaced := r.entries[entry.Name]
	r.entries[entry.Name] = entry
	r.mu.Unlock()

	r.logger.Info("service registered",
		clog.String("service", entry.Name),
		clog.String("url", entry.URL),
		clog.Bool("replaced", replaced))

	r.saveSnapshot()
	return nil
}

// Deregister 注销服务实例
func (r *memoryRegistry) Deregister(name string) error {
	if err := r.ensureOpen(); err != nil {
		return err
	}
	if name == "" {
		return ErrInvalidServiceInstance
	}

	r.mu.Lock()
	_, exists := r.entries[name]
	delete(r.entries, name)
	r.mu.Unlock()

	if !exists {
		return ErrServiceNotFound
	}

	r.logger.Info("service deregistered", clog.String("service", name))
	r.saveSnapshot()
	return nil
}

// UpdateHealth 更新健康标记
func (r *memoryRegistry) UpdateHealth(name string, healthy bool) error {
	if err := r.ensureOpen(); err != nil {
		return err
	}

	r.mu.Lock()
	entry, exists := r.entries[name]
	if exists {
		if entry.Healthy != healthy {
			r.logger.Info("service health changed",
				clog.String("service", name),
				clog.Bool("healthy", healthy))
		}
		entry.Healthy = healthy
		if healthy {
			entry.LastHeartbeat = time.Now()
		}
	}
	r.mu.Unlock()

	if !exists {
		return ErrServiceNotFound
	}
	return nil
}

// Discover 按名称查找实例
func (r *memoryRegistry) Discover(name string) (*ServiceInstance, error) {
	if err := r.ensureOpen(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	entry, exists := r.entries[name]
	var snapshot *ServiceInstance
	if exists {
		snapshot = entry.clone()
	}
	r.mu.RUnlock()

	if !exists {
		return nil, ErrServiceNotFound
	}
	if !snapshot.Healthy {
		return nil, ErrServiceUnhealthy
	}
	return snapshot, nil
}

// List 返回全部注册条目的副本
func (r *memoryRegistry) List() []*ServiceInstance {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*ServiceInstance, 0, len(r.entries))
	for _, entry := range r.entries {
		out = append(out, entry.clone())
	}
	return out
}

// Stats 返回注册表统计信息
func (r *memoryRegistry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Stats{Total: len(r.entries), UpdatedAt: time.Now()}
	for _, entry := range r.entries {
		if entry.Healthy {
			stats.Healthy++
		} else {
			stats.Unhealthy++
		}
	}
	return stats
}

// Close 停止后台探活任务并写出最后一次快照
// 此方法是幂等的，可以安全地多次调用
func (r *memoryRegistry) Close() error {
	if !atomic.CompareAndSwapUint32(&r.closed, 0, 1) {
		return nil
	}

	close(r.stopChan)
	r.wg.Wait()

	r.writeSnapshotFile()
	r.logger.Info("registry stopped")
	return nil
}
