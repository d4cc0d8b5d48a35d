package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/ceyewan/cartmesh/clog"
)

// Registrar 负责一个下游服务在网关注册表里的生命周期
//
// Start 后先带重试地完成自注册，然后按固定间隔发心跳；
// Stop 发起注销（优雅下线路径）。注册和心跳都是尽力而为：
// 网关暂时不可达时重试，不让业务进程因此退出。
type Registrar struct {
	gatewayURL string
	name       string
	serviceURL string
	version    string
	endpoints  []string
	interval   time.Duration

	client *http.Client
	logger clog.Logger

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// RegistrarConfig 注册器配置
type RegistrarConfig struct {
	// GatewayURL 网关地址（注册表管理面所在）
	GatewayURL string

	// Name 服务名（注册表里的键）
	Name string

	// ServiceURL 本服务的可达地址
	ServiceURL string

	// Version 版本号
	Version string

	// Endpoints 本服务声明的端点列表
	Endpoints []string

	// HeartbeatInterval 心跳周期，默认 5s
	HeartbeatInterval time.Duration
}

// NewRegistrar 创建注册器
func NewRegistrar(cfg RegistrarConfig, logger clog.Logger) *Registrar {
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 5 * time.Second
	}
	if logger == nil {
		logger = clog.Discard()
	}

	return &Registrar{
		gatewayURL: cfg.GatewayURL,
		name:       cfg.Name,
		serviceURL: cfg.ServiceURL,
		version:    cfg.Version,
		endpoints:  cfg.Endpoints,
		interval:   cfg.HeartbeatInterval,
		client:     &http.Client{Timeout: 3 * time.Second},
		logger:     logger.WithNamespace("registrar"),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start 启动注册与心跳后台任务，立即返回
func (r *Registrar) Start(ctx context.Context) {
	go r.loop(ctx)
}

// Stop 停止心跳并注销服务
func (r *Registrar) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
	<-r.done

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		fmt.Sprintf("%s/registry/%s", r.gatewayURL, r.name), nil)
	if err != nil {
		return
	}
	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Warn("deregister failed", clog.Error(err))
		return
	}
	resp.Body.Close()
	r.logger.Info("service deregistered", clog.String("service", r.name))
}

// loop 注册直到成功，然后维持心跳
func (r *Registrar) loop(ctx context.Context) {
	defer close(r.done)

	for !r.register(ctx) {
		select {
		case <-ctx.Done():
			return
		case <-r.stop:
			return
		case <-time.After(r.interval):
		}
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stop:
			return
		case <-ticker.C:
			if !r.heartbeat(ctx) {
				// 心跳 404 说明注册表丢了条目（如网关重启），重新注册
				r.register(ctx)
			}
		}
	}
}

// register 向网关自注册，返回是否成功
func (r *Registrar) register(ctx context.Context) bool {
	body, _ := json.Marshal(map[string]any{
		"name":      r.name,
		"url":       r.serviceURL,
		"version":   r.version,
		"endpoints": r.endpoints,
		"pid":       os.Getpid(),
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		r.gatewayURL+"/registry", bytes.NewReader(body))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Warn("registration failed, will retry",
			clog.String("gateway", r.gatewayURL), clog.Error(err))
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		r.logger.Warn("registration rejected", clog.Int("status", resp.StatusCode))
		return false
	}

	r.logger.Info("service registered",
		clog.String("service", r.name), clog.String("url", r.serviceURL))
	return true
}

// heartbeat 发送一次心跳，返回是否被接受
func (r *Registrar) heartbeat(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		fmt.Sprintf("%s/registry/%s/heartbeat", r.gatewayURL, r.name), nil)
	if err != nil {
		return false
	}

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Warn("heartbeat failed", clog.Error(err))
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
