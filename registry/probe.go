package registry

import (
	"strings"
	"time"

	"github.com/ceyewan/cartmesh/clog"
)

// probeLoop 后台探活循环
//
// 按固定周期对每个注册条目的 /health 端点发起探活。
// 探活失败只翻转 healthy 标记，不删除条目：恢复只需要条目重新
// 响应探活或发来心跳，不需要重新注册。
func (r *memoryRegistry) probeLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.ProbeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopChan:
			return
		case <-ticker.C:
			r.probeAll()
		}
	}
}

// probeAll 对全部条目执行一轮探活
func (r *memoryRegistry) probeAll() {
	type target struct {
		name string
		url  string
	}

	r.mu.RLock()
	targets := make([]target, 0, len(r.entries))
	for _, entry := range r.entries {
		targets = append(targets, target{name: entry.Name, url: entry.URL})
	}
	r.mu.RUnlock()

	for _, t := range targets {
		healthy := r.probe(t.url)
		if err := r.UpdateHealth(t.name, healthy); err != nil {
			// 条目可能在探活期间被注销，忽略
			continue
		}
		if !healthy {
			r.logger.Warn("health probe failed",
				clog.String("service", t.name),
				clog.String("url", t.url))
		}
	}
}

// probe 对单个实例发起健康检查，返回是否健康
func (r *memoryRegistry) probe(baseURL string) bool {
	url := strings.TrimRight(baseURL, "/") + "/health"

	resp, err := r.client.Get(url)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
