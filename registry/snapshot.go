package registry

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/ceyewan/cartmesh/clog"
)

// saveSnapshot 在注册表变更后尽力落盘
//
// 快照不是权威数据源：写入失败只记日志，注册表行为不受影响。
func (r *memoryRegistry) saveSnapshot() {
	if r.cfg.SnapshotPath == "" {
		return
	}
	r.writeSnapshotFile()
}

// writeSnapshotFile 原子写出快照文件（先写临时文件再 rename）
func (r *memoryRegistry) writeSnapshotFile() {
	if r.cfg.SnapshotPath == "" {
		return
	}

	r.mu.RLock()
	entries := make([]*ServiceInstance, 0, len(r.entries))
	for _, entry := range r.entries {
		entries = append(entries, entry.clone())
	}
	r.mu.RUnlock()

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		r.logger.Warn("marshal snapshot failed", clog.Error(err))
		return
	}

	tmp := r.cfg.SnapshotPath + ".tmp"
	if err := os.MkdirAll(filepath.Dir(r.cfg.SnapshotPath), 0o755); err != nil {
		r.logger.Warn("create snapshot dir failed", clog.Error(err))
		return
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		r.logger.Warn("write snapshot failed", clog.Error(err))
		return
	}
	if err := os.Rename(tmp, r.cfg.SnapshotPath); err != nil {
		r.logger.Warn("rename snapshot failed", clog.Error(err))
	}
}

// loadSnapshot 启动时尽力恢复快照
//
// 恢复的条目一律标记为不健康：快照里的健康状态已经过期，
// 等待下一轮探活或心跳确认后再参与发现。
func (r *memoryRegistry) loadSnapshot() {
	data, err := os.ReadFile(r.cfg.SnapshotPath)
	if err != nil {
		if !os.IsNotExist(err) {
			r.logger.Warn("read snapshot failed", clog.Error(err))
		}
		return
	}

	var entries []*ServiceInstance
	if err := json.Unmarshal(data, &entries); err != nil {
		r.logger.Warn("parse snapshot failed", clog.Error(err))
		return
	}

	r.mu.Lock()
	for _, entry := range entries {
		if entry == nil || entry.Name == "" || entry.URL == "" {
			continue
		}
		entry.Healthy = false
		r.entries[entry.Name] = entry
	}
	r.mu.Unlock()

	r.logger.Info("snapshot restored",
		clog.Int("entries", len(entries)),
		clog.String("path", r.cfg.SnapshotPath))
}
