package registry

import "time"

// ServiceInstance 代表一个服务实例
//
// Name 是注册表的唯一键：重复注册同名服务时后写覆盖。
type ServiceInstance struct {
	Name          string    `json:"name"`           // 服务名称 (如 user-service)
	URL           string    `json:"url"`            // 可达地址 (如 http://127.0.0.1:9001)
	Version       string    `json:"version"`        // 版本号
	Endpoints     []string  `json:"endpoints"`      // 服务声明的端点列表
	Healthy       bool      `json:"healthy"`        // 健康标记，探活失败时置 false 但不删除条目
	LastHeartbeat time.Time `json:"last_heartbeat"` // 最近一次心跳或探活成功时间
	RegisteredAt  time.Time `json:"registered_at"`  // 注册时间
	PID           int       `json:"pid"`            // 注册进程 ID，仅用于排障
}

// clone 返回实例的副本，避免调用方持有内部指针
func (s *ServiceInstance) clone() *ServiceInstance {
	if s == nil {
		return nil
	}
	c := *s
	c.Endpoints = append([]string(nil), s.Endpoints...)
	return &c
}

// Stats 注册表的只读统计信息
type Stats struct {
	Total     int       `json:"total"`     // 注册条目总数
	Healthy   int       `json:"healthy"`   // 健康条目数
	Unhealthy int       `json:"unhealthy"` // 不健康条目数
	UpdatedAt time.Time `json:"updated_at"`
}
