package registry

// Registry 服务注册与发现接口
type Registry interface {
	// --- 服务注册 ---

	// Register 注册服务实例，幂等 upsert：同名条目后写覆盖（last write wins）。
	// 注册后立即对 Discover 可见。
	Register(service *ServiceInstance) error

	// Deregister 注销服务实例（优雅下线路径）
	Deregister(name string) error

	// UpdateHealth 更新健康标记，由心跳和主动探活调用。
	// 只翻转 healthy 标记，不删除条目：恢复只需要一次新的心跳，
	// 不需要重新注册。
	UpdateHealth(name string, healthy bool) error

	// --- 服务发现 ---

	// Discover 按名称查找实例。
	// 名称从未注册时返回 ErrServiceNotFound；
	// 条目存在但当前不健康时返回 ErrServiceUnhealthy。
	Discover(name string) (*ServiceInstance, error)

	// --- 只读自省 ---

	// List 返回全部注册条目的副本，无副作用
	List() []*ServiceInstance

	// Stats 返回注册表统计信息，无副作用
	Stats() Stats

	// --- 资源管理 ---

	// Close 停止后台探活任务并写出最后一次快照，幂等
	Close() error
}
