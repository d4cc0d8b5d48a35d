package registry

import "time"

// Config Registry 组件配置
type Config struct {
	// ProbeInterval 后台探活周期，默认 10s
	ProbeInterval time.Duration `yaml:"probe_interval" json:"probe_interval" mapstructure:"probe_interval"`

	// ProbeTimeout 单次探活请求超时，超时视为探活失败，默认 2s
	ProbeTimeout time.Duration `yaml:"probe_timeout" json:"probe_timeout" mapstructure:"probe_timeout"`

	// SnapshotPath 快照文件路径，为空时不持久化。
	// 快照只是尽力而为的落盘，进程运行期间内存状态才是权威数据源。
	SnapshotPath string `yaml:"snapshot_path" json:"snapshot_path" mapstructure:"snapshot_path"`
}

// setDefaults 设置默认值
func (c *Config) setDefaults() {
	if c.ProbeInterval == 0 {
		c.ProbeInterval = 10 * time.Second
	}
	if c.ProbeTimeout == 0 {
		c.ProbeTimeout = 2 * time.Second
	}
}
