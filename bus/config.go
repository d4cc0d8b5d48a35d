package bus

import "time"

// Driver 总线后端类型
type Driver string

const (
	// DriverNATS NATS JetStream 后端（生产环境）
	DriverNATS Driver = "nats"

	// DriverMemory 进程内内存后端（测试与本地开发）
	DriverMemory Driver = "memory"
)

// Config 总线配置
type Config struct {
	// Driver 后端类型，默认 nats
	Driver Driver `mapstructure:"driver"`

	// URL NATS 服务器地址，默认 nats://127.0.0.1:4222
	URL string `mapstructure:"url"`

	// Stream JetStream 流名称，扮演主题交换机的角色，默认 cartmesh-events
	Stream string `mapstructure:"stream"`

	// Subjects 流捕获的路由键模式，默认 ["list.>"]
	Subjects []string `mapstructure:"subjects"`

	// ReconnectWait 连接失败后的固定重试间隔，默认 3s
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`

	// PublishTimeout 单次发布的超时时间，默认 2s
	PublishTimeout time.Duration `mapstructure:"publish_timeout"`
}

// setDefaults 设置默认值
func (c *Config) setDefaults() {
	if c.Driver == "" {
		c.Driver = DriverNATS
	}
	if c.URL == "" {
		c.URL = "nats://127.0.0.1:4222"
	}
	if c.Stream == "" {
		c.Stream = "cartmesh-events"
	}
	if len(c.Subjects) == 0 {
		c.Subjects = []string{"list.>"}
	}
	if c.ReconnectWait <= 0 {
		c.ReconnectWait = 3 * time.Second
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = 2 * time.Second
	}
}

// validate 验证配置合法性
func (c *Config) validate() error {
	switch c.Driver {
	case DriverNATS, DriverMemory:
		return nil
	default:
		return ErrUnsupportedDriver
	}
}
