package gateway

import "time"

// Config 网关配置
type Config struct {
	// ListenAddr 监听地址，默认 :8080
	ListenAddr string `mapstructure:"listen_addr"`

	// ProxyTimeout 单次下游调用的超时时间，默认 5s
	// 超时视为传输失败，计入熔断器
	ProxyTimeout time.Duration `mapstructure:"proxy_timeout"`

	// AuthService 负责令牌校验的下游服务名，默认 user-service
	AuthService string `mapstructure:"auth_service"`

	// RateLimitRPS 单客户端 IP 的每秒请求数上限，默认 50
	RateLimitRPS float64 `mapstructure:"rate_limit_rps"`

	// RateLimitBurst 单客户端 IP 的突发额度，默认 100
	RateLimitBurst int `mapstructure:"rate_limit_burst"`

	// DashboardItemLimit 仪表盘聚合的商品条数上限，默认 10
	DashboardItemLimit int `mapstructure:"dashboard_item_limit"`
}

// setDefaults 设置默认值
func (c *Config) setDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	if c.ProxyTimeout <= 0 {
		c.ProxyTimeout = 5 * time.Second
	}
	if c.AuthService == "" {
		c.AuthService = "user-service"
	}
	if c.RateLimitRPS <= 0 {
		c.RateLimitRPS = 50
	}
	if c.RateLimitBurst <= 0 {
		c.RateLimitBurst = 100
	}
	if c.DashboardItemLimit <= 0 {
		c.DashboardItemLimit = 10
	}
}
