// Package config 为 cartmesh 提供统一的配置管理能力。
// 基于 Viper 实现，支持 YAML 文件、环境变量和 .env 文件。
//
// 配置优先级：环境变量 > .env 文件 > 配置文件 > 默认值。
// 每个服务通过环境变量获取监听端口、网关地址和消息代理连接串，
// 代理连接串中的凭证在写入日志前必须先用 MaskURL 脱敏。
//
// 基本使用：
//
//	loader := config.MustLoad(
//		config.WithConfigName("gateway"),
//		config.WithConfigPaths("./config"),
//		config.WithEnvPrefix("CARTMESH"),
//	)
//
//	var cfg GatewayConfig
//	if err := loader.Unmarshal(&cfg); err != nil {
//		panic(err)
//	}
package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/ceyewan/cartmesh/xerrors"
)

// Loader 定义配置加载器的核心行为
type Loader interface {
	// Get 获取原始配置值
	Get(key string) any

	// GetString 获取字符串配置值，缺失时返回默认值
	GetString(key, def string) string

	// GetInt 获取整数配置值，缺失时返回默认值
	GetInt(key string, def int) int

	// Unmarshal 将整个配置反序列化到结构体
	Unmarshal(v any) error

	// UnmarshalKey 将指定 Key 的配置反序列化到结构体
	UnmarshalKey(key string, v any) error
}

// loader 实现 Loader 接口（非导出）
type loader struct {
	v    *viper.Viper
	opts *options
}

// Load 创建并加载配置
//
// 加载顺序：.env 文件（若存在）→ 配置文件（若存在）→ 环境变量自动绑定。
// 配置文件缺失不是错误，环境变量单独即可驱动全部配置。
func Load(opts ...Option) (Loader, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	// .env 文件是开发环境便利设施，缺失时静默跳过
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName(o.name)
	v.SetConfigType(o.fileType)
	for _, path := range o.paths {
		v.AddConfigPath(path)
	}

	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, xerrors.Wrapf(err, "failed to read config file %s", o.name)
		}
	}

	return &loader{v: v, opts: o}, nil
}

// MustLoad 类似 Load，但出错时 panic，仅用于初始化阶段
func MustLoad(opts ...Option) Loader {
	l, err := Load(opts...)
	if err != nil {
		panic(err)
	}
	return l
}

func (l *loader) Get(key string) any {
	return l.v.Get(key)
}

func (l *loader) GetString(key, def string) string {
	if v := l.v.GetString(key); v != "" {
		return v
	}
	return def
}

func (l *loader) GetInt(key string, def int) int {
	if l.v.IsSet(key) {
		if v := l.v.GetInt(key); v != 0 {
			return v
		}
	}
	return def
}

func (l *loader) Unmarshal(v any) error {
	if err := l.v.Unmarshal(v); err != nil {
		return xerrors.Wrap(err, "unmarshal config failed")
	}
	return nil
}

func (l *loader) UnmarshalKey(key string, v any) error {
	if err := l.v.UnmarshalKey(key, v); err != nil {
		return xerrors.Wrapf(err, "unmarshal config key %s failed", key)
	}
	return nil
}
