package config

// Option 组件初始化选项函数
type Option func(*options)

type options struct {
	name      string
	fileType  string
	paths     []string
	envPrefix string
}

func defaultOptions() *options {
	return &options{
		name:      "config",
		fileType:  "yaml",
		paths:     []string{"."},
		envPrefix: "CARTMESH",
	}
}

// WithConfigName 设置配置文件名（不含扩展名），默认 "config"
func WithConfigName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithConfigPaths 设置配置文件搜索路径，默认当前目录
func WithConfigPaths(paths ...string) Option {
	return func(o *options) {
		if len(paths) > 0 {
			o.paths = paths
		}
	}
}

// WithEnvPrefix 设置环境变量前缀，默认 "CARTMESH"
//
// 例如前缀为 CARTMESH 时，key "broker.url" 对应环境变量 CARTMESH_BROKER_URL。
func WithEnvPrefix(prefix string) Option {
	return func(o *options) {
		if prefix != "" {
			o.envPrefix = prefix
		}
	}
}

// WithFileType 设置配置文件类型，默认 "yaml"
func WithFileType(t string) Option {
	return func(o *options) {
		if t != "" {
			o.fileType = t
		}
	}
}
