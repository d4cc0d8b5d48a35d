// Package metrics 提供基于 Prometheus 的指标收集组件。
//
// 设计原则：
//   - 抽象接口，不向业务代码暴露 prometheus 类型
//   - 指标按名称幂等创建，重复获取返回同一实例
//   - Discard 实现允许在测试和未启用监控时零成本禁用
//
// 基本使用：
//
//	meter, _ := metrics.New(&metrics.Config{Enabled: true, Namespace: "cartmesh"})
//	requests, _ := meter.Counter("gateway_requests_total", "Total gateway requests", "service")
//	requests.Inc("item-service")
//
//	// 暴露 /metrics
//	r.GET("/metrics", gin.WrapH(meter.Handler()))
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ceyewan/cartmesh/xerrors"
)

// Meter 指标收集器接口
type Meter interface {
	// Counter 创建或获取累加器，labels 为标签名列表
	Counter(name, help string, labels ...string) (Counter, error)

	// Gauge 创建或获取瞬时值指标
	Gauge(name, help string, labels ...string) (Gauge, error)

	// Histogram 创建或获取直方图，buckets 为 nil 时使用默认分桶
	Histogram(name, help string, buckets []float64, labels ...string) (Histogram, error)

	// Handler 返回 Prometheus 抓取端点的 HTTP Handler
	Handler() http.Handler
}

// Counter 累加器
type Counter interface {
	Inc(labelValues ...string)
	Add(v float64, labelValues ...string)
}

// Gauge 瞬时值指标
type Gauge interface {
	Set(v float64, labelValues ...string)
}

// Histogram 直方图
type Histogram interface {
	Observe(v float64, labelValues ...string)
}

// Config 指标组件配置
type Config struct {
	// Enabled 是否启用指标收集，关闭时 New 返回空实现
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// Namespace 指标名称前缀（Prometheus namespace）
	Namespace string `json:"namespace" yaml:"namespace" mapstructure:"namespace"`
}

// New 创建 Meter 实例
func New(cfg *Config) (Meter, error) {
	if cfg == nil {
		return nil, xerrors.New("metrics: config is nil")
	}
	if !cfg.Enabled {
		return Discard(), nil
	}

	return &promMeter{
		namespace:  cfg.Namespace,
		registry:   prometheus.NewRegistry(),
		counters:   make(map[string]*counterImpl),
		gauges:     make(map[string]*gaugeImpl),
		histograms: make(map[string]*histogramImpl),
	}, nil
}

// promMeter 基于 Prometheus 的 Meter 实现（非导出）
type promMeter struct {
	namespace string
	registry  *prometheus.Registry

	mu         sync.Mutex
	counters   map[string]*counterImpl
	gauges     map[string]*gaugeImpl
	histograms map[string]*histogramImpl
}

func (m *promMeter) Counter(name, help string, labels ...string) (Counter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.counters[name]; ok {
		return c, nil
	}

	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      name,
		Help:      help,
	}, labels)
	if err := m.registry.Register(vec); err != nil {
		return nil, xerrors.Wrapf(err, "register counter %s failed", name)
	}

	c := &counterImpl{vec: vec}
	m.counters[name] = c
	return c, nil
}

func (m *promMeter) Gauge(name, help string, labels ...string) (Gauge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if g, ok := m.gauges[name]; ok {
		return g, nil
	}

	vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      name,
		Help:      help,
	}, labels)
	if err := m.registry.Register(vec); err != nil {
		return nil, xerrors.Wrapf(err, "register gauge %s failed", name)
	}

	g := &gaugeImpl{vec: vec}
	m.gauges[name] = g
	return g, nil
}

func (m *promMeter) Histogram(name, help string, buckets []float64, labels ...string) (Histogram, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if h, ok := m.histograms[name]; ok {
		return h, nil
	}

	if buckets == nil {
		buckets = prometheus.DefBuckets
	}
	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	}, labels)
	if err := m.registry.Register(vec); err != nil {
		return nil, xerrors.Wrapf(err, "register histogram %s failed", name)
	}

	h := &histogramImpl{vec: vec}
	m.histograms[name] = h
	return h, nil
}

func (m *promMeter) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

type counterImpl struct {
	vec *prometheus.CounterVec
}

func (c *counterImpl) Inc(labelValues ...string) {
	c.vec.WithLabelValues(labelValues...).Inc()
}

func (c *counterImpl) Add(v float64, labelValues ...string) {
	c.vec.WithLabelValues(labelValues...).Add(v)
}

type gaugeImpl struct {
	vec *prometheus.GaugeVec
}

func (g *gaugeImpl) Set(v float64, labelValues ...string) {
	g.vec.WithLabelValues(labelValues...).Set(v)
}

type histogramImpl struct {
	vec *prometheus.HistogramVec
}

func (h *histogramImpl) Observe(v float64, labelValues ...string) {
	h.vec.WithLabelValues(labelValues...).Observe(v)
}
