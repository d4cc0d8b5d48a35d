package metrics

import "net/http"

// noopMeter 空实现（内部使用）
type noopMeter struct{}

// Discard 创建一个空操作的 Meter 实例
func Discard() Meter {
	return &noopMeter{}
}

func (m *noopMeter) Counter(name, help string, labels ...string) (Counter, error) {
	return noopCounter{}, nil
}

func (m *noopMeter) Gauge(name, help string, labels ...string) (Gauge, error) {
	return noopGauge{}, nil
}

func (m *noopMeter) Histogram(name, help string, buckets []float64, labels ...string) (Histogram, error) {
	return noopHistogram{}, nil
}

func (m *noopMeter) Handler() http.Handler {
	return http.NotFoundHandler()
}

type noopCounter struct{}

func (noopCounter) Inc(labelValues ...string)            {}
func (noopCounter) Add(v float64, labelValues ...string) {}

type noopGauge struct{}

func (noopGauge) Set(v float64, labelValues ...string) {}

type noopHistogram struct{}

func (noopHistogram) Observe(v float64, labelValues ...string) {}
