package registry

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ceyewan/cartmesh/xerrors"
)

// TestProbeMarksUnhealthy 测试探活失败标记为不健康
func TestProbeMarksUnhealthy(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if healthy.Load() {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	reg := newTestRegistry(t, &Config{ProbeInterval: time.Hour, ProbeTimeout: time.Second})
	_ = reg.Register(&ServiceInstance{Name: "item-service", URL: srv.URL})

	impl := reg.(*memoryRegistry)

	// 第一轮：下游健康
	impl.probeAll()
	if _, err := reg.Discover("item-service"); err != nil {
		t.Fatalf("healthy service should be discoverable, got: %v", err)
	}

	// 下游转为不健康
	healthy.Store(false)
	impl.probeAll()
	if _, err := reg.Discover("item-service"); !xerrors.Is(err, ErrServiceUnhealthy) {
		t.Fatalf("expected ErrServiceUnhealthy after failed probe, got: %v", err)
	}

	// 下游恢复：条目未被删除，下一轮探活即可恢复
	healthy.Store(true)
	impl.probeAll()
	if _, err := reg.Discover("item-service"); err != nil {
		t.Fatalf("recovered service should be discoverable, got: %v", err)
	}
}

// TestProbeUnreachable 测试探活目标不可达
func TestProbeUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	url := srv.URL
	srv.Close() // 立即关闭，端口不可达

	reg := newTestRegistry(t, &Config{ProbeInterval: time.Hour, ProbeTimeout: 500 * time.Millisecond})
	_ = reg.Register(&ServiceInstance{Name: "dead-service", URL: url})

	reg.(*memoryRegistry).probeAll()

	if _, err := reg.Discover("dead-service"); !xerrors.Is(err, ErrServiceUnhealthy) {
		t.Fatalf("unreachable service should be unhealthy, got: %v", err)
	}
	// 条目保留，等待恢复
	if len(reg.List()) != 1 {
		t.Fatal("unreachable entry must not be deleted")
	}
}

// TestProbeLoopRuns 测试后台探活循环按周期工作
func TestProbeLoopRuns(t *testing.T) {
	var probes atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		probes.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	reg := newTestRegistry(t, &Config{ProbeInterval: 20 * time.Millisecond, ProbeTimeout: time.Second})
	_ = reg.Register(&ServiceInstance{Name: "item-service", URL: srv.URL})

	deadline := time.After(2 * time.Second)
	for probes.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("probe loop did not run within deadline")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
