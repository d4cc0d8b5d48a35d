package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// TestRegistrarLifecycle 测试注册、心跳、注销全流程
func TestRegistrarLifecycle(t *testing.T) {
	var registers, heartbeats, deregisters atomic.Int64

	gw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/registry":
			registers.Add(1)
			w.WriteHeader(http.StatusCreated)
		case r.Method == http.MethodPut && r.URL.Path == "/registry/item-service/heartbeat":
			heartbeats.Add(1)
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodDelete && r.URL.Path == "/registry/item-service":
			deregisters.Add(1)
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer gw.Close()

	r := NewRegistrar(RegistrarConfig{
		GatewayURL:        gw.URL,
		Name:              "item-service",
		ServiceURL:        "http://127.0.0.1:9002",
		Version:           "1.0.0",
		HeartbeatInterval: 20 * time.Millisecond,
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)

	time.Sleep(120 * time.Millisecond)
	r.Stop()

	if registers.Load() != 1 {
		t.Fatalf("expected exactly one registration, got %d", registers.Load())
	}
	if heartbeats.Load() == 0 {
		t.Fatal("heartbeats must be sent on the interval")
	}
	if deregisters.Load() != 1 {
		t.Fatalf("stop must deregister once, got %d", deregisters.Load())
	}
}

// TestRegistrarRetriesRegistration 测试网关不可达时注册重试
func TestRegistrarRetriesRegistration(t *testing.T) {
	var registers atomic.Int64

	// 前两次注册失败，第三次成功
	gw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/registry" {
			if registers.Add(1) < 3 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusCreated)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer gw.Close()

	r := NewRegistrar(RegistrarConfig{
		GatewayURL:        gw.URL,
		Name:              "item-service",
		ServiceURL:        "http://127.0.0.1:9002",
		HeartbeatInterval: 10 * time.Millisecond,
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)

	deadline := time.Now().Add(time.Second)
	for registers.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	r.Stop()

	if registers.Load() < 3 {
		t.Fatalf("registration must be retried until accepted, got %d attempts", registers.Load())
	}
}
