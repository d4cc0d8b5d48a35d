// gateway 进程：服务网格入口。
//
// 持有注册表与熔断器，承载代理、聚合和注册表管理面。
package main

import (
	"os"
	"time"

	"github.com/ceyewan/cartmesh/breaker"
	"github.com/ceyewan/cartmesh/clog"
	"github.com/ceyewan/cartmesh/gateway"
	"github.com/ceyewan/cartmesh/internal/bootstrap"
	"github.com/ceyewan/cartmesh/metrics"
	"github.com/ceyewan/cartmesh/registry"
)

func main() {
	logger, cfg, err := bootstrap.Setup("gateway")
	if err != nil {
		clog.Must(nil).Fatal("bootstrap failed", clog.Error(err))
	}

	ctx, cancel := bootstrap.SignalContext()
	defer cancel()

	reg, err := registry.New(&registry.Config{
		ProbeInterval: time.Duration(cfg.GetInt("registry.probe_interval_seconds", 10)) * time.Second,
		SnapshotPath:  cfg.GetString("registry.snapshot_path", "data/registry.json"),
	}, registry.WithLogger(logger))
	if err != nil {
		logger.Fatal("failed to create registry", clog.Error(err))
	}
	defer reg.Close()

	brk, err := breaker.New(&breaker.Config{
		FailureThreshold: uint32(cfg.GetInt("breaker.failure_threshold", 3)),
		Cooldown:         time.Duration(cfg.GetInt("breaker.cooldown_seconds", 30)) * time.Second,
		MaxTrialRequests: uint32(cfg.GetInt("breaker.max_trial_requests", 1)),
	}, breaker.WithLogger(logger))
	if err != nil {
		logger.Fatal("failed to create breaker", clog.Error(err))
	}

	meter, err := metrics.New(&metrics.Config{
		Enabled:   cfg.GetString("metrics.enabled", "true") == "true",
		Namespace: "cartmesh",
	})
	if err != nil {
		logger.Fatal("failed to create meter", clog.Error(err))
	}

	listenAddr := cfg.GetString("gateway.listen_addr", ":8080")
	gw, err := gateway.New(&gateway.Config{
		ListenAddr:   listenAddr,
		ProxyTimeout: time.Duration(cfg.GetInt("gateway.proxy_timeout_seconds", 5)) * time.Second,
	}, reg, brk,
		gateway.WithLogger(logger),
		gateway.WithMeter(meter),
	)
	if err != nil {
		logger.Fatal("failed to create gateway", clog.Error(err))
	}
	defer gw.Close()

	if err := bootstrap.RunServer(ctx, listenAddr, gw.Handler(), logger); err != nil {
		logger.Error("server exited with error", clog.Error(err))
		os.Exit(1)
	}
}
