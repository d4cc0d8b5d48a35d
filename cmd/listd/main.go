// listd 进程：list-service。
//
// 购物清单服务，结算事件的发布侧。连接事件总线（惰性、带重连）、
// 向网关自注册并维持心跳。代理连接地址在日志里脱敏。
package main

import (
	"fmt"
	"os"

	"github.com/ceyewan/cartmesh/bus"
	"github.com/ceyewan/cartmesh/clog"
	"github.com/ceyewan/cartmesh/config"
	"github.com/ceyewan/cartmesh/internal/bootstrap"
	"github.com/ceyewan/cartmesh/internal/listapp"
	"github.com/ceyewan/cartmesh/metrics"
)

func main() {
	logger, cfg, err := bootstrap.Setup("list-service")
	if err != nil {
		clog.Must(nil).Fatal("bootstrap failed", clog.Error(err))
	}

	ctx, cancel := bootstrap.SignalContext()
	defer cancel()

	meter, err := metrics.New(&metrics.Config{Enabled: true, Namespace: "cartmesh"})
	if err != nil {
		logger.Fatal("failed to create meter", clog.Error(err))
	}

	brokerURL := cfg.GetString("bus.url", "nats://127.0.0.1:4222")
	logger.Info("connecting event bus", clog.String("url", config.MaskURL(brokerURL)))

	events, err := bus.New(&bus.Config{
		Driver: bus.Driver(cfg.GetString("bus.driver", "nats")),
		URL:    brokerURL,
	}, bus.WithLogger(logger))
	if err != nil {
		logger.Fatal("failed to create bus", clog.Error(err))
	}
	defer events.Close()

	userServiceURL := cfg.GetString("user.url", "http://127.0.0.1:9001")

	app, err := listapp.New(&listapp.Config{
		DataPath: cfg.GetString("list.data_path", "data/lists.json"),
	}, events,
		listapp.WithLogger(logger),
		listapp.WithMeter(meter),
		listapp.WithTokenValidator(listapp.NewHTTPTokenValidator(userServiceURL)),
	)
	if err != nil {
		logger.Fatal("failed to create app", clog.Error(err))
	}

	port := cfg.GetInt("list.port", 9003)
	serviceURL := cfg.GetString("list.url", fmt.Sprintf("http://127.0.0.1:%d", port))

	registrar := bootstrap.NewRegistrar(bootstrap.RegistrarConfig{
		GatewayURL: cfg.GetString("gateway.url", "http://127.0.0.1:8080"),
		Name:       "list-service",
		ServiceURL: serviceURL,
		Version:    "1.0.0",
		Endpoints:  app.Endpoints(),
	}, logger)
	registrar.Start(ctx)
	defer registrar.Stop()

	if err := bootstrap.RunServer(ctx, fmt.Sprintf(":%d", port), app.Handler(), logger); err != nil {
		logger.Error("server exited with error", clog.Error(err))
		os.Exit(1)
	}
}
