// itemd 进程：item-service。
//
// 商品目录服务，启动后向网关自注册并维持心跳。
package main

import (
	"fmt"
	"os"

	"github.com/ceyewan/cartmesh/clog"
	"github.com/ceyewan/cartmesh/internal/bootstrap"
	"github.com/ceyewan/cartmesh/internal/itemapp"
	"github.com/ceyewan/cartmesh/metrics"
)

func main() {
	logger, cfg, err := bootstrap.Setup("item-service")
	if err != nil {
		clog.Must(nil).Fatal("bootstrap failed", clog.Error(err))
	}

	ctx, cancel := bootstrap.SignalContext()
	defer cancel()

	meter, err := metrics.New(&metrics.Config{Enabled: true, Namespace: "cartmesh"})
	if err != nil {
		logger.Fatal("failed to create meter", clog.Error(err))
	}

	app, err := itemapp.New(&itemapp.Config{
		DataPath: cfg.GetString("item.data_path", "data/items.json"),
	}, itemapp.WithLogger(logger), itemapp.WithMeter(meter))
	if err != nil {
		logger.Fatal("failed to create app", clog.Error(err))
	}

	port := cfg.GetInt("item.port", 9002)
	serviceURL := cfg.GetString("item.url", fmt.Sprintf("http://127.0.0.1:%d", port))

	registrar := bootstrap.NewRegistrar(bootstrap.RegistrarConfig{
		GatewayURL: cfg.GetString("gateway.url", "http://127.0.0.1:8080"),
		Name:       "item-service",
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
