// userd 进程：user-service。
//
// 账号与令牌校验服务，启动后向网关自注册并维持心跳。
package main

import (
	"fmt"
	"os"

	"github.com/ceyewan/cartmesh/clog"
	"github.com/ceyewan/cartmesh/internal/bootstrap"
	"github.com/ceyewan/cartmesh/internal/userapp"
	"github.com/ceyewan/cartmesh/metrics"
)

func main() {
	logger, cfg, err := bootstrap.Setup("user-service")
	if err != nil {
		clog.Must(nil).Fatal("bootstrap failed", clog.Error(err))
	}

	ctx, cancel := bootstrap.SignalContext()
	defer cancel()

	meter, err := metrics.New(&metrics.Config{Enabled: true, Namespace: "cartmesh"})
	if err != nil {
		logger.Fatal("failed to create meter", clog.Error(err))
	}

	app, err := userapp.New(&userapp.Config{
		DataPath:   cfg.GetString("user.data_path", "data/users.json"),
		AuthSecret: cfg.GetString("user.auth_secret", "dev-secret"),
	}, userapp.WithLogger(logger), userapp.WithMeter(meter))
	if err != nil {
		logger.Fatal("failed to create app", clog.Error(err))
	}

	port := cfg.GetInt("user.port", 9001)
	serviceURL := cfg.GetString("user.url", fmt.Sprintf("http://127.0.0.1:%d", port))

	registrar := bootstrap.NewRegistrar(bootstrap.RegistrarConfig{
		GatewayURL: cfg.GetString("gateway.url", "http://127.0.0.1:8080"),
		Name:       "user-service",
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
