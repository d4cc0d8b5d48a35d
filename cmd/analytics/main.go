// analytics 进程：分析 worker。
//
// 绑定 list.# 消费全部清单领域事件，维护运行期统计，
// 并暴露一个小 HTTP 面板（/health、/stats、/metrics）。
package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/ceyewan/cartmesh/bus"
	"github.com/ceyewan/cartmesh/clog"
	"github.com/ceyewan/cartmesh/config"
	"github.com/ceyewan/cartmesh/internal/analytics"
	"github.com/ceyewan/cartmesh/internal/bootstrap"
	"github.com/ceyewan/cartmesh/metrics"
)

func main() {
	logger, cfg, err := bootstrap.Setup("analytics")
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

	b, err := bus.New(&bus.Config{
		Driver: bus.Driver(cfg.GetString("bus.driver", "nats")),
		URL:    brokerURL,
	}, bus.WithLogger(logger))
	if err != nil {
		logger.Fatal("failed to create bus", clog.Error(err))
	}
	defer b.Close()

	w := analytics.New(analytics.WithLogger(logger), analytics.WithMeter(meter))
	if _, err := w.Run(ctx, b); err != nil {
		logger.Fatal("failed to subscribe", clog.Error(err))
	}

	logger.Info("analytics worker started",
		clog.String("queue", analytics.QueueName),
		clog.String("pattern", bus.PatternListAll))

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "analytics"})
	})
	engine.GET("/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true, "data": w.Stats()})
	})
	engine.GET("/metrics", gin.WrapH(meter.Handler()))

	port := cfg.GetInt("analytics.port", 9101)
	if err := bootstrap.RunServer(ctx, fmt.Sprintf(":%d", port), engine, logger); err != nil {
		logger.Error("server exited with error", clog.Error(err))
		os.Exit(1)
	}
}
