// notifier 进程：通知 worker。
//
// 独立于网关运行，绑定 list.checkout.# 消费结算事件。
// 连接失败由总线客户端按固定间隔重试，进程不退出。
package main

import (
	"github.com/ceyewan/cartmesh/bus"
	"github.com/ceyewan/cartmesh/clog"
	"github.com/ceyewan/cartmesh/config"
	"github.com/ceyewan/cartmesh/internal/bootstrap"
	"github.com/ceyewan/cartmesh/internal/notifier"
)

func main() {
	logger, cfg, err := bootstrap.Setup("notifier")
	if err != nil {
		clog.Must(nil).Fatal("bootstrap failed", clog.Error(err))
	}

	ctx, cancel := bootstrap.SignalContext()
	defer cancel()

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

	w := notifier.New(notifier.WithLogger(logger))
	sub, err := w.Run(ctx, b)
	if err != nil {
		logger.Fatal("failed to subscribe", clog.Error(err))
	}

	logger.Info("notification worker started",
		clog.String("queue", notifier.QueueName),
		clog.String("pattern", bus.PatternCheckoutAll))

	select {
	case <-ctx.Done():
	case <-sub.Done():
	}
	logger.Info("notification worker stopped")
}
