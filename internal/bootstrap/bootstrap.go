// Package bootstrap 提供各服务进程共用的启动脚手架。
//
// 每个 cmd 下的进程都经历同一套启动流程：加载配置、构建日志器、
// 启动 HTTP 服务并优雅停机；下游服务额外向网关自注册并维持心跳。
// bootstrap 把这些样板收拢到一处，main 函数只剩装配。
package bootstrap

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ceyewan/cartmesh/clog"
	"github.com/ceyewan/cartmesh/config"
	"github.com/ceyewan/cartmesh/xerrors"
)

// Setup 加载配置并构建服务日志器
//
// 配置来源：工作目录下的 config 文件（可选）加 CARTMESH_ 前缀的
// 环境变量；日志键：log.level、log.format、log.output。
func Setup(service string) (clog.Logger, config.Loader, error) {
	loader, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	logger, err := clog.New(&clog.Config{
		Level:  loader.GetString("log.level", "info"),
		Format: loader.GetString("log.format", "json"),
		Output: loader.GetString("log.output", "stdout"),
	}, clog.WithNamespace(service))
	if err != nil {
		return nil, nil, err
	}

	return logger, loader, nil
}

// SignalContext 返回在 SIGINT/SIGTERM 时取消的根上下文
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// RunServer 启动 HTTP 服务并在上下文取消时优雅停机
//
// 阻塞到服务退出。停机给在途请求留 10s 的排空窗口。
func RunServer(ctx context.Context, addr string, handler http.Handler, logger clog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", clog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !xerrors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
