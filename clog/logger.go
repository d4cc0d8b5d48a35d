// Package clog 为 cartmesh 提供基于 slog 的结构化日志组件。
//
// 特性：
//   - 抽象接口，不暴露底层实现（slog）
//   - 支持层级命名空间，适配多服务架构
//   - 零外部依赖（仅依赖 Go 标准库）
//
// 基本使用：
//
//	logger, _ := clog.New(&clog.Config{
//	    Level:  "info",
//	    Format: "console",
//	    Output: "stdout",
//	})
//	logger.Info("gateway started", clog.String("addr", ":8080"))
//
// 创建子 Logger：
//
//	proxyLogger := logger.WithNamespace("gateway", "proxy")
//	reqLogger := logger.With(clog.String("service", "item-service"))
package clog

import "context"

// Logger 日志接口，提供结构化日志记录功能
//
// 支持五个日志级别：Debug、Info、Warn、Error、Fatal。
// Fatal 在记录日志后结束进程。
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)

	// DebugContext 等带 Context 的变体，便于未来接入链路追踪字段提取
	DebugContext(ctx context.Context, msg string, fields ...Field)
	InfoContext(ctx context.Context, msg string, fields ...Field)
	WarnContext(ctx context.Context, msg string, fields ...Field)
	ErrorContext(ctx context.Context, msg string, fields ...Field)

	// With 创建一个带有预设字段的子 Logger，预设字段出现在所有日志中
	With(fields ...Field) Logger

	// WithNamespace 创建一个扩展命名空间的子 Logger
	//
	// 命名空间追加到现有命名空间后面，以 "." 连接：
	//
	//	logger := base.WithNamespace("gateway")
	//	proxy := logger.WithNamespace("proxy") // 命名空间为 "gateway.proxy"
	WithNamespace(parts ...string) Logger
}
