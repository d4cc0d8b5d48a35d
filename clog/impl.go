package clog

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// slogLogger 基于 slog 的 Logger 实现（非导出）
type slogLogger struct {
	l         *slog.Logger
	namespace string
}

// newLogger 创建 Logger 实例（内部函数）
func newLogger(cfg *Config, opt *options) (Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var w io.Writer
	switch cfg.Output {
	case "stdout", "":
		w = os.Stdout
	case "stderr":
		w = os.Stderr
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, err
		}
		w = f
	}

	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "json" {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}

	logger := &slogLogger{l: slog.New(handler)}
	if len(opt.namespace) > 0 {
		return logger.WithNamespace(opt.namespace...), nil
	}
	return logger, nil
}

func (s *slogLogger) log(level slog.Level, msg string, fields []Field) {
	if s.namespace != "" {
		fields = append([]Field{slog.String("ns", s.namespace)}, fields...)
	}
	s.l.LogAttrs(context.Background(), level, msg, fields...)
}

func (s *slogLogger) Debug(msg string, fields ...Field) { s.log(slog.LevelDebug, msg, fields) }
func (s *slogLogger) Info(msg string, fields ...Field)  { s.log(slog.LevelInfo, msg, fields) }
func (s *slogLogger) Warn(msg string, fields ...Field)  { s.log(slog.LevelWarn, msg, fields) }
func (s *slogLogger) Error(msg string, fields ...Field) { s.log(slog.LevelError, msg, fields) }

// Fatal 记录日志后结束进程
func (s *slogLogger) Fatal(msg string, fields ...Field) {
	s.log(slog.LevelError, msg, fields)
	os.Exit(1)
}

func (s *slogLogger) DebugContext(ctx context.Context, msg string, fields ...Field) {
	s.logCtx(ctx, slog.LevelDebug, msg, fields)
}

func (s *slogLogger) InfoContext(ctx context.Context, msg string, fields ...Field) {
	s.logCtx(ctx, slog.LevelInfo, msg, fields)
}

func (s *slogLogger) WarnContext(ctx context.Context, msg string, fields ...Field) {
	s.logCtx(ctx, slog.LevelWarn, msg, fields)
}

func (s *slogLogger) ErrorContext(ctx context.Context, msg string, fields ...Field) {
	s.logCtx(ctx, slog.LevelError, msg, fields)
}

func (s *slogLogger) logCtx(ctx context.Context, level slog.Level, msg string, fields []Field) {
	if s.namespace != "" {
		fields = append([]Field{slog.String("ns", s.namespace)}, fields...)
	}
	s.l.LogAttrs(ctx, level, msg, fields...)
}

func (s *slogLogger) With(fields ...Field) Logger {
	args := make([]any, 0, len(fields))
	for _, f := range fields {
		args = append(args, f)
	}
	return &slogLogger{l: s.l.With(args...), namespace: s.namespace}
}

func (s *slogLogger) WithNamespace(parts ...string) Logger {
	ns := s.namespace
	for _, p := range parts {
		if p == "" {
			continue
		}
		if ns == "" {
			ns = p
		} else {
			ns = ns + "." + p
		}
	}
	return &slogLogger{l: s.l, namespace: ns}
}
