// Package log 提供统一日志接口
//
// 基于 Go 标准库 log/slog 封装。组件通过 Logger("core/xxx") 获取
// 懒加载 logger，每次调用时读取当前默认 handler，因此守护进程可以在
// 启动后再切换输出目标和级别。
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// 日志级别常量（从 slog 导出，方便使用）
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// current 当前默认 logger
var current atomic.Pointer[slog.Logger]

func init() {
	SetOutputWithLevel(os.Stderr, slog.LevelInfo)
}

// Default 返回当前默认 logger
func Default() *slog.Logger {
	return current.Load()
}

// SetDefault 设置默认 logger
func SetDefault(l *slog.Logger) {
	if l == nil {
		return
	}
	current.Store(l)
	slog.SetDefault(l)
}

// SetOutputWithLevel 设置日志输出目标和级别（文本格式）
func SetOutputWithLevel(w io.Writer, level slog.Level) {
	SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// SetJSONOutputWithLevel 设置日志输出目标和级别（JSON 格式）
func SetJSONOutputWithLevel(w io.Writer, level slog.Level) {
	SetDefault(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})))
}

// Discard 丢弃所有日志，测试中使用
func Discard() {
	SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// ParseLevel 解析级别字符串（debug/info/warn/error），无法识别时返回 info
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// ============================================================================
//                              LazyLogger
// ============================================================================

// LazyLogger 懒加载 logger
//
//	var logger = log.Logger("core/reachability")
//	logger.Info("观察者已创建", "host", host)
type LazyLogger struct {
	component string
}

// Logger 返回带组件名的 LazyLogger
func Logger(component string) *LazyLogger {
	return &LazyLogger{component: component}
}

func (l *LazyLogger) base() *slog.Logger {
	return Default().With("component", l.component)
}

// Debug 输出 Debug 级别日志
func (l *LazyLogger) Debug(msg string, args ...any) {
	l.base().Debug(msg, args...)
}

// Info 输出 Info 级别日志
func (l *LazyLogger) Info(msg string, args ...any) {
	l.base().Info(msg, args...)
}

// Warn 输出 Warn 级别日志
func (l *LazyLogger) Warn(msg string, args ...any) {
	l.base().Warn(msg, args...)
}

// Error 输出 Error 级别日志
func (l *LazyLogger) Error(msg string, args ...any) {
	l.base().Error(msg, args...)
}

// With 添加额外的属性
func (l *LazyLogger) With(args ...any) *slog.Logger {
	return l.base().With(args...)
}

// Component 返回组件名
func (l *LazyLogger) Component() string {
	return l.component
}
