package config

import (
	"fmt"
	"net"
	"strings"
	"time"
)

// MetricsConfig 指标配置
type MetricsConfig struct {
	// Enabled 是否启用指标收集
	// 默认值: true
	Enabled bool `json:"enabled" mapstructure:"enabled"`
}

// DefaultMetricsConfig 返回默认的指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{Enabled: true}
}

// APIConfig 守护进程 HTTP 接口配置
type APIConfig struct {
	// Enabled 是否启动 HTTP 接口
	// 默认值: false（守护进程默认开启）
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	// ListenAddr 监听地址
	// 默认值: 127.0.0.1:8787
	ListenAddr string `json:"listen_addr" mapstructure:"listen_addr"`

	// EnableEvents 是否开放 /v1/events websocket
	// 默认值: true
	EnableEvents bool `json:"enable_events" mapstructure:"enable_events"`

	// ReadHeaderTimeout 读取请求头超时
	// 默认值: 5s
	ReadHeaderTimeout Duration `json:"read_header_timeout" mapstructure:"read_header_timeout"`

	// ShutdownTimeout 优雅关闭超时
	// 默认值: 10s
	ShutdownTimeout Duration `json:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// DefaultAPIConfig 返回默认的接口配置
func DefaultAPIConfig() APIConfig {
	return APIConfig{
		ListenAddr:        "127.0.0.1:8787",
		EnableEvents:      true,
		ReadHeaderTimeout: Duration(5 * time.Second),
		ShutdownTimeout:   Duration(10 * time.Second),
	}
}

// Validate 验证接口配置
func (c *APIConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.ListenAddr); err != nil {
		return fmt.Errorf("api: invalid listen_addr %q: %w", c.ListenAddr, err)
	}
	if c.ReadHeaderTimeout <= 0 {
		return fmt.Errorf("api: read_header_timeout must be > 0")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("api: shutdown_timeout must be > 0")
	}
	return nil
}

// LogConfig 日志配置
type LogConfig struct {
	// Level 日志级别: debug, info, warn, error
	// 默认值: info
	Level string `json:"level" mapstructure:"level"`

	// Format 输出格式: text, json
	// 默认值: text
	Format string `json:"format" mapstructure:"format"`
}

// DefaultLogConfig 返回默认的日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{Level: "info", Format: "text"}
}

// Validate 验证日志配置
func (c *LogConfig) Validate() error {
	switch strings.ToLower(c.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log: unknown level %q", c.Level)
	}
	switch strings.ToLower(c.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log: unknown format %q", c.Format)
	}
	return nil
}
