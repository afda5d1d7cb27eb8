// Package netmon 提供系统网络变化监听
package netmon

import (
	"context"
	"time"

	"github.com/dep2p/go-reachability/pkg/lib/log"
)

var logger = log.Logger("core/netmon")

// ============================================================================
//                              SystemWatcher 接口
// ============================================================================

// SystemWatcher 系统网络变化监听器
//
// Linux 上基于 netlink 路由套接字，其余平台回退到轮询 net.Interfaces()。
type SystemWatcher interface {
	// Start 启动监听
	Start(ctx context.Context) error

	// Stop 停止监听，返回后不再写入事件通道
	Stop() error

	// Events 返回事件通道
	Events() <-chan NetworkEvent

	// IsRunning 是否正在运行
	IsRunning() bool
}

// ============================================================================
//                              网络事件
// ============================================================================

// NetworkEvent 网络变化事件
type NetworkEvent struct {
	// Type 事件类型
	Type NetworkEventType

	// Interface 接口名称（如 "wlan0"），无法确定时为空
	Interface string

	// Address 相关地址（可选）
	Address string

	// Timestamp 事件时间
	Timestamp time.Time
}

// NetworkEventType 网络事件类型
type NetworkEventType int

const (
	// EventNetworkChanged 通用网络变化（无法确定具体类型，或外部通知）
	EventNetworkChanged NetworkEventType = iota
	// EventInterfaceUp 接口启用
	EventInterfaceUp
	// EventInterfaceDown 接口禁用
	EventInterfaceDown
	// EventAddressAdded 地址添加
	EventAddressAdded
	// EventAddressRemoved 地址移除
	EventAddressRemoved
	// EventRouteChanged 路由变化
	EventRouteChanged
)

// String 返回事件类型字符串
func (t NetworkEventType) String() string {
	switch t {
	case EventNetworkChanged:
		return "network_changed"
	case EventInterfaceUp:
		return "interface_up"
	case EventInterfaceDown:
		return "interface_down"
	case EventAddressAdded:
		return "address_added"
	case EventAddressRemoved:
		return "address_removed"
	case EventRouteChanged:
		return "route_changed"
	default:
		return "unknown"
	}
}

// ============================================================================
//                              NoOpWatcher
// ============================================================================

// NoOpWatcher 空操作监听器，禁用监听时使用
type NoOpWatcher struct {
	events chan NetworkEvent
}

// NewNoOpWatcher 创建空操作监听器
func NewNoOpWatcher() *NoOpWatcher {
	return &NoOpWatcher{events: make(chan NetworkEvent)}
}

// Start 空操作
func (w *NoOpWatcher) Start(_ context.Context) error { return nil }

// Stop 空操作
func (w *NoOpWatcher) Stop() error { return nil }

// Events 永远不会有事件
func (w *NoOpWatcher) Events() <-chan NetworkEvent { return w.events }

// IsRunning 始终为 false
func (w *NoOpWatcher) IsRunning() bool { return false }

// ============================================================================
//                              WatcherConfig
// ============================================================================

// WatcherConfig 监听器配置
type WatcherConfig struct {
	// Enabled 是否启用系统监听
	// 默认: true
	Enabled bool

	// PreferNative 是否优先使用平台原生实现（Linux netlink）
	// 默认: true
	PreferNative bool

	// PollInterval 轮询间隔
	// 默认: 5s
	PollInterval time.Duration

	// EventBufferSize 事件缓冲区大小
	// 默认: 16
	EventBufferSize int
}

// DefaultWatcherConfig 返回默认配置
func DefaultWatcherConfig() *WatcherConfig {
	return &WatcherConfig{
		Enabled:         true,
		PreferNative:    true,
		PollInterval:    5 * time.Second,
		EventBufferSize: 16,
	}
}

// Validate 修正无效值，始终返回 nil
func (c *WatcherConfig) Validate() error {
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.EventBufferSize <= 0 {
		c.EventBufferSize = 16
	}
	return nil
}

// ============================================================================
//                              工厂函数
// ============================================================================

// NewSystemWatcher 根据配置和平台选择监听器实现
//
// 优先使用平台原生（事件驱动）实现，否则回退到轮询。
func NewSystemWatcher(config *WatcherConfig) SystemWatcher {
	if config == nil {
		config = DefaultWatcherConfig()
	}
	_ = config.Validate()

	if !config.Enabled {
		return NewNoOpWatcher()
	}

	if config.PreferNative {
		if native := newNativeSystemWatcher(config); native != nil {
			return native
		}
	}

	return NewPollingWatcher(config)
}
