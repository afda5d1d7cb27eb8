// Package interfaces 定义可达性库的公共接口
//
// 本文件定义可达性观察者相关接口与事件。
package interfaces

import (
	"time"

	"github.com/dep2p/go-reachability/pkg/types"
)

// ============================================================================
//                              ReachabilityObserver
// ============================================================================

// ReachabilityObserver 主机可达性观察者
//
// 每个观察者独占一个绑定到主机名的可达性原语句柄，
// 原语每次报告标志变化时，在总线上发布 EvtReachabilityStateChanged。
type ReachabilityObserver interface {
	// ID 观察者唯一标识
	ID() string

	// HostName 被监控的主机名，构造后不可变
	HostName() string

	// HasNetworkAvailabilityBeenDetermined 是否已收到过至少一次原语回调
	//
	// 一旦为 true 便不再回到 false。
	HasNetworkAvailabilityBeenDetermined() bool

	// NetworkStatus 根据原语当前标志推导状态（同步、不阻塞）
	NetworkStatus() types.NetworkStatus

	// Flags 原语当前标志，ok 为 false 表示无法读取
	Flags() (types.ReachabilityFlags, bool)

	// IsNetworkReachable 是否经 WiFi 或 WWAN 可达
	IsNetworkReachable() bool

	// IsConnectionRequired 是否可达但需要先建立连接
	IsConnectionRequired() bool

	// Close 注销并释放原语句柄，之后不再发布事件
	Close() error
}

// ReachabilityService 按主机名管理观察者
//
// 同一主机只保留一个观察者，服务关闭时统一释放。
type ReachabilityService interface {
	// Observe 返回主机的观察者，不存在则创建
	Observe(hostName string) (ReachabilityObserver, error)

	// ObserveURL 规范化 URL 后观察其主机
	ObserveURL(rawURL string) (ReachabilityObserver, error)

	// Lookup 查找已存在的观察者
	Lookup(hostName string) (ReachabilityObserver, bool)

	// Release 关闭并移除主机的观察者
	Release(hostName string) error

	// Observers 返回当前所有观察者
	Observers() []ReachabilityObserver

	// Close 关闭所有观察者
	Close() error
}

// ============================================================================
//                              事件
// ============================================================================

// EvtReachabilityStateChanged 可达性状态变化事件
//
// 每次原语回调发布一次，即使推导出的状态与上次相同。
// Observer 字段仅作回查使用，订阅者不应延长其生命周期。
type EvtReachabilityStateChanged struct {
	// Observer 发出事件的观察者
	Observer ReachabilityObserver

	// HostName 被监控的主机名
	HostName string

	// Status 回调时推导出的状态
	Status types.NetworkStatus

	// Flags 回调携带的标志
	Flags types.ReachabilityFlags

	// Sequence 该观察者的回调序号，从 1 开始
	Sequence uint64

	// Timestamp 回调时间
	Timestamp time.Time
}
