package reachability

import (
	pkgif "github.com/dep2p/go-reachability/pkg/interfaces"
	"github.com/dep2p/go-reachability/pkg/types"
)

// ════════════════════════════════════════════════════════════════════════════
//                              Agent 状态
// ════════════════════════════════════════════════════════════════════════════

// AgentState Agent 状态
type AgentState int

const (
	// StateIdle 已创建，未启动
	StateIdle AgentState = iota

	// StateStarting 启动中（Fx App 启动中）
	StateStarting

	// StateRunning 运行中
	StateRunning

	// StateStopping 停止中
	StateStopping

	// StateStopped 已停止，不可重新启动
	StateStopped
)

// String 返回状态的字符串表示
func (s AgentState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              类型别名
// ════════════════════════════════════════════════════════════════════════════

// Observer 主机可达性观察者
type Observer = pkgif.ReachabilityObserver

// StateChanged 可达性状态变化事件
type StateChanged = pkgif.EvtReachabilityStateChanged

// Subscription 事件订阅句柄
type Subscription = pkgif.Subscription

// NetworkStatus 网络状态
type NetworkStatus = types.NetworkStatus

// Flags 可达性标志
type Flags = types.ReachabilityFlags

// 网络状态取值
const (
	Indeterminate    = types.NetworkStatusIndeterminate
	NotReachable     = types.NetworkStatusNotReachable
	ReachableViaWiFi = types.NetworkStatusReachableViaWiFi
	ReachableViaWWAN = types.NetworkStatusReachableViaWWAN
)
