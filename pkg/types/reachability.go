package types

import (
	"fmt"
	"strings"
)

// ============================================================================
//                              NetworkStatus - 网络可达状态
// ============================================================================

// NetworkStatus 目标主机的网络可达状态
//
// 零值为 NetworkStatusIndeterminate（尚未做出判定）。
type NetworkStatus int

const (
	// NetworkStatusIndeterminate 尚未判定（初始状态）
	NetworkStatusIndeterminate NetworkStatus = iota
	// NetworkStatusNotReachable 任何接口都无法到达主机
	NetworkStatusNotReachable
	// NetworkStatusReachableViaWiFi 经本地/WiFi 类接口可达
	NetworkStatusReachableViaWiFi
	// NetworkStatusReachableViaWWAN 经蜂窝类接口可达
	NetworkStatusReachableViaWWAN
)

var networkStatusNames = [...]string{
	NetworkStatusIndeterminate:    "indeterminate",
	NetworkStatusNotReachable:     "not_reachable",
	NetworkStatusReachableViaWiFi: "reachable_via_wifi",
	NetworkStatusReachableViaWWAN: "reachable_via_wwan",
}

// String 返回状态的字符串表示
func (s NetworkStatus) String() string {
	if !s.IsValid() {
		return "unknown"
	}
	return networkStatusNames[s]
}

// IsValid 是否为四个合法取值之一
func (s NetworkStatus) IsValid() bool {
	return s >= NetworkStatusIndeterminate && s <= NetworkStatusReachableViaWWAN
}

// IsReachable 是否经 WiFi 或 WWAN 可达
func (s NetworkStatus) IsReachable() bool {
	return s == NetworkStatusReachableViaWiFi || s == NetworkStatusReachableViaWWAN
}

// MarshalText 实现 encoding.TextMarshaler
func (s NetworkStatus) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("invalid network status %d", int(s))
	}
	return []byte(networkStatusNames[s]), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (s *NetworkStatus) UnmarshalText(text []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(text)))
	for i, n := range networkStatusNames {
		if n == name {
			*s = NetworkStatus(i)
			return nil
		}
	}
	return fmt.Errorf("unknown network status %q", string(text))
}

// ============================================================================
//                              ReachabilityFlags - 可达性标志
// ============================================================================

// ReachabilityFlags 可达性原语报告的标志位
//
// 取值与系统可达性 API 的标志位保持一致。
type ReachabilityFlags uint32

const (
	// FlagTransientConnection 经临时连接（如 PPP）可达
	FlagTransientConnection ReachabilityFlags = 1 << 0
	// FlagReachable 使用当前网络配置可达
	FlagReachable ReachabilityFlags = 1 << 1
	// FlagConnectionRequired 可达，但需要先建立连接
	FlagConnectionRequired ReachabilityFlags = 1 << 2
	// FlagConnectionOnTraffic 发往目标的流量会自动建立连接
	FlagConnectionOnTraffic ReachabilityFlags = 1 << 3
	// FlagInterventionRequired 建立连接需要用户介入
	FlagInterventionRequired ReachabilityFlags = 1 << 4
	// FlagConnectionOnDemand 按需建立连接
	FlagConnectionOnDemand ReachabilityFlags = 1 << 5
	// FlagIsLocalAddress 目标地址属于本机接口
	FlagIsLocalAddress ReachabilityFlags = 1 << 16
	// FlagIsDirect 流量不经网关，直接路由到本机接口
	FlagIsDirect ReachabilityFlags = 1 << 17
	// FlagIsWWAN 经蜂窝接口可达
	FlagIsWWAN ReachabilityFlags = 1 << 18
)

var flagNames = []struct {
	flag ReachabilityFlags
	name string
}{
	{FlagTransientConnection, "transient"},
	{FlagReachable, "reachable"},
	{FlagConnectionRequired, "connection_required"},
	{FlagConnectionOnTraffic, "connection_on_traffic"},
	{FlagInterventionRequired, "intervention_required"},
	{FlagConnectionOnDemand, "connection_on_demand"},
	{FlagIsLocalAddress, "local_address"},
	{FlagIsDirect, "direct"},
	{FlagIsWWAN, "wwan"},
}

// Has 是否包含全部给定标志
func (f ReachabilityFlags) Has(flag ReachabilityFlags) bool {
	return f&flag == flag
}

// String 返回逗号分隔的标志名，无标志时返回 "none"
func (f ReachabilityFlags) String() string {
	if f == 0 {
		return "none"
	}
	parts := make([]string, 0, len(flagNames))
	for _, fn := range flagNames {
		if f.Has(fn.flag) {
			parts = append(parts, fn.name)
		}
	}
	if len(parts) == 0 {
		return fmt.Sprintf("0x%x", uint32(f))
	}
	return strings.Join(parts, ",")
}

// ============================================================================
//                              状态推导
// ============================================================================

// StatusFromFlags 根据标志推导网络状态
//
// ok 为 false 表示标志无法读取，结果为 Indeterminate。其余按以下优先级：
//  1. 未设置 Reachable → NotReachable
//  2. 设置 IsWWAN → ReachableViaWWAN（蜂窝连接可透明建立，覆盖 ConnectionRequired）
//  3. 需要连接且不能自动建立（按需/按流量且无需介入）→ NotReachable
//  4. 其他 → ReachableViaWiFi
func StatusFromFlags(flags ReachabilityFlags, ok bool) NetworkStatus {
	if !ok {
		return NetworkStatusIndeterminate
	}
	if !flags.Has(FlagReachable) {
		return NetworkStatusNotReachable
	}
	if flags.Has(FlagIsWWAN) {
		return NetworkStatusReachableViaWWAN
	}
	if flags.Has(FlagConnectionRequired) && !connectsAutomatically(flags) {
		return NetworkStatusNotReachable
	}
	return NetworkStatusReachableViaWiFi
}

// connectsAutomatically 连接是否会在无人介入的情况下自动建立
func connectsAutomatically(flags ReachabilityFlags) bool {
	if flags.Has(FlagInterventionRequired) {
		return false
	}
	return flags.Has(FlagConnectionOnDemand) || flags.Has(FlagConnectionOnTraffic)
}

// ConnectionRequiredFromFlags 标志是否表示需要先建立连接
func ConnectionRequiredFromFlags(flags ReachabilityFlags, ok bool) bool {
	return ok && flags.Has(FlagConnectionRequired)
}
