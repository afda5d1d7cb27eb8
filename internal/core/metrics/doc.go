// Package metrics 提供可达性指标
//
// Collector 订阅总线上的 EvtReachabilityStateChanged 和网络监控事件，
// 维护以下 Prometheus 指标：
//
//	reachability_state_changes_total{host,status}
//	reachability_status{host,status}
//	reachability_flags{host}
//	reachability_last_change_timestamp_seconds{host}
//	reachability_network_events_total{type}
//
// 指标注册在 Collector 自己的 Registry 上，由 Handler 暴露给 /metrics。
package metrics
