// Package api 提供守护进程的 HTTP 接口
//
// 路由：
//
//	GET    /healthz            健康检查
//	GET    /v1/hosts           所有观察者的快照
//	POST   /v1/hosts           观察主机，请求体 {"host": "..."} 或 {"url": "..."}
//	GET    /v1/hosts/{host}    单个观察者的快照
//	DELETE /v1/hosts/{host}    释放观察者
//	GET    /v1/events          websocket 状态变化流，可选 ?host=
//	GET    /metrics            Prometheus 指标（启用指标时）
package api
