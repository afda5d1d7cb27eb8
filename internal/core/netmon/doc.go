// Package netmon 提供系统网络变化监听
//
// 可达性原语需要知道“网络配置何时变了”，以便重新评估目标主机的标志。
// 本包把平台信号统一为 NetworkEvent：
//
//   - Linux: netlink 路由套接字（链路、地址、路由多播组）
//   - 其他平台: 轮询 net.Interfaces() 并比较快照
//   - 禁用时: NoOpWatcher
//
// Monitor 把一个监听器的事件分发给多个订阅者，并支持 NotifyChange 外部触发。
//
//	m := netmon.NewMonitor(netmon.NewSystemWatcher(nil))
//	_ = m.Start(ctx)
//	defer m.Stop()
//
//	events, cancel := m.Subscribe()
//	defer cancel()
package netmon
