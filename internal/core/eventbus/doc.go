// Package eventbus 实现进程内事件总线
//
// 提供类型安全的事件发布/订阅机制，支持：
//   - 多订阅者
//   - 缓冲区配置
//   - 发射器引用计数
//   - 有状态模式（Stateful）
//   - 订阅句柄（Close 即取消订阅）
//
// # 快速开始
//
//	bus := eventbus.NewBus()
//
//	sub, _ := bus.Subscribe(new(interfaces.EvtReachabilityStateChanged))
//	defer sub.Close()
//
//	go func() {
//	    for evt := range sub.Out() {
//	        e := evt.(interfaces.EvtReachabilityStateChanged)
//	        // 处理事件
//	    }
//	}()
//
// # 慢订阅者
//
// 发射方（可达性观察者的事件循环）永不阻塞：订阅者缓冲区满时事件被丢弃并计数。
//
// # 并发安全
//
//   - 类型节点映射：RWMutex
//   - 节点内订阅者列表：节点互斥锁，发送与移除互斥
//   - 通道关闭：closeOnce，先移除后关闭
package eventbus
