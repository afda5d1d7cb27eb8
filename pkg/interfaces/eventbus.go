// Package interfaces 定义可达性库的公共接口
//
// 本文件定义 EventBus 接口，提供类型化的事件发布订阅。
package interfaces

// EventBus 事件总线
//
// 总线由应用作用域显式持有（而不是进程级全局广播），订阅以句柄形式返回，
// 关闭句柄即取消订阅。
type EventBus interface {
	// Subscribe 订阅指定类型的事件，eventType 必须是指针，如 new(EvtXxx)
	Subscribe(eventType interface{}, opts ...SubscriptionOpt) (Subscription, error)

	// Emitter 获取指定事件类型的发射器
	Emitter(eventType interface{}, opts ...EmitterOpt) (Emitter, error)

	// SubscriberCount 返回指定事件类型当前的订阅者数量
	SubscriberCount(eventType interface{}) int
}

// Subscription 事件订阅句柄
type Subscription interface {
	// Out 返回接收事件的通道，Close 后通道被关闭
	Out() <-chan interface{}

	// Close 取消订阅，可重复调用
	Close() error
}

// Emitter 事件发射器
type Emitter interface {
	// Emit 发射事件，不会因慢订阅者阻塞
	Emit(event interface{}) error

	// Close 关闭发射器
	Close() error
}

// SubscriptionOpt 订阅选项
type SubscriptionOpt func(*SubscriptionSettings)

// EmitterOpt 发射器选项
type EmitterOpt func(*EmitterSettings)

// SubscriptionSettings 订阅设置
type SubscriptionSettings struct {
	// Buffer 通道缓冲区大小，默认 16
	Buffer int
}

// EmitterSettings 发射器设置
type EmitterSettings struct {
	// Stateful 保留最后一个事件，新订阅者立即收到
	Stateful bool
}

// BufSize 设置订阅缓冲区大小
func BufSize(size int) SubscriptionOpt {
	return func(s *SubscriptionSettings) {
		s.Buffer = size
	}
}

// Stateful 设置发射器为有状态模式
func Stateful() EmitterOpt {
	return func(s *EmitterSettings) {
		s.Stateful = true
	}
}
