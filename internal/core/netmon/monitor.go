// Package netmon 提供系统网络变化监听
package netmon

import (
	"context"
	"sync"
	"time"
)

// subscriberBufferSize 每个订阅者的通道缓冲
const subscriberBufferSize = 8

// Monitor 把一个 SystemWatcher 的事件分发给多个订阅者
//
// 每个可达性原语（RouteTarget）各自订阅，共享同一个系统监听器。
type Monitor struct {
	watcher SystemWatcher

	mu     sync.RWMutex
	subs   map[uint64]chan NetworkEvent
	nextID uint64

	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewMonitor 创建网络监控器
func NewMonitor(watcher SystemWatcher) *Monitor {
	if watcher == nil {
		watcher = NewNoOpWatcher()
	}
	return &Monitor{
		watcher: watcher,
		subs:    make(map[uint64]chan NetworkEvent),
	}
}

// Start 启动系统监听和分发循环
func (m *Monitor) Start(ctx context.Context) error {
	// fx OnStart 的 ctx 在返回后会被取消，后台循环使用独立的 context
	loopCtx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	if err := m.watcher.Start(loopCtx); err != nil {
		cancel()
		return err
	}

	m.wg.Add(1)
	go m.dispatch(loopCtx)

	logger.Info("网络监控已启动")
	return nil
}

// Stop 停止监听，关闭所有订阅通道
func (m *Monitor) Stop() error {
	var err error
	m.once.Do(func() {
		if m.cancel != nil {
			m.cancel()
		}
		m.wg.Wait()
		err = m.watcher.Stop()

		m.mu.Lock()
		for id, ch := range m.subs {
			close(ch)
			delete(m.subs, id)
		}
		m.mu.Unlock()

		logger.Info("网络监控已停止")
	})
	return err
}

// Subscribe 订阅网络变化事件
//
// 返回的取消函数关闭通道并移除订阅，可重复调用。
func (m *Monitor) Subscribe() (<-chan NetworkEvent, func()) {
	ch := make(chan NetworkEvent, subscriberBufferSize)

	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = ch
	m.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			if c, ok := m.subs[id]; ok {
				close(c)
				delete(m.subs, id)
			}
			m.mu.Unlock()
		})
	}
}

// NotifyChange 外部通知网络变化
//
// 用于没有系统事件源的环境，或嵌入方已有自己的信号。
func (m *Monitor) NotifyChange() {
	logger.Debug("收到外部网络变化通知")
	m.broadcast(NetworkEvent{Type: EventNetworkChanged, Timestamp: time.Now()})
}

// SubscriberCount 当前订阅者数量
func (m *Monitor) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subs)
}

// dispatch 分发循环
func (m *Monitor) dispatch(ctx context.Context) {
	defer m.wg.Done()

	events := m.watcher.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			m.broadcast(evt)
		}
	}
}

// broadcast 通知所有订阅者，通道满时丢弃
//
// 订阅者只需要知道“有变化”，丢弃不影响最终一致。
func (m *Monitor) broadcast(evt NetworkEvent) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, ch := range m.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}
