// Package netmon 提供系统网络变化监听
package netmon

import (
	"context"
	"net"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/benbjohnson/clock"
)

// ============================================================================
//                              PollingWatcher
// ============================================================================

// InterfaceInfo 接口快照
type InterfaceInfo struct {
	Name      string
	Flags     net.Flags
	Addresses []string
}

// InterfaceLister 列出当前网络接口（loopback 除外）
type InterfaceLister func() ([]InterfaceInfo, error)

// PollingWatcher 基于轮询的网络变化监听器
//
// 周期性比较接口快照，差异转换为具体事件。跨平台可用。
type PollingWatcher struct {
	config *WatcherConfig
	clock  clock.Clock
	list   InterfaceLister

	events chan NetworkEvent

	mu   sync.Mutex
	last map[string]InterfaceInfo

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// PollingOption 轮询监听器选项
type PollingOption func(*PollingWatcher)

// WithClock 注入时钟（测试使用 clock.NewMock()）
func WithClock(c clock.Clock) PollingOption {
	return func(w *PollingWatcher) {
		w.clock = c
	}
}

// WithInterfaceLister 注入接口列表来源
func WithInterfaceLister(l InterfaceLister) PollingOption {
	return func(w *PollingWatcher) {
		w.list = l
	}
}

// NewPollingWatcher 创建轮询监听器
func NewPollingWatcher(config *WatcherConfig, opts ...PollingOption) *PollingWatcher {
	if config == nil {
		config = DefaultWatcherConfig()
	}
	_ = config.Validate()

	w := &PollingWatcher{
		config: config,
		clock:  clock.New(),
		list:   SystemInterfaces,
		events: make(chan NetworkEvent, config.EventBufferSize),
		last:   make(map[string]InterfaceInfo),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start 启动监听
func (w *PollingWatcher) Start(ctx context.Context) error {
	if !w.running.CompareAndSwap(false, true) {
		return nil
	}

	ctx, w.cancel = context.WithCancel(ctx)

	snapshot := w.snapshot()
	w.mu.Lock()
	w.last = snapshot
	w.mu.Unlock()

	ticker := w.clock.Ticker(w.config.PollInterval)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.Check()
			}
		}
	}()

	logger.Info("网络变化轮询监听器已启动", "poll_interval", w.config.PollInterval)
	return nil
}

// Stop 停止监听
func (w *PollingWatcher) Stop() error {
	if !w.running.CompareAndSwap(true, false) {
		return nil
	}
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()

	logger.Info("网络变化轮询监听器已停止")
	return nil
}

// Events 返回事件通道
func (w *PollingWatcher) Events() <-chan NetworkEvent {
	return w.events
}

// IsRunning 是否运行
func (w *PollingWatcher) IsRunning() bool {
	return w.running.Load()
}

// Check 立即比较一次快照，返回产生的事件数
func (w *PollingWatcher) Check() int {
	current := w.snapshot()

	w.mu.Lock()
	previous := w.last
	w.last = current
	w.mu.Unlock()

	events := diffInterfaces(previous, current)
	now := w.clock.Now()
	for i := range events {
		events[i].Timestamp = now
		select {
		case w.events <- events[i]:
			logger.Debug("发送网络事件", "type", events[i].Type.String(), "interface", events[i].Interface)
		default:
			logger.Warn("网络事件缓冲区已满，丢弃事件", "type", events[i].Type.String())
		}
	}
	return len(events)
}

// snapshot 获取接口快照，失败时返回空快照
func (w *PollingWatcher) snapshot() map[string]InterfaceInfo {
	result := make(map[string]InterfaceInfo)
	ifaces, err := w.list()
	if err != nil {
		logger.Warn("获取网络接口失败", "error", err)
		return result
	}
	for _, iface := range ifaces {
		addrs := append([]string(nil), iface.Addresses...)
		sort.Strings(addrs)
		iface.Addresses = addrs
		result[iface.Name] = iface
	}
	return result
}

// diffInterfaces 比较两个快照，返回按接口名排序的事件
func diffInterfaces(old, cur map[string]InterfaceInfo) []NetworkEvent {
	var events []NetworkEvent

	names := make([]string, 0, len(old)+len(cur))
	for name := range cur {
		names = append(names, name)
	}
	for name := range old {
		if _, ok := cur[name]; !ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		prev, existed := old[name]
		now, exists := cur[name]

		switch {
		case !existed:
			events = append(events, NetworkEvent{Type: EventInterfaceUp, Interface: name})
			continue
		case !exists:
			events = append(events, NetworkEvent{Type: EventInterfaceDown, Interface: name})
			continue
		}

		wasUp := prev.Flags&net.FlagUp != 0
		isUp := now.Flags&net.FlagUp != 0
		if !wasUp && isUp {
			events = append(events, NetworkEvent{Type: EventInterfaceUp, Interface: name})
		} else if wasUp && !isUp {
			events = append(events, NetworkEvent{Type: EventInterfaceDown, Interface: name})
		}

		oldAddrs := toSet(prev.Addresses)
		newAddrs := toSet(now.Addresses)
		for _, addr := range now.Addresses {
			if !oldAddrs[addr] {
				events = append(events, NetworkEvent{Type: EventAddressAdded, Interface: name, Address: addr})
			}
		}
		for _, addr := range prev.Addresses {
			if !newAddrs[addr] {
				events = append(events, NetworkEvent{Type: EventAddressRemoved, Interface: name, Address: addr})
			}
		}
	}

	return events
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}

// SystemInterfaces 列出系统的非 loopback 接口
func SystemInterfaces() ([]InterfaceInfo, error) {
	return ListInterfaces(false)
}

// ListInterfaces 列出系统接口，地址为 CIDR 形式
func ListInterfaces(includeLoopback bool) ([]InterfaceInfo, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	result := make([]InterfaceInfo, 0, len(ifaces))
	for _, iface := range ifaces {
		if !includeLoopback && iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		info := InterfaceInfo{Name: iface.Name, Flags: iface.Flags}
		if addrs, err := iface.Addrs(); err == nil {
			for _, addr := range addrs {
				info.Addresses = append(info.Addresses, addr.String())
			}
		}
		result = append(result, info)
	}
	return result, nil
}
