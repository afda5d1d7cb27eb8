//go:build linux

// Package netmon 提供系统网络变化监听
package netmon

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

// netlinkReadTimeout 接收超时，用于周期性检查停止信号
const netlinkReadTimeout = 500 * time.Millisecond

// netlinkWatcher Linux 原生网络变化监听器
//
// 订阅 NETLINK_ROUTE 的链路、地址和路由多播组，内核推送变化时产生事件。
// 套接字只在运行期间持有：Start 打开，Stop 关闭。
type netlinkWatcher struct {
	config *WatcherConfig
	events chan NetworkEvent
	open   func() (int, error)

	mu      sync.Mutex
	fd      int
	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// newNativeSystemWatcher 创建 netlink 监听器，套接字不可用时返回 nil
//
// 这里只确认 netlink 可用，试探用的套接字立即关闭。
func newNativeSystemWatcher(config *WatcherConfig) SystemWatcher {
	fd, err := openNetlink()
	if err != nil {
		logger.Debug("netlink 不可用，回退到轮询", "error", err)
		return nil
	}
	_ = unix.Close(fd)

	return &netlinkWatcher{
		config: config,
		events: make(chan NetworkEvent, config.EventBufferSize),
		open:   openNetlink,
		fd:     -1,
	}
}

// openNetlink 打开并绑定路由 netlink 套接字
func openNetlink() (int, error) {
	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_RAW|unix.SOCK_CLOEXEC, unix.NETLINK_ROUTE)
	if err != nil {
		return -1, err
	}

	groups := uint32(unix.RTMGRP_LINK |
		unix.RTMGRP_IPV4_IFADDR | unix.RTMGRP_IPV6_IFADDR |
		unix.RTMGRP_IPV4_ROUTE | unix.RTMGRP_IPV6_ROUTE)
	if err := unix.Bind(fd, &unix.SockaddrNetlink{Family: unix.AF_NETLINK, Groups: groups}); err != nil {
		_ = unix.Close(fd)
		return -1, err
	}

	tv := unix.NsecToTimeval(netlinkReadTimeout.Nanoseconds())
	if err := unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
		_ = unix.Close(fd)
		return -1, err
	}
	return fd, nil
}

// Start 打开套接字并启动监听
func (w *netlinkWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running.Load() {
		return nil
	}

	fd, err := w.open()
	if err != nil {
		return fmt.Errorf("open netlink socket: %w", err)
	}
	w.fd = fd

	ctx, w.cancel = context.WithCancel(ctx)
	w.running.Store(true)

	w.wg.Add(1)
	go w.readLoop(ctx, fd)

	logger.Info("netlink 网络变化监听器已启动")
	return nil
}

// Stop 停止监听并关闭套接字，未启动时直接返回
func (w *netlinkWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running.Load() {
		return nil
	}
	w.running.Store(false)
	w.cancel()
	w.wg.Wait()

	err := unix.Close(w.fd)
	w.fd = -1
	logger.Info("netlink 网络变化监听器已停止")
	return err
}

// Events 返回事件通道
func (w *netlinkWatcher) Events() <-chan NetworkEvent {
	return w.events
}

// IsRunning 是否运行
func (w *netlinkWatcher) IsRunning() bool {
	return w.running.Load()
}

// readLoop 读取内核消息
func (w *netlinkWatcher) readLoop(ctx context.Context, fd int) {
	defer w.wg.Done()

	buf := make([]byte, 1<<16)
	for {
		if ctx.Err() != nil {
			return
		}

		n, _, err := unix.Recvfrom(fd, buf, 0)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EINTR) {
				continue
			}
			logger.Warn("读取 netlink 消息失败", "error", err)
			return
		}

		for _, evt := range parseNetlinkMessages(buf[:n]) {
			evt.Timestamp = time.Now()
			select {
			case w.events <- evt:
			default:
				logger.Warn("网络事件缓冲区已满，丢弃事件", "type", evt.Type.String())
			}
		}
	}
}

// parseNetlinkMessages 把一批 netlink 消息转换为事件
//
// 只解析消息头，接口名留空；可达性只关心“发生了变化”。
func parseNetlinkMessages(b []byte) []NetworkEvent {
	var events []NetworkEvent
	for len(b) >= unix.SizeofNlMsghdr {
		msgLen := int(binary.NativeEndian.Uint32(b[0:4]))
		msgType := binary.NativeEndian.Uint16(b[4:6])
		if msgLen < unix.SizeofNlMsghdr || msgLen > len(b) {
			break
		}

		if t, ok := netlinkEventType(msgType); ok {
			events = append(events, NetworkEvent{Type: t})
		}

		aligned := (msgLen + unix.NLMSG_ALIGNTO - 1) &^ (unix.NLMSG_ALIGNTO - 1)
		if aligned > len(b) {
			break
		}
		b = b[aligned:]
	}
	return events
}

// netlinkEventType 映射 netlink 消息类型
func netlinkEventType(msgType uint16) (NetworkEventType, bool) {
	switch msgType {
	case unix.RTM_NEWLINK:
		return EventInterfaceUp, true
	case unix.RTM_DELLINK:
		return EventInterfaceDown, true
	case unix.RTM_NEWADDR:
		return EventAddressAdded, true
	case unix.RTM_DELADDR:
		return EventAddressRemoved, true
	case unix.RTM_NEWROUTE, unix.RTM_DELROUTE:
		return EventRouteChanged, true
	default:
		return EventNetworkChanged, false
	}
}
