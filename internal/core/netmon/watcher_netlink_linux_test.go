//go:build linux

package netmon

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// nlmsg 构造只有消息头和若干填充字节的 netlink 消息
func nlmsg(msgType uint16, payload int) []byte {
	total := unix.SizeofNlMsghdr + payload
	aligned := (total + unix.NLMSG_ALIGNTO - 1) &^ (unix.NLMSG_ALIGNTO - 1)
	b := make([]byte, aligned)
	binary.NativeEndian.PutUint32(b[0:4], uint32(total))
	binary.NativeEndian.PutUint16(b[4:6], msgType)
	return b
}

func TestParseNetlinkMessages(t *testing.T) {
	var buf []byte
	buf = append(buf, nlmsg(unix.RTM_NEWADDR, 3)...)
	buf = append(buf, nlmsg(unix.NLMSG_DONE, 0)...)
	buf = append(buf, nlmsg(unix.RTM_DELLINK, 8)...)
	buf = append(buf, nlmsg(unix.RTM_NEWROUTE, 0)...)

	events := parseNetlinkMessages(buf)
	if assert.Len(t, events, 3) {
		assert.Equal(t, EventAddressAdded, events[0].Type)
		assert.Equal(t, EventInterfaceDown, events[1].Type)
		assert.Equal(t, EventRouteChanged, events[2].Type)
	}
}

func TestParseNetlinkMessages_Truncated(t *testing.T) {
	msg := nlmsg(unix.RTM_NEWLINK, 0)
	assert.Empty(t, parseNetlinkMessages(msg[:unix.SizeofNlMsghdr-1]))

	// 声明长度超过缓冲区
	binary.NativeEndian.PutUint32(msg[0:4], 1024)
	assert.Empty(t, parseNetlinkMessages(msg))
}

// countingOpen 记录打开和仍未关闭的套接字
type countingOpen struct {
	opened int
	fds    []int
}

func (c *countingOpen) open() (int, error) {
	fd, err := openNetlink()
	if err == nil {
		c.opened++
		c.fds = append(c.fds, fd)
	}
	return fd, err
}

func newTestNetlinkWatcher(t *testing.T) *netlinkWatcher {
	t.Helper()
	sw := newNativeSystemWatcher(DefaultWatcherConfig())
	if sw == nil {
		t.Skip("netlink not available")
	}
	w, ok := sw.(*netlinkWatcher)
	require.True(t, ok)
	return w
}

func TestNetlinkWatcher_NoSocketUntilStart(t *testing.T) {
	w := newTestNetlinkWatcher(t)
	counter := &countingOpen{}
	w.open = counter.open

	// 构造后未持有套接字，未启动即停止不泄漏
	assert.Equal(t, -1, w.fd)
	assert.NoError(t, w.Stop())
	assert.Equal(t, 0, counter.opened)

	require.NoError(t, w.Start(context.Background()))
	assert.True(t, w.IsRunning())
	assert.Equal(t, counter.fds[0], w.fd)
	require.NoError(t, w.Stop())
	assert.False(t, w.IsRunning())
	assert.Equal(t, -1, w.fd)

	// 套接字已关闭
	_, err := unix.GetsockoptInt(counter.fds[0], unix.SOL_SOCKET, unix.SO_TYPE)
	assert.Error(t, err)

	// 可以重新启动
	require.NoError(t, w.Start(context.Background()))
	assert.Equal(t, 2, counter.opened)
	require.NoError(t, w.Stop())
}

func TestNetlinkWatcher_StartOpenFailure(t *testing.T) {
	w := newTestNetlinkWatcher(t)
	w.open = func() (int, error) { return -1, errors.New("no socket") }

	err := w.Start(context.Background())
	assert.ErrorContains(t, err, "no socket")
	assert.False(t, w.IsRunning())
	assert.NoError(t, w.Stop())
}
