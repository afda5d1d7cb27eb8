package netmon

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-reachability/config"
)

// fakeInterfaces 可变的接口列表
type fakeInterfaces struct {
	mu     sync.Mutex
	ifaces []InterfaceInfo
}

func (f *fakeInterfaces) set(ifaces ...InterfaceInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ifaces = ifaces
}

func (f *fakeInterfaces) list() ([]InterfaceInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]InterfaceInfo(nil), f.ifaces...), nil
}

func TestNetworkEventType_String(t *testing.T) {
	assert.Equal(t, "network_changed", EventNetworkChanged.String())
	assert.Equal(t, "interface_up", EventInterfaceUp.String())
	assert.Equal(t, "route_changed", EventRouteChanged.String())
	assert.Equal(t, "unknown", NetworkEventType(99).String())
}

func TestWatcherConfig_Validate(t *testing.T) {
	cfg := &WatcherConfig{PollInterval: -1, EventBufferSize: 0}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, 16, cfg.EventBufferSize)
}

func TestNewSystemWatcher_Disabled(t *testing.T) {
	w := NewSystemWatcher(&WatcherConfig{Enabled: false})
	_, ok := w.(*NoOpWatcher)
	assert.True(t, ok)
	assert.False(t, w.IsRunning())
}

func TestNewSystemWatcher_PollingWhenNativeDisabled(t *testing.T) {
	w := NewSystemWatcher(&WatcherConfig{Enabled: true, PreferNative: false})
	_, ok := w.(*PollingWatcher)
	assert.True(t, ok)
}

// ============================================================================
// diffInterfaces
// ============================================================================

func TestDiffInterfaces(t *testing.T) {
	old := map[string]InterfaceInfo{
		"eth0":  {Name: "eth0", Flags: net.FlagUp, Addresses: []string{"10.0.0.2/24"}},
		"wlan0": {Name: "wlan0", Flags: net.FlagUp},
	}
	cur := map[string]InterfaceInfo{
		"eth0":  {Name: "eth0", Flags: net.FlagUp, Addresses: []string{"10.0.0.3/24"}},
		"wwan0": {Name: "wwan0", Flags: net.FlagUp},
	}

	events := diffInterfaces(old, cur)
	require.Len(t, events, 4)

	assert.Equal(t, NetworkEvent{Type: EventAddressAdded, Interface: "eth0", Address: "10.0.0.3/24"}, events[0])
	assert.Equal(t, NetworkEvent{Type: EventAddressRemoved, Interface: "eth0", Address: "10.0.0.2/24"}, events[1])
	assert.Equal(t, NetworkEvent{Type: EventInterfaceDown, Interface: "wlan0"}, events[2])
	assert.Equal(t, NetworkEvent{Type: EventInterfaceUp, Interface: "wwan0"}, events[3])
}

func TestDiffInterfaces_FlagChange(t *testing.T) {
	old := map[string]InterfaceInfo{"eth0": {Name: "eth0", Flags: net.FlagUp}}
	cur := map[string]InterfaceInfo{"eth0": {Name: "eth0"}}

	events := diffInterfaces(old, cur)
	require.Len(t, events, 1)
	assert.Equal(t, EventInterfaceDown, events[0].Type)

	assert.Empty(t, diffInterfaces(cur, cur))
}

// ============================================================================
// PollingWatcher
// ============================================================================

func TestPollingWatcher_DetectsChangeOnTick(t *testing.T) {
	mock := clock.NewMock()
	fake := &fakeInterfaces{}
	fake.set(InterfaceInfo{Name: "eth0", Flags: net.FlagUp})

	w := NewPollingWatcher(&WatcherConfig{Enabled: true, PollInterval: time.Second, EventBufferSize: 4},
		WithClock(mock), WithInterfaceLister(fake.list))
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()
	assert.True(t, w.IsRunning())

	fake.set(InterfaceInfo{Name: "eth0", Flags: net.FlagUp}, InterfaceInfo{Name: "wlan0", Flags: net.FlagUp})
	mock.Add(time.Second)

	select {
	case evt := <-w.Events():
		assert.Equal(t, EventInterfaceUp, evt.Type)
		assert.Equal(t, "wlan0", evt.Interface)
		assert.Equal(t, mock.Now(), evt.Timestamp)
	case <-time.After(2 * time.Second):
		t.Fatal("no event after tick")
	}
}

func TestPollingWatcher_NoChangeNoEvent(t *testing.T) {
	fake := &fakeInterfaces{}
	fake.set(InterfaceInfo{Name: "eth0", Flags: net.FlagUp})

	w := NewPollingWatcher(nil, WithClock(clock.NewMock()), WithInterfaceLister(fake.list))
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	assert.Equal(t, 0, w.Check())
}

func TestPollingWatcher_StopIdempotent(t *testing.T) {
	w := NewPollingWatcher(nil, WithClock(clock.NewMock()), WithInterfaceLister((&fakeInterfaces{}).list))
	require.NoError(t, w.Stop())
	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
	assert.False(t, w.IsRunning())
}

func TestConfigFromUnified(t *testing.T) {
	assert.Equal(t, DefaultWatcherConfig(), ConfigFromUnified(nil))

	unified := config.NewConfig()
	unified.Watcher.PreferNative = false
	unified.Watcher.PollInterval = config.Duration(time.Second)

	cfg := ConfigFromUnified(unified)
	assert.True(t, cfg.Enabled)
	assert.False(t, cfg.PreferNative)
	assert.Equal(t, time.Second, cfg.PollInterval)
	assert.Equal(t, 16, cfg.EventBufferSize)
}
