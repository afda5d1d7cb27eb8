package reachability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"

	"github.com/dep2p/go-reachability/config"
	corereach "github.com/dep2p/go-reachability/internal/core/reachability"
	"github.com/dep2p/go-reachability/pkg/types"
)

func newTestAgent(t *testing.T, opts ...Option) (*Agent, *corereach.ManualTargets) {
	t.Helper()
	targets := corereach.NewManualTargets()
	base := []Option{
		WithTargetFactory(targets.Factory()),
		WithNetworkWatcher(false),
	}
	agent, err := NewAgent(append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = agent.Close() })
	return agent, targets
}

func waitEvent(t *testing.T, sub Subscription) StateChanged {
	t.Helper()
	select {
	case raw := <-sub.Out():
		return raw.(StateChanged)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for state change")
		return StateChanged{}
	}
}

func TestAgentState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "stopped", StateStopped.String())
	assert.Equal(t, "unknown", AgentState(42).String())
}

func TestAgent_Lifecycle(t *testing.T) {
	agent, _ := newTestAgent(t)
	assert.Equal(t, StateIdle, agent.State())

	_, err := agent.Observe("example.com")
	assert.ErrorIs(t, err, ErrNotStarted)

	require.NoError(t, agent.Start(context.Background()))
	assert.Equal(t, StateRunning, agent.State())
	assert.ErrorIs(t, agent.Start(context.Background()), ErrAlreadyStarted)

	require.NoError(t, agent.Close())
	require.NoError(t, agent.Close())
	assert.Equal(t, StateStopped, agent.State())

	_, err = agent.Observe("example.com")
	assert.ErrorIs(t, err, ErrAgentClosed)
	assert.ErrorIs(t, agent.Start(context.Background()), ErrAgentClosed)
	assert.Nil(t, agent.Observers())
}

func TestAgent_CloseBeforeStart(t *testing.T) {
	agent, _ := newTestAgent(t)
	require.NoError(t, agent.Close())
	assert.ErrorIs(t, agent.Start(context.Background()), ErrAgentClosed)
}

func TestAgent_ObserveAndSubscribe(t *testing.T) {
	agent, targets := newTestAgent(t)
	require.NoError(t, agent.Start(context.Background()))

	sub, err := agent.Subscribe(8)
	require.NoError(t, err)
	defer sub.Close()

	o, err := agent.Observe("Example.com")
	require.NoError(t, err)
	assert.Equal(t, "example.com", o.HostName())
	assert.Equal(t, Indeterminate, o.NetworkStatus())

	same, err := agent.ObserveURL("https://example.com/path")
	require.NoError(t, err)
	assert.Same(t, o, same)

	target, ok := targets.Get("example.com")
	require.True(t, ok)
	target.Set(types.FlagReachable | types.FlagIsWWAN)

	evt := waitEvent(t, sub)
	assert.Equal(t, "example.com", evt.HostName)
	assert.Equal(t, ReachableViaWWAN, evt.Status)
	assert.Equal(t, uint64(1), evt.Sequence)
	assert.True(t, o.HasNetworkAvailabilityBeenDetermined())

	got, ok := agent.Lookup("example.com")
	require.True(t, ok)
	assert.Same(t, o, got)

	require.NoError(t, agent.Release("example.com"))
	_, ok = agent.Lookup("example.com")
	assert.False(t, ok)
	assert.True(t, target.IsClosed())
}

func TestAgent_ObservesConfiguredHosts(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Reachability.Hosts = []string{"b.example"}

	agent, _ := newTestAgent(t, WithConfig(cfg), WithHosts("a.example"))
	require.NoError(t, agent.Start(context.Background()))

	observers := agent.Observers()
	require.Len(t, observers, 2)
	assert.Equal(t, "a.example", observers[0].HostName())
	assert.Equal(t, "b.example", observers[1].HostName())

	// WithConfig 的配置不会被选项修改
	assert.Equal(t, []string{"b.example"}, cfg.Reachability.Hosts)
}

func TestAgent_SharedRunLoopKeepsOrder(t *testing.T) {
	agent, targets := newTestAgent(t, WithSharedRunLoop(true))
	require.NoError(t, agent.Start(context.Background()))

	sub, err := agent.Subscribe(16)
	require.NoError(t, err)
	defer sub.Close()

	for _, h := range []string{"a.example", "b.example"} {
		_, err := agent.Observe(h)
		require.NoError(t, err)
	}
	a, _ := targets.Get("a.example")
	b, _ := targets.Get("b.example")
	a.Set(types.FlagReachable)
	b.Set(0)
	a.Set(0)

	assert.Equal(t, "a.example", waitEvent(t, sub).HostName)
	assert.Equal(t, "b.example", waitEvent(t, sub).HostName)
	last := waitEvent(t, sub)
	assert.Equal(t, "a.example", last.HostName)
	assert.Equal(t, NotReachable, last.Status)
	assert.Equal(t, uint64(2), last.Sequence)
}

func TestAgent_WithAPI(t *testing.T) {
	agent, _ := newTestAgent(t, WithAPI("127.0.0.1:0"), WithMetrics(true))
	require.NoError(t, agent.Start(context.Background()))
	assert.True(t, agent.MetricsEnabled())

	resp, err := http.Get("http://" + agent.APIAddr() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get("http://" + agent.APIAddr() + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAgent_ReleaseForgetsMetrics(t *testing.T) {
	agent, targets := newTestAgent(t, WithAPI("127.0.0.1:0"), WithMetrics(true))
	require.NoError(t, agent.Start(context.Background()))

	scrape := func() string {
		resp, err := http.Get("http://" + agent.APIAddr() + "/metrics")
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return string(body)
	}

	_, err := agent.Observe("example.com")
	require.NoError(t, err)
	target, ok := targets.Get("example.com")
	require.True(t, ok)
	target.Set(types.FlagReachable)

	require.Eventually(t, func() bool {
		return strings.Contains(scrape(), `host="example.com"`)
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, agent.Release("Example.COM"))
	assert.NotContains(t, scrape(), `host="example.com"`)
}

func TestAgent_WithoutMetrics(t *testing.T) {
	agent, _ := newTestAgent(t, WithMetrics(false))
	require.NoError(t, agent.Start(context.Background()))
	assert.False(t, agent.MetricsEnabled())
	assert.Empty(t, agent.APIAddr())
}

func TestAgent_NetworkWatcher(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Watcher.PreferNative = false

	targets := corereach.NewManualTargets()
	agent, err := NewAgent(WithConfig(cfg), WithTargetFactory(targets.Factory()))
	require.NoError(t, err)
	defer agent.Close()

	assert.False(t, agent.NotifyNetworkChange())
	require.NoError(t, agent.Start(context.Background()))
	assert.True(t, agent.NotifyNetworkChange())
}

func TestAgent_NetworkWatcherDisabled(t *testing.T) {
	agent, _ := newTestAgent(t)
	require.NoError(t, agent.Start(context.Background()))
	assert.False(t, agent.NotifyNetworkChange())
}

func TestAgent_FxOptions(t *testing.T) {
	invoked := false
	agent, _ := newTestAgent(t, WithFxOptions(fx.Invoke(func() { invoked = true })))
	assert.True(t, invoked)
	require.NoError(t, agent.Start(context.Background()))
}

func TestNewAgent_Errors(t *testing.T) {
	_, err := NewAgent(WithConfig(nil))
	assert.Error(t, err)

	_, err = NewAgent(WithHosts(""))
	assert.Error(t, err)

	_, err = NewAgent(WithRefreshInterval(time.Millisecond))
	assert.Error(t, err)

	_, err = NewAgent(WithMinEvalInterval(-time.Second))
	assert.Error(t, err)

	_, err = NewAgent(WithTargetFactory(nil))
	assert.Error(t, err)

	cfg := config.NewConfig()
	cfg.Log.Level = "loud"
	_, err = NewAgent(WithConfig(cfg))
	assert.ErrorContains(t, err, "config validation failed")

	_, err = NewAgent(WithResolverServers("1.1.1.1"), WithNetworkWatcher(false))
	assert.Error(t, err)
}

func TestOptions_ToInternalConfig(t *testing.T) {
	o := newOptions()
	for _, opt := range []Option{
		WithHosts("a.example"),
		WithSharedRunLoop(true),
		WithRefreshInterval(time.Minute),
		WithMinEvalInterval(time.Second),
		WithResolverServers("9.9.9.9:53"),
		WithNetworkWatcher(false),
		WithMetrics(false),
		WithAPI("127.0.0.1:9999"),
	} {
		require.NoError(t, opt(o))
	}

	cfg := o.toInternalConfig()
	assert.Equal(t, []string{"a.example"}, cfg.Reachability.Hosts)
	assert.True(t, cfg.Reachability.SharedRunLoop)
	assert.Equal(t, time.Minute, cfg.Reachability.RefreshInterval.Duration())
	assert.Equal(t, time.Second, cfg.Reachability.MinEvalInterval.Duration())
	assert.Equal(t, []string{"9.9.9.9:53"}, cfg.Resolver.Servers)
	assert.False(t, cfg.Watcher.Enabled)
	assert.False(t, cfg.Metrics.Enabled)
	assert.True(t, cfg.API.Enabled)
	assert.Equal(t, "127.0.0.1:9999", cfg.API.ListenAddr)
}

func TestVersionInfo(t *testing.T) {
	assert.Contains(t, VersionInfo(), Version)
}
