package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-reachability/internal/core/eventbus"
	"github.com/dep2p/go-reachability/internal/core/netmon"
	pkgif "github.com/dep2p/go-reachability/pkg/interfaces"
	"github.com/dep2p/go-reachability/pkg/types"
)

func TestCollector_Record(t *testing.T) {
	c := NewCollector(eventbus.NewBus(), nil)

	c.Record(pkgif.EvtReachabilityStateChanged{
		HostName:  "example.com",
		Status:    types.NetworkStatusReachableViaWiFi,
		Flags:     types.FlagReachable,
		Timestamp: time.Unix(1700000000, 0),
	})
	c.Record(pkgif.EvtReachabilityStateChanged{
		HostName: "example.com",
		Status:   types.NetworkStatusReachableViaWiFi,
		Flags:    types.FlagReachable,
	})

	assert.Equal(t, 2.0, testutil.ToFloat64(c.stateChanges.WithLabelValues("example.com", "reachable_via_wifi")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.status.WithLabelValues("example.com", "reachable_via_wifi")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.status.WithLabelValues("example.com", "not_reachable")))
	assert.Equal(t, float64(types.FlagReachable), testutil.ToFloat64(c.flags.WithLabelValues("example.com")))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(c.lastChange.WithLabelValues("example.com")))

	c.Forget("example.com")
	assert.Equal(t, 0, testutil.CollectAndCount(c.status))
	assert.Equal(t, 0, testutil.CollectAndCount(c.flags))
}

func TestCollector_ConsumesBusAndMonitor(t *testing.T) {
	bus := eventbus.NewBus()
	defer bus.Close()

	monitor := netmon.NewMonitor(nil)
	require.NoError(t, monitor.Start(context.Background()))
	defer monitor.Stop()

	c := NewCollector(bus, monitor)
	require.NoError(t, c.Start(context.Background()))
	defer c.Stop()

	em, err := bus.Emitter(new(pkgif.EvtReachabilityStateChanged))
	require.NoError(t, err)
	defer em.Close()

	require.NoError(t, em.Emit(pkgif.EvtReachabilityStateChanged{HostName: "a.test", Status: types.NetworkStatusNotReachable}))
	monitor.NotifyChange()

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(c.stateChanges.WithLabelValues("a.test", "not_reachable")) == 1 &&
			testutil.ToFloat64(c.networkEvents.WithLabelValues("network_changed")) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, c.Stop())
	require.NoError(t, c.Stop())
	assert.Equal(t, 0, bus.SubscriberCount(new(pkgif.EvtReachabilityStateChanged)))
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector(eventbus.NewBus(), nil)
	c.Record(pkgif.EvtReachabilityStateChanged{HostName: "example.com", Status: types.NetworkStatusReachableViaWWAN})

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `reachability_status{host="example.com",status="reachable_via_wwan"} 1`))
}

func TestModule_Disabled(t *testing.T) {
	var c *Collector
	app := fxtest.New(t,
		eventbus.Module(),
		fx.Supply(&Config{Enabled: false}),
		Module(),
		fx.Populate(&c),
	)
	app.RequireStart()
	assert.Nil(t, c)
	app.RequireStop()
}

func TestModule_Enabled(t *testing.T) {
	var c *Collector
	app := fxtest.New(t,
		eventbus.Module(),
		Module(),
		fx.Populate(&c),
	)
	app.RequireStart()
	require.NotNil(t, c)
	app.RequireStop()
}
