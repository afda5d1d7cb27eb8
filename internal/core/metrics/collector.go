package metrics

import (
	"context"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dep2p/go-reachability/internal/core/netmon"
	pkgif "github.com/dep2p/go-reachability/pkg/interfaces"
	"github.com/dep2p/go-reachability/pkg/lib/log"
	"github.com/dep2p/go-reachability/pkg/types"
)

var logger = log.Logger("core/metrics")

// namespace 指标名前缀
const namespace = "reachability"

// Collector 把总线上的可达性事件转换为 Prometheus 指标
//
// 指标注册在独立的 Registry 上，通过 Handler 暴露。
type Collector struct {
	registry *prometheus.Registry

	stateChanges  *prometheus.CounterVec
	status        *prometheus.GaugeVec
	flags         *prometheus.GaugeVec
	lastChange    *prometheus.GaugeVec
	networkEvents *prometheus.CounterVec

	bus     pkgif.EventBus
	monitor *netmon.Monitor

	mu     sync.Mutex
	sub    pkgif.Subscription
	unsub  func()
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewCollector 创建指标收集器
//
// monitor 可以为 nil，此时不统计网络变化事件。
func NewCollector(bus pkgif.EventBus, monitor *netmon.Monitor) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		bus:      bus,
		monitor:  monitor,
		stateChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_changes_total",
			Help:      "Reachability callbacks per host and derived status.",
		}, []string{"host", "status"}),
		status: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "status",
			Help:      "1 for the current status of each host, 0 for the others.",
		}, []string{"host", "status"}),
		flags: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "flags",
			Help:      "Raw reachability flags of the last callback.",
		}, []string{"host"}),
		lastChange: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_change_timestamp_seconds",
			Help:      "Unix time of the last callback per host.",
		}, []string{"host"}),
		networkEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "network_events_total",
			Help:      "System network change events by type.",
		}, []string{"type"}),
	}

	c.registry.MustRegister(c.stateChanges, c.status, c.flags, c.lastChange, c.networkEvents)
	return c
}

// Registry 返回指标注册表
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler 返回 /metrics 处理器
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Start 订阅事件并开始统计
func (c *Collector) Start(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		return nil
	}

	sub, err := c.bus.Subscribe(new(pkgif.EvtReachabilityStateChanged), pkgif.BufSize(64))
	if err != nil {
		return err
	}
	c.sub = sub

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	c.wg.Add(1)
	go c.consumeStates(ctx, sub.Out())

	if c.monitor != nil {
		events, unsub := c.monitor.Subscribe()
		c.unsub = unsub
		c.wg.Add(1)
		go c.consumeNetwork(ctx, events)
	}

	logger.Debug("指标收集已启动")
	return nil
}

// Stop 取消订阅
func (c *Collector) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel == nil {
		return nil
	}
	c.cancel()
	c.cancel = nil

	err := c.sub.Close()
	if c.unsub != nil {
		c.unsub()
		c.unsub = nil
	}
	c.wg.Wait()
	return err
}

// Forget 删除主机的指标，主机不再被观察时调用
func (c *Collector) Forget(host string) {
	c.flags.DeleteLabelValues(host)
	c.lastChange.DeleteLabelValues(host)
	for _, s := range allStatuses {
		c.status.DeleteLabelValues(host, s.String())
		c.stateChanges.DeleteLabelValues(host, s.String())
	}
}

// allStatuses 所有合法状态
var allStatuses = []types.NetworkStatus{
	types.NetworkStatusIndeterminate,
	types.NetworkStatusNotReachable,
	types.NetworkStatusReachableViaWiFi,
	types.NetworkStatusReachableViaWWAN,
}

// Record 记录一次状态变化
func (c *Collector) Record(evt pkgif.EvtReachabilityStateChanged) {
	c.stateChanges.WithLabelValues(evt.HostName, evt.Status.String()).Inc()
	for _, s := range allStatuses {
		v := 0.0
		if s == evt.Status {
			v = 1
		}
		c.status.WithLabelValues(evt.HostName, s.String()).Set(v)
	}
	c.flags.WithLabelValues(evt.HostName).Set(float64(evt.Flags))
	if !evt.Timestamp.IsZero() {
		c.lastChange.WithLabelValues(evt.HostName).Set(float64(evt.Timestamp.UnixNano()) / 1e9)
	}
}

func (c *Collector) consumeStates(ctx context.Context, out <-chan interface{}) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-out:
			if !ok {
				return
			}
			if evt, ok := raw.(pkgif.EvtReachabilityStateChanged); ok {
				c.Record(evt)
			}
		}
	}
}

func (c *Collector) consumeNetwork(ctx context.Context, events <-chan netmon.NetworkEvent) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			c.networkEvents.WithLabelValues(evt.Type.String()).Inc()
		}
	}
}
