package reachability

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/time/rate"

	"github.com/dep2p/go-reachability/internal/core/netmon"
	"github.com/dep2p/go-reachability/internal/core/runloop"
	"github.com/dep2p/go-reachability/pkg/types"
)

// ============================================================================
//                              依赖接口
// ============================================================================

// Lookuper 解析主机地址
type Lookuper interface {
	LookupIP(ctx context.Context, host string) ([]net.IP, error)
}

// cacheInvalidator 支持按主机清除缓存的解析器
type cacheInvalidator interface {
	Invalidate(host string)
}

// NetworkMonitor 网络变化事件源
type NetworkMonitor interface {
	Subscribe() (<-chan netmon.NetworkEvent, func())
}

// ============================================================================
//                              配置
// ============================================================================

// RouteConfig 探测原语配置
type RouteConfig struct {
	// RefreshInterval 周期性重新评估间隔
	// 默认: 30s
	RefreshInterval time.Duration

	// MinInterval 两次评估的最小间隔
	// 默认: 500ms
	MinInterval time.Duration

	// Burst 允许的突发评估次数
	// 默认: 2
	Burst int

	// Timeout 单次评估（解析 + 路由）超时
	// 默认: 5s
	Timeout time.Duration
}

// DefaultRouteConfig 返回默认配置
func DefaultRouteConfig() RouteConfig {
	return RouteConfig{
		RefreshInterval: 30 * time.Second,
		MinInterval:     500 * time.Millisecond,
		Burst:           2,
		Timeout:         5 * time.Second,
	}
}

// Validate 修正无效值，始终返回 nil
func (c *RouteConfig) Validate() error {
	def := DefaultRouteConfig()
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = def.RefreshInterval
	}
	if c.MinInterval <= 0 {
		c.MinInterval = def.MinInterval
	}
	if c.Burst <= 0 {
		c.Burst = def.Burst
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	return nil
}

// ============================================================================
//                              RouteTarget
// ============================================================================

// RouteTarget 通过解析和本机路由判断可达性的原语
//
// 调度后在后台评估：首次立即评估，之后由网络变化事件、周期刷新
// 或 Refresh 触发。只有标志与上次评估不同时才投递回调。
type RouteTarget struct {
	hostName   string
	resolver   Lookuper
	monitor    NetworkMonitor
	classifier *Classifier
	clock      clock.Clock
	limiter    *rate.Limiter
	config     RouteConfig

	mu        sync.Mutex
	flags     types.ReachabilityFlags
	valid     bool
	loop      *runloop.Loop
	cb        func(types.ReachabilityFlags)
	scheduled bool
	closed    bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	trigger chan struct{}
}

var _ Target = (*RouteTarget)(nil)

// RouteOption 探测原语选项
type RouteOption func(*RouteTarget)

// WithRouteClock 设置时钟
func WithRouteClock(c clock.Clock) RouteOption {
	return func(p *RouteTarget) {
		p.clock = c
	}
}

// WithClassifier 设置路由分类器
func WithClassifier(c *Classifier) RouteOption {
	return func(p *RouteTarget) {
		p.classifier = c
	}
}

// WithNetworkMonitor 订阅网络变化
func WithNetworkMonitor(m NetworkMonitor) RouteOption {
	return func(p *RouteTarget) {
		p.monitor = m
	}
}

// WithRouteConfig 设置配置
func WithRouteConfig(cfg RouteConfig) RouteOption {
	return func(p *RouteTarget) {
		p.config = cfg
	}
}

// NewRouteTarget 创建探测原语
func NewRouteTarget(hostName string, resolver Lookuper, opts ...RouteOption) *RouteTarget {
	p := &RouteTarget{
		hostName: hostName,
		resolver: resolver,
		clock:    clock.New(),
		config:   DefaultRouteConfig(),
		trigger:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	_ = p.config.Validate()
	if p.classifier == nil {
		p.classifier = NewClassifier()
	}
	p.limiter = rate.NewLimiter(rate.Every(p.config.MinInterval), p.config.Burst)
	return p
}

// RouteTargetFactory 返回创建 RouteTarget 的工厂
func RouteTargetFactory(resolver Lookuper, opts ...RouteOption) TargetFactory {
	return func(hostName string) (Target, error) {
		if resolver == nil {
			return nil, ErrNilResolver
		}
		return NewRouteTarget(hostName, resolver, opts...), nil
	}
}

// Flags 最近一次评估的标志
func (p *RouteTarget) Flags() (types.ReachabilityFlags, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.flags, p.valid
}

// Schedule 注册回调并开始后台评估
func (p *RouteTarget) Schedule(loop *runloop.Loop, cb func(types.ReachabilityFlags)) error {
	if loop == nil {
		return ErrNilRunLoop
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case p.closed:
		return ErrTargetClosed
	case p.scheduled:
		return ErrAlreadyScheduled
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.loop = loop
	p.cb = cb
	p.scheduled = true
	p.cancel = cancel

	p.wg.Add(1)
	go p.run(ctx)

	logger.Debug("探测原语已调度", "host", p.hostName, "loop", loop.Name())
	return nil
}

// Unschedule 停止后台评估并注销回调
func (p *RouteTarget) Unschedule() error {
	p.mu.Lock()
	switch {
	case p.closed:
		p.mu.Unlock()
		return ErrTargetClosed
	case !p.scheduled:
		p.mu.Unlock()
		return ErrNotScheduled
	}
	cancel := p.cancel
	p.scheduled = false
	p.loop = nil
	p.cb = nil
	p.cancel = nil
	p.mu.Unlock()

	cancel()
	p.wg.Wait()
	return nil
}

// Close 释放原语，仍在调度时先注销
func (p *RouteTarget) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrTargetClosed
	}
	scheduled := p.scheduled
	p.mu.Unlock()

	if scheduled {
		_ = p.Unschedule()
	}

	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

// Refresh 请求一次重新评估，不阻塞
func (p *RouteTarget) Refresh() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

// run 后台评估循环
func (p *RouteTarget) run(ctx context.Context) {
	defer p.wg.Done()

	var events <-chan netmon.NetworkEvent
	if p.monitor != nil {
		ch, unsubscribe := p.monitor.Subscribe()
		defer unsubscribe()
		events = ch
	}

	ticker := p.clock.Ticker(p.config.RefreshInterval)
	defer ticker.Stop()

	p.evaluate(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-p.trigger:
		case evt, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			logger.Debug("网络变化，重新评估", "host", p.hostName, "event", evt.Type.String())
			if inv, ok := p.resolver.(cacheInvalidator); ok {
				inv.Invalidate(p.hostName)
			}
		}

		if err := p.limiter.Wait(ctx); err != nil {
			return
		}
		p.evaluate(ctx)
	}
}

// evaluate 评估一次，标志变化时投递回调
func (p *RouteTarget) evaluate(ctx context.Context) {
	flags := p.classify(ctx)
	if ctx.Err() != nil {
		return
	}

	p.mu.Lock()
	changed := !p.valid || p.flags != flags
	p.flags = flags
	p.valid = true
	loop, cb, scheduled := p.loop, p.cb, p.scheduled
	p.mu.Unlock()

	if !changed || !scheduled {
		return
	}

	logger.Debug("可达性标志变化", "host", p.hostName, "flags", flags.String())
	if !loop.Post(func() { cb(flags) }) {
		logger.Debug("事件循环已停止，丢弃回调", "host", p.hostName)
	}
}

// classify 解析主机并分类路由
func (p *RouteTarget) classify(ctx context.Context) types.ReachabilityFlags {
	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	ips, err := p.resolver.LookupIP(ctx, p.hostName)
	if err != nil {
		logger.Debug("解析主机失败", "host", p.hostName, "error", err)
		return 0
	}
	return p.classifier.Classify(ctx, ips)
}
