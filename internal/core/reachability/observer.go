package reachability

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/dep2p/go-reachability/internal/core/resolver"
	"github.com/dep2p/go-reachability/internal/core/runloop"
	pkgif "github.com/dep2p/go-reachability/pkg/interfaces"
	"github.com/dep2p/go-reachability/pkg/lib/log"
	"github.com/dep2p/go-reachability/pkg/types"
)

var logger = log.Logger("core/reachability")

// ============================================================================
//                              选项
// ============================================================================

type observerOptions struct {
	id      string
	loop    *runloop.Loop
	factory TargetFactory
	clock   clock.Clock
}

// Option 观察者选项
type Option func(*observerOptions)

// WithRunLoop 在给定的事件循环上调度
//
// 未设置时观察者自建事件循环，并在 Close 时停止。
func WithRunLoop(loop *runloop.Loop) Option {
	return func(o *observerOptions) {
		o.loop = loop
	}
}

// WithTargetFactory 设置原语工厂
func WithTargetFactory(f TargetFactory) Option {
	return func(o *observerOptions) {
		o.factory = f
	}
}

// WithID 指定观察者 ID
func WithID(id string) Option {
	return func(o *observerOptions) {
		o.id = id
	}
}

// WithClock 设置事件时间戳使用的时钟
func WithClock(c clock.Clock) Option {
	return func(o *observerOptions) {
		o.clock = c
	}
}

var (
	defaultFactoryMu sync.Mutex
	defaultFactory   TargetFactory

	// newDefaultResolver 构造默认解析器，测试中可替换
	newDefaultResolver = func() (Lookuper, error) {
		return resolver.New(resolver.DefaultConfig())
	}
)

// DefaultTargetFactory 使用默认解析器的 RouteTarget 工厂
//
// 只缓存构造成功的工厂；解析器创建失败时返回的工厂报告该错误，
// 下次调用会重新尝试。
func DefaultTargetFactory() TargetFactory {
	defaultFactoryMu.Lock()
	defer defaultFactoryMu.Unlock()

	if defaultFactory != nil {
		return defaultFactory
	}
	r, err := newDefaultResolver()
	if err != nil {
		logger.Warn("创建默认解析器失败", "error", err)
		return func(string) (Target, error) { return nil, err }
	}
	defaultFactory = RouteTargetFactory(r)
	return defaultFactory
}

// ============================================================================
//                              Observer
// ============================================================================

// flagsSnapshot 最近一次读到的标志
type flagsSnapshot struct {
	flags types.ReachabilityFlags
	ok    bool
}

// Observer 主机可达性观察者
//
// 独占一个 Target，把它的回调转换为状态并在总线上发布
// EvtReachabilityStateChanged。状态不保存，每次查询时从标志推导。
type Observer struct {
	id       string
	hostName string
	target   Target
	emitter  pkgif.Emitter
	loop     *runloop.Loop
	ownsLoop bool
	clock    clock.Clock

	determined atomic.Bool
	last       atomic.Pointer[flagsSnapshot]
	seq        atomic.Uint64

	// mu 只用于回调与关闭之间的互斥：回调持读锁，Close 持写锁
	mu     sync.RWMutex
	closed bool

	closeOnce sync.Once
	closeErr  error
}

var _ pkgif.ReachabilityObserver = (*Observer)(nil)

// NewObserver 为主机名创建观察者
//
// 主机名为空、总线为空或原语创建失败时返回错误，不会泄漏资源。
func NewObserver(hostName string, bus pkgif.EventBus, opts ...Option) (*Observer, error) {
	if strings.TrimSpace(hostName) == "" {
		return nil, types.ErrEmptyHostName
	}
	if bus == nil {
		return nil, types.ErrNilEventBus
	}

	options := observerOptions{clock: clock.New()}
	for _, opt := range opts {
		opt(&options)
	}
	if options.id == "" {
		options.id = uuid.NewString()
	}
	if options.factory == nil {
		options.factory = DefaultTargetFactory()
	}

	target, err := options.factory(hostName)
	if err != nil {
		return nil, &types.ConstructionError{HostName: hostName, Err: err}
	}
	if target == nil {
		return nil, &types.ConstructionError{HostName: hostName, Err: fmt.Errorf("factory returned nil target")}
	}

	emitter, err := bus.Emitter(new(pkgif.EvtReachabilityStateChanged))
	if err != nil {
		_ = target.Close()
		return nil, &types.ConstructionError{HostName: hostName, Err: err}
	}

	o := &Observer{
		id:       options.id,
		hostName: hostName,
		target:   target,
		emitter:  emitter,
		loop:     options.loop,
		clock:    options.clock,
	}
	o.last.Store(&flagsSnapshot{})

	if o.loop == nil {
		o.loop = runloop.New("reachability:" + hostName)
		o.ownsLoop = true
	}

	if err := target.Schedule(o.loop, o.handleFlags); err != nil {
		_ = target.Close()
		_ = emitter.Close()
		if o.ownsLoop {
			o.loop.Stop()
		}
		return nil, &types.ConstructionError{HostName: hostName, Err: err}
	}

	logger.Debug("创建可达性观察者", "host", hostName, "id", o.id)
	return o, nil
}

// ID 观察者唯一标识
func (o *Observer) ID() string {
	return o.id
}

// HostName 被监控的主机名
func (o *Observer) HostName() string {
	return o.hostName
}

// HasNetworkAvailabilityBeenDetermined 是否已收到过回调
func (o *Observer) HasNetworkAvailabilityBeenDetermined() bool {
	return o.determined.Load()
}

// Flags 原语当前标志
//
// 关闭后返回最后一次读到的标志。
func (o *Observer) Flags() (types.ReachabilityFlags, bool) {
	o.mu.RLock()
	closed := o.closed
	o.mu.RUnlock()

	if closed {
		s := o.last.Load()
		return s.flags, s.ok
	}

	flags, ok := o.target.Flags()
	if ok {
		o.last.Store(&flagsSnapshot{flags: flags, ok: true})
	}
	return flags, ok
}

// NetworkStatus 从当前标志推导状态
func (o *Observer) NetworkStatus() types.NetworkStatus {
	return types.StatusFromFlags(o.Flags())
}

// IsNetworkReachable 是否经 WiFi 或 WWAN 可达
func (o *Observer) IsNetworkReachable() bool {
	return o.NetworkStatus().IsReachable()
}

// IsConnectionRequired 是否需要先建立连接
func (o *Observer) IsConnectionRequired() bool {
	return types.ConnectionRequiredFromFlags(o.Flags())
}

// Close 注销并释放原语
//
// 等待正在执行的回调结束；之后到达的回调被丢弃。可重复调用。
func (o *Observer) Close() error {
	o.closeOnce.Do(func() {
		o.mu.Lock()
		o.closed = true
		o.mu.Unlock()

		var errs error
		errs = multierr.Append(errs, o.target.Unschedule())
		errs = multierr.Append(errs, o.target.Close())
		errs = multierr.Append(errs, o.emitter.Close())

		if o.ownsLoop {
			o.loop.Stop()
			o.loop.Wait()
		}

		o.closeErr = errs
		logger.Debug("关闭可达性观察者", "host", o.hostName, "id", o.id)
	})
	return o.closeErr
}

// handleFlags 原语回调，在事件循环 goroutine 上执行
func (o *Observer) handleFlags(flags types.ReachabilityFlags) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.closed {
		logger.Debug("观察者已关闭，丢弃回调", "host", o.hostName)
		return
	}

	o.determined.Store(true)
	o.last.Store(&flagsSnapshot{flags: flags, ok: true})

	evt := pkgif.EvtReachabilityStateChanged{
		Observer:  o,
		HostName:  o.hostName,
		Status:    types.StatusFromFlags(flags, true),
		Flags:     flags,
		Sequence:  o.seq.Add(1),
		Timestamp: o.clock.Now(),
	}
	if err := o.emitter.Emit(evt); err != nil {
		logger.Warn("发布可达性事件失败", "host", o.hostName, "error", err)
		return
	}

	logger.Debug("可达性状态变化", "host", o.hostName, "status", evt.Status.String(), "flags", flags.String())
}
