package reachability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/fx"

	"github.com/dep2p/go-reachability/config"
	"github.com/dep2p/go-reachability/internal/api"
	"github.com/dep2p/go-reachability/internal/core/eventbus"
	"github.com/dep2p/go-reachability/internal/core/metrics"
	"github.com/dep2p/go-reachability/internal/core/netmon"
	corereach "github.com/dep2p/go-reachability/internal/core/reachability"
	pkgif "github.com/dep2p/go-reachability/pkg/interfaces"
	"github.com/dep2p/go-reachability/pkg/lib/log"
)

var logger = log.Logger("reachability")

const (
	startTimeout = 30 * time.Second
	closeTimeout = 15 * time.Second
)

// Agent 可达性代理
//
// 组装事件总线、网络监控、解析器、观察者服务以及可选的指标和 HTTP 接口。
// 生命周期: NewAgent → Start → Close，关闭后不可重新启动。
type Agent struct {
	config *config.Config
	app    *fx.App

	// 由 Fx 注入
	service   pkgif.ReachabilityService
	bus       pkgif.EventBus
	monitor   *netmon.Monitor
	collector *metrics.Collector
	apiServer *api.Server

	mu    sync.Mutex
	state AgentState
}

// NewAgent 创建 Agent，不启动
func NewAgent(opts ...Option) (*Agent, error) {
	o := newOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	agent := &Agent{config: o.toInternalConfig()}

	var err error
	agent.app, err = buildFxApp(agent.config, o, agent)
	if err != nil {
		return nil, fmt.Errorf("build fx app: %w", err)
	}
	return agent, nil
}

// Start 快捷启动函数
//
// 等价于 NewAgent() + Agent.Start()。
func Start(ctx context.Context, opts ...Option) (*Agent, error) {
	agent, err := NewAgent(opts...)
	if err != nil {
		return nil, err
	}
	if err := agent.Start(ctx); err != nil {
		return nil, err
	}
	return agent, nil
}

// Start 启动所有模块并观察配置中的主机
func (a *Agent) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch a.state {
	case StateRunning, StateStarting:
		return ErrAlreadyStarted
	case StateStopping, StateStopped:
		return ErrAgentClosed
	}

	a.state = StateStarting
	startCtx, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()

	if err := a.app.Start(startCtx); err != nil {
		a.state = StateStopped
		logger.Error("Agent 启动失败", "error", err)
		return fmt.Errorf("start fx app: %w", err)
	}

	a.state = StateRunning
	logger.Info("Agent 已启动",
		"hosts", len(a.service.Observers()),
		"metrics", a.collector != nil,
		"api", a.apiServer != nil)
	return nil
}

// Close 关闭全部观察者并释放资源，可重复调用
func (a *Agent) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	return a.Stop(ctx)
}

// Stop 在 ctx 期限内关闭
func (a *Agent) Stop(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch a.state {
	case StateStopped, StateStopping:
		return nil
	case StateIdle:
		a.state = StateStopped
		return nil
	}

	a.state = StateStopping
	logger.Info("正在停止 Agent")

	err := a.app.Stop(ctx)
	a.state = StateStopped
	if err != nil {
		logger.Error("停止 Agent 失败", "error", err)
		return fmt.Errorf("stop fx app: %w", err)
	}
	logger.Info("Agent 已停止")
	return nil
}

// State 返回当前状态
func (a *Agent) State() AgentState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// running 检查是否处于运行状态
func (a *Agent) running() error {
	switch a.State() {
	case StateRunning:
		return nil
	case StateIdle, StateStarting:
		return ErrNotStarted
	default:
		return ErrAgentClosed
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              观察
// ════════════════════════════════════════════════════════════════════════════

// Observe 返回主机的观察者，不存在则创建
func (a *Agent) Observe(hostName string) (Observer, error) {
	if err := a.running(); err != nil {
		return nil, err
	}
	return a.service.Observe(hostName)
}

// ObserveURL 观察 URL 的主机
func (a *Agent) ObserveURL(rawURL string) (Observer, error) {
	if err := a.running(); err != nil {
		return nil, err
	}
	return a.service.ObserveURL(rawURL)
}

// Lookup 查找已存在的观察者
func (a *Agent) Lookup(hostName string) (Observer, bool) {
	if a.running() != nil {
		return nil, false
	}
	return a.service.Lookup(hostName)
}

// Release 关闭并移除主机的观察者
func (a *Agent) Release(hostName string) error {
	if err := a.running(); err != nil {
		return err
	}
	if err := a.service.Release(hostName); err != nil {
		return err
	}
	if a.collector != nil {
		a.collector.Forget(corereach.HostKey(hostName))
	}
	return nil
}

// Observers 返回按主机名排序的观察者
func (a *Agent) Observers() []Observer {
	if a.running() != nil {
		return nil
	}
	return a.service.Observers()
}

// Subscribe 订阅可达性状态变化
//
// buffer 为订阅通道容量，<=0 时使用总线默认值。调用方负责 Close。
func (a *Agent) Subscribe(buffer int) (Subscription, error) {
	if err := a.running(); err != nil {
		return nil, err
	}
	var opts []pkgif.SubscriptionOpt
	if buffer > 0 {
		opts = append(opts, eventbus.BufSize(buffer))
	}
	return a.bus.Subscribe(new(pkgif.EvtReachabilityStateChanged), opts...)
}

// ════════════════════════════════════════════════════════════════════════════
//                              组件访问
// ════════════════════════════════════════════════════════════════════════════

// Service 返回观察者服务
func (a *Agent) Service() pkgif.ReachabilityService {
	return a.service
}

// EventBus 返回事件总线
func (a *Agent) EventBus() pkgif.EventBus {
	return a.bus
}

// Config 返回生效的配置
func (a *Agent) Config() *config.Config {
	return a.config
}

// NotifyNetworkChange 手动通知网络变化，所有探测原语重新评估
//
// 未启用网络监控时返回 false。
func (a *Agent) NotifyNetworkChange() bool {
	if a.monitor == nil || a.running() != nil {
		return false
	}
	a.monitor.NotifyChange()
	return true
}

// APIAddr 返回 HTTP 接口的实际监听地址，未启用时为空
func (a *Agent) APIAddr() string {
	if a.apiServer == nil {
		return ""
	}
	return a.apiServer.Addr()
}

// MetricsEnabled 是否启用了指标收集
func (a *Agent) MetricsEnabled() bool {
	return a.collector != nil
}
