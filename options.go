package reachability

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/fx"

	"github.com/dep2p/go-reachability/config"
	corereach "github.com/dep2p/go-reachability/internal/core/reachability"
)

// Option 用户配置选项函数
type Option func(*options) error

// options 内部选项结构
type options struct {
	// 完整配置（WithConfig），其余选项在其上覆盖
	config *config.Config

	hosts         []string
	sharedRunLoop *bool

	// 探测配置
	eval struct {
		refreshInterval *time.Duration
		minInterval     *time.Duration
	}

	resolverServers []string

	watcherEnabled *bool
	metricsEnabled *bool

	// HTTP 接口
	api struct {
		enable *bool
		addr   string
	}

	// 替换探测原语（测试或自定义平台）
	targetFactory corereach.TargetFactory

	// 用户扩展
	fxOptions []fx.Option
}

// newOptions 创建默认选项
func newOptions() *options {
	return &options{}
}

// toInternalConfig 转换为内部配置
func (o *options) toInternalConfig() *config.Config {
	var cfg *config.Config
	if o.config != nil {
		c := *o.config
		cfg = &c
	} else {
		cfg = config.NewConfig()
	}

	if len(o.hosts) > 0 {
		cfg.Reachability.Hosts = append(append([]string(nil), cfg.Reachability.Hosts...), o.hosts...)
	}
	if o.sharedRunLoop != nil {
		cfg.Reachability.SharedRunLoop = *o.sharedRunLoop
	}
	if o.eval.refreshInterval != nil {
		cfg.Reachability.RefreshInterval = config.Duration(*o.eval.refreshInterval)
	}
	if o.eval.minInterval != nil {
		cfg.Reachability.MinEvalInterval = config.Duration(*o.eval.minInterval)
	}
	if len(o.resolverServers) > 0 {
		cfg.Resolver.Servers = o.resolverServers
	}
	if o.watcherEnabled != nil {
		cfg.Watcher.Enabled = *o.watcherEnabled
	}
	if o.metricsEnabled != nil {
		cfg.Metrics.Enabled = *o.metricsEnabled
	}
	if o.api.enable != nil {
		cfg.API.Enabled = *o.api.enable
	}
	if o.api.addr != "" {
		cfg.API.ListenAddr = o.api.addr
	}

	return cfg
}

// ============================================================================
//                              配置选项
// ============================================================================

// WithConfig 使用完整配置，后续选项在其上覆盖
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return fmt.Errorf("config is nil")
		}
		o.config = cfg
		return nil
	}
}

// WithHosts 启动时观察的主机
func WithHosts(hosts ...string) Option {
	return func(o *options) error {
		for _, h := range hosts {
			if strings.TrimSpace(h) == "" {
				return fmt.Errorf("host name is empty")
			}
		}
		o.hosts = append(o.hosts, hosts...)
		return nil
	}
}

// WithSharedRunLoop 所有观察者共用一个事件循环
func WithSharedRunLoop(shared bool) Option {
	return func(o *options) error {
		o.sharedRunLoop = &shared
		return nil
	}
}

// WithRefreshInterval 设置周期性重新评估间隔
func WithRefreshInterval(d time.Duration) Option {
	return func(o *options) error {
		if d < time.Second {
			return fmt.Errorf("refresh interval must be >= 1s")
		}
		o.eval.refreshInterval = &d
		return nil
	}
}

// WithMinEvalInterval 设置两次评估的最小间隔
func WithMinEvalInterval(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			return fmt.Errorf("min eval interval must be >= 0")
		}
		o.eval.minInterval = &d
		return nil
	}
}

// WithResolverServers 设置 DNS 服务器（<ip>:<port>）
func WithResolverServers(servers ...string) Option {
	return func(o *options) error {
		o.resolverServers = append(o.resolverServers, servers...)
		return nil
	}
}

// WithNetworkWatcher 启用或禁用系统网络变化监听
func WithNetworkWatcher(enable bool) Option {
	return func(o *options) error {
		o.watcherEnabled = &enable
		return nil
	}
}

// WithMetrics 启用或禁用 Prometheus 指标
func WithMetrics(enable bool) Option {
	return func(o *options) error {
		o.metricsEnabled = &enable
		return nil
	}
}

// WithAPI 启动 HTTP 接口并监听 addr，addr 为空时使用配置中的地址
func WithAPI(addr string) Option {
	return func(o *options) error {
		enable := true
		o.api.enable = &enable
		o.api.addr = addr
		return nil
	}
}

// WithTargetFactory 替换默认的探测原语
//
// 设置后不再加载解析器和探测模块。
func WithTargetFactory(factory corereach.TargetFactory) Option {
	return func(o *options) error {
		if factory == nil {
			return fmt.Errorf("target factory is nil")
		}
		o.targetFactory = factory
		return nil
	}
}

// WithFxOptions 追加自定义 Fx 选项
func WithFxOptions(opts ...fx.Option) Option {
	return func(o *options) error {
		o.fxOptions = append(o.fxOptions, opts...)
		return nil
	}
}
