package reachability

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-reachability/config"
	"github.com/dep2p/go-reachability/internal/core/netmon"
	"github.com/dep2p/go-reachability/internal/core/resolver"
	pkgif "github.com/dep2p/go-reachability/pkg/interfaces"
)

// ============================================================================
//                              模块输入依赖
// ============================================================================

// factoryInput 原语工厂依赖
type factoryInput struct {
	fx.In

	Resolver *resolver.Resolver
	Monitor  *netmon.Monitor `optional:"true"`
	Config   *Config         `optional:"true"`
}

// ModuleInput 服务依赖
type ModuleInput struct {
	fx.In

	EventBus pkgif.EventBus
	Factory  TargetFactory
	Config   *Config `optional:"true"`
}

// ConfigFromUnified 从统一配置创建可达性配置
func ConfigFromUnified(cfg *config.Config) *Config {
	if cfg == nil {
		c := DefaultConfig()
		return &c
	}
	r := cfg.Reachability
	return &Config{
		Hosts:         append([]string(nil), r.Hosts...),
		SharedRunLoop: r.SharedRunLoop,
		Route: RouteConfig{
			RefreshInterval: r.RefreshInterval.Duration(),
			MinInterval:     r.MinEvalInterval.Duration(),
			Burst:           r.EvalBurst,
			Timeout:         r.EvalTimeout.Duration(),
		},
	}
}

// ============================================================================
//                              模块输出服务
// ============================================================================

// ModuleOutput 模块输出
type ModuleOutput struct {
	fx.Out

	// Service 可达性服务
	Service pkgif.ReachabilityService

	// ServiceImpl 具体实现（仅供本组件内部 wiring/lifecycle 使用）
	ServiceImpl *Service
}

// ============================================================================
//                              服务提供
// ============================================================================

// ProvideTargetFactory 提供基于解析器和网络监控的 RouteTarget 工厂
func ProvideTargetFactory(input factoryInput) TargetFactory {
	cfg := DefaultConfig()
	if input.Config != nil {
		cfg = *input.Config
	}

	opts := []RouteOption{WithRouteConfig(cfg.Route)}
	if input.Monitor != nil {
		opts = append(opts, WithNetworkMonitor(input.Monitor))
	}
	return RouteTargetFactory(input.Resolver, opts...)
}

// ProvideServices 提供模块服务
func ProvideServices(input ModuleInput) (ModuleOutput, error) {
	cfg := DefaultConfig()
	if input.Config != nil {
		cfg = *input.Config
	}

	svc, err := NewService(cfg, input.EventBus, input.Factory)
	if err != nil {
		return ModuleOutput{}, err
	}
	return ModuleOutput{
		Service:     svc,
		ServiceImpl: svc,
	}, nil
}

// ============================================================================
//                              模块定义
// ============================================================================

// Module 返回 fx 模块配置
//
// 需要外部提供 TargetFactory，通常来自 RouteModule。
func Module() fx.Option {
	return fx.Module("reachability",
		fx.Provide(ProvideServices),
		fx.Invoke(registerLifecycle),
	)
}

// RouteModule 提供 RouteTarget 工厂
func RouteModule() fx.Option {
	return fx.Module("reachability-route",
		fx.Provide(ProvideTargetFactory),
	)
}

// lifecycleInput 生命周期依赖
type lifecycleInput struct {
	fx.In

	LC      fx.Lifecycle
	Service *Service
}

// registerLifecycle 启动时观察配置的主机，停止时关闭全部观察者
func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			return input.Service.ObserveConfigured()
		},
		OnStop: func(_ context.Context) error {
			return input.Service.Close()
		},
	})
}
