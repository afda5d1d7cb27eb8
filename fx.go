package reachability

import (
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-reachability/config"
	"github.com/dep2p/go-reachability/internal/api"
	"github.com/dep2p/go-reachability/internal/core/eventbus"
	"github.com/dep2p/go-reachability/internal/core/metrics"
	"github.com/dep2p/go-reachability/internal/core/netmon"
	corereach "github.com/dep2p/go-reachability/internal/core/reachability"
	"github.com/dep2p/go-reachability/internal/core/resolver"
	pkgif "github.com/dep2p/go-reachability/pkg/interfaces"
)

// buildFxApp 构建 Fx 应用
//
// 加载顺序（按依赖）：
//  1. 配置: 统一配置 → 各模块配置
//  2. 基础: EventBus → Netmon
//  3. 探测: Resolver → RouteTarget 工厂（或用户提供的工厂）
//  4. 服务: Metrics → Reachability → API
func buildFxApp(cfg *config.Config, o *options, agent *Agent) (*fx.App, error) {
	// ════════════════════════════════════════════════════════════════════════
	// 1. 配置验证（前置）
	// ════════════════════════════════════════════════════════════════════════
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	modules := []fx.Option{
		fx.Supply(cfg),
		fx.Provide(
			netmon.ConfigFromUnified,
			corereach.ConfigFromUnified,
			metrics.ConfigFromUnified,
			api.ConfigFromUnified,
		),

		eventbus.Module(),
	}

	// ════════════════════════════════════════════════════════════════════════
	// 2. 网络变化监控（条件加载）
	// ════════════════════════════════════════════════════════════════════════
	if cfg.Watcher.Enabled {
		modules = append(modules, netmon.Module())
	}

	// ════════════════════════════════════════════════════════════════════════
	// 3. 探测原语
	// ════════════════════════════════════════════════════════════════════════
	if o.targetFactory != nil {
		factory := o.targetFactory
		modules = append(modules, fx.Provide(func() corereach.TargetFactory {
			return factory
		}))
	} else {
		modules = append(modules,
			fx.Provide(resolver.ConfigFromUnified),
			resolver.Module(),
			corereach.RouteModule(),
		)
	}

	// ════════════════════════════════════════════════════════════════════════
	// 4. 服务
	// ════════════════════════════════════════════════════════════════════════
	// 指标先于观察者启动，不漏掉配置主机的首次回调
	if cfg.Metrics.Enabled {
		modules = append(modules, metrics.Module())
	}
	modules = append(modules, corereach.Module())
	if cfg.API.Enabled {
		modules = append(modules, api.Module())
	}

	// ════════════════════════════════════════════════════════════════════════
	// 5. 用户扩展（Fx Options）
	// ════════════════════════════════════════════════════════════════════════
	if len(o.fxOptions) > 0 {
		modules = append(modules, o.fxOptions...)
	}

	// ════════════════════════════════════════════════════════════════════════
	// 6. Agent 组件注入
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules, fx.Invoke(injectAgentComponents(agent)))

	// 禁用 Fx 日志输出（避免干扰用户日志）
	modules = append(modules,
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),
	)

	app := fx.New(modules...)
	if err := app.Err(); err != nil {
		return nil, err
	}
	return app, nil
}

// agentInjectParams Agent 组件注入参数
type agentInjectParams struct {
	fx.In

	Service   pkgif.ReachabilityService
	EventBus  pkgif.EventBus
	Monitor   *netmon.Monitor    `optional:"true"`
	Collector *metrics.Collector `optional:"true"`
	API       *api.Server        `optional:"true"`
}

// injectAgentComponents 创建 Agent 组件注入函数
func injectAgentComponents(agent *Agent) interface{} {
	return func(params agentInjectParams) {
		agent.service = params.Service
		agent.bus = params.EventBus
		agent.monitor = params.Monitor
		agent.collector = params.Collector
		agent.apiServer = params.API
	}
}
