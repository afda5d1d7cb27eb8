// Package netmon 提供系统网络变化监听
package netmon

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-reachability/config"
)

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("netmon",
		fx.Provide(ProvideMonitor),
		fx.Invoke(registerLifecycle),
	)
}

// ConfigFromUnified 从统一配置创建监听器配置
func ConfigFromUnified(cfg *config.Config) *WatcherConfig {
	if cfg == nil {
		return DefaultWatcherConfig()
	}
	return &WatcherConfig{
		Enabled:         cfg.Watcher.Enabled,
		PreferNative:    cfg.Watcher.PreferNative,
		PollInterval:    cfg.Watcher.PollInterval.Duration(),
		EventBufferSize: cfg.Watcher.EventBufferSize,
	}
}

// monitorParams 监控器依赖参数
type monitorParams struct {
	fx.In

	Config *WatcherConfig `optional:"true"`
}

// ProvideMonitor 提供网络监控器
func ProvideMonitor(params monitorParams) *Monitor {
	return NewMonitor(NewSystemWatcher(params.Config))
}

// registerLifecycle 注册生命周期
func registerLifecycle(lc fx.Lifecycle, m *Monitor) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return m.Start(ctx)
		},
		OnStop: func(_ context.Context) error {
			return m.Stop()
		},
	})
}
