package metrics

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-reachability/config"
	"github.com/dep2p/go-reachability/internal/core/netmon"
	pkgif "github.com/dep2p/go-reachability/pkg/interfaces"
)

// Config 指标配置
type Config struct {
	// Enabled 是否启用指标收集
	Enabled bool
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Enabled: true,
	}
}

// ConfigFromUnified 从统一配置创建指标配置
func ConfigFromUnified(cfg *config.Config) *Config {
	if cfg == nil {
		c := DefaultConfig()
		return &c
	}
	return &Config{Enabled: cfg.Metrics.Enabled}
}

// Params Metrics 依赖参数
type Params struct {
	fx.In

	EventBus pkgif.EventBus
	Monitor  *netmon.Monitor `optional:"true"`
	Config   *Config         `optional:"true"`
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("metrics",
		fx.Provide(NewCollectorFromParams),
		fx.Invoke(registerLifecycle),
	)
}

// NewCollectorFromParams 从参数创建 Collector，禁用时返回 nil
func NewCollectorFromParams(p Params) *Collector {
	cfg := DefaultConfig()
	if p.Config != nil {
		cfg = *p.Config
	}
	if !cfg.Enabled {
		return nil
	}
	return NewCollector(p.EventBus, p.Monitor)
}

// registerLifecycle 注册生命周期
func registerLifecycle(lc fx.Lifecycle, c *Collector) {
	if c == nil {
		return
	}
	lc.Append(fx.Hook{
		OnStart: c.Start,
		OnStop: func(_ context.Context) error {
			return c.Stop()
		},
	})
}
