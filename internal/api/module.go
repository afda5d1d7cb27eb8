package api

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-reachability/config"
	"github.com/dep2p/go-reachability/internal/core/metrics"
	pkgif "github.com/dep2p/go-reachability/pkg/interfaces"
)

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("api",
		fx.Provide(ProvideServer),
		fx.Invoke(registerLifecycle),
	)
}

// ConfigFromUnified 从统一配置创建服务配置
func ConfigFromUnified(cfg *config.Config) *Config {
	if cfg == nil {
		c := DefaultConfig()
		return &c
	}
	return &Config{
		ListenAddr:        cfg.API.ListenAddr,
		EnableEvents:      cfg.API.EnableEvents,
		ReadHeaderTimeout: cfg.API.ReadHeaderTimeout.Duration(),
		ShutdownTimeout:   cfg.API.ShutdownTimeout.Duration(),
	}
}

// ModuleInput 服务依赖
type ModuleInput struct {
	fx.In

	Service   pkgif.ReachabilityService
	EventBus  pkgif.EventBus
	Collector *metrics.Collector `optional:"true"`
	Config    *Config            `optional:"true"`
}

// ProvideServer 提供 HTTP 服务
func ProvideServer(input ModuleInput) *Server {
	cfg := DefaultConfig()
	if input.Config != nil {
		cfg = *input.Config
	}
	return New(cfg, input.Service, input.EventBus, input.Collector)
}

// registerLifecycle 注册生命周期
func registerLifecycle(lc fx.Lifecycle, s *Server) {
	lc.Append(fx.Hook{
		OnStart: s.Start,
		OnStop:  s.Stop,
	})
}
