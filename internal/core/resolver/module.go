package resolver

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-reachability/config"
)

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("resolver",
		fx.Provide(ProvideResolver),
	)
}

// ConfigFromUnified 从统一配置创建解析器配置
//
// CacheSize 为 -1 时禁用缓存。
func ConfigFromUnified(cfg *config.Config) *Config {
	if cfg == nil {
		c := DefaultConfig()
		return &c
	}
	return &Config{
		Servers:   append([]string(nil), cfg.Resolver.Servers...),
		Search:    append([]string(nil), cfg.Resolver.Search...),
		Timeout:   cfg.Resolver.Timeout.Duration(),
		CacheSize: cfg.Resolver.CacheSize,
		CacheTTL:  cfg.Resolver.CacheTTL.Duration(),
	}
}

// resolverParams 解析器依赖参数
type resolverParams struct {
	fx.In

	Config *Config `optional:"true"`
}

// ProvideResolver 提供解析器
func ProvideResolver(params resolverParams) (*Resolver, error) {
	cfg := DefaultConfig()
	if params.Config != nil {
		cfg = *params.Config
	}
	return New(cfg)
}
