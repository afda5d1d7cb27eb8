package config

import (
	"fmt"
	"net"
	"time"
)

// ResolverConfig DNS 解析配置
type ResolverConfig struct {
	// Servers DNS 服务器，格式 <ip>:<port>
	// 为空时读取 /etc/resolv.conf
	Servers []string `json:"servers,omitempty" mapstructure:"servers"`

	// Search 相对主机名的搜索后缀，与 Servers 一起使用
	// Servers 为空时两者都取自 /etc/resolv.conf
	Search []string `json:"search,omitempty" mapstructure:"search"`

	// Timeout 单次查询超时
	// 默认值: 3s
	Timeout Duration `json:"timeout" mapstructure:"timeout"`

	// CacheSize 缓存条目数，-1 禁用缓存
	// 默认值: 256
	CacheSize int `json:"cache_size" mapstructure:"cache_size"`

	// CacheTTL 缓存 TTL
	// 默认值: 1m
	CacheTTL Duration `json:"cache_ttl" mapstructure:"cache_ttl"`
}

// DefaultResolverConfig 返回默认的解析配置
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		Timeout:   Duration(3 * time.Second),
		CacheSize: 256,
		CacheTTL:  Duration(time.Minute),
	}
}

// Validate 验证解析配置
func (c *ResolverConfig) Validate() error {
	for _, s := range c.Servers {
		if _, _, err := net.SplitHostPort(s); err != nil {
			return fmt.Errorf("resolver: invalid server %q: %w", s, err)
		}
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("resolver: timeout must be > 0")
	}
	if c.CacheSize < -1 {
		return fmt.Errorf("resolver: cache_size must be >= -1")
	}
	if c.CacheSize != -1 && c.CacheTTL <= 0 {
		return fmt.Errorf("resolver: cache_ttl must be > 0")
	}
	return nil
}
