package config

import (
	"fmt"
	"strings"
	"time"
)

// ReachabilityConfig 可达性配置
type ReachabilityConfig struct {
	// Hosts 启动时观察的主机
	Hosts []string `json:"hosts,omitempty" mapstructure:"hosts"`

	// SharedRunLoop 所有观察者共用一个事件循环
	// 默认值: false
	SharedRunLoop bool `json:"shared_run_loop" mapstructure:"shared_run_loop"`

	// RefreshInterval 周期性重新评估间隔
	// 默认值: 30s
	RefreshInterval Duration `json:"refresh_interval" mapstructure:"refresh_interval"`

	// MinEvalInterval 两次评估的最小间隔
	// 默认值: 500ms
	MinEvalInterval Duration `json:"min_eval_interval" mapstructure:"min_eval_interval"`

	// EvalBurst 允许的突发评估次数
	// 默认值: 2
	EvalBurst int `json:"eval_burst" mapstructure:"eval_burst"`

	// EvalTimeout 单次评估超时
	// 默认值: 5s
	EvalTimeout Duration `json:"eval_timeout" mapstructure:"eval_timeout"`
}

// DefaultReachabilityConfig 返回默认的可达性配置
func DefaultReachabilityConfig() ReachabilityConfig {
	return ReachabilityConfig{
		RefreshInterval:  Duration(30 * time.Second),
		MinEvalInterval: Duration(500 * time.Millisecond),
		EvalBurst:       2,
		EvalTimeout:     Duration(5 * time.Second),
	}
}

// Validate 验证可达性配置
func (c *ReachabilityConfig) Validate() error {
	for i, h := range c.Hosts {
		if strings.TrimSpace(h) == "" {
			return fmt.Errorf("reachability: hosts[%d] is empty", i)
		}
	}
	if c.RefreshInterval.Duration() < time.Second {
		return fmt.Errorf("reachability: refresh_interval must be >= 1s")
	}
	if c.MinEvalInterval < 0 {
		return fmt.Errorf("reachability: min_eval_interval must be >= 0")
	}
	if c.EvalBurst < 1 {
		return fmt.Errorf("reachability: eval_burst must be >= 1")
	}
	if c.EvalTimeout <= 0 {
		return fmt.Errorf("reachability: eval_timeout must be > 0")
	}
	return nil
}
