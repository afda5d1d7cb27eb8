// Package config 提供统一的配置管理
//
// 主 Config 结构体嵌入所有子配置，每个子配置在独立文件中定义。
// 支持从 JSON 加载，以及通过 viper（mapstructure 标签）从 YAML、环境变量加载。
//
// 使用示例：
//
//	cfg := config.NewConfig()
//	cfg.Reachability.Hosts = []string{"example.com"}
//	cfg.Watcher.PollInterval = config.Duration(10 * time.Second)
//
//	// 从 JSON 加载
//	cfg, err := config.FromJSON(data)
package config

// Config 完整配置
//
// 配置按照功能模块组织：
//   - Reachability: 观察的主机和探测节奏
//   - Watcher: 系统网络变化监听
//   - Resolver: DNS 解析
//   - Metrics: Prometheus 指标
//   - API: 守护进程 HTTP 接口
//   - Log: 日志输出
type Config struct {
	// Reachability 可达性配置
	Reachability ReachabilityConfig `json:"reachability" mapstructure:"reachability"`

	// Watcher 网络变化监听配置
	Watcher WatcherConfig `json:"watcher" mapstructure:"watcher"`

	// Resolver DNS 解析配置
	Resolver ResolverConfig `json:"resolver" mapstructure:"resolver"`

	// Metrics 指标配置
	Metrics MetricsConfig `json:"metrics" mapstructure:"metrics"`

	// API HTTP 接口配置
	API APIConfig `json:"api" mapstructure:"api"`

	// Log 日志配置
	Log LogConfig `json:"log" mapstructure:"log"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	return &Config{
		Reachability: DefaultReachabilityConfig(),
		Watcher:      DefaultWatcherConfig(),
		Resolver:     DefaultResolverConfig(),
		Metrics:      DefaultMetricsConfig(),
		API:          DefaultAPIConfig(),
		Log:          DefaultLogConfig(),
	}
}

// Validate 验证配置的有效性
//
// 检查所有子配置，返回第一个错误。
func (c *Config) Validate() error {
	if err := c.Reachability.Validate(); err != nil {
		return err
	}
	if err := c.Watcher.Validate(); err != nil {
		return err
	}
	if err := c.Resolver.Validate(); err != nil {
		return err
	}
	if err := c.API.Validate(); err != nil {
		return err
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	return nil
}
