package config

import (
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// FromJSON 从 JSON 数据创建配置
//
// 未出现的字段保留默认值。
//
// 示例 JSON:
//
//	{
//	  "reachability": {"hosts": ["example.com"], "refresh_interval": "1m"},
//	  "resolver": {"servers": ["1.1.1.1:53"]}
//	}
func FromJSON(data []byte) (*Config, error) {
	cfg := NewConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// ToJSON 序列化配置
func ToJSON(cfg *Config) ([]byte, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	return json.MarshalIndent(cfg, "", "  ")
}

// ToYAML 以 YAML 序列化配置，键名与 JSON 相同
//
// 输出可以直接作为 reachd 的配置文件。
func ToYAML(cfg *Config) ([]byte, error) {
	data, err := ToJSON(cfg)
	if err != nil {
		return nil, err
	}
	var tree map[string]interface{}
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, err
	}
	return yaml.Marshal(tree)
}

// ValidateAll 验证整个配置，nil 返回错误
func ValidateAll(c *Config) error {
	if c == nil {
		return errors.New("config is nil")
	}
	return c.Validate()
}
