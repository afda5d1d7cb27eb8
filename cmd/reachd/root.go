package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dep2p/go-reachability"
	"github.com/dep2p/go-reachability/config"
	"github.com/dep2p/go-reachability/pkg/lib/log"
)

// envPrefix 环境变量前缀，例如 REACHD_API_LISTEN_ADDR
const envPrefix = "REACHD"

// cliState 命令共享状态
type cliState struct {
	cfgFile string
	verbose bool
	v       *viper.Viper
	stderr  io.Writer
}

// newRootCmd 构建命令树
func newRootCmd() *cobra.Command {
	st := &cliState{v: viper.New(), stderr: os.Stderr}

	root := &cobra.Command{
		Use:           "reachd",
		Short:         "主机可达性守护进程",
		Long:          "reachd 观察一组主机的网络可达性，并通过 HTTP、websocket 和 Prometheus 暴露状态。",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&st.cfgFile, "config", "", "配置文件（JSON 或 YAML）")
	root.PersistentFlags().BoolVarP(&st.verbose, "verbose", "v", false, "输出 debug 日志")

	root.AddCommand(
		newRunCmd(st),
		newCheckCmd(st),
		newStatusCmd(st),
		newConfigCmd(st),
		newVersionCmd(),
	)
	return root
}

// load 读取配置并设置日志
//
// 优先级：命令行参数 > 环境变量 > 配置文件 > 默认值。
func (st *cliState) load() (*config.Config, error) {
	cfg, err := loadConfig(st.v, st.cfgFile)
	if err != nil {
		return nil, err
	}
	setupLogging(cfg.Log, st.verbose, st.stderr)
	return cfg, nil
}

// loadConfig 通过 viper 读取配置文件和环境变量
func loadConfig(v *viper.Viper, cfgFile string) (*config.Config, error) {
	cfg := config.NewConfig()

	defaults, err := defaultKeys(cfg)
	if err != nil {
		return nil, err
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	}

	if err := v.Unmarshal(cfg, viper.DecodeHook(config.DecodeHook())); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// defaultKeys 把默认配置展开为 viper 键
//
// viper 只为已知键读取环境变量，因此每个叶子字段都要注册默认值。
func defaultKeys(cfg *config.Config) (map[string]interface{}, error) {
	data, err := config.ToJSON(cfg)
	if err != nil {
		return nil, err
	}
	var tree map[string]interface{}
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, err
	}

	out := make(map[string]interface{})
	flatten("", tree, out)

	// omitempty 的列表字段
	out["reachability.hosts"] = []string{}
	out["resolver.servers"] = []string{}
	out["resolver.search"] = []string{}
	return out, nil
}

func flatten(prefix string, tree map[string]interface{}, out map[string]interface{}) {
	for k, val := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]interface{}); ok {
			flatten(key, sub, out)
			continue
		}
		out[key] = val
	}
}

// setupLogging 按配置设置日志输出
func setupLogging(cfg config.LogConfig, verbose bool, w io.Writer) {
	level := log.ParseLevel(cfg.Level)
	if verbose {
		level = log.LevelDebug
	}
	if strings.EqualFold(cfg.Format, "json") {
		log.SetJSONOutputWithLevel(w, level)
		return
	}
	log.SetOutputWithLevel(w, level)
}

// newVersionCmd 版本信息
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "显示版本信息",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), reachability.VersionInfo())
		},
	}
}
