package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dep2p/go-reachability/config"
)

// newConfigCmd 输出合并后的生效配置
func newConfigCmd(st *cliState) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "显示生效的配置（默认值、配置文件和环境变量合并后）",
		Example: `  reachd config > reachd.yaml
  REACHD_API_ENABLED=true reachd config --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := st.load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				logger.Warn("配置未通过校验", "error", err)
			}
			return writeConfig(cmd.OutOrStdout(), cfg, format)
		},
	}

	cmd.Flags().StringVar(&format, "format", "yaml", "输出格式：yaml 或 json")
	return cmd
}

func writeConfig(w io.Writer, cfg *config.Config, format string) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case "yaml", "yml":
		data, err = config.ToYAML(cfg)
	case "json":
		data, err = config.ToJSON(cfg)
		data = append(data, '\n')
	default:
		return fmt.Errorf("unknown format %q", format)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
