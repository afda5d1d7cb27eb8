package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dep2p/go-reachability"
	"github.com/dep2p/go-reachability/config"
)

// newRunCmd 常驻运行
func newRunCmd(st *cliState) *cobra.Command {
	var (
		hosts  []string
		listen string
		noAPI  bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "持续观察主机并提供 HTTP 接口",
		Example: `  reachd run --host example.com --host api.example.org
  reachd run --config reachd.yaml --listen 0.0.0.0:8787`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := st.load()
			if err != nil {
				return err
			}
			cfg.Reachability.Hosts = append(cfg.Reachability.Hosts, hosts...)
			cfg.API.Enabled = !noAPI
			if listen != "" {
				cfg.API.ListenAddr = listen
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runDaemon(ctx, cfg, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringSliceVar(&hosts, "host", nil, "要观察的主机，可重复")
	cmd.Flags().StringVar(&listen, "listen", "", "HTTP 监听地址，覆盖配置")
	cmd.Flags().BoolVar(&noAPI, "no-api", false, "不启动 HTTP 接口")
	return cmd
}

// runDaemon 启动 Agent，记录状态变化直到 ctx 结束
func runDaemon(ctx context.Context, cfg *config.Config, out io.Writer, opts ...reachability.Option) error {
	agent, err := reachability.NewAgent(append([]reachability.Option{reachability.WithConfig(cfg)}, opts...)...)
	if err != nil {
		return err
	}
	defer func() {
		if err := agent.Close(); err != nil {
			logger.Warn("关闭 Agent 失败", "error", err)
		}
	}()

	if err := agent.Start(ctx); err != nil {
		return err
	}

	sub, err := agent.Subscribe(64)
	if err != nil {
		return err
	}
	defer func() { _ = sub.Close() }()

	if addr := agent.APIAddr(); addr != "" {
		fmt.Fprintf(out, "reachd 已启动，API: http://%s\n", addr)
	} else {
		fmt.Fprintln(out, "reachd 已启动")
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("收到退出信号，正在关闭")
			return nil
		case raw, ok := <-sub.Out():
			if !ok {
				return nil
			}
			evt, ok := raw.(reachability.StateChanged)
			if !ok {
				continue
			}
			logger.Info("可达性变化",
				"host", evt.HostName,
				"status", evt.Status.String(),
				"flags", evt.Flags.String(),
				"seq", evt.Sequence)
		}
	}
}
