package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dep2p/go-reachability"
	"github.com/dep2p/go-reachability/config"
	"github.com/dep2p/go-reachability/pkg/types"
)

// checkResult 一次性判断结果
type checkResult struct {
	Host               string              `json:"host"`
	Determined         bool                `json:"determined"`
	Status             types.NetworkStatus `json:"status"`
	Flags              string              `json:"flags"`
	Reachable          bool                `json:"reachable"`
	ConnectionRequired bool                `json:"connection_required"`
}

// newCheckCmd 一次性判断
func newCheckCmd(st *cliState) *cobra.Command {
	var (
		timeout time.Duration
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "check <host|url>",
		Short: "判断一次主机的可达性后退出",
		Example: `  reachd check example.com
  reachd check https://api.example.org/v1 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := st.load()
			if err != nil {
				return err
			}
			res, err := checkHost(cmd.Context(), cfg, args[0], timeout)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), res, asJSON)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "等待首次判断的时间")
	cmd.Flags().BoolVar(&asJSON, "json", false, "以 JSON 输出")
	return cmd
}

// checkHost 观察 target 直到首次回调或超时
//
// 超时后返回当前状态，Determined 为 false。
func checkHost(ctx context.Context, cfg *config.Config, target string, timeout time.Duration, opts ...reachability.Option) (checkResult, error) {
	c := *cfg
	c.Reachability.Hosts = nil
	c.API.Enabled = false
	c.Metrics.Enabled = false
	c.Watcher.Enabled = false

	agent, err := reachability.NewAgent(append([]reachability.Option{reachability.WithConfig(&c)}, opts...)...)
	if err != nil {
		return checkResult{}, err
	}
	defer func() { _ = agent.Close() }()

	if err := agent.Start(ctx); err != nil {
		return checkResult{}, err
	}

	sub, err := agent.Subscribe(4)
	if err != nil {
		return checkResult{}, err
	}
	defer func() { _ = sub.Close() }()

	var o reachability.Observer
	if strings.Contains(target, "://") {
		o, err = agent.ObserveURL(target)
	} else {
		o, err = agent.Observe(target)
	}
	if err != nil {
		return checkResult{}, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-sub.Out():
	case <-timer.C:
		logger.Warn("等待判断超时", "host", o.HostName(), "timeout", timeout)
	case <-ctx.Done():
		return checkResult{}, ctx.Err()
	}

	flags, _ := o.Flags()
	return checkResult{
		Host:               o.HostName(),
		Determined:         o.HasNetworkAvailabilityBeenDetermined(),
		Status:             o.NetworkStatus(),
		Flags:              flags.String(),
		Reachable:          o.IsNetworkReachable(),
		ConnectionRequired: o.IsConnectionRequired(),
	}, nil
}

func printResult(w io.Writer, res checkResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	_, err := fmt.Fprintf(w, "%s: %s (%s)\n", res.Host, res.Status, res.Flags)
	return err
}
