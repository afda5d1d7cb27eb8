package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/dep2p/go-reachability/pkg/mapping"
	"github.com/dep2p/go-reachability/pkg/types"
)

// hostStatus GET /v1/hosts 返回的单个主机
type hostStatus struct {
	ID         string              `json:"id"`
	Host       string              `json:"host"`
	Determined bool                `json:"determined"`
	Status     types.NetworkStatus `json:"status"`
	Flags      uint32              `json:"flags"`
	FlagNames  string              `json:"flag_names"`
	Reachable  bool                `json:"reachable"`
}

// AfterMapping 旧版本守护进程不返回 flag_names
func (h *hostStatus) AfterMapping() {
	if h.FlagNames == "" {
		h.FlagNames = types.ReachabilityFlags(h.Flags).String()
	}
}

// apiError 守护进程的错误响应
type apiError struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id"`
}

// newStatusCmd 查询运行中的守护进程
func newStatusCmd(st *cliState) *cobra.Command {
	var (
		addr    string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "status [host]",
		Short: "查询运行中的 reachd",
		Example: `  reachd status
  reachd status example.com --addr 10.0.0.2:8787`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				cfg, err := st.load()
				if err != nil {
					return err
				}
				addr = cfg.API.ListenAddr
			}
			host := ""
			if len(args) == 1 {
				host = args[0]
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			hosts, err := fetchStatus(ctx, http.DefaultClient, addr, host)
			if err != nil {
				return err
			}
			return printStatus(cmd.OutOrStdout(), hosts)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "守护进程 API 地址，默认取配置中的 api.listen_addr")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "请求超时")
	return cmd
}

// fetchStatus 请求 /v1/hosts 或 /v1/hosts/{host}
//
// 单个对象和数组响应都映射为列表。
func fetchStatus(ctx context.Context, client *http.Client, addr, host string) ([]*hostStatus, error) {
	base := addr
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	endpoint := strings.TrimRight(base, "/") + "/v1/hosts"
	if host != "" {
		endpoint += "/" + url.PathEscape(host)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	httpResp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", endpoint, err)
	}
	resp := mapping.NewHTTPResponse(httpResp)

	if code := resp.StatusCode(); code >= http.StatusBadRequest {
		errs, err := mapping.FromResponse[apiError](resp)
		if err != nil || len(errs) == 0 {
			return nil, fmt.Errorf("query %s: http %d", endpoint, code)
		}
		return nil, fmt.Errorf("query %s: http %d: %s", endpoint, code, errs[0].Error)
	}
	return mapping.FromResponse[hostStatus](resp)
}

// printStatus 以表格输出，未判定的状态带 * 标记
func printStatus(w io.Writer, hosts []*hostStatus) error {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Host", "Status", "Flags", "ID"})

	reachable := 0
	for _, h := range hosts {
		status := h.Status.String()
		if !h.Determined {
			status += "*"
		}
		if h.Reachable {
			reachable++
		}
		t.AppendRow(table.Row{h.Host, status, h.FlagNames, h.ID})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d/%d reachable", reachable, len(hosts)), "", ""})

	_, err := fmt.Fprintln(w, t.Render())
	return err
}
