// Package main 提供 reachd 命令行入口
//
// reachd 持续观察一组主机的可达性，通过 HTTP 接口和 websocket 暴露状态，
// 也可以用 `reachd check <host>` 做一次性判断，用 `reachd status` 查询
// 运行中的守护进程。
package main

import (
	"fmt"
	"os"

	"github.com/dep2p/go-reachability/pkg/lib/log"
)

var logger = log.Logger("reachd")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
