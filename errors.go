package reachability

import "errors"

// 公共错误定义
var (
	// ErrNotStarted Agent 未启动
	ErrNotStarted = errors.New("agent not started")

	// ErrAlreadyStarted Agent 已启动
	ErrAlreadyStarted = errors.New("agent already started")

	// ErrAgentClosed Agent 已关闭
	ErrAgentClosed = errors.New("agent closed")
)
