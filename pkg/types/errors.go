// Package types 定义可达性库的基础类型
//
// 本文件定义所有公共错误类型。
package types

import (
	"errors"
	"fmt"
)

// ============================================================================
//                              观察者构造错误
// ============================================================================

var (
	// ErrEmptyHostName 主机名为空
	ErrEmptyHostName = errors.New("empty host name")

	// ErrNilEventBus 未提供事件总线
	ErrNilEventBus = errors.New("nil event bus")

	// ErrObserverClosed 观察者已关闭
	ErrObserverClosed = errors.New("observer closed")
)

// ConstructionError 可达性原语无法为主机分配时返回
//
// 构造失败不会产出观察者，也不会泄漏任何已分配的资源。
type ConstructionError struct {
	HostName string
	Err      error
}

// Error 实现 error 接口
func (e *ConstructionError) Error() string {
	return fmt.Sprintf("create reachability observer for %q: %v", e.HostName, e.Err)
}

// Unwrap 返回底层错误
func (e *ConstructionError) Unwrap() error {
	return e.Err
}
