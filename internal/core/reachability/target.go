package reachability

import (
	"errors"
	"sync"

	"github.com/dep2p/go-reachability/internal/core/runloop"
	"github.com/dep2p/go-reachability/pkg/types"
)

// 错误定义
var (
	// ErrAlreadyScheduled 原语已被调度
	ErrAlreadyScheduled = errors.New("target already scheduled")

	// ErrNotScheduled 原语未被调度
	ErrNotScheduled = errors.New("target not scheduled")

	// ErrTargetClosed 原语已释放
	ErrTargetClosed = errors.New("target closed")

	// ErrNilRunLoop 未提供事件循环
	ErrNilRunLoop = errors.New("nil run loop")

	// ErrNilResolver 未提供解析器
	ErrNilResolver = errors.New("nil resolver")
)

// ============================================================================
//                              Target
// ============================================================================

// Target 绑定到一个主机名的可达性原语
//
// 标志变化时，原语把回调投递到调度它的事件循环上。
// 同一个 Target 只能被调度一次，由创建它的观察者独占。
type Target interface {
	// Flags 当前标志，ok 为 false 表示尚无法读取
	Flags() (types.ReachabilityFlags, bool)

	// Schedule 在事件循环上注册回调
	Schedule(loop *runloop.Loop, cb func(types.ReachabilityFlags)) error

	// Unschedule 注销回调，之后不再投递
	Unschedule() error

	// Close 释放原语
	Close() error
}

// TargetFactory 为主机名创建原语
type TargetFactory func(hostName string) (Target, error)

// ============================================================================
//                              ManualTarget
// ============================================================================

// ManualTarget 由调用方设置标志的原语
//
// 每次 Set 都投递一次回调，即使标志未变，模拟系统的重复通知。
// 适用于测试，以及已有自己网络信号的嵌入方。
type ManualTarget struct {
	hostName string

	mu        sync.Mutex
	flags     types.ReachabilityFlags
	valid     bool
	loop      *runloop.Loop
	cb        func(types.ReachabilityFlags)
	scheduled bool
	closed    bool
}

var _ Target = (*ManualTarget)(nil)

// NewManualTarget 创建手动原语，初始标志不可读
func NewManualTarget(hostName string) *ManualTarget {
	return &ManualTarget{hostName: hostName}
}

// HostName 返回主机名
func (t *ManualTarget) HostName() string {
	return t.hostName
}

// Flags 当前标志
func (t *ManualTarget) Flags() (types.ReachabilityFlags, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.flags, t.valid
}

// Set 更新标志并投递回调
//
// 返回是否投递成功（未调度或循环已停止时为 false）。
func (t *ManualTarget) Set(flags types.ReachabilityFlags) bool {
	t.mu.Lock()
	t.flags = flags
	t.valid = true
	loop, cb := t.loop, t.cb
	active := t.scheduled && !t.closed
	t.mu.Unlock()

	if !active {
		return false
	}
	return loop.Post(func() { cb(flags) })
}

// Invalidate 使标志不可读，不投递回调
func (t *ManualTarget) Invalidate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.valid = false
}

// Schedule 注册回调
func (t *ManualTarget) Schedule(loop *runloop.Loop, cb func(types.ReachabilityFlags)) error {
	if loop == nil {
		return ErrNilRunLoop
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	switch {
	case t.closed:
		return ErrTargetClosed
	case t.scheduled:
		return ErrAlreadyScheduled
	}
	t.loop = loop
	t.cb = cb
	t.scheduled = true
	return nil
}

// Unschedule 注销回调
func (t *ManualTarget) Unschedule() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch {
	case t.closed:
		return ErrTargetClosed
	case !t.scheduled:
		return ErrNotScheduled
	}
	t.loop = nil
	t.cb = nil
	t.scheduled = false
	return nil
}

// Close 释放原语
func (t *ManualTarget) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrTargetClosed
	}
	t.closed = true
	t.loop = nil
	t.cb = nil
	t.scheduled = false
	return nil
}

// IsScheduled 是否已调度
func (t *ManualTarget) IsScheduled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.scheduled
}

// IsClosed 是否已释放
func (t *ManualTarget) IsClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// ManualTargets 按主机名保存 ManualTarget 的工厂
//
// 同一主机名重复创建时返回新的原语，并替换记录。
type ManualTargets struct {
	mu      sync.Mutex
	targets map[string]*ManualTarget
}

// NewManualTargets 创建手动原语工厂
func NewManualTargets() *ManualTargets {
	return &ManualTargets{targets: make(map[string]*ManualTarget)}
}

// Factory 返回 TargetFactory
func (m *ManualTargets) Factory() TargetFactory {
	return func(hostName string) (Target, error) {
		t := NewManualTarget(hostName)
		m.mu.Lock()
		m.targets[hostName] = t
		m.mu.Unlock()
		return t, nil
	}
}

// Get 返回主机名最近创建的原语
func (m *ManualTargets) Get(hostName string) (*ManualTarget, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.targets[hostName]
	return t, ok
}
