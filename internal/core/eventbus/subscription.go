// Package eventbus 实现事件总线
package eventbus

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	pkgif "github.com/dep2p/go-reachability/pkg/interfaces"
)

// ============================================================================
// Subscription 实现
// ============================================================================

// Subscription 订阅句柄
type Subscription struct {
	bus       *Bus
	typ       reflect.Type
	out       chan interface{}
	closeOnce sync.Once
}

var _ pkgif.Subscription = (*Subscription)(nil)

// Out 返回事件通道
func (s *Subscription) Out() <-chan interface{} {
	return s.out
}

// Close 取消订阅
//
// 并发安全，可多次调用。先从总线移除（之后不会再有发送），再关闭通道。
func (s *Subscription) Close() error {
	s.closeOnce.Do(func() {
		s.bus.removeSub(s)
		close(s.out)
	})
	return nil
}

// ============================================================================
// Emitter 实现
// ============================================================================

// Emitter 事件发射器
type Emitter struct {
	bus       *Bus
	node      *node
	typ       reflect.Type
	closed    atomic.Bool
	closeOnce sync.Once
}

var _ pkgif.Emitter = (*Emitter)(nil)

// Emit 发射事件
//
// 事件的动态类型必须与获取发射器时声明的类型一致。
func (e *Emitter) Emit(event interface{}) error {
	if e.closed.Load() {
		return ErrEmitterClosed
	}
	if e.bus.closed.Load() {
		return ErrClosed
	}
	if reflect.TypeOf(event) != e.typ {
		return fmt.Errorf("%w: emitter for %s got %T", ErrInvalidEventType, e.typ, event)
	}

	e.node.emit(event)
	return nil
}

// Close 关闭发射器
//
// 引用计数归零且没有订阅者时删除节点。
func (e *Emitter) Close() error {
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		if e.node.nEmitters.Add(-1) == 0 {
			e.bus.tryDropNode(e.typ)
		}
	})
	return nil
}
