// Package runloop 提供串行事件循环
//
// 一个 Loop 对应一个 goroutine，按投递顺序（FIFO）依次执行任务。
// 可达性原语把回调投递到观察者被调度的 Loop 上，
// 因此同一观察者的所有回调都在同一个 goroutine 上串行执行。
package runloop

import (
	"sync"

	"github.com/dep2p/go-reachability/pkg/lib/log"
)

var logger = log.Logger("core/runloop")

// Loop 串行事件循环
type Loop struct {
	name string

	mu       sync.Mutex
	queue    []func()
	stopping bool

	wake chan struct{}
	done chan struct{}
}

// New 创建并启动事件循环
func New(name string) *Loop {
	l := &Loop{
		name: name,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go l.run()
	return l
}

// Name 返回循环名称
func (l *Loop) Name() string {
	return l.name
}

// Post 投递任务
//
// 返回 false 表示循环已停止，任务不会执行。
func (l *Loop) Post(fn func()) bool {
	if fn == nil {
		return false
	}

	l.mu.Lock()
	if l.stopping {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Sync 投递任务并等待其执行完成
//
// 由于队列是 FIFO，返回时此前投递的任务也都已执行。
// 不能在循环自身的任务中调用，否则会死锁。
func (l *Loop) Sync(fn func()) bool {
	finished := make(chan struct{})
	ok := l.Post(func() {
		defer close(finished)
		if fn != nil {
			fn()
		}
	})
	if !ok {
		return false
	}

	select {
	case <-finished:
		return true
	case <-l.done:
		// 循环停止前会执行完已投递的任务
		select {
		case <-finished:
			return true
		default:
			return false
		}
	}
}

// Stop 停止循环
//
// 已投递的任务仍会执行，之后的 Post 返回 false。Stop 不等待，
// 需要等待时调用 Wait。可重复调用。
func (l *Loop) Stop() {
	l.mu.Lock()
	if l.stopping {
		l.mu.Unlock()
		return
	}
	l.stopping = true
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Wait 等待循环 goroutine 退出
func (l *Loop) Wait() {
	<-l.done
}

// Done 返回循环退出时关闭的通道
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// run 循环主体
func (l *Loop) run() {
	defer close(l.done)

	for range l.wake {
		for {
			l.mu.Lock()
			if len(l.queue) == 0 {
				stopping := l.stopping
				l.mu.Unlock()
				if stopping {
					logger.Debug("事件循环已退出", "loop", l.name)
					return
				}
				break
			}
			fn := l.queue[0]
			l.queue[0] = nil
			l.queue = l.queue[1:]
			l.mu.Unlock()

			l.exec(fn)
		}
	}
}

// exec 执行单个任务，任务 panic 不会终止循环
func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("事件循环任务 panic", "loop", l.name, "panic", r)
		}
	}()
	fn()
}
