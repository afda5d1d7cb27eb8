// Package eventbus 实现事件总线
package eventbus

import (
	"context"

	"go.uber.org/fx"

	pkgif "github.com/dep2p/go-reachability/pkg/interfaces"
)

// ============================================================================
// Fx 模块
// ============================================================================

// Result Fx 模块输出结果
type Result struct {
	fx.Out

	EventBus pkgif.EventBus
	Bus      *Bus
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("eventbus",
		fx.Provide(ProvideEventBus),
		fx.Invoke(registerLifecycle),
	)
}

// ProvideEventBus 提供 EventBus 实例
func ProvideEventBus() Result {
	bus := NewBus()
	return Result{
		EventBus: bus,
		Bus:      bus,
	}
}

// lifecycleInput 生命周期输入参数
type lifecycleInput struct {
	fx.In
	LC  fx.Lifecycle
	Bus *Bus
}

// registerLifecycle 注册生命周期
//
// 总线最后关闭：fx 以逆序执行 OnStop，依赖总线的模块先于它停止。
func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return input.Bus.Close()
		},
	})
}
