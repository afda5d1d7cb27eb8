package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	pkgif "github.com/dep2p/go-reachability/pkg/interfaces"
)

// TestModule_Lifecycle 模块注入总线，停止时关闭
func TestModule_Lifecycle(t *testing.T) {
	var bus pkgif.EventBus

	app := fxtest.New(t,
		Module(),
		fx.Populate(&bus),
	)
	app.RequireStart()
	require.NotNil(t, bus)

	sub, err := bus.Subscribe(new(testEvent))
	require.NoError(t, err)

	app.RequireStop()

	_, ok := <-sub.Out()
	assert.False(t, ok, "subscription should be closed with the bus")
}
