// Package eventbus 实现事件总线
package eventbus

import pkgif "github.com/dep2p/go-reachability/pkg/interfaces"

// BufSize 设置订阅缓冲区大小，等同于 pkg/interfaces.BufSize
func BufSize(size int) pkgif.SubscriptionOpt {
	return pkgif.BufSize(size)
}

// Stateful 设置发射器为有状态模式，等同于 pkg/interfaces.Stateful
func Stateful() pkgif.EmitterOpt {
	return pkgif.Stateful()
}
