//go:build !linux

// Package netmon 提供系统网络变化监听
package netmon

// newNativeSystemWatcher 非 Linux 平台没有原生实现，回退到 PollingWatcher
func newNativeSystemWatcher(_ *WatcherConfig) SystemWatcher {
	return nil
}
