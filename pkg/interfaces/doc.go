// Package interfaces 定义可达性库的公共接口
//
// 接口与实现分离：
//
//	pkg/interfaces/             接口定义（本包）
//	internal/core/eventbus/     EventBus 实现
//	internal/core/reachability/ ReachabilityObserver / ReachabilityService 实现
//
// 本包只依赖 pkg/types。
package interfaces
