// Package reachability 实现主机可达性观察
//
// # 核心组件
//
// Observer - 可达性观察者:
//   - 绑定一个主机名，独占一个 Target
//   - 在事件循环上接收 Target 回调，首次回调后标记“已确定”
//   - 每次回调在总线上发布 EvtReachabilityStateChanged，不做去重
//   - 状态按需从标志推导，不缓存
//
// Target - 可达性原语:
//   - RouteTarget: 解析主机，按出口接口分类路由，网络变化或定时刷新时重新评估，
//     只有标志变化才回调
//   - ManualTarget: 由调用方设置标志
//
// Service - 按主机名复用观察者，服务关闭时统一释放。
//
// # 状态推导
//
//	标志不可读                         -> Indeterminate
//	未设置 Reachable                   -> NotReachable
//	设置 IsWWAN                        -> ReachableViaWWAN
//	需要连接且不会自动建立              -> NotReachable
//	其余                               -> ReachableViaWiFi
//
// # 关闭
//
// 回调持观察者读锁执行，Close 取写锁，因此 Close 会等待正在执行的回调；
// 关闭后到达的回调直接丢弃，不修改状态也不发布事件。
package reachability
