// Package types 定义可达性库的基础类型
//
// 包含：
//   - NetworkStatus: 四值网络可达状态
//   - ReachabilityFlags: 可达性原语报告的标志位
//   - StatusFromFlags: 标志到状态的推导规则
//   - 公共错误
//
// 本包不依赖任何内部包，可被 pkg/interfaces 和所有实现引用。
package types
