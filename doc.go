// Package reachability 监控主机的网络可达性并广播状态变化
//
// 每个被观察的主机对应一个观察者。观察者独占一个绑定到主机名的可达性原语，
// 原语报告标志时，观察者在事件总线上发布 StateChanged 事件，
// 订阅方据此得到 Indeterminate / NotReachable / ReachableViaWiFi / ReachableViaWWAN。
//
// # 快速开始
//
//	agent, err := reachability.Start(ctx,
//	    reachability.WithHosts("example.com"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer agent.Close()
//
//	sub, _ := agent.Subscribe(16)
//	defer sub.Close()
//	for raw := range sub.Out() {
//	    evt := raw.(reachability.StateChanged)
//	    fmt.Println(evt.HostName, evt.Status)
//	}
//
// # 架构
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  Agent             reachability.NewAgent() / Start()        │
//	├─────────────────────────────────────────────────────────────┤
//	│  API / Metrics     chi + websocket / Prometheus             │
//	├─────────────────────────────────────────────────────────────┤
//	│  Service           按主机名管理观察者                        │
//	│  Observer          原语回调 → 状态推导 → 事件发布            │
//	├─────────────────────────────────────────────────────────────┤
//	│  RouteTarget       DNS 解析 + 路由分类 → 标志               │
//	│  Resolver / Netmon miekg/dns + LRU / netlink、轮询           │
//	├─────────────────────────────────────────────────────────────┤
//	│  EventBus / RunLoop                                          │
//	└─────────────────────────────────────────────────────────────┘
//
// # 相关包
//
//	cmd/reachd       守护进程：run / check / status / config / version
//	pkg/mapping      字典、JSON、HTTP 响应到结构体的映射
//	pkg/lib/urlutil  URL 规范化与相等判断
//
// # 文件组织
//
//	reachability/
//	├── agent.go     # Agent 结构、生命周期、观察接口
//	├── fx.go        # Fx 模块组装
//	├── options.go   # WithXxx 配置选项
//	├── types.go     # AgentState 以及公共类型别名
//	├── errors.go    # 错误定义
//	└── version.go   # 版本信息
package reachability
