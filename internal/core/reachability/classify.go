package reachability

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dep2p/go-reachability/internal/core/netmon"
	"github.com/dep2p/go-reachability/pkg/types"
)

// ============================================================================
//                              接口类型
// ============================================================================

// InterfaceKind 出口接口类型
type InterfaceKind string

const (
	// KindUnknown 无法识别
	KindUnknown InterfaceKind = "unknown"
	// KindWired 有线
	KindWired InterfaceKind = "wired"
	// KindWiFi 无线局域网
	KindWiFi InterfaceKind = "wifi"
	// KindCellular 蜂窝（WWAN）
	KindCellular InterfaceKind = "cellular"
	// KindLoopback 回环
	KindLoopback InterfaceKind = "loopback"
	// KindTunnel 点对点或隧道（ppp、tun、wg）
	KindTunnel InterfaceKind = "tunnel"
)

// 接口名前缀，按顺序匹配
var kindPrefixes = []struct {
	prefix string
	kind   InterfaceKind
}{
	{"wwan", KindCellular},
	{"wwp", KindCellular},
	{"rmnet", KindCellular},
	{"ccmni", KindCellular},
	{"pdp_ip", KindCellular},
	{"wlan", KindWiFi},
	{"wlp", KindWiFi},
	{"wlx", KindWiFi},
	{"wifi", KindWiFi},
	{"ath", KindWiFi},
	{"ppp", KindTunnel},
	{"tun", KindTunnel},
	{"tap", KindTunnel},
	{"utun", KindTunnel},
	{"wg", KindTunnel},
	{"ipsec", KindTunnel},
	{"eth", KindWired},
	{"en", KindWired},
}

// defaultSysfsRoot Linux 网络设备目录
const defaultSysfsRoot = "/sys/class/net"

// ============================================================================
//                              Route
// ============================================================================

// Route 到目标地址的出口路由
type Route struct {
	// Remote 目标地址
	Remote net.IP

	// Local 内核为该目标选择的源地址
	Local net.IP

	// Interface 出口接口名，找不到时为空
	Interface string

	// Kind 出口接口类型
	Kind InterfaceKind

	// SameSubnet 目标与出口接口处于同一子网
	SameSubnet bool
}

// Flags 把路由转换为可达性标志
func (r Route) Flags() types.ReachabilityFlags {
	flags := types.FlagReachable

	if r.Remote.IsLoopback() || r.Remote.Equal(r.Local) {
		flags |= types.FlagIsLocalAddress | types.FlagIsDirect
	} else if r.SameSubnet {
		flags |= types.FlagIsDirect
	}

	switch r.Kind {
	case KindCellular:
		flags |= types.FlagIsWWAN
	case KindTunnel:
		flags |= types.FlagTransientConnection
	}
	return flags
}

// ============================================================================
//                              Classifier
// ============================================================================

// RouteDialer 返回内核为目标选择的源地址
type RouteDialer func(ctx context.Context, remote net.IP) (net.IP, error)

// Classifier 根据本机路由和接口判断到目标的可达方式
type Classifier struct {
	dial       RouteDialer
	interfaces netmon.InterfaceLister
	sysfsRoot  string
}

// ClassifierOption 分类器选项
type ClassifierOption func(*Classifier)

// WithRouteDialer 替换源地址查询
func WithRouteDialer(d RouteDialer) ClassifierOption {
	return func(c *Classifier) {
		c.dial = d
	}
}

// WithInterfaces 替换接口列表来源
func WithInterfaces(l netmon.InterfaceLister) ClassifierOption {
	return func(c *Classifier) {
		c.interfaces = l
	}
}

// WithSysfsRoot 替换 sysfs 网络设备目录
func WithSysfsRoot(root string) ClassifierOption {
	return func(c *Classifier) {
		c.sysfsRoot = root
	}
}

// NewClassifier 创建分类器
func NewClassifier(opts ...ClassifierOption) *Classifier {
	c := &Classifier{
		dial: udpRoute,
		interfaces: func() ([]netmon.InterfaceInfo, error) {
			return netmon.ListInterfaces(true)
		},
		sysfsRoot: defaultSysfsRoot,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify 返回第一个有路由的地址对应的标志，全部无路由时返回 0
func (c *Classifier) Classify(ctx context.Context, ips []net.IP) types.ReachabilityFlags {
	route, ok := c.Route(ctx, ips)
	if !ok {
		return 0
	}
	return route.Flags()
}

// Route 查找到目标地址之一的路由
func (c *Classifier) Route(ctx context.Context, ips []net.IP) (Route, bool) {
	if len(ips) == 0 {
		return Route{}, false
	}

	ifaces, err := c.interfaces()
	if err != nil {
		logger.Debug("获取网络接口失败", "error", err)
	}

	for _, remote := range ips {
		local, err := c.dial(ctx, remote)
		if err != nil {
			logger.Debug("没有到目标的路由", "remote", remote.String(), "error", err)
			continue
		}

		route := Route{Remote: remote, Local: local, Kind: KindUnknown}
		if iface, ipnet, ok := findInterface(ifaces, local); ok {
			route.Interface = iface.Name
			route.Kind = c.kindOf(iface)
			route.SameSubnet = ipnet.Contains(remote)
		}
		return route, true
	}
	return Route{}, false
}

// kindOf 识别接口类型
//
// Linux 上先看 sysfs（wireless 目录、uevent 的 DEVTYPE），再按接口名前缀。
func (c *Classifier) kindOf(iface netmon.InterfaceInfo) InterfaceKind {
	if iface.Flags&net.FlagLoopback != 0 {
		return KindLoopback
	}

	if c.sysfsRoot != "" {
		dir := filepath.Join(c.sysfsRoot, iface.Name)
		if _, err := os.Stat(filepath.Join(dir, "wireless")); err == nil {
			return KindWiFi
		}
		if uevent, err := os.ReadFile(filepath.Join(dir, "uevent")); err == nil {
			for _, line := range strings.Split(string(uevent), "\n") {
				switch strings.TrimSpace(line) {
				case "DEVTYPE=wwan":
					return KindCellular
				case "DEVTYPE=wlan":
					return KindWiFi
				}
			}
		}
	}

	return KindFromName(iface.Name)
}

// KindFromName 按接口名前缀识别接口类型
func KindFromName(name string) InterfaceKind {
	name = strings.ToLower(name)
	if name == "lo" || strings.HasPrefix(name, "lo0") {
		return KindLoopback
	}
	for _, p := range kindPrefixes {
		if strings.HasPrefix(name, p.prefix) {
			return p.kind
		}
	}
	return KindUnknown
}

// findInterface 查找持有本地地址的接口
func findInterface(ifaces []netmon.InterfaceInfo, local net.IP) (netmon.InterfaceInfo, *net.IPNet, bool) {
	for _, iface := range ifaces {
		for _, cidr := range iface.Addresses {
			ip, ipnet, err := net.ParseCIDR(cidr)
			if err != nil {
				continue
			}
			if ip.Equal(local) {
				return iface, ipnet, true
			}
		}
	}
	return netmon.InterfaceInfo{}, nil, false
}

// udpRoute 通过 UDP connect 获取源地址，不发送任何数据
func udpRoute(ctx context.Context, remote net.IP) (net.IP, error) {
	d := net.Dialer{Timeout: time.Second}
	conn, err := d.DialContext(ctx, "udp", net.JoinHostPort(remote.String(), "9"))
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return nil, &net.AddrError{Err: "unexpected local address", Addr: conn.LocalAddr().String()}
	}
	return addr.IP, nil
}
