// Package resolver 解析被观察主机的地址
package resolver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/miekg/dns"

	"github.com/dep2p/go-reachability/pkg/lib/log"
)

var logger = log.Logger("core/resolver")

// 常量定义
const (
	// DefaultTimeout 默认单次查询超时
	DefaultTimeout = 3 * time.Second

	// DefaultCacheSize 默认缓存条目数
	DefaultCacheSize = 256

	// DefaultCacheTTL 默认缓存 TTL（记录 TTL 更短时以记录为准）
	DefaultCacheTTL = time.Minute

	// DefaultNdots 少于该点数的名字先尝试搜索后缀，同 resolv.conf 默认值
	DefaultNdots = 1

	// resolvConfPath 系统解析配置
	resolvConfPath = "/etc/resolv.conf"
)

// 错误定义
var (
	// ErrInvalidHost 无效的主机名
	ErrInvalidHost = errors.New("invalid host name")

	// ErrNotFound 域名不存在（NXDOMAIN）
	ErrNotFound = errors.New("host not found")

	// ErrNoAddresses 域名存在但没有 A/AAAA 记录
	ErrNoAddresses = errors.New("no addresses for host")

	// ErrNoServers 没有可用的 DNS 服务器
	ErrNoServers = errors.New("no DNS servers configured")
)

// Config 解析器配置
type Config struct {
	// Servers DNS 服务器地址，格式 <ip>:<port>
	// 为空时读取 /etc/resolv.conf（含 search 和 ndots），仍为空时使用系统解析器
	Servers []string

	// Search 相对名字的搜索后缀，仅在 Servers 非空时使用
	Search []string

	// Ndots 名字中点数少于 Ndots 时先尝试搜索后缀
	Ndots int

	// Timeout 单次查询超时
	Timeout time.Duration

	// CacheSize 缓存条目数，<0 表示禁用缓存
	CacheSize int

	// CacheTTL 缓存 TTL
	CacheTTL time.Duration
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Timeout:   DefaultTimeout,
		CacheSize: DefaultCacheSize,
		CacheTTL:  DefaultCacheTTL,
	}
}

// Validate 修正无效值
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.CacheSize == 0 {
		c.CacheSize = DefaultCacheSize
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = DefaultCacheTTL
	}
	if c.Ndots <= 0 {
		c.Ndots = DefaultNdots
	}
	for _, s := range c.Servers {
		if _, _, err := net.SplitHostPort(s); err != nil {
			return fmt.Errorf("invalid DNS server %q: %w", s, err)
		}
	}
	return nil
}

// Resolver 基于 miekg/dns 的 A/AAAA 解析器，带过期 LRU 缓存
type Resolver struct {
	config  Config
	client  *dns.Client
	servers []string

	// names 搜索后缀和 ndots，用于展开相对名字
	names *dns.ClientConfig

	// cache 为 nil 表示禁用缓存
	cache *expirable.LRU[string, cacheEntry]
	clock clock.Clock
}

// cacheEntry 缓存的解析结果，expires 取记录 TTL 与 CacheTTL 中较早者
type cacheEntry struct {
	ips     []net.IP
	expires time.Time
}

// answer 一次成功解析的结果
type answer struct {
	ips []net.IP
	ttl time.Duration
}

// New 创建解析器
func New(config Config) (*Resolver, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	r := &Resolver{
		config:  config,
		client:  &dns.Client{Net: "udp", Timeout: config.Timeout},
		servers: append([]string(nil), config.Servers...),
		names: &dns.ClientConfig{
			Search: append([]string(nil), config.Search...),
			Ndots:  config.Ndots,
		},
		clock: clock.New(),
	}

	if len(r.servers) == 0 {
		r.servers, r.names = systemConfig(resolvConfPath, r.names)
	}
	if config.CacheSize > 0 {
		r.cache = expirable.NewLRU[string, cacheEntry](config.CacheSize, nil, config.CacheTTL)
	}

	logger.Debug("创建 DNS 解析器",
		"servers", r.servers,
		"search", r.names.Search,
		"ndots", r.names.Ndots,
		"cache_size", config.CacheSize)
	return r, nil
}

// systemConfig 读取系统解析配置的服务器、search 和 ndots
//
// 读取失败时返回空服务器列表和原 names，之后使用系统解析器。
func systemConfig(path string, names *dns.ClientConfig) ([]string, *dns.ClientConfig) {
	cc, err := dns.ClientConfigFromFile(path)
	if err != nil {
		logger.Debug("读取系统 DNS 配置失败，使用系统解析器", "error", err)
		return nil, names
	}
	servers := make([]string, 0, len(cc.Servers))
	for _, s := range cc.Servers {
		servers = append(servers, net.JoinHostPort(s, cc.Port))
	}
	return servers, cc
}

// Servers 返回使用中的 DNS 服务器
func (r *Resolver) Servers() []string {
	return append([]string(nil), r.servers...)
}

// LookupIP 解析主机地址
//
// IP 字面量和 localhost 直接返回；其余主机先查缓存，再依次询问各服务器。
func (r *Resolver) LookupIP(ctx context.Context, host string) ([]net.IP, error) {
	host = normalizeHost(host)
	if host == "" {
		return nil, ErrInvalidHost
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		return []net.IP{net.IP(addr.AsSlice())}, nil
	}
	if host == "localhost" {
		return []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback}, nil
	}

	if ips, ok := r.cached(host); ok {
		logger.Debug("使用缓存的 DNS 结果", "host", host, "addrs", len(ips))
		return ips, nil
	}

	var (
		ans answer
		err error
	)
	if len(r.servers) == 0 {
		ans, err = r.lookupSystem(ctx, host)
	} else {
		ans, err = r.lookupNames(ctx, host)
	}
	if err != nil {
		return nil, err
	}

	r.store(host, ans)
	return ans.ips, nil
}

// cached 读取未过期的缓存结果
func (r *Resolver) cached(host string) ([]net.IP, bool) {
	if r.cache == nil {
		return nil, false
	}
	entry, ok := r.cache.Get(host)
	if !ok {
		return nil, false
	}
	if !r.clock.Now().Before(entry.expires) {
		r.cache.Remove(host)
		return nil, false
	}
	return copyIPs(entry.ips), true
}

// store 缓存解析结果，记录 TTL 为 0 时不缓存
func (r *Resolver) store(host string, ans answer) {
	if r.cache == nil {
		return
	}
	ttl := min(ans.ttl, r.config.CacheTTL)
	if ttl <= 0 {
		return
	}
	r.cache.Add(host, cacheEntry{
		ips:     copyIPs(ans.ips),
		expires: r.clock.Now().Add(ttl),
	})
}

// Invalidate 移除主机的缓存结果
func (r *Resolver) Invalidate(host string) {
	if r.cache != nil {
		r.cache.Remove(normalizeHost(host))
	}
}

// Purge 清空缓存，网络变化后调用
func (r *Resolver) Purge() {
	if r.cache != nil {
		r.cache.Purge()
	}
}

// lookupNames 按 search 和 ndots 展开主机名，返回第一个有地址的名字
//
// 全部名字都不存在时返回最后一个名字的错误。
func (r *Resolver) lookupNames(ctx context.Context, host string) (answer, error) {
	var lastErr error = ErrNoServers
	for _, name := range r.names.NameList(host) {
		ans, err := r.lookupServers(ctx, name)
		if err == nil {
			if name != dns.Fqdn(host) {
				logger.Debug("通过搜索后缀解析", "host", host, "name", name)
			}
			return ans, nil
		}
		if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrNoAddresses) {
			return answer{}, err
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return answer{}, lastErr
}

// lookupServers 依次询问各服务器，第一个确定的回答生效
func (r *Resolver) lookupServers(ctx context.Context, name string) (answer, error) {
	var lastErr error = ErrNoServers
	for _, server := range r.servers {
		ans, err := r.exchange(ctx, server, name)
		if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrNoAddresses) {
			return ans, err
		}
		logger.Debug("DNS 服务器查询失败", "server", server, "name", name, "error", err)
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return answer{}, fmt.Errorf("resolve %s: %w", name, lastErr)
}

// exchange 向单个服务器查询 A 和 AAAA，name 为完整域名
//
// 结果 TTL 为地址记录中最小的 TTL。
func (r *Resolver) exchange(ctx context.Context, server, name string) (answer, error) {
	var (
		ans        = answer{ttl: -1}
		nxdomain   bool
		answeredOK bool
	)

	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		m := new(dns.Msg)
		m.SetQuestion(name, qtype)
		m.RecursionDesired = true

		resp, _, err := r.client.ExchangeContext(ctx, m, server)
		if err != nil {
			return answer{}, err
		}

		switch resp.Rcode {
		case dns.RcodeSuccess:
			answeredOK = true
		case dns.RcodeNameError:
			nxdomain = true
			continue
		default:
			return answer{}, fmt.Errorf("server %s answered %s", server, dns.RcodeToString[resp.Rcode])
		}

		for _, rr := range resp.Answer {
			var ip net.IP
			switch rec := rr.(type) {
			case *dns.A:
				ip = rec.A
			case *dns.AAAA:
				ip = rec.AAAA
			default:
				continue
			}
			ans.ips = append(ans.ips, ip)
			ttl := time.Duration(rr.Header().Ttl) * time.Second
			if ans.ttl < 0 || ttl < ans.ttl {
				ans.ttl = ttl
			}
		}
	}

	switch {
	case len(ans.ips) > 0:
		return ans, nil
	case nxdomain && !answeredOK:
		return answer{}, fmt.Errorf("%s: %w", name, ErrNotFound)
	default:
		return answer{}, fmt.Errorf("%s: %w", name, ErrNoAddresses)
	}
}

// lookupSystem 没有可用服务器时使用系统解析器，TTL 未知时按 CacheTTL 缓存
func (r *Resolver) lookupSystem(ctx context.Context, host string) (answer, error) {
	ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	ips, err := net.DefaultResolver.LookupIP(ctx, "ip", host)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return answer{}, fmt.Errorf("%s: %w", host, ErrNotFound)
		}
		return answer{}, err
	}
	if len(ips) == 0 {
		return answer{}, fmt.Errorf("%s: %w", host, ErrNoAddresses)
	}
	return answer{ips: ips, ttl: r.config.CacheTTL}, nil
}

// normalizeHost 小写并移除尾随点和 IPv6 方括号
func normalizeHost(host string) string {
	host = strings.TrimSpace(strings.ToLower(host))
	host = strings.TrimSuffix(host, ".")
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	return host
}

func copyIPs(ips []net.IP) []net.IP {
	out := make([]net.IP, len(ips))
	copy(out, ips)
	return out
}
