package resolver

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-reachability/config"
)

// ============================================================================
// 测试 DNS 服务器
// ============================================================================

// zone 测试区域：fqdn -> RR 文本
var zone = map[string][]string{
	"example.com.": {
		"example.com. 60 IN A 93.184.216.34",
		"example.com. 60 IN AAAA 2606:2800:220:1:248:1893:25c8:1946",
	},
	"v4only.test.": {
		"v4only.test. 60 IN A 10.0.0.7",
	},
	"empty.test.": {},
	"short.test.": {
		"short.test. 5 IN A 10.0.0.8",
	},
	"intranet.corp.": {
		"intranet.corp. 60 IN A 10.1.0.1",
	},
	"db.svc.corp.": {
		"db.svc.corp. 60 IN A 10.1.0.2",
	},
}

// startServer 启动进程内 DNS 服务器，返回地址和查询计数
func startServer(t *testing.T) (string, *atomic.Int32) {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	var queries atomic.Int32
	started := make(chan struct{})
	server := &dns.Server{
		PacketConn:        pc,
		NotifyStartedFunc: func() { close(started) },
		Handler: dns.HandlerFunc(func(w dns.ResponseWriter, req *dns.Msg) {
			queries.Add(1)
			m := new(dns.Msg)
			m.SetReply(req)

			q := req.Question[0]
			records, ok := zone[q.Name]
			if !ok {
				m.Rcode = dns.RcodeNameError
				_ = w.WriteMsg(m)
				return
			}
			for _, text := range records {
				rr, err := dns.NewRR(text)
				if err == nil && rr.Header().Rrtype == q.Qtype {
					m.Answer = append(m.Answer, rr)
				}
			}
			_ = w.WriteMsg(m)
		}),
	}

	go func() { _ = server.ActivateAndServe() }()
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("dns server did not start")
	}
	t.Cleanup(func() { _ = server.Shutdown() })

	return pc.LocalAddr().String(), &queries
}

func newTestResolver(t *testing.T, server string, cacheSize int) *Resolver {
	t.Helper()
	r, err := New(Config{Servers: []string{server}, Timeout: time.Second, CacheSize: cacheSize})
	require.NoError(t, err)
	return r
}

// ============================================================================
// 解析测试
// ============================================================================

func TestLookupIP_AAndAAAA(t *testing.T) {
	addr, _ := startServer(t)
	r := newTestResolver(t, addr, -1)

	ips, err := r.LookupIP(context.Background(), "Example.COM.")
	require.NoError(t, err)
	require.Len(t, ips, 2)
	assert.Equal(t, "93.184.216.34", ips[0].String())
	assert.Equal(t, "2606:2800:220:1:248:1893:25c8:1946", ips[1].String())
}

func TestLookupIP_NotFound(t *testing.T) {
	addr, _ := startServer(t)
	r := newTestResolver(t, addr, -1)

	_, err := r.LookupIP(context.Background(), "missing.test")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = r.LookupIP(context.Background(), "empty.test")
	assert.ErrorIs(t, err, ErrNoAddresses)
}

func TestLookupIP_Literals(t *testing.T) {
	r := newTestResolver(t, "127.0.0.1:1", -1)

	ips, err := r.LookupIP(context.Background(), "192.0.2.1")
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.1", ips[0].String())

	ips, err = r.LookupIP(context.Background(), "[::1]")
	require.NoError(t, err)
	assert.True(t, ips[0].IsLoopback())

	ips, err = r.LookupIP(context.Background(), "localhost")
	require.NoError(t, err)
	assert.True(t, ips[0].IsLoopback())

	_, err = r.LookupIP(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrInvalidHost)
}

func TestLookupIP_Cache(t *testing.T) {
	addr, queries := startServer(t)
	r := newTestResolver(t, addr, 16)

	_, err := r.LookupIP(context.Background(), "v4only.test")
	require.NoError(t, err)
	first := queries.Load()
	assert.Equal(t, int32(2), first)

	_, err = r.LookupIP(context.Background(), "v4only.test")
	require.NoError(t, err)
	assert.Equal(t, first, queries.Load(), "second lookup should hit the cache")

	r.Invalidate("v4only.test")
	_, err = r.LookupIP(context.Background(), "v4only.test")
	require.NoError(t, err)
	assert.Equal(t, first*2, queries.Load())

	r.Purge()
	_, err = r.LookupIP(context.Background(), "v4only.test")
	require.NoError(t, err)
	assert.Equal(t, first*3, queries.Load())
}

func TestLookupIP_CacheHonorsRecordTTL(t *testing.T) {
	addr, queries := startServer(t)
	r := newTestResolver(t, addr, 16)
	mock := clock.NewMock()
	r.clock = mock

	_, err := r.LookupIP(context.Background(), "short.test")
	require.NoError(t, err)
	first := queries.Load()

	mock.Add(4 * time.Second)
	_, err = r.LookupIP(context.Background(), "short.test")
	require.NoError(t, err)
	assert.Equal(t, first, queries.Load(), "within record TTL")

	mock.Add(2 * time.Second)
	_, err = r.LookupIP(context.Background(), "short.test")
	require.NoError(t, err)
	assert.Equal(t, first*2, queries.Load(), "record TTL of 5s has passed")

	// CacheTTL 短于记录 TTL 时以 CacheTTL 为准
	r2, err := New(Config{Servers: []string{addr}, Timeout: time.Second, CacheSize: 16, CacheTTL: 10 * time.Second})
	require.NoError(t, err)
	r2.clock = mock
	_, err = r2.LookupIP(context.Background(), "v4only.test")
	require.NoError(t, err)
	before := queries.Load()
	mock.Add(11 * time.Second)
	_, err = r2.LookupIP(context.Background(), "v4only.test")
	require.NoError(t, err)
	assert.Greater(t, queries.Load(), before)
}

func TestLookupIP_SearchList(t *testing.T) {
	addr, _ := startServer(t)
	r, err := New(Config{Servers: []string{addr}, Search: []string{"corp"}, Timeout: time.Second, CacheSize: -1})
	require.NoError(t, err)

	// 单标签名字先尝试搜索后缀
	ips, err := r.LookupIP(context.Background(), "intranet")
	require.NoError(t, err)
	assert.Equal(t, "10.1.0.1", ips[0].String())

	// 点数足够的名字先按原样查询，失败后再尝试后缀
	ips, err = r.LookupIP(context.Background(), "db.svc")
	require.NoError(t, err)
	assert.Equal(t, "10.1.0.2", ips[0].String())

	ips, err = r.LookupIP(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, "93.184.216.34", ips[0].String())

	_, err = r.LookupIP(context.Background(), "nowhere")
	assert.ErrorIs(t, err, ErrNotFound)

	// 没有搜索列表时相对名字不存在
	plain := newTestResolver(t, addr, -1)
	_, err = plain.LookupIP(context.Background(), "intranet")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSystemConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resolv.conf")
	require.NoError(t, os.WriteFile(path, []byte("nameserver 127.0.0.1\nsearch corp example.org\noptions ndots:2\n"), 0o600))

	servers, names := systemConfig(path, &dns.ClientConfig{Ndots: 1})
	assert.Equal(t, []string{"127.0.0.1:53"}, servers)
	assert.Equal(t, []string{"corp", "example.org"}, names.Search)
	assert.Equal(t, 2, names.Ndots)
	assert.Equal(t, []string{"db.svc.corp.", "db.svc.example.org.", "db.svc."}, names.NameList("db.svc"))

	fallback := &dns.ClientConfig{Ndots: 1}
	servers, names = systemConfig(filepath.Join(t.TempDir(), "missing"), fallback)
	assert.Empty(t, servers)
	assert.Same(t, fallback, names)
}

func TestLookupIP_FailsOverToNextServer(t *testing.T) {
	addr, _ := startServer(t)

	// 第一个服务器不可达
	dead, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	deadAddr := dead.LocalAddr().String()
	require.NoError(t, dead.Close())

	r, err := New(Config{Servers: []string{deadAddr, addr}, Timeout: 300 * time.Millisecond, CacheSize: -1})
	require.NoError(t, err)

	ips, err := r.LookupIP(context.Background(), "v4only.test")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.7", ips[0].String())
}

func TestConfig_Validate(t *testing.T) {
	cfg := Config{}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, DefaultCacheSize, cfg.CacheSize)
	assert.Equal(t, DefaultCacheTTL, cfg.CacheTTL)

	bad := Config{Servers: []string{"8.8.8.8"}}
	assert.Error(t, bad.Validate())
}

func TestModule_ProvidesResolver(t *testing.T) {
	var r *Resolver
	app := fxtest.New(t,
		fx.Supply(&Config{Servers: []string{"127.0.0.1:53"}}),
		Module(),
		fx.Populate(&r),
	)
	app.RequireStart()
	require.NotNil(t, r)
	assert.Equal(t, []string{"127.0.0.1:53"}, r.Servers())
	app.RequireStop()
}

func TestConfigFromUnified(t *testing.T) {
	assert.Equal(t, DefaultConfig(), *ConfigFromUnified(nil))

	unified := config.NewConfig()
	unified.Resolver.Servers = []string{"9.9.9.9:53"}
	unified.Resolver.Search = []string{"corp"}
	unified.Resolver.CacheSize = -1
	unified.Resolver.Timeout = config.Duration(time.Second)

	cfg := ConfigFromUnified(unified)
	assert.Equal(t, []string{"9.9.9.9:53"}, cfg.Servers)
	assert.Equal(t, []string{"corp"}, cfg.Search)
	assert.Equal(t, -1, cfg.CacheSize)
	assert.Equal(t, time.Second, cfg.Timeout)
	assert.Equal(t, time.Minute, cfg.CacheTTL)
}
