package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dep2p/go-reachability/internal/core/metrics"
	pkgif "github.com/dep2p/go-reachability/pkg/interfaces"
	"github.com/dep2p/go-reachability/pkg/lib/log"
)

var logger = log.Logger("api")

// DefaultListenAddr 默认监听地址
const DefaultListenAddr = "127.0.0.1:8787"

// ============================================================================
//                              配置
// ============================================================================

// Config 服务配置
type Config struct {
	// ListenAddr 监听地址，默认 "127.0.0.1:8787"
	ListenAddr string

	// EnableEvents 是否开放 /v1/events
	EnableEvents bool

	// ReadHeaderTimeout 读取请求头超时
	ReadHeaderTimeout time.Duration

	// ShutdownTimeout 优雅关闭超时
	ShutdownTimeout time.Duration
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		ListenAddr:        DefaultListenAddr,
		EnableEvents:      true,
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   10 * time.Second,
	}
}

// ============================================================================
//                              Server
// ============================================================================

// Server 守护进程 HTTP 接口
type Server struct {
	config    Config
	service   pkgif.ReachabilityService
	bus       pkgif.EventBus
	collector *metrics.Collector

	router *chi.Mux

	// 流式连接在 Stop 时通过 ctx 取消；streamMu 保证取消后不再登记新连接
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	streamMu sync.Mutex

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	running  bool
}

// New 创建服务，collector 可为 nil
func New(cfg Config, service pkgif.ReachabilityService, bus pkgif.EventBus, collector *metrics.Collector) *Server {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultListenAddr
	}
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = 5 * time.Second
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config:    cfg,
		service:   service,
		bus:       bus,
		collector: collector,
		ctx:       ctx,
		cancel:    cancel,
	}
	s.router = s.routes()
	return s
}

// routes 注册路由
func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(RequestID)
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/hosts", s.handleListHosts)
		r.Post("/hosts", s.handleObserve)
		r.Get("/hosts/{host}", s.handleGetHost)
		r.Delete("/hosts/{host}", s.handleRelease)
		if s.config.EnableEvents && s.bus != nil {
			r.Get("/events", s.handleEvents)
		}
	})

	if s.collector != nil {
		r.Method(http.MethodGet, "/metrics", s.collector.Handler())
	}
	return r
}

// Handler 返回路由，供测试和嵌入使用
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start 启动监听
func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	listener, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return err
	}
	s.listener = listener
	s.server = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP 服务异常退出", "error", err)
		}
	}()

	s.running = true
	logger.Info("HTTP 服务已启动", "addr", listener.Addr().String())
	return nil
}

// Stop 关闭监听并断开事件流
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.streamMu.Lock()
	s.cancel()
	s.streamMu.Unlock()
	defer s.wg.Wait()

	if !s.running {
		return nil
	}
	s.running = false

	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		logger.Error("关闭 HTTP 服务失败", "error", err)
		return err
	}
	logger.Info("HTTP 服务已停止")
	return nil
}

// trackStream 登记一个流式连接，服务已停止时返回 false
func (s *Server) trackStream() bool {
	s.streamMu.Lock()
	defer s.streamMu.Unlock()

	if s.ctx.Err() != nil {
		return false
	}
	s.wg.Add(1)
	return true
}

// Addr 返回实际监听地址
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.ListenAddr
}
