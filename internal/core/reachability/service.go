package reachability

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/dep2p/go-reachability/internal/core/runloop"
	pkgif "github.com/dep2p/go-reachability/pkg/interfaces"
	"github.com/dep2p/go-reachability/pkg/lib/urlutil"
	"github.com/dep2p/go-reachability/pkg/types"
)

// ErrServiceClosed 服务已关闭
var ErrServiceClosed = errors.New("reachability service closed")

// ErrUnknownHost 没有该主机的观察者
var ErrUnknownHost = errors.New("host not observed")

// ============================================================================
//                              配置
// ============================================================================

// Config 可达性服务配置
type Config struct {
	// Hosts 启动时观察的主机
	Hosts []string

	// SharedRunLoop 所有观察者共用一个事件循环
	// 默认: false（每个观察者一个）
	SharedRunLoop bool

	// Route 探测原语配置
	Route RouteConfig
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{Route: DefaultRouteConfig()}
}

// Validate 检查主机名并修正探测配置
func (c *Config) Validate() error {
	for i, h := range c.Hosts {
		if strings.TrimSpace(h) == "" {
			return fmt.Errorf("hosts[%d]: %w", i, types.ErrEmptyHostName)
		}
	}
	return c.Route.Validate()
}

// ============================================================================
//                              Service
// ============================================================================

// Service 按主机名管理观察者，同一主机只保留一个
type Service struct {
	config  Config
	bus     pkgif.EventBus
	factory TargetFactory
	loop    *runloop.Loop

	mu        sync.RWMutex
	observers map[string]*Observer
	closed    bool
}

var _ pkgif.ReachabilityService = (*Service)(nil)

// NewService 创建可达性服务
func NewService(config Config, bus pkgif.EventBus, factory TargetFactory) (*Service, error) {
	if bus == nil {
		return nil, types.ErrNilEventBus
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if factory == nil {
		factory = DefaultTargetFactory()
	}

	s := &Service{
		config:    config,
		bus:       bus,
		factory:   factory,
		observers: make(map[string]*Observer),
	}
	if config.SharedRunLoop {
		s.loop = runloop.New("reachability")
	}
	return s, nil
}

// HostKey 观察者索引键：去空白、去末尾点并转小写
//
// 事件和指标中的 host 都是该形式。
func HostKey(hostName string) string {
	return strings.ToLower(strings.TrimSuffix(strings.TrimSpace(hostName), "."))
}

// Observe 返回主机的观察者，不存在则创建
func (s *Service) Observe(hostName string) (pkgif.ReachabilityObserver, error) {
	key := HostKey(hostName)
	if key == "" {
		return nil, types.ErrEmptyHostName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrServiceClosed
	}
	if o, ok := s.observers[key]; ok {
		return o, nil
	}

	opts := []Option{WithTargetFactory(s.factory)}
	if s.loop != nil {
		opts = append(opts, WithRunLoop(s.loop))
	}
	o, err := NewObserver(key, s.bus, opts...)
	if err != nil {
		return nil, err
	}
	s.observers[key] = o

	logger.Info("开始观察主机", "host", key, "id", o.ID())
	return o, nil
}

// ObserveURL 观察 URL 的主机
func (s *Service) ObserveURL(rawURL string) (pkgif.ReachabilityObserver, error) {
	host, err := urlutil.HostOf(rawURL)
	if err != nil {
		return nil, err
	}
	return s.Observe(host)
}

// Lookup 查找已存在的观察者
func (s *Service) Lookup(hostName string) (pkgif.ReachabilityObserver, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.observers[HostKey(hostName)]
	if !ok {
		return nil, false
	}
	return o, true
}

// Release 关闭并移除主机的观察者
func (s *Service) Release(hostName string) error {
	key := HostKey(hostName)

	s.mu.Lock()
	o, ok := s.observers[key]
	delete(s.observers, key)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%s: %w", key, ErrUnknownHost)
	}

	logger.Info("停止观察主机", "host", key)
	return o.Close()
}

// Observers 返回按主机名排序的观察者
func (s *Service) Observers() []pkgif.ReachabilityObserver {
	s.mu.RLock()
	keys := make([]string, 0, len(s.observers))
	for k := range s.observers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := make([]pkgif.ReachabilityObserver, 0, len(keys))
	for _, k := range keys {
		result = append(result, s.observers[k])
	}
	s.mu.RUnlock()
	return result
}

// ObserveConfigured 观察配置中的主机
func (s *Service) ObserveConfigured() error {
	var errs error
	for _, h := range s.config.Hosts {
		if _, err := s.Observe(h); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// Close 关闭所有观察者，可重复调用
func (s *Service) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	observers := s.observers
	s.observers = make(map[string]*Observer)
	s.mu.Unlock()

	start := time.Now()
	var errs error
	for _, o := range observers {
		errs = multierr.Append(errs, o.Close())
	}
	if s.loop != nil {
		s.loop.Stop()
		s.loop.Wait()
	}

	logger.Info("可达性服务已关闭", "observers", len(observers), "elapsed", time.Since(start))
	return errs
}
