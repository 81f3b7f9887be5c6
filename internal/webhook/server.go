package webhook

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"taigabot/internal/eventbus"
	"taigabot/internal/relay"
	"taigabot/internal/runtime/supervisor"
	"taigabot/pkg/logx"
)

const (
	DefaultAddr         = ":8080"
	DefaultPath         = "/webhook"
	DefaultTimeout      = 10 * time.Second
	DefaultMaxBodyBytes = 1 << 20

	// dispatchTimeout bounds one event; delivery itself is queued.
	dispatchTimeout = 30 * time.Second
)

type Config struct {
	Addr         string
	Path         string
	Secret       string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxBodyBytes int64
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.Addr) == "" {
		c.Addr = DefaultAddr
	}
	if strings.TrimSpace(c.Path) == "" {
		c.Path = DefaultPath
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultTimeout
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return c
}

// Dispatcher processes one decoded event.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev relay.Event) error
}

type DispatcherFunc func(ctx context.Context, ev relay.Event) error

func (f DispatcherFunc) Dispatch(ctx context.Context, ev relay.Event) error { return f(ctx, ev) }

// HealthFunc adds fields to the /health response.
type HealthFunc func() map[string]any

// Received is published on eventbus.TopicWebhookReceived.
type Received struct {
	RequestID string
	Type      string
	Action    string
	Test      bool
}

type Server struct {
	cfg    Config
	log    logx.Logger
	disp   Dispatcher
	health HealthFunc
	bus    eventbus.Bus

	engine *gin.Engine

	mu   sync.Mutex
	srv  *http.Server
	addr string
	sup  *supervisor.Supervisor
}

type Option func(*Server)

func WithHealth(fn HealthFunc) Option { return func(s *Server) { s.health = fn } }

func WithBus(b eventbus.Bus) Option { return func(s *Server) { s.bus = b } }

func New(cfg Config, disp Dispatcher, log logx.Logger, opts ...Option) *Server {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Server{
		cfg:  cfg.withDefaults(),
		log:  log.With(logx.String("comp", "webhook")),
		disp: disp,
	}
	for _, o := range opts {
		if o != nil {
			o(s)
		}
	}

	engine := gin.New()
	engine.Use(requestID(), recovery(s.log), accessLog(s.log))
	engine.POST(s.cfg.Path, s.handleWebhook)
	engine.GET("/health", s.handleHealth)
	s.engine = engine
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Addr is the bound address once Start has returned.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Start binds the listener and serves in the background. Bind errors are
// returned immediately.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return nil
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           s.engine,
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
	}
	s.srv = srv
	s.addr = ln.Addr().String()
	s.sup = supervisor.New(ctx, supervisor.WithLogger(s.log))
	s.sup.Go("http.serve", func(context.Context) error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	s.log.Info("webhook server listening", logx.String("addr", s.addr), logx.String("path", s.cfg.Path))
	return nil
}

// Stop drains in-flight requests until ctx ends.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv, sup := s.srv, s.sup
	s.srv, s.sup = nil, nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	err := srv.Shutdown(ctx)
	if werr := sup.Stop(ctx); err == nil {
		err = werr
	}
	return err
}
