package httpnet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/getmockd/wsbridge/pkg/logging"
	"github.com/getmockd/wsbridge/pkg/transport"
)

// BindAny is the bind address meaning all local interfaces.
const BindAny = "any"

// DefaultBindAddress is used until SetDefaultBindAddress is called.
const DefaultBindAddress = "127.0.0.1"

var (
	// ErrInvalidPort is returned for ports outside 1-65535.
	ErrInvalidPort = errors.New("httpnet: invalid port")
	// ErrShutdown is returned by operations on a module that has been shut down.
	ErrShutdown = errors.New("httpnet: module shut down")
)

// Module is a transport.RouterProvider backed by net/http listeners.
type Module struct {
	log       *slog.Logger
	serialize bool
	maxBody   int64

	mu       sync.Mutex
	bindAddr string
	routers  map[int]*Router
	shutdown bool

	jobs chan *job
}

// Option configures a Module.
type Option func(*Module)

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(m *Module) {
		if log != nil {
			m.log = log
		}
	}
}

// WithSerializedHandlers queues requests for Tick instead of running handlers
// on the HTTP goroutines.
func WithSerializedHandlers(enabled bool) Option {
	return func(m *Module) {
		m.serialize = enabled
	}
}

// WithMaxBodySize limits request bodies. The default is 10 MiB.
func WithMaxBodySize(n int64) Option {
	return func(m *Module) {
		if n > 0 {
			m.maxBody = n
		}
	}
}

// New creates a module with no routers.
func New(opts ...Option) *Module {
	m := &Module{
		log:      logging.Nop(),
		maxBody:  10 << 20,
		bindAddr: DefaultBindAddress,
		routers:  make(map[int]*Router),
		jobs:     make(chan *job, 1024),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

var (
	defaultOnce   sync.Once
	defaultModule *Module
)

// Default returns the process-wide module.
func Default() *Module {
	defaultOnce.Do(func() {
		defaultModule = New()
	})
	return defaultModule
}

var _ transport.RouterProvider = (*Module)(nil)

// SetDefaultBindAddress sets the listen host for listeners started afterwards.
// BindAny listens on all interfaces.
func (m *Module) SetDefaultBindAddress(addr string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bindAddr = addr
}

// BindAddress returns the configured bind address.
func (m *Module) BindAddress() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bindAddr
}

func (m *Module) listenHost() string {
	switch m.bindAddr {
	case BindAny:
		return "0.0.0.0"
	case "":
		return DefaultBindAddress
	default:
		return m.bindAddr
	}
}

// Router returns the router for port, creating it if needed.
func (m *Module) Router(port int) (transport.Router, error) {
	r, err := m.router(port)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Lookup returns the router for port, or nil.
func (m *Module) Lookup(port int) *Router {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.routers[port]
}

func (m *Module) router(port int) (*Router, error) {
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPort, port)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shutdown {
		return nil, ErrShutdown
	}
	r, ok := m.routers[port]
	if !ok {
		r = newRouter(m, port)
		m.routers[port] = r
	}
	return r, nil
}

// Mount serves h at the exact path on port, alongside bound routes.
func (m *Module) Mount(port int, path string, h http.Handler) error {
	r, err := m.router(port)
	if err != nil {
		return err
	}
	r.mount(path, h)
	return nil
}

// StartAllListeners starts every router that is not yet listening. It
// returns the first listen error; the remaining routers are still started.
func (m *Module) StartAllListeners() error {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return ErrShutdown
	}
	host := m.listenHost()
	routers := make([]*Router, 0, len(m.routers))
	for _, r := range m.routers {
		routers = append(routers, r)
	}
	m.mu.Unlock()

	var first error
	for _, r := range routers {
		if err := r.listen(host); err != nil {
			m.log.Error("http listener failed to start", "port", r.port, "error", err)
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// Tick runs queued handlers in serialized mode. It never blocks.
func (m *Module) Tick() {
	for {
		select {
		case j := <-m.jobs:
			j.run()
		default:
			return
		}
	}
}

// Shutdown stops every listener, waiting for in-flight requests until ctx ends.
func (m *Module) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return nil
	}
	m.shutdown = true
	routers := make([]*Router, 0, len(m.routers))
	for _, r := range m.routers {
		routers = append(routers, r)
	}
	m.mu.Unlock()

	var errs []error
	for _, r := range routers {
		if err := r.shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Module) newHTTPServer(h http.Handler) *http.Server {
	return &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func listenAddr(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
