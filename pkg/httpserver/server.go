package httpserver

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/getmockd/wsbridge/pkg/logging"
	"github.com/getmockd/wsbridge/pkg/metrics"
	"github.com/getmockd/wsbridge/pkg/textcodec"
	"github.com/getmockd/wsbridge/pkg/transport"
)

// Binding is a bound route and its preflight.
type Binding struct {
	Path string
	Verb transport.Verb

	handler   Handler
	route     transport.RouteHandle
	preflight transport.RouteHandle
}

// Server is a route table on one router.
type Server struct {
	log         *slog.Logger
	bindAddress string

	mu       sync.Mutex
	router   transport.Router
	bindings []*Binding
	closed   bool
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithBindAddress overrides the bind address applied by Create. The default
// is "any", all local interfaces.
func WithBindAddress(addr string) Option {
	return func(s *Server) {
		s.bindAddress = addr
	}
}

// New creates a server on router.
func New(router transport.Router, opts ...Option) *Server {
	s := &Server{
		log:         logging.Nop(),
		bindAddress: "any",
		router:      router,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create applies the bind address to provider, obtains the router for port
// and starts the provider's listeners.
func Create(provider transport.RouterProvider, port int, opts ...Option) (*Server, error) {
	if provider == nil {
		return nil, ErrNoRouter
	}
	s := New(nil, opts...)
	provider.SetDefaultBindAddress(s.bindAddress)

	router, err := provider.Router(port)
	if err != nil {
		return nil, fmt.Errorf("%w: port %d: %w", ErrNoRouter, port, err)
	}
	if router == nil {
		return nil, fmt.Errorf("%w: port %d", ErrNoRouter, port)
	}
	s.router = router

	if err := provider.StartAllListeners(); err != nil {
		return nil, fmt.Errorf("start listeners on port %d: %w", port, err)
	}
	s.log.Info("http server created", "port", port, "bindAddress", s.bindAddress)
	return s, nil
}

// Bind routes path and verb to h and binds an OPTIONS preflight on the same
// path. A nil handler answers with an empty envelope.
func (s *Server) Bind(path string, verb transport.Verb, h Handler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.router == nil {
		return ErrNoRouter
	}

	b := &Binding{Path: path, Verb: verb, handler: h}
	b.preflight = s.router.BindRoute(path, transport.VerbOptions, s.preflight(path))
	b.route = s.router.BindRoute(path, verb, s.handle(b))
	s.bindings = append(s.bindings, b)

	s.log.Debug("route bound", "path", path, "verb", verb.String())
	return nil
}

// Bindings returns the bound routes.
func (s *Server) Bindings() []Binding {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Binding, len(s.bindings))
	for i, b := range s.bindings {
		out[i] = Binding{Path: b.Path, Verb: b.Verb}
	}
	return out
}

func (s *Server) preflight(path string) transport.RequestHandler {
	return func(_ *transport.Request, complete transport.CompleteFunc) bool {
		countRequest(transport.VerbOptions, path)
		complete(NewEnvelope())
		return true
	}
}

func (s *Server) handle(b *Binding) transport.RequestHandler {
	return func(req *transport.Request, complete transport.CompleteFunc) bool {
		resp := NewEnvelope()
		countRequest(b.Verb, b.Path)

		if b.handler != nil {
			if out := s.invoke(b, req); out != "" {
				resp.Body = textcodec.ToUTF8Bytes(out)
			}
		}
		complete(resp)
		return true
	}
}

// invoke runs the bound handler. A panic is logged and yields an empty body
// so the request still completes.
func (s *Server) invoke(b *Binding, req *transport.Request) (out string) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("route handler panicked", "path", b.Path, "verb", b.Verb.String(), "panic", r)
			out = ""
		}
	}()
	return b.handler(decodeRequest(req))
}

// Close unbinds every route and releases the router. It is safe to call more than once.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.router == nil {
		s.bindings = nil
		return nil
	}
	for _, b := range s.bindings {
		if b.route != nil {
			s.router.UnbindRoute(b.route)
		}
		if b.preflight != nil {
			s.router.UnbindRoute(b.preflight)
		}
	}
	n := len(s.bindings)
	s.bindings = nil
	s.router = nil
	s.log.Debug("http server closed", "unbound", n)
	return nil
}

func countRequest(verb transport.Verb, path string) {
	if metrics.HTTPRequestsTotal == nil {
		return
	}
	if vec, err := metrics.HTTPRequestsTotal.WithLabels(verb.String(), path); err == nil {
		_ = vec.Inc()
	}
}
