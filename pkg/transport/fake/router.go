package fake

import (
	"errors"
	"sync"

	"github.com/getmockd/wsbridge/pkg/transport"
)

// ErrNoRoute is returned by Router.Dispatch when nothing is bound.
var ErrNoRoute = errors.New("fake: no route")

type route struct {
	path    string
	verb    transport.Verb
	handler transport.RequestHandler
}

func (r *route) Path() string         { return r.path }
func (r *route) Verb() transport.Verb { return r.verb }

// Router is an in-memory transport.Router.
type Router struct {
	mu       sync.Mutex
	routes   []*route
	unbound  int
	port     int
	started  bool
	bindAddr string
}

// BindAddress returns the bind address in effect when listeners started.
func (r *Router) BindAddress() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bindAddr
}

var _ transport.Router = (*Router)(nil)

// NewRouter returns an empty router.
func NewRouter() *Router {
	return &Router{}
}

// BindRoute implements transport.Router.
func (r *Router) BindRoute(path string, verb transport.Verb, h transport.RequestHandler) transport.RouteHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	rt := &route{path: path, verb: verb, handler: h}
	r.routes = append(r.routes, rt)
	return rt
}

// UnbindRoute implements transport.Router.
func (r *Router) UnbindRoute(h transport.RouteHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, rt := range r.routes {
		if rt == h {
			r.routes = append(r.routes[:i], r.routes[i+1:]...)
			r.unbound++
			return
		}
	}
}

// Routes returns the number of bound routes.
func (r *Router) Routes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.routes)
}

// Unbound returns the number of successful UnbindRoute calls.
func (r *Router) Unbound() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unbound
}

// Started reports whether StartAllListeners ran after this router was created.
func (r *Router) Started() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.started
}

// Port returns the port the router was created for.
func (r *Router) Port() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.port
}

// Has reports whether a route with exactly this path and verb is bound.
func (r *Router) Has(path string, verb transport.Verb) bool {
	return r.find(path, verb) != nil
}

func (r *Router) find(path string, verb transport.Verb) *route {
	r.mu.Lock()
	defer r.mu.Unlock()
	if verb == transport.VerbNone {
		return nil
	}
	for _, rt := range r.routes {
		if rt.path == path && rt.verb == verb {
			return rt
		}
	}
	return nil
}

// Dispatch routes req and returns the completed response.
// Returns ErrNoRoute if no route matches, and panics if the handler
// completes more than once.
func (r *Router) Dispatch(req *transport.Request) (*transport.Response, error) {
	rt := r.find(req.RelativePath, req.Verb)
	if rt == nil {
		return nil, ErrNoRoute
	}
	var resp *transport.Response
	calls := 0
	rt.handler(req, func(out *transport.Response) {
		calls++
		if calls > 1 {
			panic("fake: completion called more than once")
		}
		resp = out
	})
	if calls == 0 {
		return nil, errors.New("fake: request left pending")
	}
	return resp, nil
}

// Provider is an in-memory transport.RouterProvider handing out Routers.
type Provider struct {
	mu       sync.Mutex
	routers  map[int]*Router
	bindAddr string
	starts   int
	// FailPort makes Router return an error for this port.
	FailPort int
}

var _ transport.RouterProvider = (*Provider)(nil)

// NewProvider returns an empty provider.
func NewProvider() *Provider {
	return &Provider{routers: make(map[int]*Router)}
}

// SetDefaultBindAddress implements transport.RouterProvider.
func (p *Provider) SetDefaultBindAddress(addr string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bindAddr = addr
}

// BindAddress returns the last address passed to SetDefaultBindAddress.
func (p *Provider) BindAddress() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bindAddr
}

// Router implements transport.RouterProvider.
func (p *Provider) Router(port int) (transport.Router, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailPort != 0 && port == p.FailPort {
		return nil, errors.New("fake: port unavailable")
	}
	r, ok := p.routers[port]
	if !ok {
		r = NewRouter()
		r.port = port
		p.routers[port] = r
	}
	return r, nil
}

// RouterFor returns the router created for port, or nil.
func (p *Provider) RouterFor(port int) *Router {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.routers[port]
}

// StartAllListeners implements transport.RouterProvider.
func (p *Provider) StartAllListeners() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.starts++
	for _, r := range p.routers {
		r.mu.Lock()
		r.started = true
		r.bindAddr = p.bindAddr
		r.mu.Unlock()
	}
	return nil
}

// Starts returns the number of StartAllListeners calls.
func (p *Provider) Starts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.starts
}
