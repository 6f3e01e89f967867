package httpnet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gorilla/mux"

	"github.com/getmockd/wsbridge/pkg/transport"
)

type route struct {
	path    string
	verb    transport.Verb
	handler transport.RequestHandler
}

func (r *route) Path() string         { return r.path }
func (r *route) Verb() transport.Verb { return r.verb }

type mount struct {
	path    string
	handler http.Handler
}

// Router is the route table for one port. It implements transport.Router.
type Router struct {
	module *Module
	port   int

	mu     sync.Mutex
	routes []*route
	mounts []mount
	srv    *http.Server
	ln     net.Listener

	table atomic.Pointer[mux.Router]
}

var _ transport.Router = (*Router)(nil)

func newRouter(m *Module, port int) *Router {
	r := &Router{module: m, port: port}
	r.table.Store(mux.NewRouter())
	return r
}

// Port returns the router's port.
func (r *Router) Port() int {
	return r.port
}

// Addr returns the listener address, or nil if not listening.
func (r *Router) Addr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ln == nil {
		return nil
	}
	return r.ln.Addr()
}

// BindRoute binds h to path and verb. Routes bound to VerbNone are kept but
// never match. When two routes share a path and verb the earlier one wins.
func (r *Router) BindRoute(path string, verb transport.Verb, h transport.RequestHandler) transport.RouteHandle {
	rt := &route{path: path, verb: verb, handler: h}
	r.mu.Lock()
	r.routes = append(r.routes, rt)
	r.rebuildLocked()
	r.mu.Unlock()

	r.module.log.Debug("route bound", "port", r.port, "path", path, "verb", verb.String())
	return rt
}

// UnbindRoute removes a route returned by BindRoute. Unknown handles are ignored.
func (r *Router) UnbindRoute(h transport.RouteHandle) {
	rt, ok := h.(*route)
	if !ok || rt == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, v := range r.routes {
		if v == rt {
			r.routes = append(r.routes[:i], r.routes[i+1:]...)
			r.rebuildLocked()
			r.module.log.Debug("route unbound", "port", r.port, "path", rt.path, "verb", rt.verb.String())
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

func (r *Router) mount(path string, h http.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mounts = append(r.mounts, mount{path: path, handler: h})
	r.rebuildLocked()
}

func (r *Router) rebuildLocked() {
	m := mux.NewRouter()
	for _, mt := range r.mounts {
		m.Path(mt.path).Handler(mt.handler)
	}
	for _, rt := range r.routes {
		if rt.verb == transport.VerbNone {
			continue
		}
		m.Path(rt.path).Methods(rt.verb.String()).Handler(r.serve(rt))
	}
	r.table.Store(m)
}

// ServeHTTP dispatches to the current route table.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.table.Load().ServeHTTP(w, req)
}

func (r *Router) serve(rt *route) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, req.Body, r.module.maxBody))
		if err != nil {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}

		treq := &transport.Request{
			Verb:         rt.verb,
			RelativePath: req.URL.Path,
			Headers:      req.Header,
			QueryParams:  transport.QueryParamsFromURL(req.URL.Query()),
			Body:         body,
		}
		j := newJob(rt.handler, treq)

		if r.module.serialize {
			select {
			case r.module.jobs <- j:
			case <-req.Context().Done():
				return
			}
		} else {
			j.run()
		}

		select {
		case res := <-j.done:
			if !res.handled {
				http.NotFound(w, req)
				return
			}
			writeResponse(w, res.resp)
		case <-req.Context().Done():
		}
	})
}

func writeResponse(w http.ResponseWriter, resp *transport.Response) {
	if resp == nil {
		w.WriteHeader(http.StatusOK)
		return
	}
	for k, vs := range resp.Headers {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	code := resp.Code
	if code == 0 {
		code = http.StatusOK
	}
	w.WriteHeader(code)
	_, _ = w.Write(resp.Body)
}

func (r *Router) listen(host string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.srv != nil {
		return nil
	}

	addr := listenAddr(host, r.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	srv := r.module.newHTTPServer(r)
	r.srv = srv
	r.ln = ln

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.module.log.Error("http listener stopped", "addr", addr, "error", err)
		}
	}()
	r.module.log.Info("http listener started", "addr", ln.Addr().String())
	return nil
}

func (r *Router) shutdown(ctx context.Context) error {
	r.mu.Lock()
	srv := r.srv
	r.srv = nil
	r.ln = nil
	r.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
