package transport

import (
	"net/http"
	"net/url"
)

// Verb is an HTTP request verb understood by a Router.
type Verb int

// Supported verbs. VerbNone matches no request.
const (
	VerbNone Verb = iota
	VerbGet
	VerbPost
	VerbPut
	VerbPatch
	VerbDelete
	VerbOptions
)

// String returns the HTTP method name, or "" for VerbNone.
func (v Verb) String() string {
	switch v {
	case VerbGet:
		return http.MethodGet
	case VerbPost:
		return http.MethodPost
	case VerbPut:
		return http.MethodPut
	case VerbPatch:
		return http.MethodPatch
	case VerbDelete:
		return http.MethodDelete
	case VerbOptions:
		return http.MethodOptions
	default:
		return ""
	}
}

// VerbFromMethod maps an HTTP method to a Verb. Unknown methods yield VerbNone.
func VerbFromMethod(method string) Verb {
	switch method {
	case http.MethodGet:
		return VerbGet
	case http.MethodPost:
		return VerbPost
	case http.MethodPut:
		return VerbPut
	case http.MethodPatch:
		return VerbPatch
	case http.MethodDelete:
		return VerbDelete
	case http.MethodOptions:
		return VerbOptions
	default:
		return VerbNone
	}
}

// Request is a decoded HTTP request delivered to a bound handler.
type Request struct {
	Verb         Verb
	RelativePath string
	Headers      map[string][]string
	QueryParams  map[string]string
	Body         []byte
}

// Response is produced by a handler and written by the router.
type Response struct {
	Code    int
	Headers http.Header
	Body    []byte
}

// CompleteFunc delivers the response for a request. Handlers must call it exactly once.
type CompleteFunc func(resp *Response)

// RequestHandler handles one request. It returns false if it declined the request.
type RequestHandler func(req *Request, complete CompleteFunc) bool

// RouteHandle identifies a bound route so it can be unbound.
type RouteHandle interface {
	Path() string
	Verb() Verb
}

// Router binds routes on one listening port.
type Router interface {
	BindRoute(path string, verb Verb, h RequestHandler) RouteHandle
	UnbindRoute(h RouteHandle)
}

// RouterProvider hands out per-port routers and owns the listeners.
type RouterProvider interface {
	// SetDefaultBindAddress sets the process-wide listen address. "any" means all interfaces.
	SetDefaultBindAddress(addr string)
	// Router returns the router for port, creating it if needed.
	Router(port int) (Router, error)
	// StartAllListeners starts every listener that is not yet running.
	StartAllListeners() error
}

// QueryParamsFromURL flattens URL query values, keeping the first value of each key.
func QueryParamsFromURL(values url.Values) map[string]string {
	params := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			params[k] = v[0]
		} else {
			params[k] = ""
		}
	}
	return params
}
