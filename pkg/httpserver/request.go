package httpserver

import (
	"maps"
	"net/http"
	"strings"

	"github.com/getmockd/wsbridge/pkg/textcodec"
	"github.com/getmockd/wsbridge/pkg/transport"
)

// Headers maps header names to their values joined by ",".
type Headers map[string]string

// Get returns the value of key, or "". Lookup falls back to the canonical
// header form, so "content-type" finds "Content-Type".
func (h Headers) Get(key string) string {
	if v, ok := h[key]; ok {
		return v
	}
	return h[http.CanonicalHeaderKey(key)]
}

// Map returns a copy of h.
func (h Headers) Map() map[string]string {
	return maps.Clone(map[string]string(h))
}

// Params maps query parameter names to values.
type Params map[string]string

// Get returns the value of key, or "".
func (p Params) Get(key string) string {
	return p[key]
}

// Map returns a copy of p.
func (p Params) Map() map[string]string {
	return maps.Clone(map[string]string(p))
}

// Request is the decoded request passed to a Handler.
type Request struct {
	Path    string
	Verb    transport.Verb
	Headers Headers
	Params  Params
	Body    string
}

// Handler handles a request. A non-empty result becomes the response body.
type Handler func(req *Request) string

func decodeRequest(req *transport.Request) *Request {
	headers := make(Headers, len(req.Headers))
	for k, vs := range req.Headers {
		headers[k] = strings.Join(vs, ",")
	}
	params := make(Params, len(req.QueryParams))
	maps.Copy(params, req.QueryParams)

	var body string
	if len(req.Body) > 0 {
		body = textcodec.FromUTF8Bytes(req.Body)
	}
	return &Request{
		Path:    req.RelativePath,
		Verb:    req.Verb,
		Headers: headers,
		Params:  params,
		Body:    body,
	}
}
