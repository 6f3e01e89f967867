package httpserver

import (
	"net/http"

	"github.com/getmockd/wsbridge/pkg/transport"
)

// Headers set on every response.
const (
	ContentType  = "application/json;charset=utf-8"
	AllowOrigin  = "*"
	AllowMethods = "GET,POST,PUT,PATCH,DELETE,OPTIONS"
	AllowHeaders = "Origin,X-Requested-With,Content-Type,Accept"
	MaxAge       = "600"
	AllowCreds   = "true"
)

// NewEnvelope returns a 200 response carrying the JSON content type and the
// CORS headers, with an empty body.
func NewEnvelope() *transport.Response {
	h := make(http.Header, 6)
	h.Set("Content-Type", ContentType)
	h.Set("Access-Control-Allow-Origin", AllowOrigin)
	h.Set("Access-Control-Allow-Methods", AllowMethods)
	h.Set("Access-Control-Allow-Headers", AllowHeaders)
	h.Set("Access-Control-Max-Age", MaxAge)
	h.Set("Access-Control-Allow-Credentials", AllowCreds)
	return &transport.Response{Code: http.StatusOK, Headers: h}
}
