package httpserver

import "errors"

var (
	// ErrClosed is returned by Bind after Close.
	ErrClosed = errors.New("httpserver: server closed")

	// ErrNoRouter is returned when the transport has no router for the port.
	ErrNoRouter = errors.New("httpserver: no router available")
)
