package websocket

import "errors"

// Common errors for the websocket package.
var (
	// ErrBindFailure indicates the transport could not be initialized on the requested port.
	ErrBindFailure = errors.New("websocket server bind failed")
	// ErrTransportUnavailable indicates no transport could be created.
	ErrTransportUnavailable = errors.New("websocket transport unavailable")
	// ErrAlreadyRunning indicates Start was called on a running server.
	ErrAlreadyRunning = errors.New("websocket server already running")
	// ErrDriverStopped indicates work was submitted to a driver that has exited.
	ErrDriverStopped = errors.New("driver stopped")
)
