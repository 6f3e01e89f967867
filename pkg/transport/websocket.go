package transport

// ConnectFunc is invoked once for every accepted socket.
type ConnectFunc func(s Socket)

// ReceiveFunc is invoked with the payload of one inbound message.
// The slice is only valid for the duration of the call.
type ReceiveFunc func(data []byte)

// InfoFunc is invoked for socket close and error notifications.
type InfoFunc func()

// Socket is one accepted WebSocket session.
type Socket interface {
	// Send queues data for delivery. When prependSize is true the payload is
	// prefixed with its length as a 4-byte little-endian integer.
	// Send never blocks; it returns false if the socket can no longer accept data.
	Send(data []byte, prependSize bool) bool

	SetReceiveCallback(fn ReceiveFunc)
	SetSocketClosedCallback(fn InfoFunc)
	SetErrorCallback(fn InfoFunc)

	// RemoteAddr returns the peer address, or "" if unknown.
	RemoteAddr() string

	// Close closes the session. Callbacks may still fire for events queued
	// before the call. Closing a closed socket does nothing.
	Close()
}

// WebSocketServer accepts WebSocket sessions on a port.
type WebSocketServer interface {
	// Init binds the listener and starts accepting. onConnect is called from
	// Tick for every accepted socket.
	Init(port int, onConnect ConnectFunc) error

	// Tick performs one bounded, non-blocking service step, delivering queued
	// accept, receive, close and error events to their callbacks.
	Tick()

	// Close stops the listener and closes every socket. It is safe to call more than once.
	Close() error
}

// WebSocketFactory creates an uninitialized WebSocket transport server.
// It returns an error when the transport is unavailable.
type WebSocketFactory func() (WebSocketServer, error)
