package fake

import (
	"errors"
	"sync"

	"github.com/getmockd/wsbridge/pkg/transport"
)

// ErrInitFailed is returned by WSServer.Init when FailInit is set.
var ErrInitFailed = errors.New("fake: init failed")

// Socket is an in-memory transport.Socket.
type Socket struct {
	Addr string

	mu       sync.Mutex
	sent     [][]byte
	closed   bool
	failSend bool
	onRecv   transport.ReceiveFunc
	onClose  transport.InfoFunc
	onError  transport.InfoFunc
}

// NewSocket returns an open socket.
func NewSocket(addr string) *Socket {
	return &Socket{Addr: addr}
}

var _ transport.Socket = (*Socket)(nil)

// Send records data unless the socket is closed or failing.
func (s *Socket) Send(data []byte, prependSize bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.failSend {
		return false
	}
	buf := make([]byte, 0, len(data)+4)
	if prependSize {
		n := uint32(len(data))
		buf = append(buf, byte(n), byte(n>>8), byte(n>>16), byte(n>>24))
	}
	buf = append(buf, data...)
	s.sent = append(s.sent, buf)
	return true
}

// SetReceiveCallback implements transport.Socket.
func (s *Socket) SetReceiveCallback(fn transport.ReceiveFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRecv = fn
}

// SetSocketClosedCallback implements transport.Socket.
func (s *Socket) SetSocketClosedCallback(fn transport.InfoFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onClose = fn
}

// SetErrorCallback implements transport.Socket.
func (s *Socket) SetErrorCallback(fn transport.InfoFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onError = fn
}

// RemoteAddr implements transport.Socket.
func (s *Socket) RemoteAddr() string {
	return s.Addr
}

// Sent returns a copy of every payload sent so far, in order.
func (s *Socket) Sent() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.sent))
	copy(out, s.sent)
	return out
}

// SetFailSend makes subsequent sends fail.
func (s *Socket) SetFailSend(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failSend = fail
}

// IsClosed reports whether Close or SimulateClose ran.
func (s *Socket) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close marks the socket closed without invoking callbacks.
func (s *Socket) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// SimulateReceive delivers data to the receive callback.
func (s *Socket) SimulateReceive(data []byte) {
	s.mu.Lock()
	fn := s.onRecv
	s.mu.Unlock()
	if fn != nil {
		fn(data)
	}
}

// SimulateClose closes the socket and invokes the close callback.
func (s *Socket) SimulateClose() {
	s.mu.Lock()
	s.closed = true
	fn := s.onClose
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// SimulateError invokes the error callback.
func (s *Socket) SimulateError() {
	s.mu.Lock()
	fn := s.onError
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// WSServer is an in-memory transport.WebSocketServer.
type WSServer struct {
	// FailInit makes Init return ErrInitFailed.
	FailInit bool

	mu        sync.Mutex
	port      int
	onConnect transport.ConnectFunc
	sockets   []*Socket
	ticks     int
	closed    bool
}

var _ transport.WebSocketServer = (*WSServer)(nil)

// Init implements transport.WebSocketServer.
func (s *WSServer) Init(port int, onConnect transport.ConnectFunc) error {
	if s.FailInit {
		return ErrInitFailed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.port = port
	s.onConnect = onConnect
	return nil
}

// Tick implements transport.WebSocketServer.
func (s *WSServer) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticks++
}

// Close closes every accepted socket.
func (s *WSServer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for _, sock := range s.sockets {
		sock.Close()
	}
	return nil
}

// Accept creates a socket and hands it to the connect callback.
func (s *WSServer) Accept(addr string) *Socket {
	sock := NewSocket(addr)
	s.mu.Lock()
	s.sockets = append(s.sockets, sock)
	fn := s.onConnect
	s.mu.Unlock()
	if fn != nil {
		fn(sock)
	}
	return sock
}

// AcceptNil delivers a nil socket to the connect callback.
func (s *WSServer) AcceptNil() {
	s.mu.Lock()
	fn := s.onConnect
	s.mu.Unlock()
	if fn != nil {
		fn(nil)
	}
}

// Port returns the port passed to Init.
func (s *WSServer) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// Ticks returns the number of Tick calls.
func (s *WSServer) Ticks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticks
}

// IsClosed reports whether Close ran.
func (s *WSServer) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Factory returns a transport.WebSocketFactory that always yields srv.
func Factory(srv *WSServer) transport.WebSocketFactory {
	return func() (transport.WebSocketServer, error) {
		return srv, nil
	}
}
