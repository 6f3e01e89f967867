package wsnet

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"time"

	ws "github.com/coder/websocket"

	"github.com/getmockd/wsbridge/pkg/transport"
)

const writeTimeout = 10 * time.Second

// Socket is one accepted session. It implements transport.Socket.
type Socket struct {
	srv    *Server
	conn   *ws.Conn
	remote string
	ctx    context.Context
	cancel context.CancelFunc
	out    chan []byte

	mu      sync.Mutex
	closed  bool
	onRecv  transport.ReceiveFunc
	onClose transport.InfoFunc
	onError transport.InfoFunc
}

var _ transport.Socket = (*Socket)(nil)

func newSocket(srv *Server, conn *ws.Conn, remote string) *Socket {
	ctx, cancel := context.WithCancel(srv.ctx)
	return &Socket{
		srv:    srv,
		conn:   conn,
		remote: remote,
		ctx:    ctx,
		cancel: cancel,
		out:    make(chan []byte, srv.cfg.OutboundQueue),
	}
}

// Send queues data for the writer goroutine. It returns false if the socket
// is closed or its queue is full.
func (s *Socket) Send(data []byte, prependSize bool) bool {
	var buf []byte
	if prependSize {
		buf = make([]byte, 4, 4+len(data))
		binary.LittleEndian.PutUint32(buf, uint32(len(data)))
		buf = append(buf, data...)
	} else {
		buf = append([]byte(nil), data...)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.out <- buf:
		return true
	default:
		s.srv.log.Warn("websocket send queue full", "remoteAddr", s.remote, "queued", len(s.out))
		return false
	}
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
	return s.remote
}

func (s *Socket) receiveCallback() transport.ReceiveFunc {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.onRecv
}

func (s *Socket) closeCallback() transport.InfoFunc {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.onClose
}

func (s *Socket) errorCallback() transport.InfoFunc {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.onError
}

func (s *Socket) readLoop() {
	defer s.srv.forget(s)
	for {
		_, data, err := s.conn.Read(s.ctx)
		if err != nil {
			if !isExpectedClose(s.ctx, err) {
				s.srv.log.Debug("websocket read error", "remoteAddr", s.remote, "error", err)
				s.srv.push(event{kind: eventError, sock: s})
			}
			s.close(ws.StatusNormalClosure, "")
			s.srv.push(event{kind: eventClose, sock: s})
			return
		}
		s.srv.push(event{kind: eventReceive, sock: s, data: data})
	}
}

func (s *Socket) writeLoop() {
	typ := ws.MessageBinary
	if s.srv.cfg.TextFrames {
		typ = ws.MessageText
	}
	for {
		select {
		case <-s.ctx.Done():
			return
		case buf := <-s.out:
			ctx, cancel := context.WithTimeout(s.ctx, writeTimeout)
			err := s.conn.Write(ctx, typ, buf)
			cancel()
			if err != nil {
				if !isExpectedClose(s.ctx, err) {
					s.srv.log.Warn("websocket write failed", "remoteAddr", s.remote, "error", err)
				}
				s.close(ws.StatusInternalError, "write failed")
				return
			}
		}
	}
}

// Close closes the session with a normal closure status. Sends fail from
// the moment it returns; the close handshake finishes in the background so
// the tick goroutine never waits on the peer.
func (s *Socket) Close() {
	if s.markClosed() {
		go s.shutdown(ws.StatusNormalClosure, "")
	}
}

// close marks the socket closed and closes the connection. Later calls do nothing.
func (s *Socket) close(code ws.StatusCode, reason string) {
	if s.markClosed() {
		s.shutdown(code, reason)
	}
}

func (s *Socket) markClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.closed = true
	return true
}

func (s *Socket) shutdown(code ws.StatusCode, reason string) {
	_ = s.conn.Close(code, reason)
	s.cancel()
}

func isExpectedClose(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return true
	}
	switch ws.CloseStatus(err) {
	case ws.StatusNormalClosure, ws.StatusGoingAway, ws.StatusNoStatusRcvd:
		return true
	}
	return false
}
