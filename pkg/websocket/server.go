package websocket

import (
	"bytes"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/getmockd/wsbridge/pkg/logging"
	"github.com/getmockd/wsbridge/pkg/metrics"
	"github.com/getmockd/wsbridge/pkg/textcodec"
	"github.com/getmockd/wsbridge/pkg/transport"
)

// Server is the WebSocket server core. It moves between Stopped and Running;
// the zero state is Stopped.
//
// Transport callbacks, registry mutation and listener notification all happen
// on the goroutine that calls Poll. Sends and queries may be called from
// listeners or from any other goroutine.
type Server struct {
	factory     transport.WebSocketFactory
	registry    *Registry
	listeners   listeners
	log         *slog.Logger
	errorPolicy ErrorPolicy
	codec       *textcodec.Codec

	mu         sync.Mutex
	transport  transport.WebSocketServer
	port       int
	startedAt  time.Time
	generation uint64

	totalConns atomic.Int64
	totalSent  atomic.Int64
	totalRecv  atomic.Int64
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger sets the logger. The default discards output.
func WithLogger(log *slog.Logger) ServerOption {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithErrorPolicy sets how socket errors affect connections.
func WithErrorPolicy(p ErrorPolicy) ServerOption {
	return func(s *Server) {
		s.errorPolicy = p
	}
}

// WithCodec sets the codec used by SendEncoded and exposed through Codec.
func WithCodec(c *textcodec.Codec) ServerOption {
	return func(s *Server) {
		if c != nil {
			s.codec = c
		}
	}
}

// NewServer creates a stopped server that builds its transport with factory on Start.
func NewServer(factory transport.WebSocketFactory, opts ...ServerOption) *Server {
	s := &Server{
		factory:  factory,
		registry: NewRegistry(),
		log:      logging.Nop(),
		codec:    textcodec.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.listeners.log = s.log
	return s
}

// Start creates the transport and binds it to port. On failure the server
// stays stopped and the returned error wraps ErrBindFailure.
func (s *Server) Start(port int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.transport != nil {
		return ErrAlreadyRunning
	}
	if s.factory == nil {
		return fmt.Errorf("%w: %w", ErrBindFailure, ErrTransportUnavailable)
	}

	t, err := s.factory()
	if err != nil {
		return fmt.Errorf("%w: %w: %v", ErrBindFailure, ErrTransportUnavailable, err)
	}
	if t == nil {
		return fmt.Errorf("%w: %w", ErrBindFailure, ErrTransportUnavailable)
	}

	gen := s.generation + 1
	if err := t.Init(port, func(sock transport.Socket) { s.handleConnect(gen, sock) }); err != nil {
		_ = t.Close()
		s.log.Warn("websocket server failed to start", "port", port, "error", err)
		return fmt.Errorf("%w: port %d: %w", ErrBindFailure, port, err)
	}

	s.transport = t
	s.generation = gen
	s.port = port
	s.startedAt = time.Now()
	s.log.Info("websocket server started", "port", port)
	return nil
}

// Stop discards the transport, which closes every socket, and clears the
// registry. Stopping a stopped server does nothing.
func (s *Server) Stop() {
	s.mu.Lock()
	t := s.transport
	s.transport = nil
	s.generation++
	port := s.port
	s.mu.Unlock()

	if t == nil {
		return
	}
	if err := t.Close(); err != nil {
		s.log.Warn("error closing websocket transport", "port", port, "error", err)
	}
	n := s.registry.Clear()
	gaugeAdd(-n)
	s.log.Info("websocket server stopped", "port", port, "dropped", n)
}

// Close stops the server. It always returns nil.
func (s *Server) Close() error {
	s.Stop()
	return nil
}

// IsRunning reports whether the server is running.
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transport != nil
}

// Port returns the port of the running server, or 0.
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.transport == nil {
		return 0
	}
	return s.port
}

// Poll runs one service step of the transport. It returns false when stopped.
func (s *Server) Poll() bool {
	s.mu.Lock()
	t := s.transport
	s.mu.Unlock()

	if t == nil {
		return false
	}
	t.Tick()
	return true
}

// Subscribe registers a listener and returns a function that removes it.
func (s *Server) Subscribe(l Listener) (unsubscribe func()) {
	return s.listeners.add(l)
}

// current reports whether events tagged with gen belong to the running transport.
func (s *Server) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transport != nil && s.generation == gen
}

func (s *Server) handleConnect(gen uint64, sock transport.Socket) {
	if sock == nil {
		s.log.Error("socket was nil while creating a new websocket connection")
		return
	}
	if !s.current(gen) {
		return
	}

	conn := s.registry.add(sock)
	sock.SetReceiveCallback(func(data []byte) { s.handleReceive(gen, conn, data) })
	sock.SetSocketClosedCallback(func() { s.handleClose(gen, sock) })
	sock.SetErrorCallback(func() { s.handleError(gen, sock, conn.id) })

	s.totalConns.Add(1)
	gaugeAdd(1)
	s.log.Debug("websocket client connected", "id", conn.id, "remoteAddr", sock.RemoteAddr())
	s.listeners.connected(conn.id)
}

func (s *Server) handleReceive(gen uint64, conn *Connection, data []byte) {
	if !s.current(gen) || s.registry.FindByID(conn.id) == nil {
		return
	}
	conn.recordReceived(len(data))
	s.totalRecv.Add(1)
	countMessage("inbound")

	s.listeners.message(bytes.Clone(data), conn.id)
}

func (s *Server) handleClose(gen uint64, sock transport.Socket) {
	if !s.current(gen) {
		return
	}
	id, ok := s.registry.RemoveBySocket(sock)
	if !ok {
		return
	}
	gaugeAdd(-1)
	s.log.Debug("websocket client closed", "id", id)
	s.listeners.closed(id)
}

func (s *Server) handleError(gen uint64, sock transport.Socket, id string) {
	if !s.current(gen) || s.registry.FindByID(id) == nil {
		return
	}
	s.log.Debug("websocket client error", "id", id, "policy", s.errorPolicy.String())
	s.listeners.errored(id)

	if s.errorPolicy == ErrorPolicyDisconnect {
		sock.Close()
		s.handleClose(gen, sock)
	}
}

// Send sends data to connection id. Sending to an unknown id does nothing
// and returns false. Lookup is O(1) by ID.
func (s *Server) Send(id string, data []byte) bool {
	conn := s.registry.FindByID(id)
	if conn == nil {
		return false
	}
	return s.sendTo(conn, data)
}

// SendText sends s encoded as UTF-8 to connection id.
func (s *Server) SendText(id, text string) bool {
	return s.Send(id, textcodec.ToUTF8Bytes(text))
}

// SendEncoded sends text converted with the server's codec.
func (s *Server) SendEncoded(id string, enc textcodec.Encoding, text string) (bool, error) {
	data, err := s.codec.Encode(enc, text)
	if err != nil {
		return false, err
	}
	return s.Send(id, data), nil
}

// SendToName sends data to the first connection named name.
func (s *Server) SendToName(name string, data []byte) bool {
	id := s.ClientIDByName(name)
	if id == "" {
		return false
	}
	return s.Send(id, data)
}

// SendToAll sends data to every connection and returns the number of
// connections that accepted it. A failure on one connection does not stop
// delivery to the rest.
func (s *Server) SendToAll(data []byte) int {
	sent := 0
	for _, conn := range s.registry.Snapshot() {
		if s.sendTo(conn, data) {
			sent++
		}
	}
	return sent
}

// SendTextToAll sends text encoded as UTF-8 to every connection.
func (s *Server) SendTextToAll(text string) int {
	return s.SendToAll(textcodec.ToUTF8Bytes(text))
}

func (s *Server) sendTo(conn *Connection, data []byte) bool {
	if !conn.Send(data) {
		s.log.Warn("websocket send failed", "id", conn.id, "bytes", len(data))
		return false
	}
	s.totalSent.Add(1)
	countMessage("outbound")
	return true
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	return s.registry.Count()
}

// Clients returns the IDs of all connected clients.
func (s *Server) Clients() []string {
	return s.registry.IDs()
}

// Client returns the connection with id, or nil.
func (s *Server) Client(id string) *Connection {
	return s.registry.FindByID(id)
}

// ClientInfos returns a snapshot of every connection.
func (s *Server) ClientInfos() []ConnectionInfo {
	conns := s.registry.Snapshot()
	infos := make([]ConnectionInfo, len(conns))
	for i, c := range conns {
		infos[i] = c.Info()
	}
	return infos
}

// ClientIDByName returns the ID of the first client named name, or "".
func (s *Server) ClientIDByName(name string) string {
	if c := s.registry.FindByName(name); c != nil {
		return c.id
	}
	return ""
}

// SetClientNameByID sets the display name of client id.
// Returns false if id is unknown.
func (s *Server) SetClientNameByID(id, name string) bool {
	return s.registry.SetName(id, name)
}

// Codec returns the codec used for encoded sends.
func (s *Server) Codec() *textcodec.Codec {
	return s.codec
}

// Stats returns aggregate statistics.
func (s *Server) Stats() *Stats {
	s.mu.Lock()
	running := s.transport != nil
	startedAt := s.startedAt
	s.mu.Unlock()

	st := &Stats{
		Running:               running,
		ActiveConnections:     s.registry.Count(),
		TotalConnections:      s.totalConns.Load(),
		TotalMessagesSent:     s.totalSent.Load(),
		TotalMessagesReceived: s.totalRecv.Load(),
	}
	if running {
		st.Uptime = time.Since(startedAt).Round(time.Second).String()
	}
	return st
}

func gaugeAdd(n int) {
	if n == 0 || metrics.ActiveConnections == nil {
		return
	}
	if vec, err := metrics.ActiveConnections.WithLabels("websocket"); err == nil {
		vec.Add(float64(n))
	}
}

func countMessage(direction string) {
	if metrics.WSMessagesTotal == nil {
		return
	}
	if vec, err := metrics.WSMessagesTotal.WithLabels(direction); err == nil {
		_ = vec.Inc()
	}
}
