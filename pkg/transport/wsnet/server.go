package wsnet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	ws "github.com/coder/websocket"
	"github.com/eapache/queue"
	"golang.org/x/net/netutil"

	"github.com/getmockd/wsbridge/pkg/logging"
	"github.com/getmockd/wsbridge/pkg/transport"
)

// Defaults applied by Config.withDefaults.
const (
	DefaultMaxEvents     = 256
	DefaultReadLimit     = 1 << 20
	DefaultOutboundQueue = 64
)

// ErrClosed is returned by Init on a server that has been closed.
var ErrClosed = errors.New("wsnet: server closed")

// Config configures a Server.
type Config struct {
	// Host is the listen host. Empty listens on all interfaces.
	Host string
	// MaxEvents bounds the number of events delivered per Tick.
	MaxEvents int
	// MaxConnections caps concurrent TCP connections. Zero means unlimited.
	MaxConnections int
	// ReadLimit is the maximum inbound message size in bytes.
	ReadLimit int64
	// OutboundQueue is the per-socket send queue length.
	OutboundQueue int
	// TextFrames sends text frames instead of binary frames.
	TextFrames bool
	Logger     *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.MaxEvents <= 0 {
		c.MaxEvents = DefaultMaxEvents
	}
	if c.ReadLimit <= 0 {
		c.ReadLimit = DefaultReadLimit
	}
	if c.OutboundQueue <= 0 {
		c.OutboundQueue = DefaultOutboundQueue
	}
	if c.Logger == nil {
		c.Logger = logging.Nop()
	}
	return c
}

// Factory returns a transport.WebSocketFactory producing servers with cfg.
func Factory(cfg Config) transport.WebSocketFactory {
	return func() (transport.WebSocketServer, error) {
		return New(cfg), nil
	}
}

type eventKind int

const (
	eventAccept eventKind = iota
	eventReceive
	eventError
	eventClose
)

type event struct {
	kind eventKind
	sock *Socket
	data []byte
}

// Server implements transport.WebSocketServer.
type Server struct {
	cfg Config
	log *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	events    *queue.Queue
	sockets   map[*Socket]struct{}
	onConnect transport.ConnectFunc
	listener  net.Listener
	httpSrv   *http.Server
	closed    bool

	wg sync.WaitGroup
}

var _ transport.WebSocketServer = (*Server)(nil)

// New creates an unbound server.
func New(cfg Config) *Server {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:     cfg,
		log:     cfg.Logger,
		ctx:     ctx,
		cancel:  cancel,
		sockets: make(map[*Socket]struct{}),
		events:  queue.New(),
	}
}

// Init listens on port and starts accepting WebSocket upgrades on any path.
// Port 0 picks a free port; see Addr.
func (s *Server) Init(port int, onConnect transport.ConnectFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.listener != nil {
		return fmt.Errorf("wsnet: already listening on %s", s.listener.Addr())
	}

	lc := net.ListenConfig{Control: reuseAddr}
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(port))
	ln, err := lc.Listen(s.ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	if s.cfg.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, s.cfg.MaxConnections)
	}

	s.listener = ln
	s.onConnect = onConnect
	s.httpSrv = &http.Server{
		Handler:           http.HandlerFunc(s.handleUpgrade),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return s.ctx },
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("websocket listener stopped", "addr", ln.Addr().String(), "error", err)
		}
	}()

	s.log.Info("websocket transport listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound listener address, or nil before Init.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.Accept(w, r, &ws.AcceptOptions{
		InsecureSkipVerify: true,
		CompressionMode:    ws.CompressionDisabled,
	})
	if err != nil {
		s.log.Debug("websocket upgrade failed", "remoteAddr", r.RemoteAddr, "error", err)
		return
	}
	conn.SetReadLimit(s.cfg.ReadLimit)

	sock := newSocket(s, conn, r.RemoteAddr)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = conn.Close(ws.StatusGoingAway, "server closed")
		return
	}
	s.sockets[sock] = struct{}{}
	s.events.Add(event{kind: eventAccept, sock: sock})
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		sock.writeLoop()
	}()
	sock.readLoop()
}

// push queues an event unless the server is closed.
func (s *Server) push(ev event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.events.Add(ev)
}

func (s *Server) forget(sock *Socket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sockets, sock)
}

// Tick delivers up to MaxEvents queued events on the calling goroutine.
func (s *Server) Tick() {
	s.mu.Lock()
	n := min(s.events.Length(), s.cfg.MaxEvents)
	batch := make([]event, n)
	for i := range batch {
		batch[i] = s.events.Remove().(event)
	}
	onConnect := s.onConnect
	s.mu.Unlock()

	for _, ev := range batch {
		switch ev.kind {
		case eventAccept:
			if onConnect != nil {
				onConnect(ev.sock)
			}
		case eventReceive:
			if fn := ev.sock.receiveCallback(); fn != nil {
				fn(ev.data)
			}
		case eventError:
			if fn := ev.sock.errorCallback(); fn != nil {
				fn()
			}
		case eventClose:
			if fn := ev.sock.closeCallback(); fn != nil {
				fn()
			}
		}
	}
}

// Pending returns the number of queued events.
func (s *Server) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events.Length()
}

// Close stops the listener, closes every socket and drops queued events.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.events = queue.New()
	socks := make([]*Socket, 0, len(s.sockets))
	for sock := range s.sockets {
		socks = append(socks, sock)
	}
	s.sockets = make(map[*Socket]struct{})
	httpSrv := s.httpSrv
	s.mu.Unlock()

	var err error
	if httpSrv != nil {
		err = httpSrv.Close()
	}
	for _, sock := range socks {
		sock.close(ws.StatusGoingAway, "server closed")
	}
	s.cancel()
	s.wg.Wait()
	return err
}
