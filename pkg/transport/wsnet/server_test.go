package wsnet

import (
	"encoding/binary"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/wsbridge/pkg/transport"
)

// harness runs a Server and records callbacks delivered by Tick.
type harness struct {
	srv *Server

	mu      sync.Mutex
	sockets []transport.Socket
	log     []string
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	cfg.Host = "127.0.0.1"
	h := &harness{srv: New(cfg)}
	require.NoError(t, h.srv.Init(0, h.onConnect))
	t.Cleanup(func() { _ = h.srv.Close() })
	return h
}

func (h *harness) onConnect(s transport.Socket) {
	h.mu.Lock()
	idx := len(h.sockets)
	h.sockets = append(h.sockets, s)
	h.log = append(h.log, fmt.Sprintf("connect:%d", idx))
	h.mu.Unlock()

	s.SetReceiveCallback(func(data []byte) { h.record(fmt.Sprintf("recv:%d:%s", idx, data)) })
	s.SetSocketClosedCallback(func() { h.record(fmt.Sprintf("close:%d", idx)) })
	s.SetErrorCallback(func() { h.record(fmt.Sprintf("error:%d", idx)) })
}

func (h *harness) record(e string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.log = append(h.log, e)
}

func (h *harness) events() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.log...)
}

func (h *harness) socket(i int) transport.Socket {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sockets[i]
}

// tickUntil ticks the server until cond holds.
func (h *harness) tickUntil(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		h.srv.Tick()
		return cond()
	}, 5*time.Second, 5*time.Millisecond)
}

func (h *harness) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := fmt.Sprintf("ws://%s/", h.srv.Addr().String())
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func (h *harness) has(e string) func() bool {
	return func() bool {
		for _, got := range h.events() {
			if got == e {
				return true
			}
		}
		return false
	}
}

func TestServer_CallbacksOnlyFromTick(t *testing.T) {
	h := newHarness(t, Config{})
	conn := h.dial(t)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("hello")))

	// Without Tick nothing is delivered.
	require.Eventually(t, func() bool { return h.srv.Pending() >= 2 }, 5*time.Second, 5*time.Millisecond)
	assert.Empty(t, h.events())

	h.tickUntil(t, h.has("recv:0:hello"))
	assert.Equal(t, []string{"connect:0", "recv:0:hello"}, h.events())
}

func TestServer_SendPreservesOrder(t *testing.T) {
	h := newHarness(t, Config{})
	conn := h.dial(t)
	h.tickUntil(t, h.has("connect:0"))

	sock := h.socket(0)
	for _, m := range []string{"A", "B", "C"} {
		require.True(t, sock.Send([]byte(m), false))
	}

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for _, want := range []string{"A", "B", "C"} {
		typ, data, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, websocket.BinaryMessage, typ)
		assert.Equal(t, want, string(data))
	}
}

func TestServer_PrependSize(t *testing.T) {
	h := newHarness(t, Config{TextFrames: true})
	conn := h.dial(t)
	h.tickUntil(t, h.has("connect:0"))

	require.True(t, h.socket(0).Send([]byte("abc"), true))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	typ, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, typ)
	require.Len(t, data, 7)
	assert.Equal(t, uint32(3), binary.LittleEndian.Uint32(data[:4]))
	assert.Equal(t, "abc", string(data[4:]))
}

func TestServer_ClientClose(t *testing.T) {
	h := newHarness(t, Config{})
	conn := h.dial(t)
	h.tickUntil(t, h.has("connect:0"))

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
	require.NoError(t, conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)))

	h.tickUntil(t, h.has("close:0"))
	assert.NotContains(t, h.events(), "error:0")
	assert.False(t, h.socket(0).Send([]byte("late"), false))
}

func TestServer_AbruptDisconnectRaisesError(t *testing.T) {
	h := newHarness(t, Config{})
	conn := h.dial(t)
	h.tickUntil(t, h.has("connect:0"))

	require.NoError(t, conn.UnderlyingConn().Close())

	h.tickUntil(t, h.has("close:0"))
	events := h.events()
	assert.Equal(t, []string{"connect:0", "error:0", "close:0"}, events)
}

func TestServer_MaxEventsPerTick(t *testing.T) {
	h := newHarness(t, Config{MaxEvents: 1})
	conn := h.dial(t)
	for _, m := range []string{"1", "2", "3"} {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(m)))
	}
	require.Eventually(t, func() bool { return h.srv.Pending() == 4 }, 5*time.Second, 5*time.Millisecond)

	h.srv.Tick()
	assert.Equal(t, []string{"connect:0"}, h.events())
	h.srv.Tick()
	assert.Len(t, h.events(), 2)
	assert.Equal(t, 2, h.srv.Pending())
}

func TestServer_CloseClosesSockets(t *testing.T) {
	h := newHarness(t, Config{})
	conn := h.dial(t)
	h.tickUntil(t, h.has("connect:0"))

	require.NoError(t, h.srv.Close())
	require.NoError(t, h.srv.Close())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.False(t, h.socket(0).Send([]byte("x"), false))

	h.srv.Tick()
	assert.Equal(t, []string{"connect:0"}, h.events())
	assert.ErrorIs(t, h.srv.Init(0, nil), ErrClosed)
}

func TestServer_InitPortInUse(t *testing.T) {
	h := newHarness(t, Config{})
	other := New(Config{Host: "127.0.0.1"})
	defer other.Close()

	port := h.srv.Addr().(*net.TCPAddr).Port
	assert.Error(t, other.Init(port, nil))
}

func TestFactory(t *testing.T) {
	f := Factory(Config{MaxEvents: 3})
	srv, err := f()
	require.NoError(t, err)
	require.IsType(t, &Server{}, srv)
	assert.Equal(t, 3, srv.(*Server).cfg.MaxEvents)
	assert.Equal(t, DefaultOutboundQueue, srv.(*Server).cfg.OutboundQueue)
}

func TestSocket_CloseEndsSession(t *testing.T) {
	h := newHarness(t, Config{})
	conn := h.dial(t)
	h.tickUntil(t, h.has("connect:0"))

	sock := h.socket(0)
	sock.Close()
	sock.Close()
	assert.False(t, sock.Send([]byte("after"), false))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "err = %v", err)

	h.tickUntil(t, h.has("close:0"))
	assert.NotContains(t, h.events(), "error:0")
}
