package websocket

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/getmockd/wsbridge/pkg/transport"
)

// Connection represents one accepted WebSocket client.
type Connection struct {
	id          string
	socket      transport.Socket
	connectedAt time.Time

	messagesSent atomic.Int64
	messagesRecv atomic.Int64
	bytesSent    atomic.Int64
	bytesRecv    atomic.Int64

	mu   sync.RWMutex
	name string
}

func newConnection(socket transport.Socket) *Connection {
	return &Connection{
		id:          GenerateConnectionID(),
		socket:      socket,
		connectedAt: time.Now(),
	}
}

// ID returns the unique connection ID.
func (c *Connection) ID() string {
	return c.id
}

// Name returns the display name, or "" if none was set.
func (c *Connection) Name() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.name
}

func (c *Connection) setName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.name = name
}

// Socket returns the underlying transport socket.
func (c *Connection) Socket() transport.Socket {
	return c.socket
}

// ConnectedAt returns the accept time.
func (c *Connection) ConnectedAt() time.Time {
	return c.connectedAt
}

// MessagesSent returns the number of payloads accepted by the transport.
func (c *Connection) MessagesSent() int64 {
	return c.messagesSent.Load()
}

// MessagesReceived returns the number of payloads received.
func (c *Connection) MessagesReceived() int64 {
	return c.messagesRecv.Load()
}

// Send hands data to the transport. It returns false if the socket rejected it.
func (c *Connection) Send(data []byte) bool {
	if !c.socket.Send(data, false) {
		return false
	}
	c.messagesSent.Add(1)
	c.bytesSent.Add(int64(len(data)))
	return true
}

func (c *Connection) recordReceived(n int) {
	c.messagesRecv.Add(1)
	c.bytesRecv.Add(int64(n))
}

// Info returns a snapshot of the connection for display.
func (c *Connection) Info() ConnectionInfo {
	return ConnectionInfo{
		ID:               c.id,
		Name:             c.Name(),
		RemoteAddr:       c.socket.RemoteAddr(),
		ConnectedAt:      c.connectedAt,
		MessagesSent:     c.messagesSent.Load(),
		MessagesReceived: c.messagesRecv.Load(),
		BytesSent:        c.bytesSent.Load(),
		BytesReceived:    c.bytesRecv.Load(),
	}
}
