package websocket

import (
	"sync"

	"github.com/getmockd/wsbridge/pkg/transport"
)

// Registry holds one Connection per open socket.
//
// Connections are kept in a slice for iteration and indexed by ID for O(1)
// lookup. Removal swaps the last entry into the vacated slot, so iteration
// order is not stable across removals.
type Registry struct {
	conns []*Connection
	byID  map[string]int

	mu sync.RWMutex
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]int)}
}

// Add wraps socket in a new Connection and returns its ID.
func (r *Registry) Add(socket transport.Socket) string {
	return r.add(socket).id
}

func (r *Registry) add(socket transport.Socket) *Connection {
	conn := newConnection(socket)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[conn.id] = len(r.conns)
	r.conns = append(r.conns, conn)
	return conn
}

// RemoveBySocket removes the connection owning socket and returns its ID.
// It does not close the socket; the transport has already closed it when the
// close callback fires. Unknown sockets are ignored.
func (r *Registry) RemoveBySocket(socket transport.Socket) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, c := range r.conns {
		if c.socket == socket {
			r.removeAt(i)
			return c.id, true
		}
	}
	return "", false
}

// removeAt must be called with r.mu held.
func (r *Registry) removeAt(i int) {
	removed := r.conns[i]
	last := len(r.conns) - 1
	if i != last {
		moved := r.conns[last]
		r.conns[i] = moved
		r.byID[moved.id] = i
	}
	r.conns[last] = nil
	r.conns = r.conns[:last]
	delete(r.byID, removed.id)
}

// FindByID returns the connection with id, or nil.
func (r *Registry) FindByID(id string) *Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i, ok := r.byID[id]; ok {
		return r.conns[i]
	}
	return nil
}

// FindByName returns the first connection in iteration order whose display
// name equals name, or nil. An empty name matches nothing.
func (r *Registry) FindByName(name string) *Connection {
	if name == "" {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.conns {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

// SetName sets the display name of connection id.
// Returns false if id is unknown.
func (r *Registry) SetName(id, name string) bool {
	c := r.FindByID(id)
	if c == nil {
		return false
	}
	c.setName(name)
	return true
}

// Count returns the number of registered connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// IDs returns a snapshot of all connection IDs.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, len(r.conns))
	for i, c := range r.conns {
		ids[i] = c.id
	}
	return ids
}

// Snapshot returns the current connections in iteration order.
func (r *Registry) Snapshot() []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Connection, len(r.conns))
	copy(out, r.conns)
	return out
}

// Clear removes every connection and returns how many were removed.
func (r *Registry) Clear() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.conns)
	clear(r.conns)
	r.conns = r.conns[:0]
	clear(r.byID)
	return n
}
