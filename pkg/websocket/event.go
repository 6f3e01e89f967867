package websocket

import (
	"log/slog"
	"sync"
)

// Listener receives server events. Methods run synchronously on the tick
// goroutine and must not block.
type Listener interface {
	ClientConnected(id string)
	ClientMessage(data []byte, size int, id string)
	ClientClosed(id string)
	ClientError(id string)
}

// ListenerFuncs adapts optional functions to a Listener. Nil fields are skipped.
type ListenerFuncs struct {
	Connected func(id string)
	Message   func(data []byte, size int, id string)
	Closed    func(id string)
	Error     func(id string)
}

var _ Listener = ListenerFuncs{}

// ClientConnected implements Listener.
func (f ListenerFuncs) ClientConnected(id string) {
	if f.Connected != nil {
		f.Connected(id)
	}
}

// ClientMessage implements Listener.
func (f ListenerFuncs) ClientMessage(data []byte, size int, id string) {
	if f.Message != nil {
		f.Message(data, size, id)
	}
}

// ClientClosed implements Listener.
func (f ListenerFuncs) ClientClosed(id string) {
	if f.Closed != nil {
		f.Closed(id)
	}
}

// ClientError implements Listener.
func (f ListenerFuncs) ClientError(id string) {
	if f.Error != nil {
		f.Error(id)
	}
}

// listeners is a set of subscribed Listeners.
type listeners struct {
	log *slog.Logger

	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]Listener
	order  []uint64
}

func (l *listeners) add(ln Listener) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.subs == nil {
		l.subs = make(map[uint64]Listener)
	}
	l.nextID++
	id := l.nextID
	l.subs[id] = ln
	l.order = append(l.order, id)

	var once sync.Once
	return func() {
		once.Do(func() { l.remove(id) })
	}
}

func (l *listeners) remove(id uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.subs, id)
	for i, v := range l.order {
		if v == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
}

// snapshot returns listeners in subscription order so that a listener may
// unsubscribe while being notified.
func (l *listeners) snapshot() []Listener {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Listener, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.subs[id])
	}
	return out
}

// notify calls fn for every listener. A panicking listener is logged and
// skipped; the remaining listeners still run.
func (l *listeners) notify(event, id string, fn func(Listener)) {
	for _, ln := range l.snapshot() {
		l.call(event, id, ln, fn)
	}
}

func (l *listeners) call(event, id string, ln Listener, fn func(Listener)) {
	defer func() {
		if r := recover(); r != nil && l.log != nil {
			l.log.Error("websocket listener panicked", "event", event, "id", id, "panic", r)
		}
	}()
	fn(ln)
}

func (l *listeners) connected(id string) {
	l.notify("connected", id, func(ln Listener) { ln.ClientConnected(id) })
}

func (l *listeners) message(data []byte, id string) {
	l.notify("message", id, func(ln Listener) { ln.ClientMessage(data, len(data), id) })
}

func (l *listeners) closed(id string) {
	l.notify("closed", id, func(ln Listener) { ln.ClientClosed(id) })
}

func (l *listeners) errored(id string) {
	l.notify("error", id, func(ln Listener) { ln.ClientError(id) })
}
