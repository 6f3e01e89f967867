package websocket

import (
	"context"
	"sync/atomic"
	"time"
)

// DefaultTickInterval is the poll interval used when none is given.
const DefaultTickInterval = 16 * time.Millisecond

// Driver runs a Server on its own goroutine, which becomes the tick
// goroutine: it polls the server on every interval and runs work submitted
// through Do. When the context passed to Start is cancelled the driver stops
// the server and exits.
type Driver struct {
	srv      *Server
	interval time.Duration
	work     chan func()
	done     chan struct{}
	started  atomic.Bool
	hooks    []func()
}

// NewDriver creates a driver for srv. A non-positive interval selects DefaultTickInterval.
func NewDriver(srv *Server, interval time.Duration) *Driver {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Driver{
		srv:      srv,
		interval: interval,
		work:     make(chan func()),
		done:     make(chan struct{}),
	}
}

// Server returns the driven server.
func (d *Driver) Server() *Server {
	return d.srv
}

// OnTick registers fn to run on the tick goroutine after every poll.
// It must be called before Start.
func (d *Driver) OnTick(fn func()) {
	d.hooks = append(d.hooks, fn)
}

// Start starts the server on port and launches the tick goroutine.
// A driver can be started once.
func (d *Driver) Start(ctx context.Context, port int) error {
	if !d.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	if err := d.srv.Start(port); err != nil {
		close(d.done)
		return err
	}
	go d.loop(ctx)
	return nil
}

func (d *Driver) loop(ctx context.Context) {
	defer close(d.done)
	defer d.srv.Stop()

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-d.work:
			fn()
		case <-ticker.C:
			if !d.srv.Poll() {
				return
			}
			for _, fn := range d.hooks {
				fn()
			}
		}
	}
}

// Do runs fn on the tick goroutine and waits for it to return.
// It returns ErrDriverStopped if the driver has exited, or ctx.Err() if ctx
// ends before fn is scheduled.
func (d *Driver) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	wrapped := func() {
		defer close(finished)
		fn()
	}

	select {
	case d.work <- wrapped:
	case <-d.done:
		return ErrDriverStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	<-finished
	return nil
}

// Done is closed once the tick goroutine has exited and the server is stopped.
func (d *Driver) Done() <-chan struct{} {
	return d.done
}

// Wait blocks until the driver has exited.
func (d *Driver) Wait() {
	<-d.done
}

// Component binds a Server to a host-managed lifecycle. The host calls Begin
// when the component enters its scene, Tick once per frame and End on
// removal. End is also safe to call without a prior Begin.
type Component struct {
	srv  *Server
	port int
}

// NewComponent creates a component that serves on port.
func NewComponent(srv *Server, port int) *Component {
	return &Component{srv: srv, port: port}
}

// Server returns the wrapped server.
func (c *Component) Server() *Server {
	return c.srv
}

// Begin starts the server.
func (c *Component) Begin() error {
	return c.srv.Start(c.port)
}

// Tick polls the server once. It returns false when the server is stopped.
func (c *Component) Tick(time.Duration) bool {
	return c.srv.Poll()
}

// End stops the server.
func (c *Component) End() {
	c.srv.Stop()
}
