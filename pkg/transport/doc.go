// Package transport defines the collaborators the bridge cores drive: a
// WebSocket transport that accepts sockets and delivers frames, and an HTTP
// router that binds path and verb pairs to request handlers.
//
// The cores in pkg/websocket and pkg/httpserver depend only on these
// interfaces. Concrete implementations live in the subpackages:
//
//   - wsnet: coder/websocket listener with a tick-drained event queue
//   - httpnet: net/http listeners with gorilla/mux route tables
//   - fake: in-memory implementations for tests
//
// Callbacks registered on a transport are invoked on the goroutine that calls
// Tick, never from I/O goroutines.
package transport
