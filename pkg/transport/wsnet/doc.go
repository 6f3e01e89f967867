// Package wsnet is a WebSocket transport built on github.com/coder/websocket.
//
// Network I/O runs on per-connection goroutines, but callbacks never do:
// every accept, message, close and error is queued and delivered by Tick on
// the caller's goroutine. Outbound data is queued per socket and written by a
// single writer goroutine, so Send never blocks and preserves call order.
package wsnet
