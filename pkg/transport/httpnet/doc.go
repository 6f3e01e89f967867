// Package httpnet is the net/http transport for bound HTTP routes.
//
// A Module hands out one Router per port. Routes match by exact path and
// verb; the route table is rebuilt into a gorilla/mux router on every bind or
// unbind and swapped in atomically, so in-flight requests never observe a
// half-built table.
//
// In serialized mode handlers do not run on the HTTP goroutines. Requests are
// queued and executed by Tick, and the HTTP goroutine waits for completion.
package httpnet
