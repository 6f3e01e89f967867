// Package websocket provides the tick-driven WebSocket server core for wsbridge.
//
// The server owns a transport (see pkg/transport) and a Registry of live
// connections. Each accepted socket gets a Connection with a UUID that stays
// stable for the life of the process; clients can additionally be given a
// display name and looked up by it.
//
// Key features:
//   - Stopped/Running state machine with idempotent Stop
//   - One bounded service step per Poll, driven by an external tick
//   - ClientConnected, ClientMessage, ClientClosed and ClientError events
//     delivered synchronously to any number of listeners
//   - Targeted and broadcast sends, raw or UTF-8 text
//   - Driver and Component adapters for self-scheduled and host-scheduled use
//
// Usage:
//
//	srv := websocket.NewServer(wsnet.Factory(wsnet.Config{}),
//		websocket.WithLogger(logger),
//	)
//	srv.Subscribe(websocket.ListenerFuncs{
//		Message: func(data []byte, size int, id string) {
//			srv.SendText(id, "ack")
//		},
//	})
//
//	d := websocket.NewDriver(srv, 16*time.Millisecond)
//	if err := d.Start(ctx, 8080); err != nil {
//		return err
//	}
//	defer d.Wait()
//
// Registry mutation and listener invocation happen only on the goroutine that
// calls Poll. Read-only queries are safe from any goroutine.
package websocket
