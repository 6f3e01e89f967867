// Package cli provides the command-line interface for wsbridge.
//
// Commands:
//   - serve: run the WebSocket server and the HTTP admin routes
//   - ws send: send one message to a WebSocket endpoint
//   - ws listen: print messages from a WebSocket endpoint
//   - ws connect: interactive WebSocket client
//   - version: show build information
//
// A .env file in the working directory is loaded before configuration is
// read, so WSBRIDGE_* variables can be kept there.
package cli
