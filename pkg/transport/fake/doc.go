// Package fake provides in-memory transport implementations that record every
// call, for exercising the bridge cores without sockets.
package fake
