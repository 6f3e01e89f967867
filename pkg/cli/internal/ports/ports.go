// Package ports provides port availability checking.
package ports

import (
	"fmt"
	"net"
	"strconv"
)

// Check reports an error if host:port cannot be bound. An empty host checks
// all interfaces.
func Check(host string, port int) error {
	ln, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return fmt.Errorf("port %d is not available: %w", port, err)
	}
	_ = ln.Close()
	return nil
}

// IsAvailable reports whether port can be bound on all interfaces.
func IsAvailable(port int) bool {
	return Check("", port) == nil
}
