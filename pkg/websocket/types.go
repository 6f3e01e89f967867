package websocket

import (
	"strings"
	"time"
)

// ConnectionInfo provides public information about a connection.
type ConnectionInfo struct {
	ID               string    `json:"id"`
	Name             string    `json:"name,omitempty"`
	RemoteAddr       string    `json:"remoteAddr,omitempty"`
	ConnectedAt      time.Time `json:"connectedAt"`
	MessagesSent     int64     `json:"messagesSent"`
	MessagesReceived int64     `json:"messagesReceived"`
	BytesSent        int64     `json:"bytesSent"`
	BytesReceived    int64     `json:"bytesReceived"`
}

// Stats contains aggregate server statistics.
type Stats struct {
	Running               bool   `json:"running"`
	ActiveConnections     int    `json:"activeConnections"`
	TotalConnections      int64  `json:"totalConnections"`
	TotalMessagesSent     int64  `json:"totalMessagesSent"`
	TotalMessagesReceived int64  `json:"totalMessagesReceived"`
	Uptime                string `json:"uptime,omitempty"`
}

// ErrorPolicy decides what a socket error does to its connection.
type ErrorPolicy int

const (
	// ErrorPolicyObserve raises ClientError and leaves the connection registered.
	ErrorPolicyObserve ErrorPolicy = iota
	// ErrorPolicyDisconnect raises ClientError, then removes the connection
	// and raises ClientClosed.
	ErrorPolicyDisconnect
)

// String returns the policy name.
func (p ErrorPolicy) String() string {
	switch p {
	case ErrorPolicyDisconnect:
		return "disconnect"
	default:
		return "observe"
	}
}

// ParseErrorPolicy parses "observe" or "disconnect" (case-insensitive).
// Returns ErrorPolicyObserve if the string is not recognized.
func ParseErrorPolicy(s string) ErrorPolicy {
	switch strings.ToLower(s) {
	case "disconnect", "close":
		return ErrorPolicyDisconnect
	default:
		return ErrorPolicyObserve
	}
}
