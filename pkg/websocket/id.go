package websocket

import "github.com/google/uuid"

// GenerateConnectionID returns a new random UUID string.
// IDs are never reused within a process.
func GenerateConnectionID() string {
	return uuid.NewString()
}
