// Package httputil builds JSON response bodies for route handlers.
//
// Routes always answer 200, so failures are reported in the body as
// {"error": code, "message": text}.
package httputil

import (
	"encoding/json"
)

// JSON encodes data as a response body. A nil value yields "".
// Values that cannot be encoded produce an encoding_failed error body.
func JSON(data any) string {
	if data == nil {
		return ""
	}
	b, err := json.Marshal(data)
	if err != nil {
		return Error("encoding_failed", err.Error())
	}
	return string(b)
}

// Error returns an error body with a machine-readable code and a message.
func Error(errCode, message string) string {
	return JSON(map[string]string{
		"error":   errCode,
		"message": message,
	})
}

// ErrorWithDetails returns an error body with additional details.
func ErrorWithDetails(errCode, message string, details any) string {
	return JSON(map[string]any{
		"error":   errCode,
		"message": message,
		"details": details,
	})
}
