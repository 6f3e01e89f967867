package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/getmockd/wsbridge/pkg/logging"
	"github.com/getmockd/wsbridge/pkg/textcodec"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// ValidationError describes one invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a list of field errors.
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, v := range e {
		msgs[i] = v.Error()
	}
	return strings.Join(msgs, "; ")
}

// Unwrap lets errors.Is match ErrInvalidConfig.
func (e ValidationErrors) Unwrap() error {
	return ErrInvalidConfig
}

// Validate checks every section and returns ValidationErrors, or nil.
func (c *Config) Validate() error {
	var errs ValidationErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if !validPort(c.WebSocket.Port) {
		add("websocket.port", "must be between 1 and 65535, got %d", c.WebSocket.Port)
	}
	if c.WebSocket.TickInterval < 0 {
		add("websocket.tickInterval", "must not be negative")
	}
	if c.WebSocket.MaxEvents < 0 {
		add("websocket.maxEvents", "must not be negative")
	}
	if c.WebSocket.MaxConnections < 0 {
		add("websocket.maxConnections", "must not be negative")
	}
	switch strings.ToLower(c.WebSocket.ErrorPolicy) {
	case "", "observe", "disconnect", "close":
	default:
		add("websocket.errorPolicy", "must be observe or disconnect, got %q", c.WebSocket.ErrorPolicy)
	}

	if !validPort(c.HTTP.Port) {
		add("http.port", "must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.HTTP.Port == c.WebSocket.Port && c.WebSocket.Port != 0 {
		add("http.port", "must differ from websocket.port")
	}

	if c.Codec.LegacyCodePage != "" {
		if _, err := textcodec.New(c.Codec.LegacyCodePage); err != nil {
			add("codec.legacyCodePage", "%v", err)
		}
	}

	if _, ok := logging.LookupLevel(c.Log.Level); !ok && c.Log.Level != "" {
		add("log.level", "unknown level %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		add("log.format", "must be text or json, got %q", c.Log.Format)
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		add("metrics.path", "must start with /, got %q", c.Metrics.Path)
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func validPort(p int) bool {
	return p > 0 && p <= 65535
}
