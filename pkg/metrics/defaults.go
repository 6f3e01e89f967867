package metrics

import (
	"sync"
	"time"
)

// Default metrics for the bridge, initialized by Init.
//
// Label values are lowercase except HTTP methods, which use their canonical
// uppercase names.
var (
	// ActiveConnections tracks the number of open client connections.
	// Labels: protocol (websocket)
	ActiveConnections *Gauge

	// WSMessagesTotal counts WebSocket payloads.
	// Labels: direction (inbound, outbound)
	WSMessagesTotal *Counter

	// HTTPRequestsTotal counts requests handled by bound routes.
	// Labels: method, path
	HTTPRequestsTotal *Counter

	// UptimeSeconds is refreshed on every scrape.
	UptimeSeconds *Gauge

	defaultRegistry *Registry
	initOnce        sync.Once
)

// Init initializes the default metrics and returns the registry.
// It is idempotent.
func Init() *Registry {
	initOnce.Do(func() {
		defaultRegistry = NewRegistry()

		ActiveConnections = defaultRegistry.NewGauge(
			"wsbridge_active_connections",
			"Number of active client connections",
			"protocol",
		)

		WSMessagesTotal = defaultRegistry.NewCounter(
			"wsbridge_ws_messages_total",
			"Total WebSocket messages by direction",
			"direction",
		)

		HTTPRequestsTotal = defaultRegistry.NewCounter(
			"wsbridge_http_requests_total",
			"Total HTTP requests handled by bound routes",
			"method", "path",
		)

		UptimeSeconds = defaultRegistry.NewGauge(
			"wsbridge_uptime_seconds",
			"Process uptime in seconds",
		)

		start := time.Now()
		defaultRegistry.OnScrape(func() {
			_ = UptimeSeconds.Set(time.Since(start).Seconds())
		})
	})

	return defaultRegistry
}

// DefaultRegistry returns the default registry, or nil before Init.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Reset clears the default metrics so Init can run again. Useful for testing.
func Reset() {
	initOnce = sync.Once{}
	defaultRegistry = nil
	ActiveConnections = nil
	WSMessagesTotal = nil
	HTTPRequestsTotal = nil
	UptimeSeconds = nil
}
