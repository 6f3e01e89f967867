// Package metrics provides Prometheus-compatible metrics for wsbridge.
//
// This package implements the Prometheus text exposition format
// (text/plain; version=0.0.4) with counters and gauges. All metrics are safe
// for concurrent use.
//
// # Default Metrics
//
//   - wsbridge_active_connections: open client connections (labels: protocol)
//   - wsbridge_ws_messages_total: WebSocket payloads (labels: direction)
//   - wsbridge_http_requests_total: routed HTTP requests (labels: method, path)
//   - wsbridge_uptime_seconds: process uptime
//
// Default metrics are nil until Init is called; instrumented packages check
// for nil before recording.
//
// # Usage
//
//	registry := metrics.Init()
//	http.Handle("/metrics", registry.Handler())
package metrics
