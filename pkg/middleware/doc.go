// Package middleware provides observability for backend traffic and the
// push channel.
//
// This package includes:
//   - OpenTelemetry tracing for outbound backend requests
//   - Prometheus metrics for requests, auth checks and the push channel
//
// # OpenTelemetry
//
// Tracing wraps an http.RoundTripper so every backend request gets a client
// span:
//
//	client := &http.Client{
//	    Transport: middleware.Tracing(http.DefaultTransport,
//	        middleware.WithTracerName("cryoconsole"),
//	    ),
//	}
//
// The tracer uses the global OpenTelemetry tracer provider. Without one
// configured, spans are no-ops.
//
// # Prometheus Metrics
//
// Metrics are created once per registry:
//   - cryoconsole_backend_requests_total: backend requests by method and status
//   - cryoconsole_backend_request_duration_seconds: backend request latency
//   - cryoconsole_auth_checks_total: credential checks by result
//   - cryoconsole_channel_connect_attempts_total: push channel dial attempts
//   - cryoconsole_channel_connections_total: push channel opens
//   - cryoconsole_channel_closes_total: push channel closes by code
//   - cryoconsole_channel_frames_total: inbound frames by category
//   - cryoconsole_notifications_total: stored notifications by variant
//   - cryoconsole_channel_live_sockets: open sockets (0 or 1)
//
//	m := middleware.NewMetrics(middleware.WithRegistry(reg))
//	transport := m.RoundTripper(http.DefaultTransport)
//
// Every recording method is safe to call on a nil *Metrics.
package middleware
