// Package middleware provides observability middleware for Engine.IO servers.
//
// This package includes:
//   - OpenTelemetry tracing middleware
//   - Prometheus metrics middleware and session table instrumentation
//
// Both are plain func(http.Handler) http.Handler wrappers and compose with
// any router. The wrapped writer stays hijackable, so WebSocket upgrades
// pass through.
//
// # OpenTelemetry Middleware
//
// One server span is opened per HTTP request, named after the method and
// tagged with the transport and session id:
//
//	handler := middleware.OpenTelemetry(
//	    middleware.WithTracerName("chat"),
//	)(eio)
//
// # Prometheus Metrics
//
//   - engineio_http_requests_total: Requests by method and status code
//   - engineio_http_request_duration_seconds: Request duration histogram
//   - engineio_active_sessions: Sessions currently in the table
//   - engineio_sessions_created_total: Sessions created
//   - engineio_sessions_closed_total: Sessions removed
//
//	m := middleware.NewMetrics()
//	m.InstrumentSessions(eio.Sessions())
//	http.Handle("/engine.io/", m.Handler(eio))
//	http.Handle("/metrics", promhttp.Handler())
package middleware
