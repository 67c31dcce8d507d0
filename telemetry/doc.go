// Package telemetry holds the Prometheus collectors, the HTTP metrics
// middleware and the OpenTelemetry tracer setup.
//
// Collectors are registered on the default Prometheus registry at init
// through promauto; Handler exposes them. Tracing is opt-in: until
// InitTracer runs, otel hands out no-op tracers.
package telemetry
