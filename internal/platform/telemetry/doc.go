// Package telemetry configures OpenTelemetry tracing for the server.
//
// When tracing is disabled a no-op provider is returned so callers never
// need to branch on configuration.
package telemetry
