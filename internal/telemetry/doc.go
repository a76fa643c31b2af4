// Package telemetry provides OpenTelemetry initialization and helpers
// for tracing and log export across the chef server and worker.
//
// The package configures OTLP HTTP export for traces and logs. Endpoints of
// the form https://host/otlp and plain https://host are both accepted.
package telemetry
