// Package tracing wraps OpenTelemetry so that the engine records a span per
// execution and per step without importing the SDK directly.
package tracing
