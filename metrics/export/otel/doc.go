// Package otel binds authcore metrics to an OpenTelemetry meter.
//
// [NewExporter] registers one Int64ObservableCounter per authcore counter
// and one Int64ObservableGauge per latency bucket, plus a sample count
// gauge. A single callback reads [authcore.Engine.MetricsSnapshot] on each
// collection cycle. Callers own the MeterProvider.
package otel
