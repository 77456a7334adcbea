// Package prometheus exposes authcore metrics as a Prometheus collector.
//
// [NewExporter] wraps an [authcore.Engine]. The exporter can be registered
// with any registry, or mounted directly through [Exporter.Handler], which
// uses a private registry. Counter names are prefixed authcore_*_total and
// the single histogram is authcore_authorize_latency_seconds.
//
// The exporter never registers with the global default registry and never
// mutates engine state.
package prometheus
