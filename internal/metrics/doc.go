// Package metrics provides lock-free counters and a latency histogram for
// authorization decisions.
//
// Counters live in cache-line-padded uint64 slots updated with
// [sync/atomic]. The histogram uses 8 fixed buckets (5ms to +Inf). The
// write path does not allocate.
//
// This package owns storage and snapshots only. Export to Prometheus and
// OpenTelemetry lives in metrics/export and reads [Snapshot] values. It
// performs no I/O and keeps no global registry.
package metrics
