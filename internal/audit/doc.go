// Package audit dispatches authorization audit events asynchronously.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, slog, fan-out, no-op).
//   - [Dispatcher]: buffered relay with drop-if-full or block-if-full semantics.
//   - [Event]: structured record with operation, subject, tenant, token id and reason.
//
// # What this package must NOT do
//
//   - Decide which events to emit; the Engine does that.
//   - Import authcore or any sibling internal package.
//   - Record raw IPs, fingerprints, or user agents.
package audit
