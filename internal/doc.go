// Package internal groups the authcore implementation packages that are
// not part of the public API.
//
//   - audit: asynchronous audit event dispatch and sinks
//   - metrics: lock-free counters and the authorize latency histogram
//
// The root authcore package re-exports the types callers need.
package internal
