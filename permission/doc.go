// Package permission provides the action-flag table, the 16-bit permission mask and its
// hexadecimal codec, the role hierarchy, and the evaluator that decides whether a subject
// holds a set of required per-resource actions.
//
// # Masks
//
// A [Mask] is a uint16 bitset. Its wire and configuration form is "0x" followed by exactly
// four hexadecimal digits. A grant holds when every wanted bit is present in the held mask,
// see [Contains].
//
// # Tables
//
// [ActionTable], [Hierarchy] and [GrantTable] are built once at startup, frozen, and shared
// by reference. After freeze they are read-only and safe for concurrent use.
//
// # What this package must NOT do
//
//   - Access Redis, databases, or the network.
//   - Import authcore, jwt, or session.
//   - Subtract bits: privileges and roles only ever add grants.
package permission
