// Package session validates that a live request belongs to the session its
// token claims to represent.
//
// # Checks
//
// [Validator.Validate] runs, in order: validity window, issuer, tenant
// boundary, claim well-formedness, binding consistency (device, user agent,
// IP), geo policy, data-protection level, revocation, and the risk ceiling
// for the operation's sensitivity tier. The first failing check returns a
// [*Failure] whose kind matches one of the Err* sentinels via errors.Is.
//
// Only [KindElevatedVerificationRequired] is remediable; every other kind
// forces re-authentication.
//
// # Architecture boundaries
//
// Signatures are verified upstream by jwt.Manager. The only blocking call is
// the [RevocationChecker], invoked at most once per validation.
//
// # What this package must NOT do
//
//   - Import authcore or permission (no upward imports).
//   - Evaluate permission masks.
//   - Store or log raw IPs, fingerprints, or user agents.
package session
