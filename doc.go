// Package authcore is the authorization core of the brokerage platform:
// it decides whether a bearer token may perform a named operation.
//
// An [Engine] is assembled once through [Builder.Build] and is safe for
// concurrent use afterwards. Every call to [Engine.Authorize] runs three
// stages in order:
//
//   - session validation (validity window, issuer, tenant, binding hashes,
//     geo and data-protection requirements, revocation, risk step-up)
//   - permission evaluation over role, privilege and explicit masks
//   - contextual conditions such as MAX_TRANSACTION_VALUE
//
// # Architecture boundaries
//
// authcore is the public surface. Mask algebra and the role hierarchy
// live in permission, session checks in session, condition parsing in
// condition, and the YAML policy format in policy. Audit dispatch and
// metric storage stay under internal/.
//
// # Errors
//
// Callers see only [ErrUnauthorized], [ErrStepUpRequired],
// [ErrPermissionDenied], [ErrConditionNotMet] and [ErrMisconfigured].
// The precise session failure kind goes to audit events and logs.
package authcore
