package session

import (
	"errors"
	"fmt"
)

var (
	// ErrTokenExpired indicates the current time is past the token expiry, or expiry is absent.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenNotYetValid indicates the current time is before not-before (or issued-at).
	ErrTokenNotYetValid = errors.New("token not yet valid")
	// ErrIssuerMismatch indicates the issuer does not equal the configured one.
	ErrIssuerMismatch = errors.New("issuer mismatch")
	// ErrTenantMismatch indicates the token tenant is empty or differs from the request tenant.
	ErrTenantMismatch = errors.New("tenant mismatch")
	// ErrMalformedClaims indicates required claims are missing or out of range.
	ErrMalformedClaims = errors.New("malformed claims")
	// ErrSessionBindingViolation indicates the request comes from a different client than the token was issued to.
	ErrSessionBindingViolation = errors.New("session binding violation")
	// ErrGeoRestricted indicates the session region is outside the operation's allowed set.
	ErrGeoRestricted = errors.New("geo restricted")
	// ErrProtectionLevelInsufficient indicates the session data-protection level is below the operation minimum.
	ErrProtectionLevelInsufficient = errors.New("data protection level insufficient")
	// ErrTokenRevoked indicates the token id is on the revocation list.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrRevocationUnavailable indicates the revocation lookup failed or timed out.
	ErrRevocationUnavailable = errors.New("revocation lookup unavailable")
	// ErrElevatedVerificationRequired indicates a step-up challenge would let the request proceed.
	ErrElevatedVerificationRequired = errors.New("elevated verification required")
)

// FailureKind classifies why validation rejected a session.
type FailureKind int

// Failure kinds, in check order.
const (
	KindTokenExpired FailureKind = iota + 1
	KindTokenNotYetValid
	KindIssuerMismatch
	KindTenantMismatch
	KindMalformedClaims
	KindSessionBindingViolation
	KindGeoRestricted
	KindProtectionLevelInsufficient
	KindTokenRevoked
	KindRevocationUnavailable
	KindElevatedVerificationRequired
)

var kindSentinels = map[FailureKind]error{
	KindTokenExpired:                 ErrTokenExpired,
	KindTokenNotYetValid:             ErrTokenNotYetValid,
	KindIssuerMismatch:               ErrIssuerMismatch,
	KindTenantMismatch:               ErrTenantMismatch,
	KindMalformedClaims:              ErrMalformedClaims,
	KindSessionBindingViolation:      ErrSessionBindingViolation,
	KindGeoRestricted:                ErrGeoRestricted,
	KindProtectionLevelInsufficient:  ErrProtectionLevelInsufficient,
	KindTokenRevoked:                 ErrTokenRevoked,
	KindRevocationUnavailable:        ErrRevocationUnavailable,
	KindElevatedVerificationRequired: ErrElevatedVerificationRequired,
}

var kindNames = map[FailureKind]string{
	KindTokenExpired:                 "token_expired",
	KindTokenNotYetValid:             "token_not_yet_valid",
	KindIssuerMismatch:               "issuer_mismatch",
	KindTenantMismatch:               "tenant_mismatch",
	KindMalformedClaims:              "malformed_claims",
	KindSessionBindingViolation:      "session_binding_violation",
	KindGeoRestricted:                "geo_restricted",
	KindProtectionLevelInsufficient:  "protection_level_insufficient",
	KindTokenRevoked:                 "token_revoked",
	KindRevocationUnavailable:        "revocation_unavailable",
	KindElevatedVerificationRequired: "elevated_verification_required",
}

// String returns the snake_case name used in audit events.
func (k FailureKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Failure is the error returned by [Validator.Validate].
type Failure struct {
	Kind FailureKind
	// Detail is for audit logs only and must never reach the end user.
	Detail string
	// Risk is the effective risk score at the time of failure.
	Risk int
}

func (f *Failure) Error() string {
	base := f.Kind.String()
	if s, ok := kindSentinels[f.Kind]; ok {
		base = s.Error()
	}
	if f.Detail == "" {
		return base
	}
	return base + ": " + f.Detail
}

// Unwrap exposes the matching Err* sentinel.
func (f *Failure) Unwrap() error {
	return kindSentinels[f.Kind]
}

// Remediable reports whether a step-up challenge can clear the failure.
func (f *Failure) Remediable() bool {
	return f.Kind == KindElevatedVerificationRequired
}

// KindOf extracts the failure kind from err.
func KindOf(err error) (FailureKind, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind, true
	}
	return 0, false
}

func fail(kind FailureKind, format string, args ...any) *Failure {
	return &Failure{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}
