package authcore

import "errors"

var (
	// ErrUnauthorized is returned for every terminal session failure. The
	// precise reason is recorded in audit events and logs only.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrStepUpRequired is returned when the session is valid but the
	// operation needs MFA or biometric verification first.
	ErrStepUpRequired = errors.New("step-up verification required")
	// ErrPermissionDenied is returned when the subject lacks the required permissions.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrConditionNotMet is returned when a contextual condition rejects the request.
	ErrConditionNotMet = errors.New("contextual condition not met")
	// ErrMisconfigured is returned for configuration or data defects
	// discovered while authorizing. The request is denied.
	ErrMisconfigured = errors.New("authorization misconfigured")
	// ErrUnknownOperation is returned, wrapped in ErrMisconfigured, for an
	// operation name that was never registered.
	ErrUnknownOperation = errors.New("unknown operation")
	// ErrEngineNotReady is returned by methods called on a nil or closed engine.
	ErrEngineNotReady = errors.New("engine not ready")
	// ErrInvalidIssueInput is returned when token issuance input is rejected.
	ErrInvalidIssueInput = errors.New("invalid issue input")
	// ErrRevocationDisabled is returned by Revoke when no revocation store is configured.
	ErrRevocationDisabled = errors.New("revocation not configured")
)
