// Package middleware exposes net/http guards that authorize a named
// operation through an [authcore.Engine].
//
// A guard reads the bearer token from the Authorization header and the
// live session metadata from the request: client IP (RemoteAddr, or the
// first X-Forwarded-For entry when trusted), X-Device-Fingerprint,
// User-Agent, X-Geo-Region and X-Tenant-ID. On success the
// [authcore.Result] is available to the next handler through
// [ResultFromContext].
//
// Failures map to status codes only:
//
//   - 401 for any session failure, with WWW-Authenticate: Bearer
//   - 401 "step_up_required" with error="insufficient_user_authentication"
//     when MFA or biometric verification would let the request through
//   - 403 for missing permissions or unmet conditions
//   - 500 for misconfiguration
//
// The guards never parse tokens or touch Redis themselves.
package middleware
