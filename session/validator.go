package session

import (
	"context"
	"errors"
	"time"

	"github.com/brokerdesk/authcore/jwt"
)

// RevocationChecker reports whether a token id has been revoked.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Request is the live metadata of the incoming call, in raw form.
type Request struct {
	IP                string
	DeviceFingerprint string
	UserAgent         string
	// GeoCode is the region resolved from the live request, if any.
	GeoCode string
	// Tenant is the tenant addressed by the request, if the route names one.
	Tenant string
	// Time overrides the validation instant. Zero means now.
	Time time.Time
}

// Validated is the session context handed to later authorization stages.
type Validated struct {
	Claims *jwt.Claims
	// EffectiveRisk is the claim risk score plus any IP mismatch increment.
	EffectiveRisk int
	IPMismatch    bool
	CheckedAt     time.Time
}

// StepUpSatisfied reports whether the session completed MFA or biometric
// verification.
func (v *Validated) StepUpSatisfied() bool {
	return v.Claims.Security.MFAVerified || v.Claims.Security.BiometricVerified
}

// Validator checks decoded claims against the live request.
type Validator struct {
	policy     Policy
	hasher     Hasher
	revocation RevocationChecker
	now        func() time.Time
}

// NewValidator returns a validator. revocation may be nil, in which case
// the revocation check is skipped.
func NewValidator(policy Policy, hasher Hasher, revocation RevocationChecker) (*Validator, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	ceilings := DefaultRiskCeilings()
	for tier, c := range policy.RiskCeilings {
		ceilings[tier] = c
	}
	policy.RiskCeilings = ceilings
	return &Validator{
		policy:     policy,
		hasher:     hasher,
		revocation: revocation,
		now:        time.Now,
	}, nil
}

// Policy returns a copy of the validator's policy.
func (v *Validator) Policy() Policy {
	p := v.policy
	p.RiskCeilings = make(map[Sensitivity]int, len(v.policy.RiskCeilings))
	for tier, c := range v.policy.RiskCeilings {
		p.RiskCeilings[tier] = c
	}
	return p
}

// Hasher returns the binding hasher.
func (v *Validator) Hasher() Hasher {
	return v.hasher
}

// Validate runs every session check in order and returns the first
// failure as a [*Failure].
func (v *Validator) Validate(ctx context.Context, claims *jwt.Claims, req Request, r Requirement) (*Validated, error) {
	if claims == nil {
		return nil, fail(KindMalformedClaims, "nil claims")
	}
	now := req.Time
	if now.IsZero() {
		now = v.now()
	}

	if err := v.checkWindow(claims, now); err != nil {
		return nil, err
	}
	if claims.Issuer != v.policy.Issuer {
		return nil, fail(KindIssuerMismatch, "issuer %q", claims.Issuer)
	}
	if err := checkTenant(claims, req); err != nil {
		return nil, err
	}
	if err := checkWellFormed(claims); err != nil {
		return nil, err
	}

	risk := claims.Security.RiskScore
	ipMismatch, err := v.checkBinding(claims, req)
	if err != nil {
		return nil, err
	}
	if ipMismatch {
		risk += v.policy.IPRiskIncrement
		if risk > 100 {
			risk = 100
		}
	}

	if r.GeoRestricted {
		if !regionAllowed(claims.Session.GeoCode, r.AllowedRegions) {
			return nil, fail(KindGeoRestricted, "session region %q not allowed", claims.Session.GeoCode)
		}
		if req.GeoCode != "" && !regionAllowed(req.GeoCode, r.AllowedRegions) {
			return nil, fail(KindGeoRestricted, "request region %q not allowed", req.GeoCode)
		}
	}

	if r.MinDataProtectionLevel > 0 && claims.Security.DataProtectionLevel < r.MinDataProtectionLevel {
		return nil, fail(KindProtectionLevelInsufficient, "level %d below %d",
			claims.Security.DataProtectionLevel, r.MinDataProtectionLevel)
	}

	if err := v.checkRevocation(ctx, claims.ID); err != nil {
		return nil, err
	}

	out := &Validated{
		Claims:        claims,
		EffectiveRisk: risk,
		IPMismatch:    ipMismatch,
		CheckedAt:     now,
	}
	if ceiling := v.policy.ceiling(r.Sensitivity); risk > ceiling && !out.StepUpSatisfied() {
		f := fail(KindElevatedVerificationRequired, "risk %d above %s ceiling %d", risk, r.Sensitivity, ceiling)
		f.Risk = risk
		return nil, f
	}
	return out, nil
}

func (v *Validator) checkWindow(claims *jwt.Claims, now time.Time) error {
	if claims.ExpiresAt == nil {
		return fail(KindTokenExpired, "missing exp")
	}
	if now.After(claims.ExpiresAt.Add(v.policy.Leeway)) {
		return fail(KindTokenExpired, "expired at %s", claims.ExpiresAt.UTC().Format(time.RFC3339))
	}

	lower := claims.NotBefore
	if lower == nil {
		lower = claims.IssuedAt
	}
	if lower == nil {
		return fail(KindTokenNotYetValid, "missing nbf and iat")
	}
	if now.Add(v.policy.Leeway).Before(lower.Time) {
		return fail(KindTokenNotYetValid, "valid from %s", lower.UTC().Format(time.RFC3339))
	}
	return nil
}

func checkTenant(claims *jwt.Claims, req Request) error {
	if claims.Tenant == "" {
		return fail(KindTenantMismatch, "token carries no tenant")
	}
	if req.Tenant != "" && req.Tenant != claims.Tenant {
		return fail(KindTenantMismatch, "request tenant differs from token tenant")
	}
	return nil
}

func checkWellFormed(claims *jwt.Claims) error {
	switch {
	case claims.Subject == "":
		return fail(KindMalformedClaims, "missing sub")
	case claims.ID == "":
		return fail(KindMalformedClaims, "missing jti")
	case claims.Security.DataProtectionLevel < 1 || claims.Security.DataProtectionLevel > 5:
		return fail(KindMalformedClaims, "data protection level %d out of range", claims.Security.DataProtectionLevel)
	case claims.Security.RiskScore < 0 || claims.Security.RiskScore > 100:
		return fail(KindMalformedClaims, "risk score %d out of range", claims.Security.RiskScore)
	}
	return nil
}

// checkBinding enforces device and user-agent binding and reports whether
// the IP binding was downgraded to a risk increment.
func (v *Validator) checkBinding(claims *jwt.Claims, req Request) (bool, error) {
	sc := claims.Session

	if v.bindingViolated(sc.DeviceFingerprintHash, req.DeviceFingerprint, v.policy.RequireDeviceBinding) {
		return false, fail(KindSessionBindingViolation, "device fingerprint mismatch")
	}
	if v.bindingViolated(sc.UserAgentHash, req.UserAgent, v.policy.RequireUserAgentBinding) {
		return false, fail(KindSessionBindingViolation, "user agent mismatch")
	}

	if v.policy.IPMismatch == IPIgnore || sc.IPHash == "" {
		return false, nil
	}
	if v.hasher.Matches(sc.IPHash, req.IP) {
		return false, nil
	}
	if v.policy.IPMismatch == IPEnforce {
		return false, fail(KindSessionBindingViolation, "ip mismatch")
	}
	return true, nil
}

// bindingViolated compares a stored hash with a live raw value. A token
// that carries a hash must always match; a token without one is rejected
// only when the binding is required.
func (v *Validator) bindingViolated(stored, raw string, required bool) bool {
	if stored == "" {
		return required
	}
	return !v.hasher.Matches(stored, raw)
}

func (v *Validator) checkRevocation(ctx context.Context, tokenID string) error {
	if v.revocation == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if v.policy.RevocationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.policy.RevocationTimeout)
		defer cancel()
	}

	revoked, err := v.revocation.IsRevoked(ctx, tokenID)
	if err != nil {
		detail := "lookup failed"
		if errors.Is(err, context.DeadlineExceeded) {
			detail = "lookup timed out"
		}
		return fail(KindRevocationUnavailable, "%s", detail)
	}
	if revoked {
		return fail(KindTokenRevoked, "")
	}
	return nil
}
