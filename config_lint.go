package authcore

import (
	"fmt"
	"time"
)

// LintSeverity ranks a lint finding.
type LintSeverity int

const (
	LintInfo LintSeverity = iota
	LintWarn
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "info"
	case LintWarn:
		return "warn"
	default:
		return "high"
	}
}

// LintWarning is a configuration that is valid but weaker than advised.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the list of findings returned by [Config.Lint].
type LintResult []LintWarning

// Codes returns the finding codes in order.
func (r LintResult) Codes() []string {
	out := make([]string, len(r))
	for i, w := range r {
		out[i] = w.Code
	}
	return out
}

// AtLeast returns the findings at or above sev.
func (r LintResult) AtLeast(sev LintSeverity) LintResult {
	var out LintResult
	for _, w := range r {
		if w.Severity >= sev {
			out = append(out, w)
		}
	}
	return out
}

// Lint reports settings that pass Validate but weaken the deployment.
// It never mutates c.
func (c *Config) Lint() LintResult {
	var out LintResult
	add := func(code string, sev LintSeverity, format string, args ...any) {
		out = append(out, LintWarning{Code: code, Severity: sev, Message: fmt.Sprintf(format, args...)})
	}

	if c.JWT.Leeway > time.Minute {
		add("leeway_large", LintWarn, "JWT leeway %s exceeds 1m", c.JWT.Leeway)
	}
	if c.JWT.TTL > maxProductionTTL {
		add("ttl_long", LintWarn, "JWT TTL %s exceeds 15m", c.JWT.TTL)
	}
	if c.JWT.SuperAdminTTL == 0 || c.JWT.SuperAdminTTL >= c.JWT.TTL {
		add("superadmin_ttl_uncapped", LintInfo, "SUPER_ADMIN tokens live as long as any other token")
	}
	if c.Session.IPMismatch == "ignore" {
		add("ip_binding_ignored", LintWarn, "IP binding is not evaluated")
	}
	if !c.Session.RequireDeviceBinding {
		add("device_binding_optional", LintHigh, "tokens without a device fingerprint hash are accepted")
	}
	if !c.Session.RequireUserAgentBinding {
		add("ua_binding_optional", LintWarn, "tokens without a user-agent hash are accepted")
	}
	if len(c.Session.BindingKey) == 0 {
		add("binding_hash_unkeyed", LintInfo, "binding hashes use plain SHA-256; set BindingKey for HMAC")
	}
	if !c.Revocation.Enabled {
		add("revocation_disabled", LintHigh, "revoked tokens stay valid until expiry")
	}
	if c.Revocation.Enabled && c.Revocation.LookupTimeout == 0 {
		add("revocation_unbounded", LintWarn, "revocation lookups have no timeout")
	}
	if !c.Audit.Enabled {
		add("audit_disabled", LintInfo, "authorization decisions are not audited")
	}
	return out
}
