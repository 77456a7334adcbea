package session

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sensitivity is the risk tier of an operation.
type Sensitivity int

// Sensitivity tiers, least to most sensitive.
const (
	SensitivityLow Sensitivity = iota
	SensitivityStandard
	SensitivityHigh
	SensitivityCritical
)

var sensitivityNames = map[Sensitivity]string{
	SensitivityLow:      "low",
	SensitivityStandard: "standard",
	SensitivityHigh:     "high",
	SensitivityCritical: "critical",
}

func (s Sensitivity) String() string {
	if name, ok := sensitivityNames[s]; ok {
		return name
	}
	return fmt.Sprintf("sensitivity(%d)", int(s))
}

// ParseSensitivity maps "low", "standard", "high" or "critical" to a tier.
// The empty string is standard.
func ParseSensitivity(name string) (Sensitivity, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return SensitivityStandard, nil
	}
	for s, n := range sensitivityNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown sensitivity %q", name)
}

// IPMismatchMode selects how an IP hash mismatch is handled.
type IPMismatchMode int

const (
	// IPRiskIncrement raises the effective risk score and continues.
	IPRiskIncrement IPMismatchMode = iota
	// IPEnforce rejects with [KindSessionBindingViolation].
	IPEnforce
	// IPIgnore skips the IP comparison.
	IPIgnore
)

// ParseIPMismatchMode maps "risk", "enforce" or "ignore" to a mode.
func ParseIPMismatchMode(name string) (IPMismatchMode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "risk":
		return IPRiskIncrement, nil
	case "enforce":
		return IPEnforce, nil
	case "ignore":
		return IPIgnore, nil
	default:
		return 0, fmt.Errorf("unknown ip mismatch mode %q", name)
	}
}

// Policy holds process-wide validation settings.
type Policy struct {
	Issuer string
	// Leeway tolerates clock skew at both ends of the validity window. Zero
	// enforces [nbf, exp] exactly.
	Leeway time.Duration

	IPMismatch IPMismatchMode
	// IPRiskIncrement is added to the risk score on IP mismatch, clamped to 100.
	IPRiskIncrement int

	RequireDeviceBinding    bool
	RequireUserAgentBinding bool

	// RiskCeilings is the highest risk score allowed without step-up per tier.
	RiskCeilings map[Sensitivity]int

	// RevocationTimeout bounds the single revocation lookup.
	RevocationTimeout time.Duration
}

// DefaultRiskCeilings are the ceilings used when a tier is not configured.
func DefaultRiskCeilings() map[Sensitivity]int {
	return map[Sensitivity]int{
		SensitivityLow:      100,
		SensitivityStandard: 80,
		SensitivityHigh:     60,
		SensitivityCritical: 40,
	}
}

// DefaultPolicy returns the baseline policy for issuer.
func DefaultPolicy(issuer string) Policy {
	return Policy{
		Issuer:                  issuer,
		IPMismatch:              IPRiskIncrement,
		IPRiskIncrement:         20,
		RequireDeviceBinding:    true,
		RequireUserAgentBinding: true,
		RiskCeilings:            DefaultRiskCeilings(),
		RevocationTimeout:       250 * time.Millisecond,
	}
}

// Validate rejects unusable settings.
func (p Policy) Validate() error {
	if strings.TrimSpace(p.Issuer) == "" {
		return errors.New("session policy: issuer must be set")
	}
	if p.Leeway < 0 || p.Leeway > 2*time.Minute {
		return errors.New("session policy: leeway must be within [0, 2m]")
	}
	if p.IPMismatch < IPRiskIncrement || p.IPMismatch > IPIgnore {
		return errors.New("session policy: invalid ip mismatch mode")
	}
	if p.IPRiskIncrement < 0 || p.IPRiskIncrement > 100 {
		return errors.New("session policy: ip risk increment must be within [0, 100]")
	}
	for tier, ceiling := range p.RiskCeilings {
		if _, ok := sensitivityNames[tier]; !ok {
			return fmt.Errorf("session policy: unknown sensitivity tier %d", int(tier))
		}
		if ceiling < 0 || ceiling > 100 {
			return fmt.Errorf("session policy: ceiling for %s must be within [0, 100]", tier)
		}
	}
	if p.RevocationTimeout < 0 {
		return errors.New("session policy: revocation timeout must be non-negative")
	}
	return nil
}

func (p Policy) ceiling(s Sensitivity) int {
	if c, ok := p.RiskCeilings[s]; ok {
		return c
	}
	return DefaultRiskCeilings()[s]
}

// Requirement holds the per-operation settings consulted by validation.
type Requirement struct {
	Sensitivity   Sensitivity
	GeoRestricted bool
	// AllowedRegions holds ISO 3166 codes. A country entry such as "US"
	// admits every subdivision "US-xx".
	AllowedRegions []string
	// MinDataProtectionLevel is 0 when unconstrained, otherwise 1 to 5.
	MinDataProtectionLevel int
}

// Validate rejects unusable requirement settings.
func (r Requirement) Validate() error {
	if _, ok := sensitivityNames[r.Sensitivity]; !ok {
		return fmt.Errorf("unknown sensitivity tier %d", int(r.Sensitivity))
	}
	if r.GeoRestricted && len(r.AllowedRegions) == 0 {
		return errors.New("geo restricted operation requires allowed regions")
	}
	for _, region := range r.AllowedRegions {
		if strings.TrimSpace(region) == "" {
			return errors.New("allowed regions contain an empty entry")
		}
	}
	if r.MinDataProtectionLevel < 0 || r.MinDataProtectionLevel > 5 {
		return errors.New("minimum data protection level must be within [0, 5]")
	}
	return nil
}

func regionAllowed(code string, allowed []string) bool {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return false
	}
	for _, entry := range allowed {
		entry = strings.ToUpper(strings.TrimSpace(entry))
		if entry == "" {
			continue
		}
		if code == entry || strings.HasPrefix(code, entry+"-") {
			return true
		}
	}
	return false
}
