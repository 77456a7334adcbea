package jwt

import (
	"github.com/golang-jwt/jwt/v5"
)

// SessionContext binds a token to the client it was issued to. Every
// field except GeoCode is a one-way hash, never the raw value.
type SessionContext struct {
	IPHash                string `json:"iph,omitempty"`
	DeviceFingerprintHash string `json:"dfh,omitempty"`
	// GeoCode is an ISO 3166-2 region such as "US-NY".
	GeoCode       string `json:"geo,omitempty"`
	UserAgentHash string `json:"uah,omitempty"`
}

// SecurityState carries the verification and risk posture of the session.
type SecurityState struct {
	MFAVerified       bool `json:"mfa"`
	BiometricVerified bool `json:"bio"`
	// DataProtectionLevel ranges 1 to 5.
	DataProtectionLevel int `json:"dpl"`
	// RiskScore ranges 0 to 100.
	RiskScore int `json:"risk"`
}

// Claims is the session record carried by every access token.
type Claims struct {
	Tenant     string         `json:"tnt"`
	Session    SessionContext `json:"sctx"`
	Roles      []string       `json:"roles,omitempty"`
	Privileges []string       `json:"privs,omitempty"`
	Conditions []string       `json:"cond,omitempty"`
	Security   SecurityState  `json:"sec"`
	// Permissions caches explicit per-resource masks in "0x"+4 hex form.
	Permissions map[string]string `json:"perms,omitempty"`
	jwt.RegisteredClaims
}

// TokenID returns the jti claim.
func (c *Claims) TokenID() string {
	return c.ID
}
