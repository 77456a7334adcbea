package authcore

import (
	"time"

	"github.com/brokerdesk/authcore/condition"
	"github.com/brokerdesk/authcore/jwt"
	"github.com/brokerdesk/authcore/permission"
	"github.com/brokerdesk/authcore/policy"
	"github.com/brokerdesk/authcore/session"
)

// Operation declares a protected operation: its required permissions,
// whether all or any of them must hold, and the session requirement.
type Operation = policy.Operation

// Request is the live metadata of an incoming call, in raw form.
type Request = session.Request

// Params holds the operation parameters consulted by contextual conditions.
type Params = condition.Params

// Result describes a granted authorization.
type Result struct {
	Operation string
	Subject   string
	Tenant    string
	TokenID   string
	// Roles is the subject's roles expanded through the hierarchy.
	Roles []permission.Role
	// EffectiveRisk includes any IP mismatch increment.
	EffectiveRisk int
	IPMismatch    bool
	Decision      permission.Decision
	Conditions    condition.Result
	Claims        *jwt.Claims
	CheckedAt     time.Time
}

// IssueInput carries the login-time facts used to mint a token. Binding
// values are raw and are hashed before they enter the claims.
type IssueInput struct {
	Subject    string
	Tenant     string
	Roles      []string
	Privileges []string
	Conditions []string
	// Permissions are explicit per-resource grants.
	Permissions map[string][]permission.Action

	IP                string
	DeviceFingerprint string
	UserAgent         string
	GeoCode           string

	MFAVerified         bool
	BiometricVerified   bool
	DataProtectionLevel int // 1 to 5, 0 means 1
	RiskScore           int // 0 to 100

	// TTL shortens the configured lifetime. Zero means the configured TTL.
	TTL time.Duration
}
