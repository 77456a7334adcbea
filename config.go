package authcore

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/brokerdesk/authcore/condition"
	"github.com/brokerdesk/authcore/session"
)

// Config holds every engine setting. Policy tables (hierarchy, grants,
// operations) are supplied separately through the Builder.
type Config struct {
	JWT        JWTConfig
	Session    SessionConfig
	Revocation RevocationConfig
	Conditions ConditionsConfig
	Password   PasswordConfig
	Audit      AuditConfig
	Metrics    MetricsConfig
	Security   SecurityConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig controls token signing and the accepted validity window.
type JWTConfig struct {
	TTL time.Duration
	// SuperAdminTTL caps the lifetime of tokens carrying SUPER_ADMIN. Zero
	// means TTL.
	SuperAdminTTL time.Duration
	SigningMethod string // "ed25519" (default) or "hs256"
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	KeyID         string
	// VerifyKeys maps a kid to an extra verification key (an ed25519 public
	// key or an hs256 secret) so tokens signed before a key rotation stay
	// valid. When set, every token must carry a kid found here, and KeyID
	// must be one of them.
	VerifyKeys map[string][]byte
	// Leeway tolerates clock skew at both ends of the validity window. The
	// default of zero accepts no token past exp.
	Leeway time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls session context validation.
type SessionConfig struct {
	// IPMismatch is "risk" (default), "enforce" or "ignore".
	IPMismatch      string
	IPRiskIncrement int
	// RiskCeilings overrides per-sensitivity ceilings, keyed by tier name.
	RiskCeilings            map[string]int
	RequireDeviceBinding    bool
	RequireUserAgentBinding bool
	// BindingKey switches binding hashes to HMAC-SHA256. It must be the same
	// key used when the tokens were issued.
	BindingKey []byte
}

// RevocationConfig controls the Redis revocation list.
type RevocationConfig struct {
	Enabled       bool
	RedisPrefix   string
	LookupTimeout time.Duration
}

// ConditionsConfig overrides the contextual condition vocabulary. Empty
// means the policy vocabulary, or the built-in one.
type ConditionsConfig struct {
	Rules []condition.Rule
}

// PasswordConfig holds Argon2id parameters and breach screening settings.
type PasswordConfig struct {
	Memory           uint32 // in KB
	Time             uint32
	Parallelism      uint8
	SaltLength       uint32
	KeyLength        uint32
	MaxPasswordBytes int
	// BreachCheckTimeout bounds a single breach lookup.
	BreachCheckTimeout time.Duration
	// RequireBreachCheck rejects passwords when the breach lookup fails.
	// Otherwise a failed lookup is logged and hashing proceeds.
	RequireBreachCheck bool
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig holds deployment posture switches.
type SecurityConfig struct {
	// ProductionMode requires device and user-agent binding, revocation,
	// a token TTL of at most 15 minutes and strong key material.
	ProductionMode bool
}

const (
	maxProductionTTL    = 15 * time.Minute
	maxLeeway           = 2 * time.Minute
	minHS256KeyBytes    = 32
	minProductionMemory = 64 * 1024
)

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			TTL:           10 * time.Minute,
			SuperAdminTTL: 5 * time.Minute,
			SigningMethod: "ed25519",
			Issuer:        "authcore",
		},
		Session: SessionConfig{
			IPMismatch:              "risk",
			IPRiskIncrement:         20,
			RequireDeviceBinding:    true,
			RequireUserAgentBinding: true,
		},
		Revocation: RevocationConfig{
			Enabled:       true,
			RedisPrefix:   "arv",
			LookupTimeout: 250 * time.Millisecond,
		},
		Password: PasswordConfig{
			Memory:             65536,
			Time:               3,
			Parallelism:        2,
			SaltLength:         16,
			KeyLength:          32,
			BreachCheckTimeout: 2 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

// DefaultConfig returns the baseline configuration. Callers must still
// supply key material.
func DefaultConfig() Config {
	return defaultConfig()
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	if cfg.JWT.VerifyKeys != nil {
		out.JWT.VerifyKeys = make(map[string][]byte, len(cfg.JWT.VerifyKeys))
		for kid, key := range cfg.JWT.VerifyKeys {
			out.JWT.VerifyKeys[kid] = cloneBytes(key)
		}
	}
	out.Session.BindingKey = cloneBytes(cfg.Session.BindingKey)
	if cfg.Session.RiskCeilings != nil {
		out.Session.RiskCeilings = make(map[string]int, len(cfg.Session.RiskCeilings))
		for k, v := range cfg.Session.RiskCeilings {
			out.Session.RiskCeilings[k] = v
		}
	}
	out.Conditions.Rules = append([]condition.Rule(nil), cfg.Conditions.Rules...)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate rejects unusable or, in production mode, unsafe settings.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.TTL <= 0 {
		return errors.New("JWT TTL must be > 0")
	}
	if c.JWT.SuperAdminTTL < 0 {
		return errors.New("JWT SuperAdminTTL must be >= 0")
	}
	switch c.JWT.SigningMethod {
	case "ed25519":
		if len(c.JWT.PublicKey) == 0 && len(c.JWT.VerifyKeys) == 0 {
			return errors.New("ed25519 requires PublicKey or VerifyKeys")
		}
	case "hs256":
		if len(c.JWT.PrivateKey) == 0 {
			return errors.New("hs256 requires PrivateKey")
		}
	default:
		return errors.New("unsupported JWT signing method")
	}
	for kid, key := range c.JWT.VerifyKeys {
		if strings.TrimSpace(kid) == "" || len(key) == 0 {
			return errors.New("JWT VerifyKeys entries need a kid and a key")
		}
	}
	if len(c.JWT.VerifyKeys) > 0 && c.JWT.KeyID != "" {
		if _, ok := c.JWT.VerifyKeys[c.JWT.KeyID]; !ok {
			return errors.New("JWT KeyID must be present in VerifyKeys")
		}
	}
	if strings.TrimSpace(c.JWT.Issuer) == "" {
		return errors.New("JWT Issuer must be set")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > maxLeeway {
		return errors.New("JWT Leeway must be within [0, 2m]")
	}

	// Session
	if _, err := session.ParseIPMismatchMode(c.Session.IPMismatch); err != nil {
		return fmt.Errorf("Session IPMismatch: %w", err)
	}
	if c.Session.IPRiskIncrement < 0 || c.Session.IPRiskIncrement > 100 {
		return errors.New("Session IPRiskIncrement must be within [0, 100]")
	}
	if _, err := riskCeilings(c.Session.RiskCeilings); err != nil {
		return err
	}

	// Revocation
	if c.Revocation.LookupTimeout < 0 {
		return errors.New("Revocation LookupTimeout must be >= 0")
	}

	// Password
	if c.Password.BreachCheckTimeout < 0 {
		return errors.New("Password BreachCheckTimeout must be >= 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	if c.Security.ProductionMode {
		if err := c.validateProduction(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateProduction() error {
	if c.JWT.TTL > maxProductionTTL {
		return errors.New("production mode caps JWT TTL at 15m")
	}
	if c.JWT.SigningMethod == "hs256" {
		if len(c.JWT.PrivateKey) < minHS256KeyBytes {
			return errors.New("production mode requires an HS256 key of at least 256 bits")
		}
		for kid, key := range c.JWT.VerifyKeys {
			if len(key) < minHS256KeyBytes {
				return fmt.Errorf("production mode requires HS256 verify key %q of at least 256 bits", kid)
			}
		}
	}
	if !c.Session.RequireDeviceBinding || !c.Session.RequireUserAgentBinding {
		return errors.New("production mode requires device and user-agent binding")
	}
	if !c.Revocation.Enabled {
		return errors.New("production mode requires revocation")
	}
	if c.Password.Memory < minProductionMemory {
		return errors.New("production mode requires Password Memory >= 64 MB")
	}
	return nil
}

func riskCeilings(byName map[string]int) (map[session.Sensitivity]int, error) {
	out := make(map[session.Sensitivity]int, len(byName))
	for name, ceiling := range byName {
		tier, err := session.ParseSensitivity(name)
		if err != nil {
			return nil, fmt.Errorf("Session RiskCeilings: %w", err)
		}
		if ceiling < 0 || ceiling > 100 {
			return nil, fmt.Errorf("Session RiskCeilings[%s] must be within [0, 100]", name)
		}
		out[tier] = ceiling
	}
	return out, nil
}

// sessionPolicy translates the session section for session.NewValidator.
func (c *Config) sessionPolicy(base map[session.Sensitivity]int) (session.Policy, error) {
	mode, err := session.ParseIPMismatchMode(c.Session.IPMismatch)
	if err != nil {
		return session.Policy{}, err
	}
	overrides, err := riskCeilings(c.Session.RiskCeilings)
	if err != nil {
		return session.Policy{}, err
	}

	p := session.DefaultPolicy(c.JWT.Issuer)
	p.Leeway = c.JWT.Leeway
	p.IPMismatch = mode
	p.IPRiskIncrement = c.Session.IPRiskIncrement
	p.RequireDeviceBinding = c.Session.RequireDeviceBinding
	p.RequireUserAgentBinding = c.Session.RequireUserAgentBinding
	p.RevocationTimeout = c.Revocation.LookupTimeout
	for tier, ceiling := range base {
		p.RiskCeilings[tier] = ceiling
	}
	for tier, ceiling := range overrides {
		p.RiskCeilings[tier] = ceiling
	}
	return p, nil
}
