package authcore

import "time"

// SecurityReport is a read-only snapshot of the engine's security posture.
type SecurityReport struct {
	ProductionMode          bool
	SigningAlgorithm        string
	TTL                     time.Duration
	SuperAdminTTL           time.Duration
	Leeway                  time.Duration
	IPMismatchMode          string
	RequireDeviceBinding    bool
	RequireUserAgentBinding bool
	KeyedBindingHashes      bool
	RevocationEnabled       bool
	BreachCheckEnabled      bool
	AuditEnabled            bool
	Operations              int
	Argon2                  PasswordConfigReport
	Lint                    LintResult
}

// PasswordConfigReport holds the active Argon2id costs.
type PasswordConfigReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// SecurityReport describes the configuration the engine was built with.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}
	cfg := e.config
	return SecurityReport{
		ProductionMode:          cfg.Security.ProductionMode,
		SigningAlgorithm:        cfg.JWT.SigningMethod,
		TTL:                     cfg.JWT.TTL,
		SuperAdminTTL:           cfg.JWT.SuperAdminTTL,
		Leeway:                  cfg.JWT.Leeway,
		IPMismatchMode:          cfg.Session.IPMismatch,
		RequireDeviceBinding:    cfg.Session.RequireDeviceBinding,
		RequireUserAgentBinding: cfg.Session.RequireUserAgentBinding,
		KeyedBindingHashes:      e.validator.Hasher().Keyed(),
		RevocationEnabled:       cfg.Revocation.Enabled,
		BreachCheckEnabled:      e.breach != nil,
		AuditEnabled:            e.audit != nil,
		Operations:              len(e.operations),
		Argon2: PasswordConfigReport{
			Memory:      cfg.Password.Memory,
			Time:        cfg.Password.Time,
			Parallelism: cfg.Password.Parallelism,
			SaltLength:  cfg.Password.SaltLength,
			KeyLength:   cfg.Password.KeyLength,
		},
		Lint: cfg.Lint(),
	}
}
