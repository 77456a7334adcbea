package authcore

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/brokerdesk/authcore/condition"
	internalaudit "github.com/brokerdesk/authcore/internal/audit"
	"github.com/brokerdesk/authcore/jwt"
	"github.com/brokerdesk/authcore/password"
	"github.com/brokerdesk/authcore/permission"
	"github.com/brokerdesk/authcore/policy"
	"github.com/brokerdesk/authcore/revocation"
	"github.com/brokerdesk/authcore/session"
)

// Builder assembles an [Engine]. It is single use.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	actions    *permission.ActionTable
	policy     *policy.File
	policyPath string
	operations []Operation

	logger     *slog.Logger
	auditSink  AuditSink
	revocation session.RevocationChecker
	breach     password.BreachChecker

	built bool
}

// New returns a Builder seeded with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the configuration. cfg is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client backing the revocation list.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithActions replaces the canonical action table. The table is frozen
// by Build.
func (b *Builder) WithActions(table *permission.ActionTable) *Builder {
	b.actions = table
	return b
}

// WithPolicy sets the policy document providing the hierarchy, grants,
// ceilings, conditions and operations.
func (b *Builder) WithPolicy(f *policy.File) *Builder {
	b.policy = f
	return b
}

// WithPolicyFile loads the policy document from path during Build.
func (b *Builder) WithPolicyFile(path string) *Builder {
	b.policyPath = path
	return b
}

// WithOperations registers operations in addition to those of the policy.
func (b *Builder) WithOperations(ops ...Operation) *Builder {
	b.operations = append(b.operations, ops...)
	return b
}

// WithLogger sets the structured logger. Nil means slog.Default().
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets the sink fed by the audit dispatcher.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithRevocationChecker replaces the Redis revocation list. If checker
// also implements [Revoker], Engine.Revoke writes through it. Build fails
// when revocation is disabled in the config.
func (b *Builder) WithRevocationChecker(checker session.RevocationChecker) *Builder {
	b.revocation = checker
	return b
}

// WithBreachChecker enables breach screening in HashPassword.
func (b *Builder) WithBreachChecker(checker password.BreachChecker) *Builder {
	b.breach = checker
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the authorize latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, compiles and freezes the policy
// tables and returns a ready engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	// -------- POLICY --------
	doc := b.policy
	if b.policyPath != "" {
		if doc != nil {
			return nil, errors.New("WithPolicy and WithPolicyFile are mutually exclusive")
		}
		loaded, err := policy.Load(b.policyPath)
		if err != nil {
			return nil, err
		}
		doc = loaded
	}
	if doc == nil {
		return nil, errors.New("policy must be provided")
	}

	actions := b.actions
	if actions == nil {
		actions = permission.Canonical()
	}
	actions.Freeze()

	compiled, err := doc.Compile(actions)
	if err != nil {
		return nil, err
	}
	if compiled.Issuer != "" && compiled.Issuer != cfg.JWT.Issuer {
		return nil, fmt.Errorf("policy issuer %q differs from JWT issuer %q", compiled.Issuer, cfg.JWT.Issuer)
	}
	if compiled.Roles.Count() == 0 {
		return nil, errors.New("policy grants no role permissions")
	}

	operations, err := registerOperations(actions, compiled.Operations, b.operations)
	if err != nil {
		return nil, err
	}

	vocabulary := compiled.Vocabulary
	if len(cfg.Conditions.Rules) > 0 {
		if vocabulary, err = condition.NewVocabulary(cfg.Conditions.Rules...); err != nil {
			return nil, fmt.Errorf("Conditions: %w", err)
		}
	}

	evaluator, err := permission.NewEvaluator(actions, compiled.Hierarchy, compiled.Roles, compiled.Privileges)
	if err != nil {
		return nil, err
	}

	// -------- REVOCATION --------
	checker := b.revocation
	if checker != nil && !cfg.Revocation.Enabled {
		return nil, errors.New("revocation checker provided but Revocation.Enabled is false")
	}
	var store *revocation.Store
	if checker == nil && cfg.Revocation.Enabled {
		if b.redis == nil {
			return nil, errors.New("revocation requires redis client or revocation checker")
		}
		store = revocation.NewStore(b.redis, cfg.Revocation.RedisPrefix)
		checker = store
	}
	revoker, _ := checker.(Revoker)

	// -------- SESSION --------
	sp, err := cfg.sessionPolicy(compiled.RiskCeilings)
	if err != nil {
		return nil, err
	}
	validator, err := session.NewValidator(sp, session.NewHasher(cfg.Session.BindingKey), checker)
	if err != nil {
		return nil, err
	}

	jm, err := jwt.NewManager(jwt.Config{
		TTL:           cfg.JWT.TTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		KeyID:         cfg.JWT.KeyID,
		VerifyKeys:    cfg.JWT.VerifyKeys,
	})
	if err != nil {
		return nil, err
	}

	ph, err := password.NewArgon2(password.Config{
		Memory:           cfg.Password.Memory,
		Time:             cfg.Password.Time,
		Parallelism:      cfg.Password.Parallelism,
		SaltLength:       cfg.Password.SaltLength,
		KeyLength:        cfg.Password.KeyLength,
		MaxPasswordBytes: cfg.Password.MaxPasswordBytes,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:     cloneConfig(cfg),
		logger:     logger,
		jwt:        jm,
		validator:  validator,
		evaluator:  evaluator,
		vocabulary: vocabulary,
		operations: operations,
		revoker:    revoker,
		store:      store,
		passwords:  ph,
		breach:     b.breach,
		metrics:    NewMetrics(cfg.Metrics),
		now:        time.Now,
	}
	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)

	for _, w := range cfg.Lint().AtLeast(LintHigh) {
		logger.Warn("authcore: weak configuration", "code", w.Code, "detail", w.Message)
	}

	b.built = true
	return engine, nil
}

// registerOperations merges policy and builder operations into one
// lookup table, rejecting duplicates and unencodable requirements.
func registerOperations(actions *permission.ActionTable, groups ...[]Operation) (map[string]Operation, error) {
	out := make(map[string]Operation)
	for _, ops := range groups {
		for _, op := range ops {
			name := strings.TrimSpace(op.Name)
			if name == "" {
				return nil, errors.New("operation name is required")
			}
			if _, dup := out[name]; dup {
				return nil, fmt.Errorf("duplicate operation %q", name)
			}
			for _, r := range op.Required {
				if strings.TrimSpace(r.Resource) == "" {
					return nil, fmt.Errorf("operation %s: empty resource", name)
				}
				if _, err := actions.Encode(r.Actions); err != nil {
					return nil, fmt.Errorf("operation %s: %w", name, err)
				}
			}
			if err := op.Requirement.Validate(); err != nil {
				return nil, fmt.Errorf("operation %s: %w", name, err)
			}
			params, err := policy.ValidateParameters(op.Parameters)
			if err != nil {
				return nil, fmt.Errorf("operation %s: %w", name, err)
			}
			op.Name = name
			op.Parameters = params
			op.Required = append([]permission.Required(nil), op.Required...)
			out[name] = op
		}
	}
	return out, nil
}
