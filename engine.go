package authcore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/brokerdesk/authcore/condition"
	internalaudit "github.com/brokerdesk/authcore/internal/audit"
	"github.com/brokerdesk/authcore/jwt"
	"github.com/brokerdesk/authcore/password"
	"github.com/brokerdesk/authcore/permission"
	"github.com/brokerdesk/authcore/revocation"
	"github.com/brokerdesk/authcore/session"
)

// Revoker writes token ids to a revocation list.
type Revoker interface {
	RevokeUntil(ctx context.Context, tokenID string, expiresAt time.Time) error
}

// Engine authorizes requests against frozen policy tables. It is safe for
// concurrent use once built.
type Engine struct {
	config     Config
	logger     *slog.Logger
	jwt        *jwt.Manager
	validator  *session.Validator
	evaluator  *permission.Evaluator
	vocabulary *condition.Vocabulary
	operations map[string]Operation
	revoker    Revoker
	store      *revocation.Store
	passwords  *password.Argon2
	breach     password.BreachChecker
	audit      *internalaudit.Dispatcher
	metrics    *Metrics
	now        func() time.Time
	closed     atomic.Bool
}

// Close drains the audit dispatcher. Further calls fail with ErrEngineNotReady.
func (e *Engine) Close() {
	if e == nil || !e.closed.CompareAndSwap(false, true) {
		return
	}
	e.audit.Close()
}

func (e *Engine) ready() error {
	if e == nil || e.closed.Load() {
		return ErrEngineNotReady
	}
	return nil
}

// AuditDropped returns the number of audit events dropped under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the in-process counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	e.metrics.Inc(id)
}

// Operations returns the registered operation names in sorted order.
func (e *Engine) Operations() []string {
	if e == nil {
		return nil
	}
	names := make([]string, 0, len(e.operations))
	for name := range e.operations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Operation returns the declaration registered under name.
func (e *Engine) Operation(name string) (Operation, bool) {
	if e == nil {
		return Operation{}, false
	}
	op, ok := e.operations[name]
	return op, ok
}

// ParseToken verifies the signature and audience of token and decodes its
// claims. No session checks run.
func (e *Engine) ParseToken(token string) (*jwt.Claims, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	return e.jwt.Parse(token)
}

// Authorize verifies token and authorizes operation for the request.
// Empty request fields are filled from ctx (see [WithClientIP] and
// friends). Callers only ever see the generic errors of this package.
func (e *Engine) Authorize(ctx context.Context, token string, req session.Request, operation string, params Params) (*Result, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	start := time.Now()
	defer func() { e.metrics.Observe(MetricAuthorizeLatency, time.Since(start)) }()

	op, err := e.lookup(ctx, operation)
	if err != nil {
		return nil, err
	}

	claims, err := e.jwt.Parse(token)
	if err != nil {
		reason := auditReasonTokenMalformed
		if errors.Is(err, jwt.ErrAudienceMismatch) {
			reason = auditReasonAudience
		}
		e.metricInc(MetricSessionRejected)
		e.logger.InfoContext(ctx, "authcore: token rejected", "operation", op.Name, "reason", reason)
		e.emitAudit(ctx, AuditEvent{EventType: AuditEventAuthorize, Operation: op.Name, Reason: reason})
		return nil, ErrUnauthorized
	}
	return e.authorize(ctx, claims, mergeRequest(ctx, req), op, params)
}

// AuthorizeClaims authorizes operation for claims that were already
// decoded and signature-checked by the caller.
func (e *Engine) AuthorizeClaims(ctx context.Context, claims *jwt.Claims, req session.Request, operation string, params Params) (*Result, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	start := time.Now()
	defer func() { e.metrics.Observe(MetricAuthorizeLatency, time.Since(start)) }()

	op, err := e.lookup(ctx, operation)
	if err != nil {
		return nil, err
	}
	return e.authorize(ctx, claims, mergeRequest(ctx, req), op, params)
}

func (e *Engine) lookup(ctx context.Context, name string) (Operation, error) {
	op, ok := e.operations[name]
	if !ok {
		e.metricInc(MetricMisconfiguration)
		e.logger.ErrorContext(ctx, "authcore: unknown operation", "operation", name)
		e.emitAudit(ctx, AuditEvent{EventType: AuditEventAuthorize, Operation: name, Reason: auditReasonMisconfigured,
			Metadata: map[string]string{"detail": "unknown_operation"}})
		return Operation{}, fmt.Errorf("%w: %w: %q", ErrMisconfigured, ErrUnknownOperation, name)
	}
	return op, nil
}

// authorize runs session validation, permission evaluation and condition
// checks in that order.
func (e *Engine) authorize(ctx context.Context, claims *jwt.Claims, req session.Request, op Operation, params Params) (*Result, error) {
	event := AuditEvent{EventType: AuditEventAuthorize, Operation: op.Name}
	if claims != nil {
		event.Subject, event.Tenant, event.TokenID = claims.Subject, claims.Tenant, claims.ID
	}

	validated, err := e.validator.Validate(ctx, claims, req, op.Requirement)
	if err != nil {
		return nil, e.sessionFailure(ctx, event, err)
	}
	if validated.IPMismatch {
		e.metricInc(MetricIPMismatchDowngraded)
	}
	event.Risk = validated.EffectiveRisk

	subject, err := e.subject(claims)
	if err != nil {
		return nil, e.misconfigured(ctx, event, "claims", err)
	}
	decision, err := e.evaluator.Evaluate(subject, op.Required, op.RequireAll)
	if err != nil {
		return nil, e.misconfigured(ctx, event, "evaluate", err)
	}
	if !decision.Granted {
		e.metricInc(MetricAuthorizeDenied)
		event.Reason = auditReasonDenied
		event.Metadata = map[string]string{"resource": decision.Resource, "decision": decision.Reason}
		if len(decision.Missing) > 0 {
			names := make([]string, len(decision.Missing))
			for i, a := range decision.Missing {
				names[i] = string(a)
			}
			event.Metadata["missing"] = strings.Join(names, ",")
		}
		e.logger.InfoContext(ctx, "authcore: permission denied",
			"operation", op.Name, "tenant", event.Tenant, "subject", event.Subject,
			"resource", decision.Resource, "reason", decision.Reason)
		e.emitAudit(ctx, event)
		return nil, ErrPermissionDenied
	}

	conds, err := e.vocabulary.Check(claims.Conditions, params, op.Parameters...)
	if err != nil {
		return nil, e.misconfigured(ctx, event, "conditions", err)
	}
	if !conds.Satisfied {
		e.metricInc(MetricConditionRejected)
		failed := make([]string, len(conds.Failed))
		for i, c := range conds.Failed {
			failed[i] = c.Key
		}
		missing := make([]string, len(conds.Missing))
		for i, c := range conds.Missing {
			missing[i] = c.Key
		}
		event.Reason = auditReasonCondition
		event.Metadata = map[string]string{"failed": strings.Join(failed, ",")}
		if len(missing) > 0 {
			event.Metadata["missing_parameter"] = strings.Join(missing, ",")
		}
		e.logger.InfoContext(ctx, "authcore: condition not met",
			"operation", op.Name, "tenant", event.Tenant, "subject", event.Subject,
			"failed", failed, "missing_parameter", missing)
		e.emitAudit(ctx, event)
		return nil, ErrConditionNotMet
	}

	e.metricInc(MetricAuthorizeGranted)
	event.Success = true
	event.Reason = auditReasonGranted
	e.emitAudit(ctx, event)

	return &Result{
		Operation:     op.Name,
		Subject:       claims.Subject,
		Tenant:        claims.Tenant,
		TokenID:       claims.ID,
		Roles:         decision.Roles,
		EffectiveRisk: validated.EffectiveRisk,
		IPMismatch:    validated.IPMismatch,
		Decision:      decision,
		Conditions:    conds,
		Claims:        claims,
		CheckedAt:     validated.CheckedAt,
	}, nil
}

func (e *Engine) sessionFailure(ctx context.Context, event AuditEvent, err error) error {
	var f *session.Failure
	if !errors.As(err, &f) {
		return e.misconfigured(ctx, event, "validate", err)
	}
	event.Reason = f.Kind.String()
	event.Risk = f.Risk
	if f.Detail != "" {
		event.Metadata = map[string]string{"detail": f.Detail}
	}

	switch f.Kind {
	case session.KindElevatedVerificationRequired:
		e.metricInc(MetricStepUpRequired)
		e.logger.InfoContext(ctx, "authcore: step-up required",
			"operation", event.Operation, "tenant", event.Tenant, "subject", event.Subject, "risk", f.Risk)
		e.emitAudit(ctx, event)
		return ErrStepUpRequired
	case session.KindSessionBindingViolation:
		e.metricInc(MetricBindingViolation)
	case session.KindGeoRestricted:
		e.metricInc(MetricGeoRejected)
	case session.KindTokenRevoked:
		e.metricInc(MetricTokenRevoked)
	case session.KindRevocationUnavailable:
		e.metricInc(MetricRevocationUnavailable)
	}
	e.metricInc(MetricSessionRejected)

	level := slog.LevelInfo
	if f.Kind == session.KindRevocationUnavailable {
		level = slog.LevelWarn
	}
	e.logger.Log(ctx, level, "authcore: session rejected",
		"operation", event.Operation, "tenant", event.Tenant, "subject", event.Subject, "kind", f.Kind.String())
	e.emitAudit(ctx, event)
	return ErrUnauthorized
}

func (e *Engine) misconfigured(ctx context.Context, event AuditEvent, stage string, err error) error {
	e.metricInc(MetricMisconfiguration)
	event.Reason = auditReasonMisconfigured
	event.Metadata = map[string]string{"stage": stage}
	e.logger.ErrorContext(ctx, "authcore: authorization misconfigured",
		"operation", event.Operation, "tenant", event.Tenant, "subject", event.Subject,
		"stage", stage, "error", err)
	e.emitAudit(ctx, event)
	return ErrMisconfigured
}

// subject converts validated claims into the evaluator's view. Explicit
// masks must be strict "0x"+4 hex strings.
func (e *Engine) subject(claims *jwt.Claims) (permission.Subject, error) {
	s := permission.Subject{
		Roles:      make([]permission.Role, 0, len(claims.Roles)),
		Privileges: claims.Privileges,
	}
	for _, r := range claims.Roles {
		s.Roles = append(s.Roles, permission.ParseRole(r))
	}
	if len(claims.Permissions) > 0 {
		s.Explicit = make(map[string]permission.Mask, len(claims.Permissions))
		for resource, hex := range claims.Permissions {
			m, err := permission.DecodeMask(hex)
			if err != nil {
				return permission.Subject{}, fmt.Errorf("perms.%s: %w", resource, err)
			}
			s.Explicit[resource] = m
		}
	}
	return s, nil
}

// Issue builds and signs the claims for a freshly authenticated session.
// Raw binding values are hashed with the validator's hasher; roles must
// be part of the hierarchy and explicit permissions must encode.
func (e *Engine) Issue(ctx context.Context, in IssueInput) (string, *jwt.Claims, error) {
	if err := e.ready(); err != nil {
		return "", nil, err
	}
	claims, ttl, err := e.buildClaims(in)
	if err != nil {
		return "", nil, err
	}

	token, err := e.jwt.Sign(claims, ttl)
	if err != nil {
		e.logger.ErrorContext(ctx, "authcore: token signing failed", "tenant", in.Tenant, "error", err)
		return "", nil, err
	}

	e.metricInc(MetricTokensIssued)
	e.emitAudit(ctx, AuditEvent{
		EventType: AuditEventTokenIssued,
		Subject:   claims.Subject,
		Tenant:    claims.Tenant,
		TokenID:   claims.ID,
		Success:   true,
		Risk:      claims.Security.RiskScore,
		Metadata:  map[string]string{"ttl": ttl.String()},
	})
	return token, claims, nil
}

func (e *Engine) buildClaims(in IssueInput) (*jwt.Claims, time.Duration, error) {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidIssueInput, fmt.Sprintf(format, args...))
	}

	subject, tenant := strings.TrimSpace(in.Subject), strings.TrimSpace(in.Tenant)
	if subject == "" || tenant == "" {
		return nil, 0, invalid("subject and tenant are required")
	}
	dpl := in.DataProtectionLevel
	if dpl == 0 {
		dpl = 1
	}
	if dpl < 1 || dpl > 5 {
		return nil, 0, invalid("data protection level %d outside [1, 5]", in.DataProtectionLevel)
	}
	if in.RiskScore < 0 || in.RiskScore > 100 {
		return nil, 0, invalid("risk score %d outside [0, 100]", in.RiskScore)
	}
	if in.TTL < 0 {
		return nil, 0, invalid("negative ttl")
	}

	hierarchy := e.evaluator.Hierarchy()
	roles := make([]string, 0, len(in.Roles))
	for _, name := range in.Roles {
		role := permission.ParseRole(name)
		if !hierarchy.Contains(role) {
			return nil, 0, invalid("%v: %q", permission.ErrUnknownRole, name)
		}
		roles = append(roles, string(role))
	}

	for _, raw := range in.Conditions {
		if _, err := condition.Parse(raw); err != nil {
			return nil, 0, invalid("%v", err)
		}
	}

	var perms map[string]string
	if len(in.Permissions) > 0 {
		perms = make(map[string]string, len(in.Permissions))
		for resource, actions := range in.Permissions {
			if strings.TrimSpace(resource) == "" {
				return nil, 0, invalid("empty permission resource")
			}
			hex, err := e.evaluator.Actions().EncodeMask(actions)
			if err != nil {
				return nil, 0, invalid("perms.%s: %v", resource, err)
			}
			perms[resource] = hex
		}
	}

	ttl := e.config.JWT.TTL
	if in.TTL > 0 && in.TTL < ttl {
		ttl = in.TTL
	}
	if limit := e.config.JWT.SuperAdminTTL; limit > 0 && ttl > limit && slices.Contains(roles, string(permission.RoleSuperAdmin)) {
		ttl = limit
	}

	h := e.validator.Hasher()
	now := e.now()
	claims := &jwt.Claims{
		Tenant: tenant,
		Session: jwt.SessionContext{
			IPHash:                h.Hash(in.IP),
			DeviceFingerprintHash: h.Hash(in.DeviceFingerprint),
			GeoCode:               strings.ToUpper(strings.TrimSpace(in.GeoCode)),
			UserAgentHash:         h.Hash(in.UserAgent),
		},
		Roles:      roles,
		Privileges: append([]string(nil), in.Privileges...),
		Conditions: append([]string(nil), in.Conditions...),
		Security: jwt.SecurityState{
			MFAVerified:         in.MFAVerified,
			BiometricVerified:   in.BiometricVerified,
			DataProtectionLevel: dpl,
			RiskScore:           in.RiskScore,
		},
		Permissions: perms,
		RegisteredClaims: gojwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			IssuedAt:  gojwt.NewNumericDate(now),
			NotBefore: gojwt.NewNumericDate(now),
			ExpiresAt: gojwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return claims, ttl, nil
}

// Revoke adds tokenID to the revocation list until expiresAt.
func (e *Engine) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if err := e.ready(); err != nil {
		return err
	}
	if e.revoker == nil {
		return ErrRevocationDisabled
	}
	if err := e.revoker.RevokeUntil(ctx, tokenID, expiresAt); err != nil {
		e.logger.WarnContext(ctx, "authcore: revoke failed", "token_id", tokenID, "error", err)
		return err
	}
	e.metricInc(MetricTokensRevoked)
	e.emitAudit(ctx, AuditEvent{EventType: AuditEventTokenRevoked, TokenID: tokenID, Success: true})
	return nil
}

// RevokeToken parses token and revokes its id until its expiry. Expired
// tokens are accepted so logout stays idempotent.
func (e *Engine) RevokeToken(ctx context.Context, token string) error {
	claims, err := e.ParseToken(token)
	if err != nil {
		return ErrUnauthorized
	}
	if claims.ID == "" || claims.ExpiresAt == nil {
		return ErrUnauthorized
	}
	return e.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}

// HashPassword screens plaintext with the breach checker, if any, and
// returns its Argon2id hash.
func (e *Engine) HashPassword(ctx context.Context, plaintext string) (string, error) {
	if err := e.ready(); err != nil {
		return "", err
	}
	if err := e.screenPassword(ctx, plaintext); err != nil {
		return "", err
	}
	return e.passwords.Hash(plaintext)
}

// VerifyPassword reports whether plaintext matches encoded, and whether
// the hash should be replaced because the configured costs increased.
func (e *Engine) VerifyPassword(plaintext, encoded string) (ok, rehash bool, err error) {
	if err := e.ready(); err != nil {
		return false, false, err
	}
	ok, err = e.passwords.Verify(plaintext, encoded)
	if err != nil || !ok {
		return false, false, err
	}
	rehash, err = e.passwords.NeedsRehash(encoded)
	return ok, rehash && err == nil, nil
}

func (e *Engine) screenPassword(ctx context.Context, plaintext string) error {
	if e.breach == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout := e.config.Password.BreachCheckTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	breached, err := e.breach.Breached(ctx, plaintext)
	switch {
	case err != nil:
		e.logger.WarnContext(ctx, "authcore: breach check unavailable", "error", err)
		e.emitAudit(ctx, AuditEvent{EventType: AuditEventBreachCheck, Reason: auditReasonUnavailable})
		if e.config.Password.RequireBreachCheck {
			return fmt.Errorf("breach check unavailable: %w", err)
		}
		return nil
	case breached:
		e.emitAudit(ctx, AuditEvent{EventType: AuditEventBreachCheck, Reason: auditReasonBreached})
		return password.ErrBreachedPassword
	}
	e.emitAudit(ctx, AuditEvent{EventType: AuditEventBreachCheck, Success: true})
	return nil
}

// Ping checks the Redis revocation backend, when one is configured.
func (e *Engine) Ping(ctx context.Context) error {
	if err := e.ready(); err != nil {
		return err
	}
	if e.store == nil {
		return nil
	}
	return e.store.Ping(ctx)
}
