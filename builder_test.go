package authcore

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/brokerdesk/authcore/permission"
	"github.com/brokerdesk/authcore/session"
)

type memoryRevocations struct {
	revoked map[string]bool
}

func (m *memoryRevocations) IsRevoked(_ context.Context, id string) (bool, error) {
	return m.revoked[id], nil
}

func TestBuildRequiresPolicy(t *testing.T) {
	_, err := New().WithConfig(testConfig()).WithRevocationChecker(&memoryRevocations{}).Build()
	if err == nil || !strings.Contains(err.Error(), "policy must be provided") {
		t.Fatalf("expected missing policy error, got %v", err)
	}
}

func TestBuildRejectsIssuerMismatch(t *testing.T) {
	cfg := testConfig()
	cfg.JWT.Issuer = "elsewhere"
	_, err := New().WithConfig(cfg).WithPolicy(testPolicy(t)).WithRevocationChecker(&memoryRevocations{}).Build()
	if err == nil || !strings.Contains(err.Error(), "issuer") {
		t.Fatalf("expected issuer mismatch error, got %v", err)
	}
}

func TestBuildRequiresRevocationBackend(t *testing.T) {
	_, err := New().WithConfig(testConfig()).WithPolicy(testPolicy(t)).Build()
	if err == nil || !strings.Contains(err.Error(), "revocation requires") {
		t.Fatalf("expected revocation backend error, got %v", err)
	}
}

func TestBuildRejectsCheckerWithRevocationDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Revocation.Enabled = false
	_, err := New().WithConfig(cfg).WithPolicy(testPolicy(t)).WithRevocationChecker(&memoryRevocations{}).Build()
	if err == nil || !strings.Contains(err.Error(), "Revocation.Enabled is false") {
		t.Fatalf("expected checker with disabled revocation to fail, got %v", err)
	}
}

func TestBuildRejectsDuplicateOperation(t *testing.T) {
	dup := Operation{
		Name:     "deal.view",
		Required: []permission.Required{{Resource: "deal", Actions: []permission.Action{permission.ActionView}}},
	}
	_, err := New().WithConfig(testConfig()).WithPolicy(testPolicy(t)).
		WithRevocationChecker(&memoryRevocations{}).
		WithOperations(dup).Build()
	if err == nil || !strings.Contains(err.Error(), "duplicate operation") {
		t.Fatalf("expected duplicate operation error, got %v", err)
	}
}

func TestBuildRejectsUnencodableOperation(t *testing.T) {
	bad := Operation{
		Name:     "deal.teleport",
		Required: []permission.Required{{Resource: "deal", Actions: []permission.Action{"TELEPORT"}}},
	}
	_, err := New().WithConfig(testConfig()).WithPolicy(testPolicy(t)).
		WithRevocationChecker(&memoryRevocations{}).
		WithOperations(bad).Build()
	if err == nil || !strings.Contains(err.Error(), "deal.teleport") {
		t.Fatalf("expected unencodable operation error, got %v", err)
	}
}

func TestBuildIsSingleUse(t *testing.T) {
	b := New().WithConfig(testConfig()).WithPolicy(testPolicy(t)).WithRevocationChecker(&memoryRevocations{})
	e, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer e.Close()
	if _, err := b.Build(); err == nil {
		t.Fatal("expected second Build to fail")
	}
}

func TestBuildFromPolicyFile(t *testing.T) {
	e, err := New().WithConfig(testConfig()).
		WithPolicyFile("policy/testdata/brokerage.yaml").
		WithRevocationChecker(&memoryRevocations{}).
		WithLogger(quietLogger()).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer e.Close()

	if _, ok := e.Operation("deal.approve"); !ok {
		t.Fatalf("expected deal.approve to be registered, got %v", e.Operations())
	}
	if err := e.Ping(t.Context()); err != nil {
		t.Fatalf("expected Ping without redis store to succeed, got %v", err)
	}
}

func TestCustomRevocationChecker(t *testing.T) {
	checker := &memoryRevocations{revoked: map[string]bool{}}
	e, err := New().WithConfig(testConfig()).WithPolicy(testPolicy(t)).
		WithRevocationChecker(checker).WithLogger(quietLogger()).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer e.Close()

	token, claims, err := e.Issue(t.Context(), baseInput("AGENT"))
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := e.Authorize(t.Context(), token, liveRequest(), "deal.view", nil); err != nil {
		t.Fatalf("expected grant, got %v", err)
	}

	checker.revoked[claims.ID] = true
	if _, err := e.Authorize(t.Context(), token, liveRequest(), "deal.view", nil); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected revoked token to be rejected, got %v", err)
	}
	if err := e.Revoke(t.Context(), claims.ID, claims.ExpiresAt.Time); !errors.Is(err, ErrRevocationDisabled) {
		t.Fatalf("expected read-only checker to refuse writes, got %v", err)
	}
}

func TestBuildAddsOperations(t *testing.T) {
	extra := Operation{
		Name:        "profile.edit",
		Required:    []permission.Required{{Resource: "profile", Actions: []permission.Action{permission.ActionEdit}}},
		RequireAll:  true,
		Requirement: session.Requirement{Sensitivity: session.SensitivityStandard},
	}
	e, err := New().WithConfig(testConfig()).WithPolicy(testPolicy(t)).
		WithRevocationChecker(&memoryRevocations{}).WithLogger(quietLogger()).
		WithOperations(extra).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer e.Close()

	token, _, err := e.Issue(t.Context(), baseInput("USER"))
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := e.Authorize(t.Context(), token, liveRequest(), "profile.edit", nil); err != nil {
		t.Fatalf("expected USER to edit profile, got %v", err)
	}
}
