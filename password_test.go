package authcore

import (
	"context"
	"errors"
	"testing"

	"github.com/brokerdesk/authcore/password"
)

type stubBreach struct {
	breached bool
	err      error
	calls    int
}

func (s *stubBreach) Breached(ctx context.Context, _ string) (bool, error) {
	s.calls++
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	return s.breached, s.err
}

func newPasswordEngine(t *testing.T, checker password.BreachChecker, mutate func(*Config)) *Engine {
	t.Helper()
	cfg := testConfig()
	cfg.Revocation.Enabled = false
	if mutate != nil {
		mutate(&cfg)
	}
	b := New().WithConfig(cfg).WithPolicy(testPolicy(t)).WithLogger(quietLogger())
	if checker != nil {
		b = b.WithBreachChecker(checker)
	}
	e, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(e.Close)
	return e
}

func TestHashAndVerifyPassword(t *testing.T) {
	e := newPasswordEngine(t, nil, nil)

	hash, err := e.HashPassword(t.Context(), "correct-horse-battery")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	ok, rehash, err := e.VerifyPassword("correct-horse-battery", hash)
	if err != nil || !ok || rehash {
		t.Fatalf("expected match without rehash, got ok=%v rehash=%v err=%v", ok, rehash, err)
	}
	if ok, _, _ := e.VerifyPassword("wrong-horse-battery", hash); ok {
		t.Fatal("expected mismatch for wrong password")
	}

	stronger := newPasswordEngine(t, nil, func(c *Config) { c.Password.Time = 2 })
	if _, rehash, _ := stronger.VerifyPassword("correct-horse-battery", hash); !rehash {
		t.Fatal("expected rehash after cost increase")
	}
}

func TestHashPasswordRejectsBreached(t *testing.T) {
	checker := &stubBreach{breached: true}
	e := newPasswordEngine(t, checker, nil)

	if _, err := e.HashPassword(t.Context(), "password1234"); !errors.Is(err, password.ErrBreachedPassword) {
		t.Fatalf("expected ErrBreachedPassword, got %v", err)
	}
	if checker.calls != 1 {
		t.Fatalf("expected one breach lookup, got %d", checker.calls)
	}
}

func TestHashPasswordBreachUnavailable(t *testing.T) {
	checker := &stubBreach{err: errors.New("range api down")}

	open := newPasswordEngine(t, checker, nil)
	if _, err := open.HashPassword(t.Context(), "correct-horse-battery"); err != nil {
		t.Fatalf("expected lookup failure to fail open, got %v", err)
	}

	strict := newPasswordEngine(t, checker, func(c *Config) { c.Password.RequireBreachCheck = true })
	if _, err := strict.HashPassword(t.Context(), "correct-horse-battery"); err == nil {
		t.Fatal("expected lookup failure to reject when the check is required")
	}
}

func TestSecurityReport(t *testing.T) {
	e := newPasswordEngine(t, &stubBreach{}, nil)
	r := e.SecurityReport()

	if r.SigningAlgorithm != "hs256" || !r.KeyedBindingHashes || !r.BreachCheckEnabled {
		t.Fatalf("unexpected report: %+v", r)
	}
	if r.RevocationEnabled || r.Operations != 4 || r.Argon2.Memory != 8*1024 {
		t.Fatalf("unexpected report: %+v", r)
	}
	if len(r.Lint.AtLeast(LintHigh)) != 1 || r.Lint.AtLeast(LintHigh)[0].Code != "revocation_disabled" {
		t.Fatalf("expected revocation_disabled high finding, got %v", r.Lint.Codes())
	}
}
