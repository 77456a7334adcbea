package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

func newEdKeys(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	return pub, priv
}

func sampleClaims() *Claims {
	return &Claims{
		Tenant: "brokerage-7",
		Session: SessionContext{
			IPHash:                "aa",
			DeviceFingerprintHash: "bb",
			GeoCode:               "US-NY",
			UserAgentHash:         "cc",
		},
		Roles:       []string{"AGENT"},
		Privileges:  []string{"document_executor"},
		Conditions:  []string{"MAX_TRANSACTION_VALUE:50000"},
		Security:    SecurityState{MFAVerified: true, DataProtectionLevel: 3, RiskScore: 12},
		Permissions: map[string]string{"deal": "0x0005"},
		RegisteredClaims: gjwt.RegisteredClaims{
			Subject: "user-1",
			ID:      "tok-1",
		},
	}
}

func TestSignParseRoundTrip(t *testing.T) {
	pub, priv := newEdKeys(t)
	m, err := NewManager(Config{
		TTL:           5 * time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
		Issuer:        "brokerdesk",
		Audience:      "crm",
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	in := sampleClaims()
	token, err := m.Sign(in, 0)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	out, err := m.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if out.Subject != "user-1" || out.TokenID() != "tok-1" || out.Tenant != "brokerage-7" {
		t.Fatalf("identity claims not preserved: %+v", out)
	}
	if out.Issuer != "brokerdesk" || len(out.Audience) != 1 || out.Audience[0] != "crm" {
		t.Fatalf("expected issuer and audience defaults, got %q %v", out.Issuer, out.Audience)
	}
	if out.Session != in.Session || out.Security != in.Security {
		t.Fatalf("context not preserved: %+v", out)
	}
	if out.Permissions["deal"] != "0x0005" || out.Conditions[0] != "MAX_TRANSACTION_VALUE:50000" {
		t.Fatalf("permissions or conditions not preserved: %+v", out)
	}
	if out.ExpiresAt == nil || out.NotBefore == nil || out.IssuedAt == nil {
		t.Fatal("expected validity window to be set")
	}
	if got := out.ExpiresAt.Sub(out.IssuedAt.Time); got != 5*time.Minute {
		t.Fatalf("expected 5m lifetime, got %v", got)
	}
}

func TestSignHonorsExplicitTTL(t *testing.T) {
	m, err := NewManager(Config{TTL: time.Hour, SigningMethod: MethodHS256, PrivateKey: []byte("0123456789abcdef0123456789abcdef")})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	c := sampleClaims()
	if _, err := m.Sign(c, 2*time.Minute); err != nil {
		t.Fatalf("sign: %v", err)
	}
	if got := c.ExpiresAt.Sub(c.IssuedAt.Time); got != 2*time.Minute {
		t.Fatalf("expected 2m lifetime, got %v", got)
	}
}

func TestParseLeavesWindowToCaller(t *testing.T) {
	m, _ := NewManager(Config{TTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: []byte("0123456789abcdef0123456789abcdef")})
	c := sampleClaims()
	c.IssuedAt = gjwt.NewNumericDate(time.Now().Add(-time.Hour))
	c.ExpiresAt = gjwt.NewNumericDate(time.Now().Add(-30 * time.Minute))
	token, _ := m.Sign(c, 0)

	out, err := m.Parse(token)
	if err != nil {
		t.Fatalf("expected expired token to decode for classification, got %v", err)
	}
	if !out.ExpiresAt.Before(time.Now()) {
		t.Fatal("expected expiry in the past")
	}
}

func TestParseRejectsWrongAlgorithm(t *testing.T) {
	pub, _ := newEdKeys(t)
	m, err := NewManager(Config{TTL: time.Minute, SigningMethod: MethodEd25519, PublicKey: pub})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	tok := gjwt.NewWithClaims(gjwt.SigningMethodHS256, sampleClaims())
	token, err := tok.SignedString([]byte("secret-secret-secret-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := m.Parse(token); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed, got %v", err)
	}
}

func TestParseRejectsAudienceMismatch(t *testing.T) {
	pub, priv := newEdKeys(t)
	m, _ := NewManager(Config{TTL: time.Minute, SigningMethod: MethodEd25519, PrivateKey: priv, PublicKey: pub, Audience: "crm"})

	c := sampleClaims()
	c.Audience = gjwt.ClaimStrings{"billing"}
	tok := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, c)
	token, _ := tok.SignedString(priv)
	if _, err := m.Parse(token); !errors.Is(err, ErrAudienceMismatch) {
		t.Fatalf("expected ErrAudienceMismatch, got %v", err)
	}
}

func TestParseKeyRotation(t *testing.T) {
	pub1, priv1 := newEdKeys(t)
	pub2, _ := newEdKeys(t)
	m, err := NewManager(Config{
		TTL:           time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv1,
		PublicKey:     pub1,
		KeyID:         "k1",
		VerifyKeys:    map[string][]byte{"k1": pub1},
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	tok := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, sampleClaims())
	tok.Header["kid"] = "k2"
	unknown, _ := tok.SignedString(priv1)
	if _, err := m.Parse(unknown); err == nil {
		t.Fatal("expected unknown kid failure")
	}

	good, err := m.Sign(sampleClaims(), 0)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := m.Parse(good); err != nil {
		t.Fatalf("expected known kid token to pass: %v", err)
	}

	m2, _ := NewManager(Config{TTL: time.Minute, SigningMethod: MethodEd25519, PublicKey: pub2, VerifyKeys: map[string][]byte{"k1": pub2}})
	if _, err := m2.Parse(good); err == nil {
		t.Fatal("expected parse failure with mismatched key set")
	}
}

func TestNewManagerValidation(t *testing.T) {
	cases := []Config{
		{TTL: 0, SigningMethod: MethodHS256, PrivateKey: []byte("k")},
		{TTL: time.Minute, SigningMethod: MethodHS256},
		{TTL: time.Minute, SigningMethod: MethodEd25519},
		{TTL: time.Minute, SigningMethod: "rs256", PrivateKey: []byte("k")},
		{TTL: time.Minute, SigningMethod: MethodEd25519, PublicKey: []byte("short")},
	}
	for i, cfg := range cases {
		if _, err := NewManager(cfg); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestVerifyOnlyManagerRefusesToSign(t *testing.T) {
	pub, _ := newEdKeys(t)
	m, err := NewManager(Config{TTL: time.Minute, SigningMethod: MethodEd25519, PublicKey: pub})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if _, err := m.Sign(sampleClaims(), 0); !errors.Is(err, ErrNoSigningKey) {
		t.Fatalf("expected ErrNoSigningKey, got %v", err)
	}
}

func TestHS256VerifyKeysByKid(t *testing.T) {
	oldSecret := []byte("0123456789abcdef0123456789abcdef")
	newSecret := []byte("fedcba9876543210fedcba9876543210")
	old, err := NewManager(Config{TTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: oldSecret, KeyID: "k1"})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	token, err := old.Sign(sampleClaims(), 0)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	rotated, err := NewManager(Config{
		TTL:           time.Minute,
		SigningMethod: MethodHS256,
		PrivateKey:    newSecret,
		KeyID:         "k2",
		VerifyKeys:    map[string][]byte{"k1": oldSecret, "k2": newSecret},
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if _, err := rotated.Parse(token); err != nil {
		t.Fatalf("expected k1 token to verify, got %v", err)
	}

	bare := gjwt.NewWithClaims(gjwt.SigningMethodHS256, sampleClaims())
	noKid, _ := bare.SignedString(newSecret)
	if _, err := rotated.Parse(noKid); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected token without kid to be rejected, got %v", err)
	}

	if _, err := NewManager(Config{TTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: newSecret,
		VerifyKeys: map[string][]byte{"k1": nil}}); err == nil {
		t.Fatal("expected empty verify secret to be rejected")
	}
}
