package jwt

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects the token signature algorithm.
type SigningMethod string

const (
	// MethodEd25519 signs with EdDSA over Ed25519.
	MethodEd25519 SigningMethod = "ed25519"
	// MethodHS256 signs with HMAC-SHA256.
	MethodHS256 SigningMethod = "hs256"
)

var (
	// ErrTokenMalformed is returned when a token cannot be decoded or its signature fails.
	ErrTokenMalformed = errors.New("token malformed or signature invalid")
	// ErrAudienceMismatch is returned when the token audience does not include the configured one.
	ErrAudienceMismatch = errors.New("token audience mismatch")
	// ErrNoSigningKey is returned by Sign on a verify-only manager.
	ErrNoSigningKey = errors.New("manager has no signing key")
)

// Config defines key material and issuance defaults for a [Manager].
//
// For ed25519 keys are raw bytes or PEM; for hs256 PrivateKey is the
// shared secret. VerifyKeys maps a kid to an additional verification key
// (an ed25519 public key or an hs256 secret) and, when set, every token
// must carry a kid found in it. KeyID is stamped on signed tokens.
type Config struct {
	TTL           time.Duration
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	KeyID         string
	VerifyKeys    map[string][]byte
}

// Manager signs and verifies access tokens.
//
// Parse checks the signature, algorithm, key id, and audience only. The
// validity window and issuer are checked by session.Validator.
type Manager struct {
	ttl      time.Duration
	method   jwt.SigningMethod
	issuer   string
	audience string
	keyID    string

	signKey   any
	verifyKey any
	byKid     map[string]any
}

// NewManager decodes the key material in cfg once and returns a ready
// manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.TTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	m := &Manager{
		ttl:      cfg.TTL,
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		keyID:    strings.TrimSpace(cfg.KeyID),
	}

	var decode func([]byte) (any, error)
	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) == 0 {
			return nil, errors.New("hs256 requires private key")
		}
		m.method = jwt.SigningMethodHS256
		secret := bytes.Clone(cfg.PrivateKey)
		m.signKey, m.verifyKey = secret, secret
		decode = decodeSecret
	case MethodEd25519:
		m.method = jwt.SigningMethodEdDSA
		if len(cfg.PrivateKey) > 0 {
			priv, err := decodeEdPrivate(cfg.PrivateKey)
			if err != nil {
				return nil, err
			}
			m.signKey = priv
		}
		if len(cfg.PublicKey) > 0 {
			pub, err := decodeEdPublic(cfg.PublicKey)
			if err != nil {
				return nil, err
			}
			m.verifyKey = pub
		}
		if m.verifyKey == nil && len(cfg.VerifyKeys) == 0 {
			return nil, errors.New("ed25519 requires public key or verify key set")
		}
		decode = func(raw []byte) (any, error) { return decodeEdPublic(raw) }
	default:
		return nil, errors.New("unsupported signing method")
	}

	if len(cfg.VerifyKeys) > 0 {
		m.byKid = make(map[string]any, len(cfg.VerifyKeys))
		for kid, raw := range cfg.VerifyKeys {
			kid = strings.TrimSpace(kid)
			if kid == "" {
				return nil, errors.New("verify key map contains empty kid")
			}
			key, err := decode(raw)
			if err != nil {
				return nil, fmt.Errorf("verify key %q: %w", kid, err)
			}
			m.byKid[kid] = key
		}
		if m.keyID != "" {
			if _, ok := m.byKid[m.keyID]; !ok {
				return nil, errors.New("KeyID is not present in VerifyKeys")
			}
		}
	}
	return m, nil
}

// TTL returns the configured token lifetime.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Sign fills unset registered claims and returns the signed token. Issued
// at and not before default to now, expiry to now plus ttl (the configured
// TTL when ttl <= 0), issuer and audience to the configured values.
func (m *Manager) Sign(claims *Claims, ttl time.Duration) (string, error) {
	if claims == nil {
		return "", errors.New("nil claims")
	}
	if m.signKey == nil {
		return "", ErrNoSigningKey
	}
	if ttl <= 0 {
		ttl = m.ttl
	}

	if claims.IssuedAt == nil {
		claims.IssuedAt = jwt.NewNumericDate(time.Now())
	}
	if claims.NotBefore == nil {
		claims.NotBefore = claims.IssuedAt
	}
	if claims.ExpiresAt == nil {
		claims.ExpiresAt = jwt.NewNumericDate(claims.IssuedAt.Add(ttl))
	}
	if claims.Issuer == "" {
		claims.Issuer = m.issuer
	}
	if m.audience != "" && len(claims.Audience) == 0 {
		claims.Audience = jwt.ClaimStrings{m.audience}
	}

	token := jwt.NewWithClaims(m.method, claims)
	if m.keyID != "" {
		token.Header["kid"] = m.keyID
	}
	return token.SignedString(m.signKey)
}

// Parse verifies tokenStr and decodes its claims.
func (m *Manager) Parse(tokenStr string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, m.keyFor)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenMalformed
	}
	if m.audience != "" && !slices.Contains(claims.Audience, m.audience) {
		return nil, ErrAudienceMismatch
	}
	return claims, nil
}

// keyFor selects the verification key by kid. With a kid set every token
// must name one of its keys; with only a KeyID the token must carry it.
func (m *Manager) keyFor(t *jwt.Token) (any, error) {
	kid, _ := t.Header["kid"].(string)
	if m.byKid != nil {
		key, ok := m.byKid[kid]
		if !ok {
			return nil, fmt.Errorf("unknown kid %q", kid)
		}
		return key, nil
	}
	if m.keyID != "" && kid != m.keyID {
		return nil, fmt.Errorf("unknown kid %q", kid)
	}
	if m.verifyKey == nil {
		return nil, errors.New("no verification key")
	}
	return m.verifyKey, nil
}

func decodeSecret(raw []byte) (any, error) {
	if len(raw) == 0 {
		return nil, errors.New("empty hs256 secret")
	}
	return bytes.Clone(raw), nil
}

// decodeEdPrivate accepts a raw 64-byte key or PKCS#8 PEM.
func decodeEdPrivate(raw []byte) (ed25519.PrivateKey, error) {
	if len(raw) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(bytes.Clone(raw)), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(raw)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	if priv, ok := parsed.(ed25519.PrivateKey); ok {
		return priv, nil
	}
	return nil, errors.New("invalid ed25519 private key type")
}

// decodeEdPublic accepts a raw 32-byte key or PKIX PEM.
func decodeEdPublic(raw []byte) (ed25519.PublicKey, error) {
	if len(raw) == ed25519.PublicKeySize {
		return ed25519.PublicKey(bytes.Clone(raw)), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(raw)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	if pub, ok := parsed.(ed25519.PublicKey); ok {
		return pub, nil
	}
	return nil, errors.New("invalid ed25519 public key type")
}
