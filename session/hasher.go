package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"hash"
)

// Hasher derives the one-way binding hashes stored in session claims. The
// same Hasher must be used at issuance and validation.
//
// With a key it computes HMAC-SHA256, otherwise plain SHA-256. Output is
// lowercase hex. An empty input hashes to the empty string, meaning
// "absent".
type Hasher struct {
	key []byte
}

// NewHasher returns a Hasher. key may be nil.
func NewHasher(key []byte) Hasher {
	if len(key) == 0 {
		return Hasher{}
	}
	k := make([]byte, len(key))
	copy(k, key)
	return Hasher{key: k}
}

// Keyed reports whether the hasher uses HMAC.
func (h Hasher) Keyed() bool {
	return len(h.key) > 0
}

// Hash returns the hex digest of raw.
func (h Hasher) Hash(raw string) string {
	if raw == "" {
		return ""
	}
	var mac hash.Hash
	if h.Keyed() {
		mac = hmac.New(sha256.New, h.key)
	} else {
		mac = sha256.New()
	}
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}

// Matches reports whether raw hashes to stored, in constant time.
func (h Hasher) Matches(stored, raw string) bool {
	if stored == "" || raw == "" {
		return false
	}
	computed := h.Hash(raw)
	return subtle.ConstantTimeCompare([]byte(stored), []byte(computed)) == 1
}
