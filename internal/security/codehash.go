package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

// hkdfInfo binds derived keys to unlock-code hashing
const hkdfInfo = "hoctap unlock-code v1"

// CodeHasher produces keyed HMAC-SHA256 digests of short secrets such as
// unlock codes. One key is shared by the whole server.
type CodeHasher struct {
	key []byte
}

// NewCodeHasher derives the HMAC key from secret with HKDF-SHA256
func NewCodeHasher(secret string) (*CodeHasher, error) {
	if secret == "" {
		return nil, errors.New("code hashing secret is required")
	}
	key := make([]byte, sha256.Size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(hkdfInfo)), key); err != nil {
		return nil, err
	}
	return &CodeHasher{key: key}, nil
}

// Hash returns the lowercase hex digest of code
func (h *CodeHasher) Hash(code string) string {
	mac := hmac.New(sha256.New, h.key)
	mac.Write([]byte(code))
	return hex.EncodeToString(mac.Sum(nil))
}

// Matches reports whether code hashes to storedHash, in constant time
func (h *CodeHasher) Matches(code, storedHash string) bool {
	if storedHash == "" {
		return false
	}
	return hmac.Equal([]byte(h.Hash(code)), []byte(storedHash))
}
