package authflow

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

const verificationTokenBytes = 32

// GenerateVerificationToken returns a fresh emailable token and the hash to
// store. Only the hash ever reaches the Store.
func GenerateVerificationToken() (raw string, hash string, err error) {
	buf := make([]byte, verificationTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("failed to generate verification token: %w", err)
	}
	raw = base64.RawURLEncoding.EncodeToString(buf)
	return raw, HashVerificationToken(raw), nil
}

// HashVerificationToken hashes a raw token for storage or lookup.
func HashVerificationToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
