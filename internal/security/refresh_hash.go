package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// HashRefreshToken digests a refresh token with SHA-256 and hex-encodes the
// result. Session rows store this digest, never the raw token.
func HashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// RefreshTokenHashEqual reports whether the presented token digests to
// storedHash. The comparison is constant-time.
func RefreshTokenHashEqual(presented, storedHash string) bool {
	digest := HashRefreshToken(presented)
	return subtle.ConstantTimeCompare([]byte(digest), []byte(storedHash)) == 1
}
