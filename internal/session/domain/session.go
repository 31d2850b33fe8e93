package domain

import "time"

// AuthSession is the durable record backing a refresh token's validity; the
// unit of revocation. Rows are never deleted (audit trail); revocation sets
// RevokedAt once and never clears it.
type AuthSession struct {
	ID               string // uuid, unguessable
	UserID           int64
	RefreshTokenHash string // SHA-256 of the current refresh token; never the raw token
	UserAgent        string // optional client metadata
	IPAddress        string // optional client metadata
	CreatedAt        time.Time
	ExpiresAt        time.Time
	RevokedAt        *time.Time // nil when not revoked
}

// Active reports whether the session can still back a refresh at the given
// instant: not revoked and not past expiry.
func (s *AuthSession) Active(now time.Time) bool {
	return s.RevokedAt == nil && s.ExpiresAt.After(now)
}
