package security

import "time"

// Test secrets for unit tests only. Do not use in production.
const (
	testAccessSecret  = "test-access-secret-0123456789ab"
	testRefreshSecret = "test-refresh-secret-0123456789a"
)

// NewTestTokenProvider returns a TokenProvider using fixed test secrets with a
// 15m access TTL and 24h refresh TTL. For unit tests only.
func NewTestTokenProvider() *TokenProvider {
	return NewTokenProvider([]byte(testAccessSecret), []byte(testRefreshSecret), 15*time.Minute, 24*time.Hour)
}
