package security

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token is malformed, expired, carries
	// the wrong kind, or was signed with the wrong secret family.
	ErrInvalidToken = errors.New("invalid token")
)

const (
	tokenKindAccess  = "access"
	tokenKindRefresh = "refresh"
)

// AccessClaims holds JWT claims for the access token.
type AccessClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
	Kind string `json:"typ"`
}

// RefreshClaims holds JWT claims for the refresh token. The session id binds
// the token to its revocable session record.
type RefreshClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
	Kind      string `json:"typ"`
}

// TokenProvider issues and validates HS256 access and refresh JWTs. The two
// kinds are signed with independent secrets so compromise of one key family
// cannot forge the other kind.
type TokenProvider struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewTokenProvider returns a TokenProvider signing access tokens with
// accessSecret (lifetime accessTTL) and refresh tokens with refreshSecret
// (lifetime refreshTTL). The secrets must differ.
func NewTokenProvider(accessSecret, refreshSecret []byte, accessTTL, refreshTTL time.Duration) *TokenProvider {
	return &TokenProvider{
		accessSecret:  accessSecret,
		refreshSecret: refreshSecret,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

// IssueAccess issues a short-lived access JWT carrying the user id and role.
// Stateless; no session record is involved.
func (p *TokenProvider) IssueAccess(userID int64, role string) (token string, expiresAt time.Time, err error) {
	now := time.Now().UTC()
	expiresAt = now.Add(p.accessTTL)
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Role: role,
		Kind: tokenKindAccess,
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token, err = t.SignedString(p.accessSecret)
	return token, expiresAt, err
}

// IssueRefresh issues a long-lived refresh JWT bound to the given session id.
// The session record, not the token, is the unit of revocation.
func (p *TokenProvider) IssueRefresh(userID int64, sessionID string) (token string, expiresAt time.Time, err error) {
	now := time.Now().UTC()
	expiresAt = now.Add(p.refreshTTL)
	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		SessionID: sessionID,
		Kind:      tokenKindRefresh,
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token, err = t.SignedString(p.refreshSecret)
	return token, expiresAt, err
}

// ValidateAccess parses and validates an access token (signature, exp, kind).
// Returns the user id and role, or ErrInvalidToken.
func (p *TokenProvider) ValidateAccess(tokenString string) (userID int64, role string, err error) {
	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return p.accessSecret, nil
	})
	if err != nil {
		return 0, "", ErrInvalidToken
	}
	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return 0, "", ErrInvalidToken
	}
	if claims.Kind != tokenKindAccess {
		return 0, "", ErrInvalidToken
	}
	userID, err = strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, "", ErrInvalidToken
	}
	return userID, claims.Role, nil
}

// ValidateRefresh parses and validates a refresh token (signature, exp, kind).
// Returns the user id and session id, or ErrInvalidToken.
func (p *TokenProvider) ValidateRefresh(tokenString string) (userID int64, sessionID string, err error) {
	token, err := jwt.ParseWithClaims(tokenString, &RefreshClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return p.refreshSecret, nil
	})
	if err != nil {
		return 0, "", ErrInvalidToken
	}
	claims, ok := token.Claims.(*RefreshClaims)
	if !ok || !token.Valid {
		return 0, "", ErrInvalidToken
	}
	if claims.Kind != tokenKindRefresh {
		return 0, "", ErrInvalidToken
	}
	userID, err = strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, "", ErrInvalidToken
	}
	if claims.SessionID == "" {
		return 0, "", ErrInvalidToken
	}
	return userID, claims.SessionID, nil
}

// ExpiryOf extracts the exp claim without verifying the signature. Only used
// to stamp the session row's expiry at issuance; never for authorization.
func (p *TokenProvider) ExpiryOf(tokenString string) (time.Time, error) {
	token, _, err := jwt.NewParser().ParseUnverified(tokenString, &jwt.RegisteredClaims{})
	if err != nil {
		return time.Time{}, ErrInvalidToken
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.ExpiresAt == nil {
		return time.Time{}, ErrInvalidToken
	}
	return claims.ExpiresAt.Time, nil
}
