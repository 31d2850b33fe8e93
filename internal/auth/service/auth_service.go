package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"private-network-manager/backend/internal/security"
	sessiondomain "private-network-manager/backend/internal/session/domain"
	userdomain "private-network-manager/backend/internal/user/domain"
)

// Sentinel errors for the auth service; the handler maps all of them to 401 so
// callers cannot tell which check failed.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrInvalidSession     = errors.New("session not found, revoked, or expired")
	ErrTokenMismatch      = errors.New("refresh token does not match session")
)

// UserRepo is the minimal user repository needed by the auth service.
type UserRepo interface {
	GetByID(ctx context.Context, id int64) (*userdomain.User, error)
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
}

// SessionRepo is the minimal session repository needed by the auth service.
type SessionRepo interface {
	Create(ctx context.Context, s *sessiondomain.AuthSession) error
	GetByID(ctx context.Context, id string) (*sessiondomain.AuthSession, error)
	ListByUser(ctx context.Context, userID int64) ([]*sessiondomain.AuthSession, error)
	Revoke(ctx context.Context, id string) error
}

// ClientMeta carries optional request metadata recorded on the session.
type ClientMeta struct {
	UserAgent string
	IPAddress string
}

// LoginResult holds the outcome of a successful Login.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	User         *userdomain.User
}

// SessionView is a session annotated with its read-time activity flag.
type SessionView struct {
	ID        string
	UserAgent string
	IPAddress string
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
	IsActive  bool
}

// AuthService implements login, refresh, logout, and session enumeration. A
// refresh token is valid only while its session record is unrevoked and
// unexpired; the session record, not the token, is the unit of revocation.
type AuthService struct {
	userRepo    UserRepo
	sessionRepo SessionRepo
	hasher      *security.Hasher
	tokens      *security.TokenProvider
}

// NewAuthService returns an AuthService with the given dependencies.
func NewAuthService(userRepo UserRepo, sessionRepo SessionRepo, hasher *security.Hasher, tokens *security.TokenProvider) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		hasher:      hasher,
		tokens:      tokens,
	}
}

// Login authenticates with email/password, creates a session, and returns
// both tokens. A missing user and a wrong password both return
// ErrInvalidCredentials so callers cannot enumerate accounts. The session row
// stores the SHA-256 of the refresh token and the token's own expiry; the raw
// refresh token is never persisted.
func (s *AuthService) Login(ctx context.Context, email, password string, meta ClientMeta) (*LoginResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(user.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	sessionID := uuid.New().String()
	refreshToken, _, err := s.tokens.IssueRefresh(user.ID, sessionID)
	if err != nil {
		return nil, err
	}
	expiresAt, err := s.tokens.ExpiryOf(refreshToken)
	if err != nil {
		return nil, err
	}
	sess := &sessiondomain.AuthSession{
		ID:               sessionID,
		UserID:           user.ID,
		RefreshTokenHash: security.HashRefreshToken(refreshToken),
		UserAgent:        meta.UserAgent,
		IPAddress:        meta.IPAddress,
		CreatedAt:        time.Now().UTC(),
		ExpiresAt:        expiresAt,
	}
	if err := s.sessionRepo.Create(ctx, sess); err != nil {
		return nil, err
	}

	accessToken, _, err := s.tokens.IssueAccess(user.ID, string(user.Role))
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
	}, nil
}

// Refresh validates the refresh token against its session and returns a fresh
// access token. The session row is not mutated and the refresh token is not
// rotated: the same token keeps working until the session is revoked or expires.
func (s *AuthService) Refresh(ctx context.Context, rawRefreshToken string) (string, error) {
	if rawRefreshToken == "" {
		return "", ErrInvalidToken
	}
	userID, sessionID, err := s.tokens.ValidateRefresh(rawRefreshToken)
	if err != nil {
		return "", ErrInvalidToken
	}
	sess, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if sess == nil || !sess.Active(time.Now().UTC()) {
		return "", ErrInvalidSession
	}
	if sess.UserID != userID {
		return "", ErrInvalidSession
	}
	if !security.RefreshTokenHashEqual(rawRefreshToken, sess.RefreshTokenHash) {
		return "", ErrTokenMismatch
	}
	user, err := s.userRepo.GetByID(ctx, sess.UserID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", ErrInvalidSession
	}
	accessToken, _, err := s.tokens.IssueAccess(user.ID, string(user.Role))
	if err != nil {
		return "", err
	}
	return accessToken, nil
}

// Logout revokes the session referenced by the refresh token. Best-effort and
// idempotent: a malformed, expired, or already-revoked token still returns nil.
func (s *AuthService) Logout(ctx context.Context, rawRefreshToken string) error {
	_, sessionID, err := s.tokens.ValidateRefresh(rawRefreshToken)
	if err != nil {
		return nil
	}
	if err := s.sessionRepo.Revoke(ctx, sessionID); err != nil {
		log.Printf("auth: logout revoke session %s: %v", sessionID, err)
	}
	return nil
}

// ListSessions returns all of the user's sessions, newest first, each with an
// IsActive flag computed at read time.
func (s *AuthService) ListSessions(ctx context.Context, userID int64) ([]SessionView, error) {
	sessions, err := s.sessionRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	out := make([]SessionView, len(sessions))
	for i, sess := range sessions {
		out[i] = SessionView{
			ID:        sess.ID,
			UserAgent: sess.UserAgent,
			IPAddress: sess.IPAddress,
			CreatedAt: sess.CreatedAt,
			ExpiresAt: sess.ExpiresAt,
			RevokedAt: sess.RevokedAt,
			IsActive:  sess.Active(now),
		}
	}
	return out, nil
}
