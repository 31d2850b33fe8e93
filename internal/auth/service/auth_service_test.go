package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"private-network-manager/backend/internal/security"
	sessionrepo "private-network-manager/backend/internal/session/repository"
	userdomain "private-network-manager/backend/internal/user/domain"
	userrepo "private-network-manager/backend/internal/user/repository"
)

func newTestService(t *testing.T) (*AuthService, *userrepo.MemoryRepository, *sessionrepo.MemoryRepository) {
	t.Helper()
	users := userrepo.NewMemoryRepository()
	sessions := sessionrepo.NewMemoryRepository()
	hasher := security.NewHasher(4) // low cost keeps tests fast
	svc := NewAuthService(users, sessions, hasher, security.NewTestTokenProvider())
	return svc, users, sessions
}

func seedUser(t *testing.T, users *userrepo.MemoryRepository, email, password string, role userdomain.Role) *userdomain.User {
	t.Helper()
	hasher := security.NewHasher(4)
	hash, err := hasher.Hash([]byte(password))
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u, err := users.Create(context.Background(), &userdomain.User{
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func TestLogin_Success(t *testing.T) {
	svc, users, sessions := newTestService(t)
	u := seedUser(t, users, "admin@x.io", "Secret123!", userdomain.RoleAdmin)

	res, err := svc.Login(context.Background(), "admin@x.io", "Secret123!", ClientMeta{UserAgent: "test-agent", IPAddress: "10.0.0.1"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.AccessToken == "" || res.RefreshToken == "" {
		t.Fatal("Login returned empty tokens")
	}
	if res.User.ID != u.ID {
		t.Errorf("Login user id = %d, want %d", res.User.ID, u.ID)
	}

	uid, role, err := security.NewTestTokenProvider().ValidateAccess(res.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if uid != u.ID || role != "admin" {
		t.Errorf("access token claims: userID=%d role=%q", uid, role)
	}

	views, err := svc.ListSessions(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("sessions = %d, want 1", len(views))
	}
	if !views[0].IsActive {
		t.Error("new session should be active")
	}
	if views[0].UserAgent != "test-agent" || views[0].IPAddress != "10.0.0.1" {
		t.Errorf("session metadata = %q/%q", views[0].UserAgent, views[0].IPAddress)
	}

	// The stored hash must match the raw token and never equal it.
	stored, err := sessions.GetByID(context.Background(), views[0].ID)
	if err != nil || stored == nil {
		t.Fatalf("GetByID: %v %v", stored, err)
	}
	if stored.RefreshTokenHash == res.RefreshToken {
		t.Error("raw refresh token must not be stored")
	}
	if !security.RefreshTokenHashEqual(res.RefreshToken, stored.RefreshTokenHash) {
		t.Error("stored hash does not match refresh token")
	}
}

func TestLogin_UnknownUserAndWrongPasswordIndistinguishable(t *testing.T) {
	svc, users, _ := newTestService(t)
	seedUser(t, users, "user@x.io", "Secret123!", userdomain.RoleMember)

	_, errUnknown := svc.Login(context.Background(), "nobody@x.io", "Secret123!", ClientMeta{})
	_, errWrongPw := svc.Login(context.Background(), "user@x.io", "wrong-password", ClientMeta{})

	if !errors.Is(errUnknown, ErrInvalidCredentials) {
		t.Errorf("unknown user: want ErrInvalidCredentials, got %v", errUnknown)
	}
	if !errors.Is(errWrongPw, ErrInvalidCredentials) {
		t.Errorf("wrong password: want ErrInvalidCredentials, got %v", errWrongPw)
	}
}

func TestLogin_EmailNormalized(t *testing.T) {
	svc, users, _ := newTestService(t)
	seedUser(t, users, "user@x.io", "Secret123!", userdomain.RoleMember)

	if _, err := svc.Login(context.Background(), "  User@X.io ", "Secret123!", ClientMeta{}); err != nil {
		t.Fatalf("Login with unnormalized email: %v", err)
	}
}

func TestRefresh_SucceedsAndDoesNotRotate(t *testing.T) {
	svc, users, sessions := newTestService(t)
	u := seedUser(t, users, "user@x.io", "Secret123!", userdomain.RoleMember)

	res, err := svc.Login(context.Background(), "user@x.io", "Secret123!", ClientMeta{})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	views, _ := svc.ListSessions(context.Background(), u.ID)
	before, _ := sessions.GetByID(context.Background(), views[0].ID)

	access1, err := svc.Refresh(context.Background(), res.RefreshToken)
	if err != nil {
		t.Fatalf("first Refresh: %v", err)
	}
	access2, err := svc.Refresh(context.Background(), res.RefreshToken)
	if err != nil {
		t.Fatalf("second Refresh with same token: %v", err)
	}
	if access1 == "" || access2 == "" {
		t.Fatal("Refresh returned empty access token")
	}

	after, _ := sessions.GetByID(context.Background(), views[0].ID)
	if before.RefreshTokenHash != after.RefreshTokenHash {
		t.Error("refresh must not rotate the stored hash")
	}
	if after.RevokedAt != nil {
		t.Error("refresh must not revoke the session")
	}
	if !before.ExpiresAt.Equal(after.ExpiresAt) {
		t.Error("refresh must not change the session expiry")
	}
}

func TestRefresh_RevokedSessionRejected(t *testing.T) {
	svc, users, _ := newTestService(t)
	seedUser(t, users, "user@x.io", "Secret123!", userdomain.RoleMember)

	res, err := svc.Login(context.Background(), "user@x.io", "Secret123!", ClientMeta{})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := svc.Logout(context.Background(), res.RefreshToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	// The token itself is still structurally valid and unexpired.
	if _, _, err := security.NewTestTokenProvider().ValidateRefresh(res.RefreshToken); err != nil {
		t.Fatalf("token should still verify: %v", err)
	}
	if _, err := svc.Refresh(context.Background(), res.RefreshToken); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("Refresh after logout: want ErrInvalidSession, got %v", err)
	}
}

func TestRefresh_ExpiredSessionRejected(t *testing.T) {
	users := userrepo.NewMemoryRepository()
	sessions := sessionrepo.NewMemoryRepository()
	hasher := security.NewHasher(4)
	// Refresh tokens live for one millisecond so the session expires immediately.
	tokens := security.NewTokenProvider(
		[]byte("test-access-secret-0123456789ab"),
		[]byte("test-refresh-secret-0123456789a"),
		15*time.Minute, time.Millisecond)
	svc := NewAuthService(users, sessions, hasher, tokens)
	seedUser(t, users, "user@x.io", "Secret123!", userdomain.RoleMember)

	res, err := svc.Login(context.Background(), "user@x.io", "Secret123!", ClientMeta{})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	_, err = svc.Refresh(context.Background(), res.RefreshToken)
	// Either the token itself or the session record has expired; both are 401s.
	if !errors.Is(err, ErrInvalidToken) && !errors.Is(err, ErrInvalidSession) {
		t.Errorf("Refresh on expired session: got %v", err)
	}
}

func TestRefresh_TokenMismatchRejected(t *testing.T) {
	svc, users, sessions := newTestService(t)
	u := seedUser(t, users, "user@x.io", "Secret123!", userdomain.RoleMember)

	res, err := svc.Login(context.Background(), "user@x.io", "Secret123!", ClientMeta{})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	views, _ := svc.ListSessions(context.Background(), u.ID)

	// The session record no longer holds the hash of this token.
	stored, _ := sessions.GetByID(context.Background(), views[0].ID)
	stored.RefreshTokenHash = security.HashRefreshToken("some-other-token")
	if err := sessions.Create(context.Background(), stored); err != nil {
		t.Fatalf("rewrite session: %v", err)
	}

	if _, err := svc.Refresh(context.Background(), res.RefreshToken); !errors.Is(err, ErrTokenMismatch) {
		t.Errorf("stale token: want ErrTokenMismatch, got %v", err)
	}
}

func TestRefresh_UserMismatchRejected(t *testing.T) {
	svc, users, sessions := newTestService(t)
	u := seedUser(t, users, "user@x.io", "Secret123!", userdomain.RoleMember)
	other := seedUser(t, users, "other@x.io", "Secret123!", userdomain.RoleMember)

	res, err := svc.Login(context.Background(), "user@x.io", "Secret123!", ClientMeta{})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	views, _ := svc.ListSessions(context.Background(), u.ID)

	// Rebind the stored session to a different owner; the token's subject no
	// longer matches.
	stored, _ := sessions.GetByID(context.Background(), views[0].ID)
	stored.UserID = other.ID
	if err := sessions.Create(context.Background(), stored); err != nil {
		t.Fatalf("rewrite session: %v", err)
	}

	if _, err := svc.Refresh(context.Background(), res.RefreshToken); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("owner mismatch: want ErrInvalidSession, got %v", err)
	}
}

func TestRefresh_GarbageTokenRejected(t *testing.T) {
	svc, _, _ := newTestService(t)
	if _, err := svc.Refresh(context.Background(), "not-a-jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("garbage token: want ErrInvalidToken, got %v", err)
	}
	if _, err := svc.Refresh(context.Background(), ""); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("empty token: want ErrInvalidToken, got %v", err)
	}
}

func TestLogout_IdempotentAndSilent(t *testing.T) {
	svc, users, _ := newTestService(t)
	seedUser(t, users, "user@x.io", "Secret123!", userdomain.RoleMember)

	res, err := svc.Login(context.Background(), "user@x.io", "Secret123!", ClientMeta{})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := svc.Logout(context.Background(), res.RefreshToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if err := svc.Logout(context.Background(), res.RefreshToken); err != nil {
		t.Fatalf("second Logout: %v", err)
	}
	if err := svc.Logout(context.Background(), "garbage"); err != nil {
		t.Fatalf("Logout with malformed token: %v", err)
	}
	if err := svc.Logout(context.Background(), ""); err != nil {
		t.Fatalf("Logout with empty token: %v", err)
	}
}

func TestListSessions_NewestFirstWithActivityFlags(t *testing.T) {
	svc, users, _ := newTestService(t)
	u := seedUser(t, users, "user@x.io", "Secret123!", userdomain.RoleMember)

	first, err := svc.Login(context.Background(), "user@x.io", "Secret123!", ClientMeta{})
	if err != nil {
		t.Fatalf("first Login: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	if _, err := svc.Login(context.Background(), "user@x.io", "Secret123!", ClientMeta{}); err != nil {
		t.Fatalf("second Login: %v", err)
	}
	if err := svc.Logout(context.Background(), first.RefreshToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	views, err := svc.ListSessions(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("sessions = %d, want 2", len(views))
	}
	if !views[0].CreatedAt.After(views[1].CreatedAt) {
		t.Error("sessions not ordered newest first")
	}
	if !views[0].IsActive {
		t.Error("newest session should be active")
	}
	if views[1].IsActive {
		t.Error("logged-out session should be inactive")
	}
	if views[1].RevokedAt == nil {
		t.Error("logged-out session should have RevokedAt set")
	}
}
