package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"private-network-manager/backend/internal/session/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const sessionColumns = `id, user_id, refresh_token_hash, user_agent, ip_address, created_at, expires_at, revoked_at`

// Create persists the session. The session must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.AuthSession) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO auth_sessions (id, user_id, refresh_token_hash, user_agent, ip_address, created_at, expires_at, revoked_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.ID, s.UserID, s.RefreshTokenHash,
		sql.NullString{String: s.UserAgent, Valid: s.UserAgent != ""},
		sql.NullString{String: s.IPAddress, Valid: s.IPAddress != ""},
		s.CreatedAt, s.ExpiresAt, timeToNullTime(s.RevokedAt))
	return err
}

// GetByID returns the session for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.AuthSession, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM auth_sessions WHERE id = $1`, id)
	s, err := scanSession(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// ListByUser returns all sessions for the user, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64) ([]*domain.AuthSession, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM auth_sessions WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.AuthSession
	for rows.Next() {
		s, err := scanSession(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Revoke marks the session as revoked. The WHERE clause keeps the first
// revocation time when two revokes race.
func (r *PostgresRepository) Revoke(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE auth_sessions SET revoked_at = $2 WHERE id = $1 AND revoked_at IS NULL`,
		id, time.Now().UTC())
	return err
}

func scanSession(scan func(...any) error) (*domain.AuthSession, error) {
	var s domain.AuthSession
	var userAgent, ipAddress sql.NullString
	var revokedAt sql.NullTime
	if err := scan(&s.ID, &s.UserID, &s.RefreshTokenHash, &userAgent, &ipAddress, &s.CreatedAt, &s.ExpiresAt, &revokedAt); err != nil {
		return nil, err
	}
	if userAgent.Valid {
		s.UserAgent = userAgent.String
	}
	if ipAddress.Valid {
		s.IPAddress = ipAddress.String
	}
	s.RevokedAt = nullTimeToPtr(revokedAt)
	return &s, nil
}

func timeToNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullTimeToPtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	return &n.Time
}
