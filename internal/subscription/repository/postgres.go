package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"private-network-manager/backend/internal/subscription/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a subscription repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const subscriptionColumns = `id, user_id, start_date, expiry_date, quota, created_at, updated_at`

func (r *PostgresRepository) Upsert(ctx context.Context, userID int64, start, expiry time.Time, quota int64) (*domain.Subscription, error) {
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO subscriptions (user_id, start_date, expiry_date, quota)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id) DO UPDATE
		 SET start_date = EXCLUDED.start_date, expiry_date = EXCLUDED.expiry_date,
		     quota = EXCLUDED.quota, updated_at = now()
		 RETURNING `+subscriptionColumns,
		userID, start, expiry, quota)
	return scanSubscription(row)
}

func (r *PostgresRepository) GetByUser(ctx context.Context, userID int64) (*domain.Subscription, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE user_id = $1`, userID)
	return scanSubscription(row)
}

func scanSubscription(row *sql.Row) (*domain.Subscription, error) {
	var s domain.Subscription
	if err := row.Scan(&s.ID, &s.UserID, &s.StartDate, &s.ExpiryDate, &s.Quota, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}
