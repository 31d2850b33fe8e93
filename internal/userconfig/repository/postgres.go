package repository

import (
	"context"
	"database/sql"
	"errors"

	"private-network-manager/backend/internal/userconfig/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a user-config repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const configColumns = `id, user_id, server_id, config_text, created_at`

func (r *PostgresRepository) Save(ctx context.Context, userID, serverID int64, configText string) (*domain.UserConfig, error) {
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO user_configs (user_id, server_id, config_text) VALUES ($1, $2, $3) RETURNING `+configColumns,
		userID, serverID, configText)
	return scanConfig(row)
}

func (r *PostgresRepository) LatestByUser(ctx context.Context, userID int64) (*domain.UserConfig, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+configColumns+` FROM user_configs WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1`,
		userID)
	return scanConfig(row)
}

func scanConfig(row *sql.Row) (*domain.UserConfig, error) {
	var c domain.UserConfig
	if err := row.Scan(&c.ID, &c.UserID, &c.ServerID, &c.ConfigText, &c.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}
