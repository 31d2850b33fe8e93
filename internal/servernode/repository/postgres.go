package repository

import (
	"context"
	"database/sql"
	"errors"

	"private-network-manager/backend/internal/servernode/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a server-node repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const serverColumns = `id, ip, region, status, failover_enabled, created_at, updated_at`

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*domain.ServerNode, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+serverColumns+` FROM servers WHERE id = $1`, id)
	return scanServer(row)
}

func (r *PostgresRepository) FirstOnline(ctx context.Context) (*domain.ServerNode, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+serverColumns+` FROM servers WHERE status = 'online' ORDER BY id LIMIT 1`)
	return scanServer(row)
}

func (r *PostgresRepository) Create(ctx context.Context, s *domain.ServerNode) (*domain.ServerNode, error) {
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO servers (ip, region, status, failover_enabled) VALUES ($1, $2, $3, $4) RETURNING `+serverColumns,
		s.IP, s.Region, string(s.Status), s.FailoverEnabled)
	return scanServer(row)
}

func (r *PostgresRepository) List(ctx context.Context) ([]*domain.ServerNode, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+serverColumns+` FROM servers ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.ServerNode
	for rows.Next() {
		var s domain.ServerNode
		var status string
		if err := rows.Scan(&s.ID, &s.IP, &s.Region, &status, &s.FailoverEnabled, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		s.Status = domain.Status(status)
		out = append(out, &s)
	}
	return out, rows.Err()
}

func scanServer(row *sql.Row) (*domain.ServerNode, error) {
	var s domain.ServerNode
	var status string
	if err := row.Scan(&s.ID, &s.IP, &s.Region, &status, &s.FailoverEnabled, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	s.Status = domain.Status(status)
	return &s, nil
}
