package repository

import (
	"context"
	"database/sql"
	"errors"

	"private-network-manager/backend/internal/user/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a user repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, email, password_hash, role, created_at`

// GetByID returns the user for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetByEmail returns the user with the given email, or nil if not found.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// Create inserts the user and returns it with the database-assigned id and
// creation time.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO users (email, password_hash, role) VALUES ($1, $2, $3) RETURNING `+userColumns,
		u.Email, u.PasswordHash, string(u.Role))
	return scanUser(row)
}

// Update changes email and/or role for the given user. Returns the updated
// user, or nil if no row matched.
func (r *PostgresRepository) Update(ctx context.Context, id int64, email *string, role *domain.Role) (*domain.User, error) {
	var roleStr *string
	if role != nil {
		s := string(*role)
		roleStr = &s
	}
	row := r.db.QueryRowContext(ctx,
		`UPDATE users SET email = COALESCE($2, email), role = COALESCE($3, role) WHERE id = $1 RETURNING `+userColumns,
		id, email, roleStr)
	return scanUser(row)
}

// List returns all users ordered by id.
func (r *PostgresRepository) List(ctx context.Context) ([]*domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.User
	for rows.Next() {
		var u domain.User
		var role string
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &role, &u.CreatedAt); err != nil {
			return nil, err
		}
		u.Role = domain.Role(role)
		out = append(out, &u)
	}
	return out, rows.Err()
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var u domain.User
	var role string
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &role, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	u.Role = domain.Role(role)
	return &u, nil
}
