package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"private-network-manager/backend/internal/provision/domain"
)

const jobColumns = `id, user_id, server_id, triggered_by, state, attempts, max_attempts,
	last_error, next_attempt_at, lease_expires_at, created_at, updated_at`

// PostgresStore persists provisioning jobs in the provision_jobs table. Claim
// uses FOR UPDATE SKIP LOCKED so concurrent workers never lease the same row.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore returns a job store backed by the given db.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, job *domain.Job) error {
	lastErr := sql.NullString{String: job.LastError, Valid: job.LastError != ""}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO provision_jobs (`+jobColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		job.ID, job.UserID, job.ServerID, job.TriggeredBy, job.State,
		job.Attempts, job.MaxAttempts, lastErr,
		job.NextAttemptAt, job.LeaseExpires, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("append job: %w", err)
	}
	return nil
}

// Claim leases the oldest ready job inside a transaction. Ready means pending
// with a due next_attempt_at, or active with a lapsed lease (crashed worker).
func (s *PostgresStore) Claim(ctx context.Context, now time.Time, lease time.Duration) (*domain.Job, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("claim job: begin: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM provision_jobs
		 WHERE (state = 'pending' AND next_attempt_at <= $1)
		    OR (state = 'active' AND lease_expires_at <= $1)
		 ORDER BY created_at
		 LIMIT 1
		 FOR UPDATE SKIP LOCKED`, now)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("claim job: select: %w", err)
	}

	job.State = domain.StateActive
	job.Attempts++
	job.LeaseExpires = now.Add(lease)
	job.UpdatedAt = now
	_, err = tx.ExecContext(ctx,
		`UPDATE provision_jobs
		 SET state = $2, attempts = $3, lease_expires_at = $4, updated_at = $5
		 WHERE id = $1`,
		job.ID, job.State, job.Attempts, job.LeaseExpires, job.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("claim job: update: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("claim job: commit: %w", err)
	}
	return job, nil
}

func (s *PostgresStore) Complete(ctx context.Context, jobID string) error {
	return s.exec(ctx, "complete job",
		`UPDATE provision_jobs
		 SET state = 'completed', last_error = NULL, updated_at = now()
		 WHERE id = $1`, jobID)
}

func (s *PostgresStore) Fail(ctx context.Context, jobID string, reason string, nextAttemptAt time.Time) error {
	return s.exec(ctx, "fail job",
		`UPDATE provision_jobs
		 SET state = 'pending', last_error = $2, next_attempt_at = $3, updated_at = now()
		 WHERE id = $1`, jobID, reason, nextAttemptAt)
}

func (s *PostgresStore) MarkDead(ctx context.Context, jobID string, reason string) error {
	return s.exec(ctx, "mark job dead",
		`UPDATE provision_jobs
		 SET state = 'failed', last_error = $2, updated_at = now()
		 WHERE id = $1`, jobID, reason)
}

// Trim keeps the newest terminal jobs per state and deletes the rest.
func (s *PostgresStore) Trim(ctx context.Context, keepCompleted, keepFailed int) error {
	for _, p := range []struct {
		state domain.State
		keep  int
	}{
		{domain.StateCompleted, keepCompleted},
		{domain.StateFailed, keepFailed},
	} {
		_, err := s.db.ExecContext(ctx,
			`DELETE FROM provision_jobs
			 WHERE state = $1 AND id NOT IN (
			   SELECT id FROM provision_jobs
			   WHERE state = $1
			   ORDER BY updated_at DESC
			   LIMIT $2
			 )`, p.state, p.keep)
		if err != nil {
			return fmt.Errorf("trim %s jobs: %w", p.state, err)
		}
	}
	return nil
}

func (s *PostgresStore) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM provision_jobs WHERE id = $1`, jobID)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

func (s *PostgresStore) ListRecent(ctx context.Context, state domain.State, limit int32) ([]*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM provision_jobs`
	args := []interface{}{}
	if state != "" {
		query += ` WHERE state = $1`
		args = append(args, state)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d`, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []*domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("list jobs: %w", err)
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

func (s *PostgresStore) exec(ctx context.Context, op, query string, args ...interface{}) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: no such job", op)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*domain.Job, error) {
	var j domain.Job
	var lastErr sql.NullString
	if err := row.Scan(&j.ID, &j.UserID, &j.ServerID, &j.TriggeredBy, &j.State,
		&j.Attempts, &j.MaxAttempts, &lastErr,
		&j.NextAttemptAt, &j.LeaseExpires, &j.CreatedAt, &j.UpdatedAt); err != nil {
		return nil, err
	}
	if lastErr.Valid {
		j.LastError = lastErr.String
	}
	return &j, nil
}
