// Package postgres implements the job store on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/codescribe-ai/codescribe/pkg/interfaces"
)

// Store persists jobs in a PostgreSQL database.
type Store struct {
	db *sql.DB
}

// NewStore opens a connection and ensures the jobs table exists
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS jobs (
		id          TEXT PRIMARY KEY,
		mode        TEXT NOT NULL,
		status      TEXT NOT NULL,
		input_path  TEXT NOT NULL DEFAULT '',
		output_path TEXT NOT NULL DEFAULT '',
		error       TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS jobs_created_at_idx ON jobs (created_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateJob stores a new job
func (s *Store) CreateJob(ctx context.Context, job *interfaces.Job) error {
	if job.ID == "" {
		return fmt.Errorf("job ID is required")
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO jobs (id, mode, status, input_path, output_path, error)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		job.ID, job.Mode, job.Status, job.InputPath, job.OutputPath, job.Error,
	)
	if err := row.Scan(&job.CreatedAt, &job.UpdatedAt); err != nil {
		return fmt.Errorf("failed to insert job %s: %w", job.ID, err)
	}

	return nil
}

// GetJob retrieves a job by ID
func (s *Store) GetJob(ctx context.Context, id string) (*interfaces.Job, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, mode, status, input_path, output_path, error, created_at, updated_at
		FROM jobs WHERE id = $1`, id)

	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("job %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load job %s: %w", id, err)
	}

	return job, nil
}

// UpdateJob updates an existing job
func (s *Store) UpdateJob(ctx context.Context, job *interfaces.Job) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE jobs
		SET mode = $2, status = $3, input_path = $4, output_path = $5, error = $6, updated_at = now()
		WHERE id = $1`,
		job.ID, job.Mode, job.Status, job.InputPath, job.OutputPath, job.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to update job %s: %w", job.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("job %s not found", job.ID)
	}

	return nil
}

// ListJobs returns the most recent jobs, newest first
func (s *Store) ListJobs(ctx context.Context, limit int) ([]*interfaces.Job, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, mode, status, input_path, output_path, error, created_at, updated_at
		FROM jobs ORDER BY created_at DESC, id ASC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*interfaces.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row scanner) (*interfaces.Job, error) {
	var job interfaces.Job
	err := row.Scan(
		&job.ID, &job.Mode, &job.Status,
		&job.InputPath, &job.OutputPath, &job.Error,
		&job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &job, nil
}
