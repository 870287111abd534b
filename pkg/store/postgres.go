package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/bimdev1/Cortex/pkg/models"
)

// PostgresStore persists job records to PostgreSQL for multi-node
// deployments.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects to PostgreSQL and prepares the schema.
func NewPostgresStore(config Config) (*PostgresStore, error) {
	db, err := sql.Open("postgres", config.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}
	if config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(config.ConnMaxLifetime)
	} else {
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &PostgresStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		provider_job_id TEXT,
		name TEXT NOT NULL,
		status TEXT NOT NULL,
		provider TEXT NOT NULL,
		configuration JSONB NOT NULL,
		estimated_cost DOUBLE PRECISION,
		actual_cost DOUBLE PRECISION,
		logs JSONB,
		error TEXT,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		started_at TIMESTAMPTZ,
		completed_at TIMESTAMPTZ
	);
	CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
	CREATE INDEX IF NOT EXISTS idx_jobs_provider ON jobs(provider);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *PostgresStore) CreateJob(job *models.Job) error {
	config, logs, err := marshalJobFields(job)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO jobs (id, provider_job_id, name, status, provider, configuration,
			estimated_cost, actual_cost, logs, error, created_at, updated_at, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		job.ID, job.ProviderJobID, job.Name, job.Status, job.Provider, config,
		job.EstimatedCost, job.ActualCost, logs, job.Error,
		job.CreatedAt, job.UpdatedAt, job.StartedAt, job.CompletedAt)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetJob(id string) (*models.Job, error) {
	row := s.db.QueryRow(`
		SELECT id, provider_job_id, name, status, provider, configuration,
			estimated_cost, actual_cost, logs, error, created_at, updated_at, started_at, completed_at
		FROM jobs WHERE id = $1`, id)
	return scanJob(row)
}

func (s *PostgresStore) UpdateJob(job *models.Job) error {
	config, logs, err := marshalJobFields(job)
	if err != nil {
		return err
	}
	result, err := s.db.Exec(`
		UPDATE jobs SET provider_job_id = $1, name = $2, status = $3, provider = $4, configuration = $5,
			estimated_cost = $6, actual_cost = $7, logs = $8, error = $9, updated_at = $10,
			started_at = $11, completed_at = $12
		WHERE id = $13`,
		job.ProviderJobID, job.Name, job.Status, job.Provider, config,
		job.EstimatedCost, job.ActualCost, logs, job.Error, job.UpdatedAt,
		job.StartedAt, job.CompletedAt, job.ID)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrJobNotFound
	}
	return nil
}

func (s *PostgresStore) ListJobs() ([]*models.Job, error) {
	rows, err := s.db.Query(`
		SELECT id, provider_job_id, name, status, provider, configuration,
			estimated_cost, actual_cost, logs, error, created_at, updated_at, started_at, completed_at
		FROM jobs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) HealthCheck() error {
	return s.db.Ping()
}
