package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/bimdev1/Cortex/pkg/models"
)

// SQLiteStore persists job records to a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path and prepares the
// schema. WAL mode keeps readers from blocking the orchestrator's writes.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// sqlite handles one writer at a time
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		provider_job_id TEXT,
		name TEXT NOT NULL,
		status TEXT NOT NULL,
		provider TEXT NOT NULL,
		configuration TEXT NOT NULL,
		estimated_cost REAL,
		actual_cost REAL,
		logs TEXT,
		error TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		started_at TIMESTAMP,
		completed_at TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
	CREATE INDEX IF NOT EXISTS idx_jobs_provider ON jobs(provider);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) CreateJob(job *models.Job) error {
	config, logs, err := marshalJobFields(job)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO jobs (id, provider_job_id, name, status, provider, configuration,
			estimated_cost, actual_cost, logs, error, created_at, updated_at, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.ProviderJobID, job.Name, job.Status, job.Provider, config,
		job.EstimatedCost, job.ActualCost, logs, job.Error,
		job.CreatedAt, job.UpdatedAt, job.StartedAt, job.CompletedAt)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetJob(id string) (*models.Job, error) {
	row := s.db.QueryRow(`
		SELECT id, provider_job_id, name, status, provider, configuration,
			estimated_cost, actual_cost, logs, error, created_at, updated_at, started_at, completed_at
		FROM jobs WHERE id = ?`, id)
	return scanJob(row)
}

func (s *SQLiteStore) UpdateJob(job *models.Job) error {
	config, logs, err := marshalJobFields(job)
	if err != nil {
		return err
	}
	result, err := s.db.Exec(`
		UPDATE jobs SET provider_job_id = ?, name = ?, status = ?, provider = ?, configuration = ?,
			estimated_cost = ?, actual_cost = ?, logs = ?, error = ?, updated_at = ?,
			started_at = ?, completed_at = ?
		WHERE id = ?`,
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

func (s *SQLiteStore) ListJobs() ([]*models.Job, error) {
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

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) HealthCheck() error {
	return s.db.Ping()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func marshalJobFields(job *models.Job) (config string, logs string, err error) {
	configBytes, err := json.Marshal(job.Configuration)
	if err != nil {
		return "", "", fmt.Errorf("marshal configuration: %w", err)
	}
	logBytes, err := json.Marshal(job.Logs)
	if err != nil {
		return "", "", fmt.Errorf("marshal logs: %w", err)
	}
	return string(configBytes), string(logBytes), nil
}

func scanJob(row rowScanner) (*models.Job, error) {
	var job models.Job
	var config, logs string
	var providerJobID, jobErr sql.NullString
	var startedAt, completedAt sql.NullTime
	var estimatedCost, actualCost sql.NullFloat64
	var createdAt, updatedAt time.Time

	err := row.Scan(&job.ID, &providerJobID, &job.Name, &job.Status, &job.Provider, &config,
		&estimatedCost, &actualCost, &logs, &jobErr, &createdAt, &updatedAt, &startedAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan job: %w", err)
	}

	if err := json.Unmarshal([]byte(config), &job.Configuration); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}
	if logs != "" {
		if err := json.Unmarshal([]byte(logs), &job.Logs); err != nil {
			return nil, fmt.Errorf("unmarshal logs: %w", err)
		}
	}

	job.ProviderJobID = providerJobID.String
	job.Error = jobErr.String
	job.EstimatedCost = estimatedCost.Float64
	job.ActualCost = actualCost.Float64
	job.CreatedAt = createdAt
	job.UpdatedAt = updatedAt
	if startedAt.Valid {
		t := startedAt.Time
		job.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		job.CompletedAt = &t
	}
	return &job, nil
}
