package store

import (
	"errors"
	"time"

	"github.com/bimdev1/Cortex/pkg/models"
)

var (
	// ErrJobNotFound is returned when no job record exists for an id
	ErrJobNotFound = errors.New("job not found")

	// ErrUnsupportedDatabase is returned by NewStore for unknown Config.Type
	ErrUnsupportedDatabase = errors.New("unsupported database type")
)

// Store is the durable-storage contract consumed by the orchestrator.
// The orchestrator owns every job record; implementations only persist and
// return copies and never originate state transitions. Lookups are by id
// only.
type Store interface {
	CreateJob(job *models.Job) error
	GetJob(id string) (*models.Job, error)
	UpdateJob(job *models.Job) error
	ListJobs() ([]*models.Job, error)

	Close() error
	HealthCheck() error
}

// Config holds database configuration
type Config struct {
	Type string // "memory", "sqlite" or "postgres"
	DSN  string // connection string; file path for sqlite

	// PostgreSQL connection pool tuning
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewStore creates a store based on configuration
func NewStore(config Config) (Store, error) {
	switch config.Type {
	case "postgres", "postgresql":
		return NewPostgresStore(config)
	case "sqlite":
		path := config.DSN
		if path == "" {
			path = "cortex.db"
		}
		return NewSQLiteStore(path)
	case "memory", "":
		return NewMemoryStore(), nil
	default:
		return nil, ErrUnsupportedDatabase
	}
}
