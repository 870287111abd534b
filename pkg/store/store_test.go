package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bimdev1/Cortex/pkg/models"
)

func testJob(id string) *models.Job {
	now := time.Now().UTC().Truncate(time.Second)
	return &models.Job{
		ID:       id,
		Name:     "render-batch",
		Status:   models.JobStatusPending,
		Provider: "akash",
		Configuration: models.JobConfiguration{
			Image:  "nginx:latest",
			CPU:    500,
			Memory: "512Mi",
			Env:    map[string]string{"MODE": "batch"},
			Ports: []models.PortMapping{
				{ContainerPort: 80, Protocol: "TCP", Expose: true},
			},
			Duration: 3600,
		},
		EstimatedCost: 0.1524,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// runStoreSuite exercises the Store contract against any implementation.
func runStoreSuite(t *testing.T, s Store) {
	t.Run("GetMissingJob", func(t *testing.T) {
		_, err := s.GetJob("no-such-id")
		assert.ErrorIs(t, err, ErrJobNotFound)
	})

	t.Run("CreateAndGet", func(t *testing.T) {
		job := testJob("job-1")
		require.NoError(t, s.CreateJob(job))

		got, err := s.GetJob("job-1")
		require.NoError(t, err)
		assert.Equal(t, job.ID, got.ID)
		assert.Equal(t, job.Name, got.Name)
		assert.Equal(t, models.JobStatusPending, got.Status)
		assert.Equal(t, job.Configuration.Image, got.Configuration.Image)
		assert.Equal(t, job.Configuration.Env, got.Configuration.Env)
		assert.Len(t, got.Configuration.Ports, 1)
		assert.InDelta(t, job.EstimatedCost, got.EstimatedCost, 1e-9)
	})

	t.Run("UpdateJob", func(t *testing.T) {
		job, err := s.GetJob("job-1")
		require.NoError(t, err)

		started := time.Now().UTC().Truncate(time.Second)
		job.Status = models.JobStatusRunning
		job.ProviderJobID = "akash-deploy-42"
		job.Logs = []string{"deployment created", "lease active"}
		job.StartedAt = &started
		job.UpdatedAt = started
		require.NoError(t, s.UpdateJob(job))

		got, err := s.GetJob("job-1")
		require.NoError(t, err)
		assert.Equal(t, models.JobStatusRunning, got.Status)
		assert.Equal(t, "akash-deploy-42", got.ProviderJobID)
		assert.Equal(t, []string{"deployment created", "lease active"}, got.Logs)
		require.NotNil(t, got.StartedAt)
	})

	t.Run("UpdateMissingJob", func(t *testing.T) {
		job := testJob("never-created")
		assert.ErrorIs(t, s.UpdateJob(job), ErrJobNotFound)
	})

	t.Run("ListJobs", func(t *testing.T) {
		require.NoError(t, s.CreateJob(testJob("job-2")))

		jobs, err := s.ListJobs()
		require.NoError(t, err)
		assert.Len(t, jobs, 2)
	})

	t.Run("HealthCheck", func(t *testing.T) {
		assert.NoError(t, s.HealthCheck())
	})
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	runStoreSuite(t, s)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	job := testJob("copy-check")
	require.NoError(t, s.CreateJob(job))

	got, err := s.GetJob("copy-check")
	require.NoError(t, err)
	got.Status = models.JobStatusFailed
	got.Configuration.Env["MODE"] = "tampered"

	fresh, err := s.GetJob("copy-check")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPending, fresh.Status)
	assert.Equal(t, "batch", fresh.Configuration.Env["MODE"])
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cortex.db")
	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()
	runStoreSuite(t, s)
}

func TestNewStoreFactory(t *testing.T) {
	t.Run("Memory", func(t *testing.T) {
		s, err := NewStore(Config{Type: "memory"})
		require.NoError(t, err)
		defer s.Close()
		_, ok := s.(*MemoryStore)
		assert.True(t, ok)
	})

	t.Run("DefaultsToMemory", func(t *testing.T) {
		s, err := NewStore(Config{})
		require.NoError(t, err)
		defer s.Close()
		_, ok := s.(*MemoryStore)
		assert.True(t, ok)
	})

	t.Run("SQLite", func(t *testing.T) {
		s, err := NewStore(Config{Type: "sqlite", DSN: filepath.Join(t.TempDir(), "f.db")})
		require.NoError(t, err)
		defer s.Close()
		_, ok := s.(*SQLiteStore)
		assert.True(t, ok)
	})

	t.Run("Unknown", func(t *testing.T) {
		_, err := NewStore(Config{Type: "cassandra"})
		assert.ErrorIs(t, err, ErrUnsupportedDatabase)
	})
}
