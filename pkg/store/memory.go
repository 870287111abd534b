package store

import (
	"sync"

	"github.com/bimdev1/Cortex/pkg/models"
)

// MemoryStore keeps job records in process memory. It backs tests and
// single-node deployments that do not need durability.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*models.Job
}

// NewMemoryStore creates an in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs: make(map[string]*models.Job),
	}
}

func (s *MemoryStore) CreateJob(job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = copyJob(job)
	return nil
}

func (s *MemoryStore) GetJob(id string) (*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return copyJob(job), nil
}

func (s *MemoryStore) UpdateJob(job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; !ok {
		return ErrJobNotFound
	}
	s.jobs[job.ID] = copyJob(job)
	return nil
}

func (s *MemoryStore) ListJobs() ([]*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	jobs := make([]*models.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, copyJob(job))
	}
	return jobs, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) HealthCheck() error {
	return nil
}

// copyJob returns a deep copy so callers cannot mutate stored records.
func copyJob(job *models.Job) *models.Job {
	c := *job
	if job.Configuration.Env != nil {
		c.Configuration.Env = make(map[string]string, len(job.Configuration.Env))
		for k, v := range job.Configuration.Env {
			c.Configuration.Env[k] = v
		}
	}
	if job.Configuration.Ports != nil {
		c.Configuration.Ports = append([]models.PortMapping(nil), job.Configuration.Ports...)
	}
	if job.Logs != nil {
		c.Logs = append([]string(nil), job.Logs...)
	}
	if job.StartedAt != nil {
		t := *job.StartedAt
		c.StartedAt = &t
	}
	if job.CompletedAt != nil {
		t := *job.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}
