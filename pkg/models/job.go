package models

import (
	"time"
)

// JobStatus represents the lifecycle state of a compute job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// IsTerminal reports whether the status permits no further transitions
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// IsValid reports whether the status is one of the known lifecycle states
func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusPending, JobStatusRunning, JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// Job represents a workload submitted to a decentralized compute network
type Job struct {
	ID            string           `json:"id"`
	ProviderJobID string           `json:"provider_job_id,omitempty"`
	Name          string           `json:"name"`
	Status        JobStatus        `json:"status"`
	Provider      string           `json:"provider"`
	Configuration JobConfiguration `json:"configuration"`
	EstimatedCost float64          `json:"estimated_cost"`
	ActualCost    float64          `json:"actual_cost,omitempty"`
	Logs          []string         `json:"logs,omitempty"`
	Error         string           `json:"error,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
	StartedAt     *time.Time       `json:"started_at,omitempty"`
	CompletedAt   *time.Time       `json:"completed_at,omitempty"`
}

// JobConfiguration describes the container workload to run.
// Immutable once submitted.
type JobConfiguration struct {
	Image    string            `json:"image"`
	CPU      int               `json:"cpu"` // millicores
	Memory   string            `json:"memory"` // e.g. "512Mi", "2Gi"
	Storage  string            `json:"storage,omitempty"`
	Env      map[string]string `json:"env,omitempty"`
	Ports    []PortMapping     `json:"ports,omitempty"`
	Duration int               `json:"duration,omitempty"` // seconds
}

// PortMapping exposes a container port on the provider network
type PortMapping struct {
	ContainerPort int    `json:"container_port"`
	Protocol      string `json:"protocol"` // "TCP" or "UDP"
	Expose        bool   `json:"expose,omitempty"`
}

// JobRequest is the request body for creating a new job
type JobRequest struct {
	Name          string           `json:"name,omitempty"`
	Provider      string           `json:"provider"`
	Configuration JobConfiguration `json:"configuration"`
}

// SubmissionResult is returned by a provider after accepting a job
type SubmissionResult struct {
	ProviderJobID string    `json:"provider_job_id"`
	Status        JobStatus `json:"status"`
	EstimatedCost float64   `json:"estimated_cost"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// StatusUpdate is the provider-reported truth for a single job
type StatusUpdate struct {
	ProviderJobID string     `json:"provider_job_id"`
	Status        JobStatus  `json:"status"`
	Logs          []string   `json:"logs,omitempty"`
	Error         string     `json:"error,omitempty"`
	ActualCost    float64    `json:"actual_cost,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// CancellationResult reports the outcome of a provider-side cancellation
type CancellationResult struct {
	ProviderJobID string  `json:"provider_job_id"`
	Cancelled     bool    `json:"cancelled"`
	Refund        float64 `json:"refund,omitempty"`
}

// CostEstimate is a price quote for a configuration at current network rates
type CostEstimate struct {
	Estimated float64            `json:"estimated"`
	Currency  string             `json:"currency"`
	Breakdown map[string]float64 `json:"breakdown,omitempty"`
}

// Network health states reported by providers
const (
	NetworkOnline   = "online"
	NetworkOffline  = "offline"
	NetworkDegraded = "degraded"
)

// NetworkHealth is a point-in-time snapshot of a provider network
type NetworkHealth struct {
	Status         string    `json:"status"` // online, offline, degraded
	Latency        int64     `json:"latency"` // milliseconds
	AvailableNodes int       `json:"available_nodes"`
	CurrentPrice   float64   `json:"current_price"`
	LastChecked    time.Time `json:"last_checked"`
}
