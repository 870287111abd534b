// Package provider defines the uniform contract Cortex uses to talk to
// decentralized compute networks, together with the concrete network
// adapters and the registry that holds them.
package provider

import (
	"context"
	"errors"

	"github.com/bimdev1/Cortex/pkg/models"
)

var (
	// ErrNotConnected is returned when an operation requires an active
	// network connection and Connect has not succeeded yet
	ErrNotConnected = errors.New("provider not connected")

	// ErrNotImplemented is returned for operations a provider does not
	// support; callers should check Capabilities before invoking them
	ErrNotImplemented = errors.New("operation not implemented by provider")

	// ErrUnknownJob is returned when a provider has no record of the
	// referenced provider-side job id
	ErrUnknownJob = errors.New("unknown provider job id")

	// ErrProviderUnavailable is returned by the registry when no usable
	// provider is registered under the requested network name
	ErrProviderUnavailable = errors.New("provider unavailable")
)

// Capabilities declares which optional operations a provider supports.
// Core operations (submit, poll, cancel) are mandatory for registration.
type Capabilities struct {
	CostEstimation bool `json:"cost_estimation"`
	LogRetrieval   bool `json:"log_retrieval"`
	Refunds        bool `json:"refunds"`
}

// Provider is the adapter contract for a compute network. Implementations
// must be safe for concurrent use; every network-bound call takes a
// context and honors its deadline.
type Provider interface {
	// Name returns the network identifier, e.g. "akash"
	Name() string

	// Capabilities reports which optional operations this provider supports
	Capabilities() Capabilities

	// Connect establishes the network session. Calling Connect on an
	// already connected provider is a no-op.
	Connect(ctx context.Context) error

	// Disconnect tears the session down. Idempotent.
	Disconnect(ctx context.Context) error

	// IsConnected reports whether the session is active
	IsConnected() bool

	// SubmitJob places a workload on the network and returns the
	// provider-side job id and initial status
	SubmitJob(ctx context.Context, config *models.JobConfiguration) (*models.SubmissionResult, error)

	// PollStatus fetches the current state of a previously submitted job
	PollStatus(ctx context.Context, providerJobID string) (*models.StatusUpdate, error)

	// CancelJob stops a job on the network and reports any refund
	CancelJob(ctx context.Context, providerJobID string) (*models.CancellationResult, error)

	// GetNetworkStatus probes network health and pricing
	GetNetworkStatus(ctx context.Context) (*models.NetworkHealth, error)

	// EstimateCost prices a configuration without submitting it. Providers
	// without the CostEstimation capability return ErrNotImplemented.
	EstimateCost(ctx context.Context, config *models.JobConfiguration) (*models.CostEstimate, error)
}
