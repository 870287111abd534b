package orchestrator

import (
	"errors"
	"fmt"

	"github.com/bimdev1/Cortex/pkg/store"
)

// ErrJobNotFound is returned when a job id does not resolve to a live or
// persisted record. The store's sentinel is reused so callers can match
// either layer with errors.Is.
var ErrJobNotFound = store.ErrJobNotFound

// ProviderOperationError wraps a failure of a provider call on behalf of
// a job.
type ProviderOperationError struct {
	Provider string
	Op       string
	Err      error
}

func (e *ProviderOperationError) Error() string {
	return fmt.Sprintf("provider %s: %s failed: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderOperationError) Unwrap() error { return e.Err }

// PersistenceError wraps a storage failure during an orchestration step.
type PersistenceError struct {
	JobID string
	Op    string
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s for job %s failed: %v", e.Op, e.JobID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func providerErr(provider, op string, err error) error {
	return &ProviderOperationError{Provider: provider, Op: op, Err: err}
}

func persistErr(jobID, op string, err error) error {
	if errors.Is(err, store.ErrJobNotFound) {
		return err
	}
	return &PersistenceError{JobID: jobID, Op: op, Err: err}
}
