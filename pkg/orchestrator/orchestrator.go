// Package orchestrator owns the job lifecycle: it validates submissions,
// drives provider calls, persists every transition, and maintains the
// in-memory index of non-terminal jobs that the reconciliation loop
// works from.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bimdev1/Cortex/pkg/events"
	"github.com/bimdev1/Cortex/pkg/metrics"
	"github.com/bimdev1/Cortex/pkg/models"
	"github.com/bimdev1/Cortex/pkg/provider"
	"github.com/bimdev1/Cortex/pkg/store"
)

// ActiveJob is an index entry for a job in a non-terminal state.
type ActiveJob struct {
	JobID         string
	Provider      string
	ProviderJobID string
	Status        models.JobStatus
}

// JobUpdate carries the mutable fields of a job record. Status changes
// must follow the lifecycle state machine; terminal states are final.
type JobUpdate struct {
	Name       *string           `json:"name,omitempty"`
	Status     *models.JobStatus `json:"status,omitempty"`
	ActualCost *float64          `json:"actual_cost,omitempty"`
}

// Orchestrator coordinates providers, storage and eventing for jobs.
type Orchestrator struct {
	store    store.Store
	registry *provider.Registry
	bus      *events.Bus
	logger   *zap.Logger
	metrics  *metrics.Collector

	// indexMu guards active only; provider and store calls never run
	// while it is held
	indexMu sync.RWMutex
	active  map[string]*ActiveJob

	// locksMu guards jobLocks; each job's mutex serializes all
	// operations touching that job id
	locksMu  sync.Mutex
	jobLocks map[string]*sync.Mutex

	now func() time.Time
}

// New creates an orchestrator
func New(s store.Store, registry *provider.Registry, bus *events.Bus, collector *metrics.Collector, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		store:    s,
		registry: registry,
		bus:      bus,
		logger:   logger,
		metrics:  collector,
		active:   make(map[string]*ActiveJob),
		jobLocks: make(map[string]*sync.Mutex),
		now:      time.Now,
	}
}

// lockJob returns the mutex serializing operations for one job id.
func (o *Orchestrator) lockJob(jobID string) *sync.Mutex {
	o.locksMu.Lock()
	defer o.locksMu.Unlock()
	mu, ok := o.jobLocks[jobID]
	if !ok {
		mu = &sync.Mutex{}
		o.jobLocks[jobID] = mu
	}
	return mu
}

func (o *Orchestrator) releaseJobLock(jobID string) {
	o.locksMu.Lock()
	defer o.locksMu.Unlock()
	delete(o.jobLocks, jobID)
}

// Submit validates the request, submits the workload to the named
// provider, persists the accepted job and indexes it for reconciliation.
func (o *Orchestrator) Submit(ctx context.Context, req *models.JobRequest) (*models.Job, error) {
	if req.Name == "" {
		return nil, &models.ValidationError{Field: "name", Message: "must not be empty"}
	}
	if req.Provider == "" {
		return nil, &models.ValidationError{Field: "provider", Message: "must not be empty"}
	}
	if err := req.Configuration.Validate(); err != nil {
		return nil, err
	}

	p, err := o.registry.Get(req.Provider)
	if err != nil {
		return nil, err
	}

	result, err := p.SubmitJob(ctx, &req.Configuration)
	if err != nil {
		o.metrics.ProviderErrors.WithLabelValues(req.Provider, "submit").Inc()
		return nil, providerErr(req.Provider, "submit", err)
	}

	now := o.now()
	job := &models.Job{
		ID:            uuid.NewString(),
		ProviderJobID: result.ProviderJobID,
		Name:          req.Name,
		Status:        result.Status,
		Provider:      req.Provider,
		Configuration: req.Configuration,
		EstimatedCost: result.EstimatedCost,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := o.store.CreateJob(job); err != nil {
		// The workload is live on the provider but we cannot track it.
		// Best effort teardown, then surface the storage failure.
		o.logger.Error("persist failed after provider accepted job, cancelling",
			zap.String("provider", req.Provider),
			zap.String("provider_job_id", result.ProviderJobID),
			zap.Error(err))
		if _, cerr := p.CancelJob(ctx, result.ProviderJobID); cerr != nil {
			o.logger.Error("orphan teardown failed",
				zap.String("provider_job_id", result.ProviderJobID),
				zap.Error(cerr))
		}
		return nil, persistErr(job.ID, "create", err)
	}

	// The per-job lock is held through the publish so a reconciliation
	// pass that sees the fresh index entry cannot emit a status change
	// ahead of the creation event.
	mu := o.lockJob(job.ID)
	mu.Lock()
	o.indexMu.Lock()
	o.active[job.ID] = &ActiveJob{
		JobID:         job.ID,
		Provider:      job.Provider,
		ProviderJobID: job.ProviderJobID,
		Status:        job.Status,
	}
	o.metrics.ActiveJobs.Set(float64(len(o.active)))
	o.indexMu.Unlock()

	o.metrics.JobsSubmitted.WithLabelValues(req.Provider).Inc()
	o.bus.Publish(events.JobCreated{JobID: job.ID, Provider: job.Provider, Status: job.Status})
	mu.Unlock()

	o.logger.Info("job submitted",
		zap.String("job_id", job.ID),
		zap.String("provider", job.Provider),
		zap.String("provider_job_id", job.ProviderJobID))

	return job, nil
}

// Poll refreshes one job from its provider and persists any transition.
// Jobs absent from the active index report ErrJobNotFound even when a
// terminal record persists; terminal jobs are off the poll surface.
func (o *Orchestrator) Poll(ctx context.Context, jobID string) (*models.Job, error) {
	mu := o.lockJob(jobID)
	mu.Lock()
	defer mu.Unlock()

	o.indexMu.RLock()
	entry, indexed := o.active[jobID]
	var snapshot ActiveJob
	if indexed {
		snapshot = *entry
	}
	o.indexMu.RUnlock()

	if !indexed {
		o.releaseJobLock(jobID)
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}

	p, err := o.registry.Get(snapshot.Provider)
	if err != nil {
		return nil, err
	}

	update, err := p.PollStatus(ctx, snapshot.ProviderJobID)
	if err != nil {
		o.metrics.ProviderErrors.WithLabelValues(snapshot.Provider, "poll_status").Inc()
		return nil, providerErr(snapshot.Provider, "poll_status", err)
	}

	job, err := o.store.GetJob(jobID)
	if err != nil {
		return nil, persistErr(jobID, "get", err)
	}

	if update.Status == job.Status {
		// No transition, but the provider may still have reported new
		// log lines, a cost figure or an error alongside the same
		// status. Those land in storage; only transitions emit events.
		if o.applyDelta(job, update) {
			if err := o.store.UpdateJob(job); err != nil {
				return nil, persistErr(jobID, "update", err)
			}
		}
		return job, nil
	}

	if job.Status.IsTerminal() {
		// The provider disagrees with a state we already finalized.
		// Keep the terminal record authoritative.
		o.logger.Warn("provider reported transition out of terminal state, ignoring",
			zap.String("job_id", jobID),
			zap.String("recorded", string(job.Status)),
			zap.String("reported", string(update.Status)))
		return job, nil
	}

	oldStatus := job.Status
	o.applyUpdate(job, update)

	if err := o.store.UpdateJob(job); err != nil {
		return nil, persistErr(jobID, "update", err)
	}

	if job.Status.IsTerminal() {
		o.evict(jobID)
		o.countTerminal(job.Status)
	} else {
		o.indexMu.Lock()
		if e, ok := o.active[jobID]; ok {
			e.Status = job.Status
		}
		o.indexMu.Unlock()
	}

	o.bus.Publish(events.JobStatusChanged{
		JobID:     jobID,
		OldStatus: oldStatus,
		NewStatus: job.Status,
		Logs:      update.Logs,
	})

	o.logger.Info("job status changed",
		zap.String("job_id", jobID),
		zap.String("old_status", string(oldStatus)),
		zap.String("new_status", string(job.Status)))

	return job, nil
}

// applyUpdate folds a provider status update into the job record.
func (o *Orchestrator) applyUpdate(job *models.Job, update *models.StatusUpdate) {
	now := o.now()
	if update.Status == models.JobStatusRunning && job.StartedAt == nil {
		started := now
		job.StartedAt = &started
	}
	job.Status = update.Status
	o.applyDelta(job, update)
	if update.CompletedAt != nil {
		job.CompletedAt = update.CompletedAt
	} else if update.Status.IsTerminal() {
		completed := now
		job.CompletedAt = &completed
	}
	job.UpdatedAt = now
}

// applyDelta folds the non-status fields of a provider update into the
// job record and reports whether anything changed. UpdatedAt is stamped
// only on a change.
func (o *Orchestrator) applyDelta(job *models.Job, update *models.StatusUpdate) bool {
	changed := false
	if merged, ok := mergeLogs(job.Logs, update.Logs); ok {
		job.Logs = merged
		changed = true
	}
	if update.Error != "" && update.Error != job.Error {
		job.Error = update.Error
		changed = true
	}
	if update.ActualCost > 0 && update.ActualCost != job.ActualCost {
		job.ActualCost = update.ActualCost
		changed = true
	}
	if changed {
		job.UpdatedAt = o.now()
	}
	return changed
}

// mergeLogs appends reported log lines the record does not already hold.
// Providers replay a snapshot of recent lines on every poll, so the same
// line showing up twice is a repeat, not new output.
func mergeLogs(existing, reported []string) ([]string, bool) {
	if len(reported) == 0 {
		return existing, false
	}
	seen := make(map[string]struct{}, len(existing))
	for _, line := range existing {
		seen[line] = struct{}{}
	}
	changed := false
	for _, line := range reported {
		if _, ok := seen[line]; ok {
			continue
		}
		existing = append(existing, line)
		seen[line] = struct{}{}
		changed = true
	}
	return existing, changed
}

// Cancel stops a non-terminal job on its provider and records the
// cancellation. Terminal and unknown jobs report ErrJobNotFound.
func (o *Orchestrator) Cancel(ctx context.Context, jobID string) (*models.Job, error) {
	mu := o.lockJob(jobID)
	mu.Lock()
	defer mu.Unlock()

	o.indexMu.RLock()
	entry, indexed := o.active[jobID]
	var snapshot ActiveJob
	if indexed {
		snapshot = *entry
	}
	o.indexMu.RUnlock()

	if !indexed {
		o.releaseJobLock(jobID)
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}

	p, err := o.registry.Get(snapshot.Provider)
	if err != nil {
		return nil, err
	}

	result, err := p.CancelJob(ctx, snapshot.ProviderJobID)
	if err != nil {
		o.metrics.ProviderErrors.WithLabelValues(snapshot.Provider, "cancel").Inc()
		return nil, providerErr(snapshot.Provider, "cancel", err)
	}
	if !result.Cancelled {
		return nil, providerErr(snapshot.Provider, "cancel", errors.New("cancellation refused"))
	}

	job, err := o.store.GetJob(jobID)
	if err != nil {
		return nil, persistErr(jobID, "get", err)
	}

	oldStatus := job.Status
	now := o.now()
	job.Status = models.JobStatusCancelled
	job.UpdatedAt = now
	completed := now
	job.CompletedAt = &completed
	if result.Refund > 0 && job.EstimatedCost > 0 {
		job.ActualCost = job.EstimatedCost - result.Refund
	}

	if err := o.store.UpdateJob(job); err != nil {
		return nil, persistErr(jobID, "update", err)
	}

	o.evict(jobID)
	o.metrics.JobsCancelled.Inc()

	o.bus.Publish(events.JobStatusChanged{JobID: jobID, OldStatus: oldStatus, NewStatus: job.Status})
	o.bus.Publish(events.JobCancelled{JobID: jobID, Refund: result.Refund})

	o.logger.Info("job cancelled",
		zap.String("job_id", jobID),
		zap.Float64("refund", result.Refund))

	return job, nil
}

// Delete cancels the job and confirms removal by id. Jobs that already
// reached a terminal state are gone from the active index and report
// ErrJobNotFound.
func (o *Orchestrator) Delete(ctx context.Context, jobID string) (string, error) {
	if _, err := o.Cancel(ctx, jobID); err != nil {
		return "", err
	}
	return jobID, nil
}

// Get returns the persisted record for a job id.
func (o *Orchestrator) Get(ctx context.Context, jobID string) (*models.Job, error) {
	job, err := o.store.GetJob(jobID)
	if err != nil {
		return nil, persistErr(jobID, "get", err)
	}
	return job, nil
}

// List returns all persisted jobs.
func (o *Orchestrator) List(ctx context.Context) ([]*models.Job, error) {
	jobs, err := o.store.ListJobs()
	if err != nil {
		return nil, &PersistenceError{Op: "list", Err: err}
	}
	return jobs, nil
}

// Update applies mutable fields to a job record. A status change is
// validated against the state machine and, when it lands on a terminal
// state, evicts the job from the active index.
func (o *Orchestrator) Update(ctx context.Context, jobID string, update JobUpdate) (*models.Job, error) {
	mu := o.lockJob(jobID)
	mu.Lock()
	defer mu.Unlock()

	job, err := o.store.GetJob(jobID)
	if err != nil {
		if errors.Is(err, store.ErrJobNotFound) {
			o.releaseJobLock(jobID)
		}
		return nil, persistErr(jobID, "get", err)
	}

	if update.Name != nil {
		if *update.Name == "" {
			return nil, &models.ValidationError{Field: "name", Message: "must not be empty"}
		}
		job.Name = *update.Name
	}
	if update.ActualCost != nil {
		if *update.ActualCost < 0 {
			return nil, &models.ValidationError{Field: "actual_cost", Message: "must not be negative"}
		}
		job.ActualCost = *update.ActualCost
	}

	oldStatus := job.Status
	statusChanged := false
	if update.Status != nil && *update.Status != job.Status {
		if !update.Status.IsValid() {
			return nil, &models.ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", *update.Status)}
		}
		if job.Status.IsTerminal() {
			return nil, &models.ValidationError{Field: "status", Message: fmt.Sprintf("job is already %s", job.Status)}
		}
		job.Status = *update.Status
		statusChanged = true
		if job.Status.IsTerminal() && job.CompletedAt == nil {
			completed := o.now()
			job.CompletedAt = &completed
		}
	}
	job.UpdatedAt = o.now()

	if err := o.store.UpdateJob(job); err != nil {
		return nil, persistErr(jobID, "update", err)
	}

	if statusChanged {
		if job.Status.IsTerminal() {
			o.evict(jobID)
			o.countTerminal(job.Status)
		} else {
			o.indexMu.Lock()
			if e, ok := o.active[jobID]; ok {
				e.Status = job.Status
			}
			o.indexMu.Unlock()
		}
		o.bus.Publish(events.JobStatusChanged{JobID: jobID, OldStatus: oldStatus, NewStatus: job.Status})
	}
	return job, nil
}

// Active returns a snapshot of the non-terminal job index.
func (o *Orchestrator) Active() []ActiveJob {
	o.indexMu.RLock()
	defer o.indexMu.RUnlock()

	jobs := make([]ActiveJob, 0, len(o.active))
	for _, entry := range o.active {
		jobs = append(jobs, *entry)
	}
	return jobs
}

// Restore rebuilds the active index from storage after a restart.
func (o *Orchestrator) Restore(ctx context.Context) error {
	jobs, err := o.store.ListJobs()
	if err != nil {
		return &PersistenceError{Op: "list", Err: err}
	}

	o.indexMu.Lock()
	defer o.indexMu.Unlock()

	restored := 0
	for _, job := range jobs {
		if job.Status.IsTerminal() {
			continue
		}
		o.active[job.ID] = &ActiveJob{
			JobID:         job.ID,
			Provider:      job.Provider,
			ProviderJobID: job.ProviderJobID,
			Status:        job.Status,
		}
		restored++
	}
	o.metrics.ActiveJobs.Set(float64(len(o.active)))

	if restored > 0 {
		o.logger.Info("restored active jobs from storage", zap.Int("count", restored))
	}
	return nil
}

func (o *Orchestrator) evict(jobID string) {
	o.indexMu.Lock()
	delete(o.active, jobID)
	o.metrics.ActiveJobs.Set(float64(len(o.active)))
	o.indexMu.Unlock()
	o.releaseJobLock(jobID)
}

func (o *Orchestrator) countTerminal(status models.JobStatus) {
	switch status {
	case models.JobStatusCompleted:
		o.metrics.JobsCompleted.Inc()
	case models.JobStatusFailed:
		o.metrics.JobsFailed.Inc()
	case models.JobStatusCancelled:
		o.metrics.JobsCancelled.Inc()
	}
}
