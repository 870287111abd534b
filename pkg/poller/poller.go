// Package poller runs the background reconciliation loop that keeps job
// state converged with provider-reported truth.
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bimdev1/Cortex/pkg/metrics"
	"github.com/bimdev1/Cortex/pkg/models"
	"github.com/bimdev1/Cortex/pkg/orchestrator"
)

// perJobTimeout bounds a single status poll so one hung provider call
// cannot stall a pass indefinitely.
const perJobTimeout = 30 * time.Second

// Orchestrator is the slice of the job orchestrator the poller needs.
type Orchestrator interface {
	Active() []orchestrator.ActiveJob
	Poll(ctx context.Context, jobID string) (*models.Job, error)
}

// Status is a point-in-time view of the loop.
type Status struct {
	Running        bool  `json:"running"`
	ActiveJobs     int   `json:"active_jobs"`
	PollIntervalMS int64 `json:"poll_interval_ms"`
}

// Poller periodically refreshes every non-terminal job.
type Poller struct {
	orch     Orchestrator
	interval time.Duration
	logger   *zap.Logger
	metrics  *metrics.Collector

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	done    sync.WaitGroup
}

// New creates a poller. The interval must be strictly positive.
func New(orch Orchestrator, interval time.Duration, collector *metrics.Collector, logger *zap.Logger) (*Poller, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive, got %s", interval)
	}
	return &Poller{
		orch:     orch,
		interval: interval,
		logger:   logger,
		metrics:  collector,
	}, nil
}

// Start runs an immediate pass and schedules recurring passes. Calling
// Start on a running poller is a logged no-op.
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		p.logger.Warn("poller already running, ignoring start")
		return
	}
	p.running = true
	p.stopCh = make(chan struct{})

	p.done.Add(1)
	go p.loop(p.stopCh)

	p.logger.Info("poller started", zap.Duration("interval", p.interval))
}

func (p *Poller) loop(stopCh <-chan struct{}) {
	defer p.done.Done()

	p.pass()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			p.pass()
		}
	}
}

// Stop cancels the recurrence. It is idempotent and waits for an
// in-flight pass to finish rather than interrupting it.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	close(p.stopCh)
	p.running = false
	p.done.Wait()
	p.logger.Info("poller stopped")
}

// GetStatus returns the loop state without side effects.
func (p *Poller) GetStatus() Status {
	p.mu.Lock()
	running := p.running
	p.mu.Unlock()

	return Status{
		Running:        running,
		ActiveJobs:     len(p.orch.Active()),
		PollIntervalMS: p.interval.Milliseconds(),
	}
}

// pass polls every active job concurrently. One job's failure is logged
// and never delays or aborts the others.
func (p *Poller) pass() {
	start := time.Now()
	snapshot := p.orch.Active()

	var wg sync.WaitGroup
	for _, entry := range snapshot {
		if entry.Status.IsTerminal() {
			// Eviction should have removed it already; skip defensively.
			continue
		}
		wg.Add(1)
		go func(entry orchestrator.ActiveJob) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), perJobTimeout)
			defer cancel()

			if _, err := p.orch.Poll(ctx, entry.JobID); err != nil {
				if errors.Is(err, orchestrator.ErrJobNotFound) {
					// Evicted between snapshot and poll.
					return
				}
				p.logger.Warn("poll failed",
					zap.String("job_id", entry.JobID),
					zap.String("provider", entry.Provider),
					zap.Error(err))
			}
		}(entry)
	}
	wg.Wait()

	p.metrics.PollDuration.Observe(time.Since(start).Seconds())
}
