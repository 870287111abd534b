package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/bimdev1/Cortex/pkg/metrics"
	"github.com/bimdev1/Cortex/pkg/models"
	"github.com/bimdev1/Cortex/pkg/orchestrator"
)

// fakeOrchestrator records which job ids get polled.
type fakeOrchestrator struct {
	mu      sync.Mutex
	active  []orchestrator.ActiveJob
	polled  map[string]int
	failIDs map[string]error
}

func newFakeOrchestrator(active ...orchestrator.ActiveJob) *fakeOrchestrator {
	return &fakeOrchestrator{
		active:  active,
		polled:  make(map[string]int),
		failIDs: make(map[string]error),
	}
}

func (f *fakeOrchestrator) Active() []orchestrator.ActiveJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]orchestrator.ActiveJob(nil), f.active...)
}

func (f *fakeOrchestrator) Poll(ctx context.Context, jobID string) (*models.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polled[jobID]++
	if err, ok := f.failIDs[jobID]; ok {
		return nil, err
	}
	return &models.Job{ID: jobID, Status: models.JobStatusRunning}, nil
}

func (f *fakeOrchestrator) pollCount(jobID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polled[jobID]
}

func entry(id string) orchestrator.ActiveJob {
	return orchestrator.ActiveJob{JobID: id, Provider: "akash", ProviderJobID: "p-" + id, Status: models.JobStatusRunning}
}

func newTestPoller(t *testing.T, orch Orchestrator, interval time.Duration) *Poller {
	t.Helper()
	p, err := New(orch, interval, metrics.NewNopCollector(), zap.NewNop())
	if err != nil {
		t.Fatalf("new poller: %v", err)
	}
	return p
}

func TestNewRejectsNonPositiveInterval(t *testing.T) {
	orch := newFakeOrchestrator()
	for _, interval := range []time.Duration{0, -time.Second} {
		if _, err := New(orch, interval, metrics.NewNopCollector(), zap.NewNop()); err == nil {
			t.Errorf("expected error for interval %s", interval)
		}
	}
}

func TestStartRunsImmediatePass(t *testing.T) {
	orch := newFakeOrchestrator(entry("a"), entry("b"))
	p := newTestPoller(t, orch, time.Hour)

	p.Start()
	defer p.Stop()

	deadline := time.After(time.Second)
	for orch.pollCount("a") == 0 || orch.pollCount("b") == 0 {
		select {
		case <-deadline:
			t.Fatal("immediate pass did not poll all active jobs")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestStartWhileRunningIsNoOp(t *testing.T) {
	orch := newFakeOrchestrator()
	p := newTestPoller(t, orch, time.Hour)

	p.Start()
	defer p.Stop()
	p.Start()

	if !p.GetStatus().Running {
		t.Error("poller should remain running")
	}
}

func TestRecurringPasses(t *testing.T) {
	orch := newFakeOrchestrator(entry("a"))
	p := newTestPoller(t, orch, 10*time.Millisecond)

	p.Start()
	defer p.Stop()

	deadline := time.After(time.Second)
	for orch.pollCount("a") < 3 {
		select {
		case <-deadline:
			t.Fatalf("expected recurring passes, got %d polls", orch.pollCount("a"))
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestFanOutIsolation(t *testing.T) {
	orch := newFakeOrchestrator(entry("a"), entry("b"), entry("c"), entry("d"), entry("e"))
	orch.failIDs["c"] = errors.New("provider rpc timeout")
	p := newTestPoller(t, orch, time.Hour)

	p.Start()
	defer p.Stop()

	deadline := time.After(time.Second)
	for _, id := range []string{"a", "b", "d", "e"} {
		for orch.pollCount(id) == 0 {
			select {
			case <-deadline:
				t.Fatalf("job %s was not polled despite another job failing", id)
			case <-time.After(5 * time.Millisecond):
			}
		}
	}
}

func TestTerminalEntriesAreSkipped(t *testing.T) {
	terminal := entry("done")
	terminal.Status = models.JobStatusCompleted
	orch := newFakeOrchestrator(terminal, entry("live"))
	p := newTestPoller(t, orch, time.Hour)

	p.Start()
	defer p.Stop()

	deadline := time.After(time.Second)
	for orch.pollCount("live") == 0 {
		select {
		case <-deadline:
			t.Fatal("live job was not polled")
		case <-time.After(5 * time.Millisecond):
		}
	}
	if orch.pollCount("done") != 0 {
		t.Error("terminal entry must not be polled")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	orch := newFakeOrchestrator(entry("a"))
	p := newTestPoller(t, orch, 5*time.Millisecond)

	p.Start()
	p.Stop()
	p.Stop()

	status := p.GetStatus()
	if status.Running {
		t.Error("expected running=false after stop")
	}

	// No further passes are scheduled once Stop returns.
	count := orch.pollCount("a")
	time.Sleep(30 * time.Millisecond)
	if orch.pollCount("a") != count {
		t.Error("pass ran after Stop returned")
	}
}

func TestGetStatus(t *testing.T) {
	orch := newFakeOrchestrator(entry("a"), entry("b"))
	p := newTestPoller(t, orch, 250*time.Millisecond)

	status := p.GetStatus()
	if status.Running {
		t.Error("expected running=false before start")
	}
	if status.ActiveJobs != 2 {
		t.Errorf("expected 2 active jobs, got %d", status.ActiveJobs)
	}
	if status.PollIntervalMS != 250 {
		t.Errorf("expected 250ms interval, got %d", status.PollIntervalMS)
	}

	p.Start()
	defer p.Stop()
	if !p.GetStatus().Running {
		t.Error("expected running=true after start")
	}
}
