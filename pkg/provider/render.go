package provider

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bimdev1/Cortex/pkg/models"
)

// RenderProvider is the adapter for the Render network. Only connection
// management and health probing are wired so far; job operations report
// ErrNotImplemented until the Render deployment API integration lands.
type RenderProvider struct {
	config RenderConfig
	logger *zap.Logger

	mu        sync.RWMutex
	connected bool
}

func NewRenderProvider(config RenderConfig, logger *zap.Logger) (*RenderProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &RenderProvider{config: config, logger: logger}, nil
}

func (p *RenderProvider) Name() string { return "render" }

func (p *RenderProvider) Capabilities() Capabilities {
	return Capabilities{}
}

func (p *RenderProvider) Connect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.connected {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	p.connected = true
	p.logger.Info("connected to render network", zap.String("api_endpoint", p.config.APIEndpoint))
	return nil
}

func (p *RenderProvider) Disconnect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = false
	return nil
}

func (p *RenderProvider) IsConnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.connected
}

func (p *RenderProvider) SubmitJob(ctx context.Context, config *models.JobConfiguration) (*models.SubmissionResult, error) {
	if !p.IsConnected() {
		return nil, ErrNotConnected
	}
	return nil, ErrNotImplemented
}

func (p *RenderProvider) PollStatus(ctx context.Context, providerJobID string) (*models.StatusUpdate, error) {
	if !p.IsConnected() {
		return nil, ErrNotConnected
	}
	return nil, ErrNotImplemented
}

func (p *RenderProvider) CancelJob(ctx context.Context, providerJobID string) (*models.CancellationResult, error) {
	if !p.IsConnected() {
		return nil, ErrNotConnected
	}
	return nil, ErrNotImplemented
}

func (p *RenderProvider) GetNetworkStatus(ctx context.Context) (*models.NetworkHealth, error) {
	status := models.NetworkOffline
	if p.IsConnected() {
		status = models.NetworkDegraded
	}
	return &models.NetworkHealth{
		Status:      status,
		LastChecked: time.Now(),
	}, nil
}

func (p *RenderProvider) EstimateCost(ctx context.Context, config *models.JobConfiguration) (*models.CostEstimate, error) {
	return nil, ErrNotImplemented
}
