package provider

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/bimdev1/Cortex/pkg/models"
)

// Registry holds the configured providers keyed by network name.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	logger    *zap.Logger
}

// NewRegistry creates an empty provider registry
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		providers: make(map[string]Provider),
		logger:    logger,
	}
}

// Register adds a provider under its network name. Registering the same
// name twice is an error; construct-time validation has already rejected
// malformed configs, so anything that reaches here is usable.
func (r *Registry) Register(p Provider) error {
	if p == nil {
		return fmt.Errorf("register: nil provider")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	name := p.Name()
	if _, exists := r.providers[name]; exists {
		return fmt.Errorf("register: provider %q already registered", name)
	}
	r.providers[name] = p
	r.logger.Info("provider registered", zap.String("provider", name))
	return nil
}

// Get returns the provider for a network name, or ErrProviderUnavailable
// when no provider is registered under it.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderUnavailable, name)
	}
	return p, nil
}

// Names returns the registered network names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}

// ConnectAll connects every registered provider. A provider that fails to
// connect stays registered but disconnected; the failure is logged and
// does not stop the others.
func (r *Registry) ConnectAll(ctx context.Context) {
	r.mu.RLock()
	providers := make([]Provider, 0, len(r.providers))
	for _, p := range r.providers {
		providers = append(providers, p)
	}
	r.mu.RUnlock()

	for _, p := range providers {
		if err := p.Connect(ctx); err != nil {
			r.logger.Error("provider connect failed",
				zap.String("provider", p.Name()),
				zap.Error(err))
		}
	}
}

// DisconnectAll disconnects every registered provider.
func (r *Registry) DisconnectAll(ctx context.Context) {
	r.mu.RLock()
	providers := make([]Provider, 0, len(r.providers))
	for _, p := range r.providers {
		providers = append(providers, p)
	}
	r.mu.RUnlock()

	for _, p := range providers {
		if err := p.Disconnect(ctx); err != nil {
			r.logger.Error("provider disconnect failed",
				zap.String("provider", p.Name()),
				zap.Error(err))
		}
	}
}

// ProviderStatus pairs a provider's connection state with its most
// recent network health probe.
type ProviderStatus struct {
	Connected bool                  `json:"connected"`
	Health    *models.NetworkHealth `json:"health"`
}

// Status probes every provider concurrently and reports connectivity
// alongside network health by name. A probe failure yields an offline
// health entry; the connected flag still reflects the session state.
func (r *Registry) Status(ctx context.Context) map[string]*ProviderStatus {
	r.mu.RLock()
	providers := make([]Provider, 0, len(r.providers))
	for _, p := range r.providers {
		providers = append(providers, p)
	}
	r.mu.RUnlock()

	results := make(map[string]*ProviderStatus, len(providers))
	var wg sync.WaitGroup
	var resultMu sync.Mutex

	for _, p := range providers {
		wg.Add(1)
		go func(p Provider) {
			defer wg.Done()
			health, err := p.GetNetworkStatus(ctx)
			if err != nil {
				r.logger.Warn("network status probe failed",
					zap.String("provider", p.Name()),
					zap.Error(err))
				health = &models.NetworkHealth{Status: models.NetworkOffline}
			}
			resultMu.Lock()
			results[p.Name()] = &ProviderStatus{Connected: p.IsConnected(), Health: health}
			resultMu.Unlock()
		}(p)
	}
	wg.Wait()

	return results
}

// NetworkStatus returns the health portion of Status by network name.
func (r *Registry) NetworkStatus(ctx context.Context) map[string]*models.NetworkHealth {
	statuses := r.Status(ctx)
	results := make(map[string]*models.NetworkHealth, len(statuses))
	for name, status := range statuses {
		results[name] = status.Health
	}
	return results
}
