package provider

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bimdev1/Cortex/pkg/models"
)

func validAkashConfig() AkashConfig {
	return AkashConfig{
		RPCEndpoint:    "https://rpc.akashnet.net:443",
		APIEndpoint:    "https://api.akashnet.net:443",
		ChainID:        "akashnet-2",
		DefaultTimeout: 5 * time.Second,
	}
}

func newTestAkash(t *testing.T) (*AkashProvider, *time.Time) {
	t.Helper()
	p, err := NewAkashProvider(validAkashConfig(), testLogger())
	require.NoError(t, err)

	clock := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return clock }
	require.NoError(t, p.Connect(context.Background()))
	return p, &clock
}

func TestNewAkashProviderRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*AkashConfig)
	}{
		{"MissingRPC", func(c *AkashConfig) { c.RPCEndpoint = "" }},
		{"MalformedRPC", func(c *AkashConfig) { c.RPCEndpoint = "not a url" }},
		{"MissingChainID", func(c *AkashConfig) { c.ChainID = "" }},
		{"NegativeTimeout", func(c *AkashConfig) { c.DefaultTimeout = -time.Second }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validAkashConfig()
			tc.mutate(&cfg)
			_, err := NewAkashProvider(cfg, testLogger())
			assert.Error(t, err)
		})
	}
}

func TestAkashRequiresConnection(t *testing.T) {
	p, err := NewAkashProvider(validAkashConfig(), testLogger())
	require.NoError(t, err)

	ctx := context.Background()
	_, err = p.SubmitJob(ctx, &models.JobConfiguration{Image: "nginx", CPU: 100, Memory: "128Mi"})
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = p.PollStatus(ctx, "akash-xyz")
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = p.CancelJob(ctx, "akash-xyz")
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestAkashDeploymentLifecycle(t *testing.T) {
	p, clock := newTestAkash(t)
	ctx := context.Background()

	config := &models.JobConfiguration{
		Image:    "nginx:latest",
		CPU:      500,
		Memory:   "512Mi",
		Duration: 3600,
	}

	result, err := p.SubmitJob(ctx, config)
	require.NoError(t, err)
	assert.NotEmpty(t, result.ProviderJobID)
	assert.Equal(t, models.JobStatusPending, result.Status)
	assert.Greater(t, result.EstimatedCost, 0.0)

	// Still bidding right after submission.
	update, err := p.PollStatus(ctx, result.ProviderJobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPending, update.Status)

	// Lease goes active once the startup window passes.
	*clock = clock.Add(10 * time.Second)
	update, err = p.PollStatus(ctx, result.ProviderJobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusRunning, update.Status)
	assert.NotEmpty(t, update.Logs)

	// Lease closes after the configured duration.
	*clock = clock.Add(2 * time.Hour)
	update, err = p.PollStatus(ctx, result.ProviderJobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, update.Status)
	assert.InDelta(t, result.EstimatedCost, update.ActualCost, 1e-9)
	require.NotNil(t, update.CompletedAt)
}

func TestAkashCancelRefundsUnusedLease(t *testing.T) {
	p, clock := newTestAkash(t)
	ctx := context.Background()

	config := &models.JobConfiguration{Image: "worker", CPU: 1000, Memory: "1Gi", Duration: 3600}
	result, err := p.SubmitJob(ctx, config)
	require.NoError(t, err)

	// Halfway through the lease.
	*clock = clock.Add(p.startupDelay + 30*time.Minute)

	cancelled, err := p.CancelJob(ctx, result.ProviderJobID)
	require.NoError(t, err)
	assert.True(t, cancelled.Cancelled)
	assert.InDelta(t, result.EstimatedCost/2, cancelled.Refund, result.EstimatedCost*0.01)

	update, err := p.PollStatus(ctx, result.ProviderJobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCancelled, update.Status)

	// Cancelling again reports success without a second refund.
	again, err := p.CancelJob(ctx, result.ProviderJobID)
	require.NoError(t, err)
	assert.True(t, again.Cancelled)
	assert.Zero(t, again.Refund)
}

func TestAkashCancelUnknownDeployment(t *testing.T) {
	p, _ := newTestAkash(t)
	_, err := p.CancelJob(context.Background(), "akash-missing")
	assert.ErrorIs(t, err, ErrUnknownJob)

	_, err = p.PollStatus(context.Background(), "akash-missing")
	assert.ErrorIs(t, err, ErrUnknownJob)
}

func TestAkashEstimateCost(t *testing.T) {
	p, _ := newTestAkash(t)

	estimate, err := p.EstimateCost(context.Background(), &models.JobConfiguration{
		Image:    "nginx",
		CPU:      500,
		Memory:   "512Mi",
		Storage:  "1Gi",
		Duration: 7200,
	})
	require.NoError(t, err)

	// 2 hours: (500*0.0001 + 512*0.0002 + 1024*0.0001) * 2
	assert.InDelta(t, (0.05+0.1024+0.1024)*2, estimate.Estimated, 1e-9)
	assert.Equal(t, "AKT", estimate.Currency)
	assert.Contains(t, estimate.Breakdown, "cpu")
	assert.Contains(t, estimate.Breakdown, "memory")
	assert.Contains(t, estimate.Breakdown, "storage")
}

func TestAkashEstimateRejectsBadQuantity(t *testing.T) {
	p, _ := newTestAkash(t)
	_, err := p.EstimateCost(context.Background(), &models.JobConfiguration{
		Image: "nginx", CPU: 100, Memory: "512MB",
	})
	assert.Error(t, err)
}

func TestAkashNetworkStatus(t *testing.T) {
	p, _ := newTestAkash(t)

	health, err := p.GetNetworkStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.NetworkOnline, health.Status)
	assert.Greater(t, health.AvailableNodes, 0)

	require.NoError(t, p.Disconnect(context.Background()))
	health, err = p.GetNetworkStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.NetworkOffline, health.Status)
}

func TestParseMi(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"512Mi", 512, true},
		{"2Gi", 2048, true},
		{"512MB", 0, false},
		{"Mi", 0, false},
	}
	for _, tc := range cases {
		got, err := parseMi(tc.in)
		if tc.ok {
			require.NoError(t, err, tc.in)
			assert.Equal(t, tc.want, got, tc.in)
		} else {
			assert.Error(t, err, tc.in)
		}
	}
}
