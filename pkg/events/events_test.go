package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bimdev1/Cortex/pkg/models"
)

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestPublishReachesAllSubscribers(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	a := bus.Subscribe()
	b := bus.Subscribe()

	bus.Publish(JobCreated{JobID: "job-1", Provider: "akash", Status: models.JobStatusPending})

	for _, ch := range []<-chan Event{a, b} {
		ev := receive(t, ch)
		created, ok := ev.(JobCreated)
		require.True(t, ok)
		assert.Equal(t, "job-1", created.JobID)
		assert.Equal(t, "akash", created.Provider)
	}
}

func TestSlowSubscriberDoesNotBlockOthers(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	slow := bus.Subscribe()
	healthy := bus.Subscribe()

	// Fill the slow subscriber's buffer without draining it.
	for i := 0; i < subscriberBuffer+10; i++ {
		bus.Publish(JobStatusChanged{JobID: "job-1", OldStatus: models.JobStatusPending, NewStatus: models.JobStatusRunning})
	}

	// The healthy subscriber still receives events up to its own buffer.
	assert.Len(t, healthy, subscriberBuffer)
	assert.Len(t, slow, subscriberBuffer)

	// Publishing again drops for both full buffers but returns promptly.
	done := make(chan struct{})
	go func() {
		bus.Publish(JobCancelled{JobID: "job-1", Refund: 0.5})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ch := bus.Subscribe()
	bus.Unsubscribe(ch)

	// Channel is closed; receive yields zero value immediately.
	_, open := <-ch
	assert.False(t, open)

	// Publishing after unsubscribe must not panic.
	bus.Publish(JobCreated{JobID: "job-2", Provider: "akash", Status: models.JobStatusPending})
}

func TestCancellationEventCarriesRefund(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ch := bus.Subscribe()
	bus.Publish(JobCancelled{JobID: "job-3", Refund: 1.25})

	ev := receive(t, ch)
	cancelled, ok := ev.(JobCancelled)
	require.True(t, ok)
	assert.Equal(t, 1.25, cancelled.Refund)
}
