// Package events provides an in-process publish/subscribe bus for job
// lifecycle notifications. Delivery is best effort: a slow subscriber
// drops events rather than stalling the publisher or its peers.
package events

import (
	"sync"

	"github.com/bimdev1/Cortex/pkg/models"
)

// Event is implemented by all bus event types.
type Event interface {
	isEvent()
}

// JobCreated is published after a job is accepted and persisted.
type JobCreated struct {
	JobID    string
	Provider string
	Status   models.JobStatus
}

// JobStatusChanged is published whenever a job's observed status differs
// from the previously recorded one.
type JobStatusChanged struct {
	JobID     string
	OldStatus models.JobStatus
	NewStatus models.JobStatus
	Logs      []string
}

// JobCancelled is published after a cancellation is confirmed.
type JobCancelled struct {
	JobID  string
	Refund float64
}

func (JobCreated) isEvent()       {}
func (JobStatusChanged) isEvent() {}
func (JobCancelled) isEvent()     {}

const subscriberBuffer = 64

// Bus fans events out to subscribers.
type Bus struct {
	mu   sync.RWMutex
	subs []chan Event
}

// NewBus creates an event bus
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a new subscriber and returns its event channel.
func (b *Bus) Subscribe() <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	b.subs = append(b.subs, ch)
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Bus) Unsubscribe(ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, sub := range b.subs {
		if sub == ch {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			close(sub)
			return
		}
	}
}

// Publish delivers ev to every subscriber. Sends never block: a
// subscriber whose buffer is full misses the event.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	subs := make([]chan Event, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, sub := range subs {
		select {
		case sub <- ev:
		default:
		}
	}
}

// Close unsubscribes everyone and closes their channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs {
		close(sub)
	}
	b.subs = nil
}
