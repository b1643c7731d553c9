package replan

import (
	"context"
	"sync"
	"time"

	"github.com/zero-day-ai/strategos/internal/types"
)

// ReplanEventType identifies the type of replanning event.
type ReplanEventType string

const (
	// EventFailureDetected indicates an execution failure was classified.
	EventFailureDetected ReplanEventType = "failure:detected"

	// EventFailureAnalyzed indicates root-cause analysis completed.
	EventFailureAnalyzed ReplanEventType = "failure:analyzed"

	// EventPlansGenerated indicates alternative plans were produced.
	EventPlansGenerated ReplanEventType = "plans:generated"

	// EventRecoveryStarted indicates automatic recovery began.
	EventRecoveryStarted ReplanEventType = "recovery:started"

	// EventRecoveryCompleted indicates recovery finished with at least one
	// remediation performed.
	EventRecoveryCompleted ReplanEventType = "recovery:completed"

	// EventRecoveryFailed indicates recovery performed nothing or a
	// remediation step errored.
	EventRecoveryFailed ReplanEventType = "recovery:failed"

	// EventEscalationRequired indicates automated remediation is exhausted
	// and a human must decide.
	EventEscalationRequired ReplanEventType = "escalation:required"
)

// String returns the string representation of the event type.
func (t ReplanEventType) String() string {
	return string(t)
}

// ReplanEvent is one replanning lifecycle event. Events are advisory: they
// exist for external observers and never gate control flow — the pipeline's
// return values alone are sufficient to drive the caller.
type ReplanEvent struct {
	// Type identifies the event type.
	Type ReplanEventType `json:"type"`

	// FailureID is the failure this event concerns.
	FailureID types.ID `json:"failure_id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Payload contains type-specific event data.
	Payload map[string]any `json:"payload,omitempty"`
}

// EventEmitter publishes replanning events to subscribers.
// Implementations must be thread-safe and support multiple concurrent
// subscribers.
type EventEmitter interface {
	// Emit publishes an event to all subscribers. Emit must be non-blocking:
	// it never waits for subscribers to consume events.
	Emit(ctx context.Context, event ReplanEvent) error

	// Subscribe creates a new subscription and returns a channel for
	// receiving events and a cleanup function to unsubscribe.
	// The cleanup function must be called to prevent resource leaks.
	Subscribe(ctx context.Context) (<-chan ReplanEvent, func())

	// Close shuts down the emitter and all subscriptions.
	Close() error
}

// ChannelEventEmitter implements EventEmitter using buffered channels. It
// supports multiple subscribers and handles slow consumers by dropping
// events for subscribers whose channels are full.
type ChannelEventEmitter struct {
	mu          sync.RWMutex
	subscribers map[string]chan ReplanEvent
	bufferSize  int
	closed      bool
}

// EmitterOption is a functional option for configuring a ChannelEventEmitter.
type EmitterOption func(*ChannelEventEmitter)

// WithBufferSize sets the buffer size for subscriber channels.
// Default is 100.
func WithBufferSize(size int) EmitterOption {
	return func(e *ChannelEventEmitter) {
		if size > 0 {
			e.bufferSize = size
		}
	}
}

// NewChannelEventEmitter creates a new ChannelEventEmitter.
func NewChannelEventEmitter(opts ...EmitterOption) *ChannelEventEmitter {
	emitter := &ChannelEventEmitter{
		subscribers: make(map[string]chan ReplanEvent),
		bufferSize:  100,
	}

	for _, opt := range opts {
		opt(emitter)
	}

	return emitter
}

// Emit publishes an event to all subscribers. If a subscriber's channel is
// full the event is dropped for that subscriber, so one slow consumer never
// blocks the others.
func (e *ChannelEventEmitter) Emit(ctx context.Context, event ReplanEvent) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		return types.NewError(types.REPLAN_EMITTER_CLOSED, "event emitter is closed")
	}

	for _, ch := range e.subscribers {
		select {
		case ch <- event:
		case <-ctx.Done():
			return ctx.Err()
		default:
			// Channel full: drop the event for this subscriber.
		}
	}

	return nil
}

// Subscribe creates a new subscription. The returned cleanup function must
// be called to unsubscribe and prevent leaks.
func (e *ChannelEventEmitter) Subscribe(ctx context.Context) (<-chan ReplanEvent, func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	subscriberID := types.NewID().String()
	ch := make(chan ReplanEvent, e.bufferSize)
	e.subscribers[subscriberID] = ch

	cleanup := func() {
		e.mu.Lock()
		defer e.mu.Unlock()

		if subCh, exists := e.subscribers[subscriberID]; exists {
			delete(e.subscribers, subscriberID)
			close(subCh)
		}
	}

	return ch, cleanup
}

// Close shuts down the emitter and closes all subscriber channels.
func (e *ChannelEventEmitter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	for id, ch := range e.subscribers {
		close(ch)
		delete(e.subscribers, id)
	}

	return nil
}

// SubscriberCount returns the current number of active subscribers.
// Useful for monitoring and testing.
func (e *ChannelEventEmitter) SubscriberCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.subscribers)
}

// Ensure ChannelEventEmitter implements EventEmitter at compile time.
var _ EventEmitter = (*ChannelEventEmitter)(nil)
