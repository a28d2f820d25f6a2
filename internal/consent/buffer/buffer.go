package buffer

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/RahulUpadhay-art/consents-denied/internal/consent/models"
)

// Sink receives buffered events during a flush. The analytics transport is
// adapted to this interface by the coordinator.
type Sink interface {
	Deliver(ctx context.Context, event models.BufferedEvent) error
}

// Buffer is an ordered, unbounded holding area for analytics events produced
// while effective permission is false or the transport is not initialized.
// Events are scrubbed of PII on the way in, never on the way out: nothing
// personally identifying is ever at rest here.
type Buffer struct {
	mu      sync.RWMutex
	flushMu sync.Mutex
	events  []models.BufferedEvent
	scrub   *Scrubber
}

// Option configures the Buffer.
type Option func(*Buffer)

// WithExtraPIIKeys extends the scrub deny-list beyond the built-in keys.
func WithExtraPIIKeys(keys ...string) Option {
	return func(b *Buffer) {
		b.scrub = NewScrubber(keys...)
	}
}

// New constructs an empty buffer with the built-in PII deny-list.
func New(opts ...Option) *Buffer {
	b := &Buffer{scrub: NewScrubber()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Enqueue scrubs params and appends the event in insertion order. It never
// blocks on delivery; a concurrent flush only delays the append briefly.
func (b *Buffer) Enqueue(name string, params map[string]any) models.BufferedEvent {
	clean, removed := b.scrub.Scrub(params)
	event := models.BufferedEvent{
		ID:         uuid.New().String(),
		Name:       name,
		Params:     clean,
		Scrubbed:   removed,
		EnqueuedAt: time.Now(),
	}

	b.mu.Lock()
	b.events = append(b.events, event)
	b.mu.Unlock()
	return event
}

// FlushInto delivers events to the sink in insertion order, halting at the
// first failure. The failed event and everything after it stay buffered for
// a future flush, so later events can never overtake earlier ones. Returns
// the number of events delivered and the error that stopped the flush, if
// any.
func (b *Buffer) FlushInto(ctx context.Context, sink Sink) (int, error) {
	// Serialize flushes so two callers cannot double-deliver the same head.
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	b.mu.RLock()
	pending := make([]models.BufferedEvent, len(b.events))
	copy(pending, b.events)
	b.mu.RUnlock()

	delivered := 0
	var deliveryErr error
	for _, event := range pending {
		if err := sink.Deliver(ctx, event); err != nil {
			deliveryErr = err
			break
		}
		delivered++
	}

	if delivered > 0 {
		b.mu.Lock()
		b.events = append([]models.BufferedEvent(nil), b.events[delivered:]...)
		b.mu.Unlock()
	}
	return delivered, deliveryErr
}

// Len reports the number of buffered events.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.events)
}

// IsEmpty reports whether the buffer holds no events.
func (b *Buffer) IsEmpty() bool {
	return b.Len() == 0
}

// Snapshot returns a copy of the buffered events in insertion order.
func (b *Buffer) Snapshot() []models.BufferedEvent {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]models.BufferedEvent(nil), b.events...)
}

// Clear drops every buffered event. Used by the consent reset path.
func (b *Buffer) Clear() {
	b.mu.Lock()
	b.events = nil
	b.mu.Unlock()
}
