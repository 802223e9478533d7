package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxEvents bounds the in-memory log.
const DefaultMaxEvents = 10000

// MemoryLookupLogger keeps the most recent events in memory, newest first.
type MemoryLookupLogger struct {
	mu        sync.RWMutex
	events    []*LookupEvent
	maxEvents int
}

// MemoryOption configures a MemoryLookupLogger.
type MemoryOption func(*MemoryLookupLogger)

// WithMaxEvents sets how many events are kept.
func WithMaxEvents(n int) MemoryOption {
	return func(m *MemoryLookupLogger) {
		if n > 0 {
			m.maxEvents = n
		}
	}
}

// NewMemoryLookupLogger creates an in-memory lookup log.
func NewMemoryLookupLogger(opts ...MemoryOption) *MemoryLookupLogger {
	m := &MemoryLookupLogger{maxEvents: DefaultMaxEvents}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Log records an event.
func (m *MemoryLookupLogger) Log(_ context.Context, event *LookupEvent) error {
	if event == nil {
		return nil
	}
	if !ValidOutcome(event.Outcome) {
		return fmt.Errorf("%w: %q", ErrInvalidOutcome, event.Outcome)
	}
	stamp(event)
	cp := *event

	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append([]*LookupEvent{&cp}, m.events...)
	if len(m.events) > m.maxEvents {
		m.events = m.events[:m.maxEvents]
	}
	return nil
}

// List returns matching events, newest first.
func (m *MemoryLookupLogger) List(_ context.Context, opts ListOptions) ([]*LookupEvent, int, error) {
	opts.normalize()

	m.mu.RLock()
	defer m.mu.RUnlock()

	var filtered []*LookupEvent
	for _, e := range m.events {
		if matches(e, opts) {
			filtered = append(filtered, e)
		}
	}
	total := len(filtered)
	start := min(opts.Offset, total)
	end := min(start+opts.Limit, total)

	out := make([]*LookupEvent, 0, end-start)
	for _, e := range filtered[start:end] {
		cp := *e
		out = append(out, &cp)
	}
	return out, total, nil
}

// Close is a no-op.
func (m *MemoryLookupLogger) Close() error { return nil }

func stamp(e *LookupEvent) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
}
