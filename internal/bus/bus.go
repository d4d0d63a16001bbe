// Package bus provides the async trace bus that fans execution spans out to
// subscribers such as the log, the sqlite timeline and Kafka.
package bus

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/KafClaw/tribunal/internal/orchestrator"
)

const defaultBuffer = 256

// Event is the wire form of one finished span.
type Event struct {
	RunID      string    `json:"run_id"`
	SpanID     string    `json:"span_id"`
	Node       string    `json:"node"`
	Kind       string    `json:"kind"`
	Iteration  int       `json:"iteration"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
	DurationMs int64     `json:"duration_ms"`
	Outcome    string    `json:"outcome"`
	Error      string    `json:"error,omitempty"`
	Detail     string    `json:"detail,omitempty"`
}

// FromSpan converts span into an Event with a fresh span ID.
func FromSpan(span orchestrator.Span) *Event {
	evt := &Event{
		RunID:      span.RunID,
		SpanID:     uuid.NewString(),
		Node:       span.Node,
		Kind:       string(span.Kind),
		Iteration:  span.Iteration,
		StartedAt:  span.Started,
		EndedAt:    span.Started.Add(span.Duration),
		DurationMs: span.Duration.Milliseconds(),
		Outcome:    span.Outcome.String(),
		Detail:     span.Detail,
	}
	if span.Err != nil {
		evt.Error = span.Err.Error()
	}
	return evt
}

// Handler consumes events on the dispatcher goroutine.
type Handler func(ctx context.Context, evt *Event)

// TraceBus decouples span producers from slow subscribers. It implements
// orchestrator.Recorder; publishing never blocks a node.
type TraceBus struct {
	events  chan *Event
	subs    map[string]Handler
	order   []string
	closed  bool
	dropped atomic.Int64
	mu      sync.RWMutex
}

// NewTraceBus creates a bus holding up to buffer pending events.
func NewTraceBus(buffer int) *TraceBus {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &TraceBus{
		events: make(chan *Event, buffer),
		subs:   make(map[string]Handler),
	}
}

// Subscribe registers h under name. A second call with the same name
// replaces the handler.
func (b *TraceBus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[name]; !ok {
		b.order = append(b.order, name)
	}
	b.subs[name] = h
}

// RecordSpan publishes span. Events are dropped once the buffer is full or
// the bus is closed.
func (b *TraceBus) RecordSpan(_ context.Context, span orchestrator.Span) {
	b.Publish(FromSpan(span))
}

// Publish enqueues evt without blocking.
func (b *TraceBus) Publish(evt *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		b.dropped.Add(1)
		return
	}
	select {
	case b.events <- evt:
	default:
		if b.dropped.Add(1) == 1 {
			slog.Warn("Trace bus full, dropping events", "buffer", cap(b.events))
		}
	}
}

// Dispatch delivers events to subscribers in registration order until ctx is
// cancelled or the bus is closed and drained. Run it on its own goroutine.
func (b *TraceBus) Dispatch(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-b.events:
			if !ok {
				return nil
			}
			b.deliver(ctx, evt)
		}
	}
}

func (b *TraceBus) deliver(ctx context.Context, evt *Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.order))
	for _, name := range b.order {
		handlers = append(handlers, b.subs[name])
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ctx, evt)
	}
}

// Close stops accepting events. Dispatch returns once the backlog is
// delivered.
func (b *TraceBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.events)
}

// Size returns the number of pending events.
func (b *TraceBus) Size() int {
	return len(b.events)
}

// Dropped returns how many events were discarded.
func (b *TraceBus) Dropped() int64 {
	return b.dropped.Load()
}

// LogHandler writes every event to slog at debug level.
func LogHandler(_ context.Context, evt *Event) {
	attrs := []any{
		"run_id", evt.RunID,
		"node", evt.Node,
		"kind", evt.Kind,
		"iteration", evt.Iteration,
		"duration_ms", evt.DurationMs,
		"outcome", evt.Outcome,
	}
	if evt.Detail != "" {
		attrs = append(attrs, "detail", evt.Detail)
	}
	if evt.Error != "" {
		attrs = append(attrs, "error", evt.Error)
	}
	slog.Debug("Span", attrs...)
}
