package orchestrator

import (
	"context"
	"time"
)

// Span describes one finished node or tool execution.
type Span struct {
	RunID     string
	Node      string
	Kind      Kind
	Iteration int
	Started   time.Time
	Duration  time.Duration
	Outcome   Outcome
	Err       error
	Detail    string
}

// Recorder receives spans. Implementations must be safe for concurrent use;
// parallel children record from their own goroutines.
type Recorder interface {
	RecordSpan(ctx context.Context, span Span)
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, span Span)

func (f RecorderFunc) RecordSpan(ctx context.Context, span Span) { f(ctx, span) }

type recorderKey struct{}
type iterationKey struct{}
type runIDKey struct{}

// WithRecorder returns a context whose nodes report spans to r.
func WithRecorder(ctx context.Context, r Recorder) context.Context {
	return context.WithValue(ctx, recorderKey{}, r)
}

// Record sends span to the context's recorder, filling in the iteration.
func Record(ctx context.Context, span Span) {
	r, ok := ctx.Value(recorderKey{}).(Recorder)
	if !ok || r == nil {
		return
	}
	if span.Iteration == 0 {
		span.Iteration = IterationFrom(ctx)
	}
	if span.RunID == "" {
		span.RunID = RunIDFrom(ctx)
	}
	r.RecordSpan(ctx, span)
}

// IterationFrom returns the innermost loop iteration carried by ctx, or 0.
func IterationFrom(ctx context.Context) int {
	i, _ := ctx.Value(iterationKey{}).(int)
	return i
}

func withIteration(ctx context.Context, i int) context.Context {
	return context.WithValue(ctx, iterationKey{}, i)
}

// WithRunID tags every span recorded under ctx with id.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunIDFrom returns the run ID carried by ctx, or "".
func RunIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}
