package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/KafClaw/tribunal/internal/state"
)

// SequentialNode runs its children in order and stops at the first error.
type SequentialNode struct {
	name     string
	children []Node
}

// Sequential builds a node that runs children one after another. It reports
// Terminate when any child does.
func Sequential(name string, children ...Node) *SequentialNode {
	return &SequentialNode{name: name, children: children}
}

func (n *SequentialNode) Name() string { return n.name }

func (n *SequentialNode) Children() []Node { return n.children }

func (n *SequentialNode) Run(ctx context.Context, st *state.Store) (Outcome, error) {
	started := time.Now()
	out := Continue
	for _, child := range n.children {
		if err := ctx.Err(); err != nil {
			n.record(ctx, started, out, err)
			return out, err
		}
		o, err := child.Run(ctx, st)
		if err != nil {
			err = fmt.Errorf("%s: %w", child.Name(), err)
			n.record(ctx, started, out, err)
			return out, err
		}
		if o == Terminate {
			out = Terminate
		}
	}
	n.record(ctx, started, out, nil)
	return out, nil
}

func (n *SequentialNode) record(ctx context.Context, started time.Time, out Outcome, err error) {
	Record(ctx, Span{Node: n.name, Kind: KindSequential, Started: started, Duration: time.Since(started), Outcome: out, Err: err})
}

// ParallelNode runs its children concurrently and waits for all of them.
type ParallelNode struct {
	name     string
	children []Node
	limit    int
}

// Parallel builds a node that starts every child and completes only after all
// children have finished. A failing child does not cancel its siblings.
func Parallel(name string, children ...Node) *ParallelNode {
	return &ParallelNode{name: name, children: children}
}

// WithLimit caps how many children run at once. Zero or less means no cap.
func (n *ParallelNode) WithLimit(limit int) *ParallelNode {
	n.limit = limit
	return n
}

func (n *ParallelNode) Name() string { return n.name }

func (n *ParallelNode) Children() []Node { return n.children }

func (n *ParallelNode) Run(ctx context.Context, st *state.Store) (Outcome, error) {
	started := time.Now()
	outcomes := make([]Outcome, len(n.children))
	errs := make([]error, len(n.children))

	var g errgroup.Group
	if n.limit > 0 {
		g.SetLimit(n.limit)
	}
	for i, child := range n.children {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					errs[i] = fmt.Errorf("%s: %w: %v", child.Name(), ErrNodePanic, r)
				}
			}()
			o, cerr := child.Run(ctx, st)
			outcomes[i] = o
			if cerr != nil {
				errs[i] = fmt.Errorf("%s: %w", child.Name(), cerr)
			}
			return nil
		})
	}
	_ = g.Wait()

	out := Continue
	for _, o := range outcomes {
		if o == Terminate {
			out = Terminate
		}
	}
	err := errors.Join(errs...)
	Record(ctx, Span{Node: n.name, Kind: KindParallel, Started: started, Duration: time.Since(started), Outcome: out, Err: err})
	return out, err
}

// LoopNode repeats its body up to a fixed number of iterations.
type LoopNode struct {
	name string
	body Node
	max  int
}

// Loop builds a bounded loop. The body's Terminate outcome ends the loop at
// the iteration boundary; running out of iterations is logged, not failed.
func Loop(name string, body Node, maxIterations int) *LoopNode {
	return &LoopNode{name: name, body: body, max: maxIterations}
}

func (n *LoopNode) Name() string { return n.name }

func (n *LoopNode) Body() Node { return n.body }

func (n *LoopNode) MaxIterations() int { return n.max }

func (n *LoopNode) Run(ctx context.Context, st *state.Store) (Outcome, error) {
	if n.max < 1 {
		return Continue, fmt.Errorf("%s: %w (max %d)", n.name, ErrInvalidLoop, n.max)
	}
	started := time.Now()
	st.ClearTerminated()

	for i := 1; i <= n.max; i++ {
		if err := ctx.Err(); err != nil {
			n.record(ctx, started, i, err, "")
			return Continue, err
		}
		st.SetIteration(i)
		o, err := n.body.Run(withIteration(ctx, i), st)
		if err != nil {
			err = fmt.Errorf("iteration %d: %w", i, err)
			n.record(ctx, started, i, err, "")
			return Continue, err
		}
		if o == Terminate {
			st.MarkTerminated()
			slog.Info("Loop terminated", "loop", n.name, "iteration", i)
			n.record(ctx, started, i, nil, "terminated")
			return Continue, nil
		}
	}

	slog.Warn("Iteration budget exhausted", "loop", n.name, "max_iterations", n.max)
	n.record(ctx, started, n.max, nil, "iteration budget exhausted")
	return Continue, nil
}

func (n *LoopNode) record(ctx context.Context, started time.Time, iteration int, err error, detail string) {
	Record(ctx, Span{
		Node:      n.name,
		Kind:      KindLoop,
		Iteration: iteration,
		Started:   started,
		Duration:  time.Since(started),
		Outcome:   Continue,
		Err:       err,
		Detail:    detail,
	})
}
