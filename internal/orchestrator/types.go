// Package orchestrator composes execution nodes into workflows. Leaves wrap
// single units of work; Sequential, Parallel and Loop combine them. Every node
// runs against the same state.Store.
package orchestrator

import (
	"context"
	"time"

	"github.com/KafClaw/tribunal/internal/state"
)

// Outcome is what a node reports to its parent. Terminate asks the nearest
// enclosing Loop to stop after the current iteration.
type Outcome int

const (
	Continue Outcome = iota
	Terminate
)

func (o Outcome) String() string {
	if o == Terminate {
		return "terminate"
	}
	return "continue"
}

// Node is one unit of a workflow.
type Node interface {
	Name() string
	Run(ctx context.Context, st *state.Store) (Outcome, error)
}

// Kind classifies nodes in recorded spans.
type Kind string

const (
	KindSequential Kind = "sequential"
	KindParallel   Kind = "parallel"
	KindLoop       Kind = "loop"
	KindLeaf       Kind = "leaf"
	KindControl    Kind = "control"
	KindTool       Kind = "tool"
)

// FuncNode adapts a function to Node.
type FuncNode struct {
	name string
	kind Kind
	fn   func(ctx context.Context, st *state.Store) (Outcome, error)
}

// Func wraps fn as a leaf node.
func Func(name string, fn func(ctx context.Context, st *state.Store) (Outcome, error)) *FuncNode {
	return &FuncNode{name: name, kind: KindLeaf, fn: fn}
}

// Control wraps fn as a loop-control node.
func Control(name string, fn func(ctx context.Context, st *state.Store) (Outcome, error)) *FuncNode {
	return &FuncNode{name: name, kind: KindControl, fn: fn}
}

func (n *FuncNode) Name() string { return n.name }

func (n *FuncNode) Run(ctx context.Context, st *state.Store) (Outcome, error) {
	started := time.Now()
	out, err := n.fn(ctx, st)
	Record(ctx, Span{Node: n.name, Kind: n.kind, Started: started, Duration: time.Since(started), Outcome: out, Err: err})
	return out, err
}
