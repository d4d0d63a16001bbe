package orchestrator

import "errors"

var (
	// ErrInvalidLoop is returned by a Loop configured with fewer than one iteration.
	ErrInvalidLoop = errors.New("loop needs at least one iteration")

	// ErrNodePanic wraps a panic raised by a parallel child.
	ErrNodePanic = errors.New("node panicked")
)
