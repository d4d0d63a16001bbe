package tools

import "errors"

var (
	// ErrToolNotFound is returned for names missing from a registry.
	ErrToolNotFound = errors.New("tool not found")

	// ErrToolExists is returned when a name is registered twice.
	ErrToolExists = errors.New("tool already registered")

	// ErrNoState is returned by state tools executed without a view in the
	// context.
	ErrNoState = errors.New("no execution state in context")
)
