package court

import "errors"

var (
	// ErrEmptyTopic is returned when Run is called without a topic.
	ErrEmptyTopic = errors.New("topic is required")

	// ErrMissingAgent is returned when the catalog lacks an agent the
	// pipeline needs.
	ErrMissingAgent = errors.New("missing agent definition")

	// ErrNoReport is returned when the verdict writer produced neither a
	// file nor any text to fall back on.
	ErrNoReport = errors.New("verdict writer produced no report")
)
