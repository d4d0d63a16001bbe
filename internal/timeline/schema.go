package timeline

import (
	"time"
)

// Run statuses.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// RunRecord is one court session.
type RunRecord struct {
	RunID      string     `json:"run_id"`
	Topic      string     `json:"topic"`
	Model      string     `json:"model,omitempty"`
	Status     string     `json:"status"`
	Iterations int        `json:"iterations"`
	Balanced   bool       `json:"balanced"`
	OutputPath string     `json:"output_path,omitempty"`
	ErrorText  string     `json:"error_text,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// SpanRecord is one persisted execution span.
type SpanRecord struct {
	ID         int64     `json:"id"`
	SpanID     string    `json:"span_id"`
	RunID      string    `json:"run_id"`
	Node       string    `json:"node"`
	Kind       string    `json:"kind"`
	Iteration  int       `json:"iteration"`
	StartedAt  time.Time `json:"started_at"`
	DurationMs int64     `json:"duration_ms"`
	Outcome    string    `json:"outcome"`
	ErrorText  string    `json:"error_text,omitempty"`
	Detail     string    `json:"detail,omitempty"`
}

// SpanFilter narrows GetSpans.
type SpanFilter struct {
	RunID string
	Kind  string
	Node  string
	Limit int
}

const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	topic TEXT NOT NULL,
	model TEXT,
	status TEXT NOT NULL DEFAULT 'running',
	iterations INTEGER NOT NULL DEFAULT 0,
	balanced BOOLEAN NOT NULL DEFAULT 0,
	output_path TEXT,
	error_text TEXT,
	started_at DATETIME NOT NULL,
	finished_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

CREATE TABLE IF NOT EXISTS spans (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	span_id TEXT UNIQUE NOT NULL,
	run_id TEXT NOT NULL,
	node TEXT NOT NULL,
	kind TEXT NOT NULL,
	iteration INTEGER NOT NULL DEFAULT 0,
	started_at DATETIME NOT NULL,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	outcome TEXT,
	error_text TEXT,
	detail TEXT
);

CREATE INDEX IF NOT EXISTS idx_spans_run ON spans(run_id);
`
