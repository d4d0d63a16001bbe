package timeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/KafClaw/tribunal/internal/bus"
)

// ErrRunNotFound is returned for unknown run IDs.
var ErrRunNotFound = errors.New("run not found")

// TimelineService persists court runs and their execution spans in sqlite.
type TimelineService struct {
	db *sql.DB
}

func NewTimelineService(dbPath string) (*TimelineService, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create timeline dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open timeline db: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &TimelineService{db: db}, nil
}

func (s *TimelineService) DB() *sql.DB { return s.db }

func (s *TimelineService) Close() error {
	return s.db.Close()
}

// StartRun records a run as running.
func (s *TimelineService) StartRun(ctx context.Context, run *RunRecord) error {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	if run.Status == "" {
		run.Status = RunStatusRunning
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, topic, model, status, started_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET topic = excluded.topic, model = excluded.model, status = excluded.status, started_at = excluded.started_at
	`, run.RunID, run.Topic, run.Model, run.Status, run.StartedAt)
	return err
}

// FinishRun stores the final state of a run.
func (s *TimelineService) FinishRun(ctx context.Context, run *RunRecord) error {
	now := time.Now()
	if run.FinishedAt == nil {
		run.FinishedAt = &now
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, iterations = ?, balanced = ?, output_path = ?, error_text = ?, finished_at = ?
		WHERE run_id = ?
	`, run.Status, run.Iterations, run.Balanced, run.OutputPath, run.ErrorText, *run.FinishedAt, run.RunID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, run.RunID)
	}
	return nil
}

// GetRun returns one run.
func (s *TimelineService) GetRun(ctx context.Context, runID string) (*RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, topic, COALESCE(model,''), status, iterations, balanced, COALESCE(output_path,''), COALESCE(error_text,''), started_at, finished_at
		FROM runs WHERE run_id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return run, err
}

// ListRuns returns the most recent runs first.
func (s *TimelineService) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, topic, COALESCE(model,''), status, iterations, balanced, COALESCE(output_path,''), COALESCE(error_text,''), started_at, finished_at
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*RunRecord, error) {
	var r RunRecord
	var finished sql.NullTime
	if err := row.Scan(&r.RunID, &r.Topic, &r.Model, &r.Status, &r.Iterations, &r.Balanced, &r.OutputPath, &r.ErrorText, &r.StartedAt, &finished); err != nil {
		return nil, err
	}
	if finished.Valid {
		t := finished.Time
		r.FinishedAt = &t
	}
	return &r, nil
}

// AddSpan stores one trace event. Duplicate span IDs are ignored.
func (s *TimelineService) AddSpan(ctx context.Context, evt *bus.Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO spans (span_id, run_id, node, kind, iteration, started_at, duration_ms, outcome, error_text, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, evt.SpanID, evt.RunID, evt.Node, evt.Kind, evt.Iteration, evt.StartedAt, evt.DurationMs, evt.Outcome, evt.Error, evt.Detail)
	return err
}

// GetSpans returns spans in start order.
func (s *TimelineService) GetSpans(ctx context.Context, filter SpanFilter) ([]SpanRecord, error) {
	query := `SELECT id, span_id, run_id, node, kind, iteration, started_at, duration_ms, COALESCE(outcome,''), COALESCE(error_text,''), COALESCE(detail,'') FROM spans WHERE 1=1`
	args := []any{}

	if filter.RunID != "" {
		query += " AND run_id = ?"
		args = append(args, filter.RunID)
	}
	if filter.Kind != "" {
		query += " AND kind = ?"
		args = append(args, filter.Kind)
	}
	if filter.Node != "" {
		query += " AND node = ?"
		args = append(args, filter.Node)
	}

	query += " ORDER BY started_at ASC, id ASC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var spans []SpanRecord
	for rows.Next() {
		var sp SpanRecord
		if err := rows.Scan(
			&sp.ID,
			&sp.SpanID,
			&sp.RunID,
			&sp.Node,
			&sp.Kind,
			&sp.Iteration,
			&sp.StartedAt,
			&sp.DurationMs,
			&sp.Outcome,
			&sp.ErrorText,
			&sp.Detail,
		); err != nil {
			return nil, err
		}
		spans = append(spans, sp)
	}
	return spans, rows.Err()
}

// Handler adapts the service to the trace bus.
func (s *TimelineService) Handler() bus.Handler {
	return func(ctx context.Context, evt *bus.Event) {
		if err := s.AddSpan(ctx, evt); err != nil {
			slog.Warn("Timeline span write failed", "node", evt.Node, "error", err)
		}
	}
}
