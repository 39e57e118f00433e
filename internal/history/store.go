package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"recproc/internal/batch"
)

// RunStatus is the final state of a run.
type RunStatus string

const (
	RunRunning     RunStatus = "running"
	RunCompleted   RunStatus = "completed"
	RunInterrupted RunStatus = "interrupted"
	RunFailed      RunStatus = "failed"
)

// Run is one row of the runs table.
type Run struct {
	ID         string
	SourceDir  string
	TargetDir  string
	StartedAt  time.Time
	FinishedAt time.Time
	Status     RunStatus
	Message    string
	// Counts per job status, filled by RecentRuns.
	Done    int
	Failed  int
	Skipped int
}

// Outcome is one recorded job.
type Outcome struct {
	RunID      string
	Phase      string
	InputPath  string
	OutputPath string
	Status     string
	Error      string
	StartedAt  time.Time
	Duration   time.Duration
}

// Store manages the run ledger backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the ledger database at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("history path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// BeginRun inserts a running row for id.
func (s *Store) BeginRun(ctx context.Context, id, sourceDir, targetDir string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, source_dir, target_dir, started_at, status) VALUES (?, ?, ?, ?, ?)`,
		id, sourceDir, targetDir, formatTime(time.Now()), RunRunning,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun stamps the run with its final status.
func (s *Store) FinishRun(ctx context.Context, id string, status RunStatus, message string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, status = ?, message = ? WHERE id = ?`,
		formatTime(time.Now()), status, nullableString(message), id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run: unknown run %s", id)
	}
	return nil
}

// Recorder binds outcomes to one run; it satisfies batch.Recorder.
type Recorder struct {
	store *Store
	runID string
}

// ForRun returns a batch.Recorder writing into run id.
func (s *Store) ForRun(id string) *Recorder {
	return &Recorder{store: s, runID: id}
}

// RecordOutcome stores one job outcome.
func (r *Recorder) RecordOutcome(ctx context.Context, o batch.Outcome) error {
	return r.store.RecordOutcome(ctx, r.runID, o)
}

// RecordOutcome stores one job outcome for runID.
func (s *Store) RecordOutcome(ctx context.Context, runID string, o batch.Outcome) error {
	var errText string
	if o.Err != nil {
		errText = o.Err.Error()
	} else if o.VerifyErr != nil {
		errText = o.VerifyErr.Error()
	}
	var input, output string
	if o.Job != nil {
		input, output = o.Job.InputPath(), o.Job.OutputPath()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO job_outcomes (run_id, phase, input_path, output_path, status, error, started_at, duration_ms)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, o.Phase, input, output, string(o.Status), nullableString(errText),
		formatTime(o.StartedAt), o.Elapsed.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}
	return nil
}

// RecentRuns returns the newest runs first with per-status job counts.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.source_dir, r.target_dir, r.started_at, r.finished_at, r.status, r.message,
                COALESCE(SUM(CASE WHEN o.status = 'done' THEN 1 ELSE 0 END), 0),
                COALESCE(SUM(CASE WHEN o.status = 'failed' THEN 1 ELSE 0 END), 0),
                COALESCE(SUM(CASE WHEN o.status = 'skipped' THEN 1 ELSE 0 END), 0)
         FROM runs r
         LEFT JOIN job_outcomes o ON o.run_id = r.id
         GROUP BY r.id
         ORDER BY r.started_at DESC, r.rowid DESC
         LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run               Run
			started           string
			finished, message sql.NullString
			status            string
		)
		if err := rows.Scan(&run.ID, &run.SourceDir, &run.TargetDir, &started, &finished, &status, &message,
			&run.Done, &run.Failed, &run.Skipped); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.Status = RunStatus(status)
		run.StartedAt = parseTime(started)
		if finished.Valid {
			run.FinishedAt = parseTime(finished.String)
		}
		run.Message = message.String
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Outcomes returns the jobs recorded for runID in insertion order.
func (s *Store) Outcomes(ctx context.Context, runID string) ([]Outcome, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, phase, input_path, output_path, status, error, started_at, duration_ms
         FROM job_outcomes WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var out []Outcome
	for rows.Next() {
		var (
			o       Outcome
			errText sql.NullString
			started string
			ms      int64
		)
		if err := rows.Scan(&o.RunID, &o.Phase, &o.InputPath, &o.OutputPath, &o.Status, &errText, &started, &ms); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		o.Error = errText.String
		o.StartedAt = parseTime(started)
		o.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, o)
	}
	return out, rows.Err()
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
