// Package history records the outcome of every book processed by a sync run
// in a SQLite database.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/handiism/nextory-downloader/internal/model"
)

// ErrNoRuns is returned by LastRun on an empty history.
var ErrNoRuns = errors.New("no recorded runs")

const timeLayout = time.RFC3339Nano

// Store is the SQLite ledger of sync runs and their per-book outcomes.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Run is one invocation of a sync.
type Run struct {
	ID         string
	Command    string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Entry is one recorded outcome.
type Entry struct {
	BookID     int64
	Title      string
	Source     string
	Status     model.OutcomeStatus
	Path       string
	Reason     string
	RecordedAt time.Time
}

// Summary is a run with its outcomes in recording order.
type Summary struct {
	Run     Run
	Entries []Entry
}

// Count returns how many entries have the given status.
func (s *Summary) Count(status model.OutcomeStatus) int {
	n := 0
	for _, e := range s.Entries {
		if e.Status == status {
			n++
		}
	}
	return n
}

// Open opens or creates the ledger at path, creating its folder and
// migrating the schema.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("history path is empty")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create history folder: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database. Closing a nil Store is a no-op.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragma := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA foreign_keys = ON;",
		"PRAGMA busy_timeout = 5000;",
	}

	for _, stmt := range pragma {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("pragma: %w", err)
		}
	}
	return nil
}

func migrate(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	command TEXT NOT NULL,
	started_at TEXT NOT NULL,
	finished_at TEXT
);

CREATE TABLE IF NOT EXISTS outcomes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	book_id INTEGER NOT NULL,
	title TEXT,
	source TEXT,
	status TEXT NOT NULL,
	path TEXT,
	reason TEXT,
	recorded_at TEXT NOT NULL,
	FOREIGN KEY(run_id) REFERENCES runs(id)
);

CREATE INDEX IF NOT EXISTS idx_outcomes_run_id ON outcomes(run_id);
`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("migrate history: %w", err)
	}
	return nil
}

// StartRun records the start of a run and returns it.
func (s *Store) StartRun(ctx context.Context, command string) (Run, error) {
	run := Run{ID: uuid.NewString(), Command: command, StartedAt: s.now().UTC()}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO runs (id, command, started_at)
VALUES (?, ?, ?)
`, run.ID, run.Command, run.StartedAt.Format(timeLayout))
	if err != nil {
		return Run{}, fmt.Errorf("start run: %w", err)
	}
	return run, nil
}

// FinishRun stamps the run's end time.
func (s *Store) FinishRun(ctx context.Context, runID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE runs SET finished_at = ? WHERE id = ?`,
		s.now().UTC().Format(timeLayout), runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// Record stores one outcome under runID. A failure's error text is stored as
// its reason.
func (s *Store) Record(ctx context.Context, runID string, o model.Outcome) error {
	reason := o.Reason
	if o.Err != nil {
		reason = o.Err.Error()
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO outcomes (run_id, book_id, title, source, status, path, reason, recorded_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, runID, o.BookID, o.Title, o.Source.String(), string(o.Status), o.Path, reason, s.now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("record outcome for book %d: %w", o.BookID, err)
	}
	return nil
}

// Recorder binds the store to a run.
func (s *Store) Recorder(runID string) *RunRecorder {
	return &RunRecorder{store: s, runID: runID}
}

// RunRecorder records outcomes for a single run.
type RunRecorder struct {
	store *Store
	runID string
}

// Record stores an outcome for the bound run.
func (r *RunRecorder) Record(ctx context.Context, o model.Outcome) error {
	return r.store.Record(ctx, r.runID, o)
}

// LastRun returns the most recently started run and its outcomes.
func (s *Store) LastRun(ctx context.Context) (*Summary, error) {
	var (
		run      Run
		started  string
		finished sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
SELECT id, command, started_at, finished_at
FROM runs
ORDER BY started_at DESC, rowid DESC
LIMIT 1
`).Scan(&run.ID, &run.Command, &started, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRuns
	}
	if err != nil {
		return nil, fmt.Errorf("load last run: %w", err)
	}

	if run.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return nil, fmt.Errorf("parse run start: %w", err)
	}
	if finished.Valid {
		if run.FinishedAt, err = time.Parse(timeLayout, finished.String); err != nil {
			return nil, fmt.Errorf("parse run end: %w", err)
		}
	}

	entries, err := s.Entries(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	return &Summary{Run: run, Entries: entries}, nil
}

// Entries returns the outcomes of a run in recording order.
func (s *Store) Entries(ctx context.Context, runID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT book_id, COALESCE(title, ''), COALESCE(source, ''), status, COALESCE(path, ''), COALESCE(reason, ''), recorded_at
FROM outcomes
WHERE run_id = ?
ORDER BY id
`, runID)
	if err != nil {
		return nil, fmt.Errorf("load outcomes: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e        Entry
			status   string
			recorded string
		)
		if err := rows.Scan(&e.BookID, &e.Title, &e.Source, &status, &e.Path, &e.Reason, &recorded); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		e.Status = model.OutcomeStatus(status)
		if e.RecordedAt, err = time.Parse(timeLayout, recorded); err != nil {
			return nil, fmt.Errorf("parse outcome time: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
