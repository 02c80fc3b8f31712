// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package run

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/newsletter-engine/pkg/types"
)

const dbFile = "newsletter.db"

// ErrRunNotFound is returned when a requested run is not in the store.
var ErrRunNotFound = errors.New("run not found")

// Store persists run states and assembled issues in a SQLite database
// under the configured directory. Issue markdown is additionally written
// as a plain file next to the database so readers need no tooling.
type Store struct {
	db  *sql.DB
	dir string
}

// NewStore opens or creates the run database at dir/newsletter.db,
// creating the schema if it does not exist.
func NewStore(cfg types.StoreConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	dbPath := filepath.Join(cfg.Dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening run database: %w", err)
	}

	s := &Store{db: db, dir: cfg.Dir}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			mode TEXT NOT NULL,
			phase TEXT NOT NULL,
			window_start TEXT,
			window_end TEXT,
			created_at TEXT NOT NULL,
			state TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS issues (
			run_id TEXT PRIMARY KEY REFERENCES runs(id),
			markdown TEXT NOT NULL,
			written_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// SaveRun upserts the full run state. Called after every phase transition
// so an interrupted run is inspectable.
func (s *Store) SaveRun(ctx context.Context, state *types.RunState) error {
	blob, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding run state: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, mode, phase, window_start, window_end, created_at, state)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			mode=excluded.mode, phase=excluded.phase,
			window_start=excluded.window_start, window_end=excluded.window_end,
			state=excluded.state`,
		state.ID, string(state.Mode), string(state.Phase),
		state.Window.Start.Format(time.RFC3339), state.Window.End.Format(time.RFC3339),
		state.CreatedAt.Format(time.RFC3339Nano), string(blob),
	)
	if err != nil {
		return fmt.Errorf("saving run %s: %w", state.ID, err)
	}
	return nil
}

// LoadRun returns the stored state for a run ID.
func (s *Store) LoadRun(ctx context.Context, id string) (*types.RunState, error) {
	var blob string
	err := s.db.QueryRowContext(ctx, `SELECT state FROM runs WHERE id = ?`, id).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading run %s: %w", id, err)
	}
	var state types.RunState
	if err := json.Unmarshal([]byte(blob), &state); err != nil {
		return nil, fmt.Errorf("decoding run %s: %w", id, err)
	}
	return &state, nil
}

// LatestCompletedRun returns the most recent run that reached done.
func (s *Store) LatestCompletedRun(ctx context.Context) (*types.RunState, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM runs WHERE phase = ? ORDER BY created_at DESC LIMIT 1`,
		string(types.PhaseDone),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no completed runs", ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("finding latest run: %w", err)
	}
	return s.LoadRun(ctx, id)
}

// RunSummary is one row of the run listing.
type RunSummary struct {
	ID        string
	Mode      string
	Phase     string
	CreatedAt time.Time
}

// ListRuns returns run summaries, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, mode, phase, created_at FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		var created string
		if err := rows.Scan(&r.ID, &r.Mode, &r.Phase, &created); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, r)
	}
	return out, rows.Err()
}

// SaveIssue stores the assembled markdown and writes it to
// dir/[runID].md. Returns the markdown file path.
func (s *Store) SaveIssue(ctx context.Context, runID, markdown string) (string, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO issues (run_id, markdown, written_at) VALUES (?, ?, ?)
		 ON CONFLICT(run_id) DO UPDATE SET markdown=excluded.markdown, written_at=excluded.written_at`,
		runID, markdown, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("saving issue for %s: %w", runID, err)
	}

	path := filepath.Join(s.dir, runID+".md")
	if err := os.WriteFile(path, []byte(markdown), 0o644); err != nil {
		return "", fmt.Errorf("writing issue file: %w", err)
	}
	return path, nil
}

// LoadIssue returns the stored markdown for a run.
func (s *Store) LoadIssue(ctx context.Context, runID string) (string, error) {
	var md string
	err := s.db.QueryRowContext(ctx, `SELECT markdown FROM issues WHERE run_id = ?`, runID).Scan(&md)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: no issue for %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return "", fmt.Errorf("loading issue for %s: %w", runID, err)
	}
	return md, nil
}
