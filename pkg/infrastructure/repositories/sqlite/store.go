// Package sqlite persists plan snapshots, run records and three-way match lines in SQLite.
//
// Snapshots and match lines are stored as JSON documents next to the columns used for
// lookups. A plan commit is a single INSERT inside a transaction, so readers see either
// the previous version or the new one. Match lines carry a version column that SaveLine
// compares inside the same transaction that writes the new document.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/vsinha/mrp-planner/pkg/domain/entities"
	"github.com/vsinha/mrp-planner/pkg/domain/repositories"
)

// Store implements PlanStore and MatchStore on one SQLite database
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ repositories.PlanStore  = (*Store)(nil)
	_ repositories.MatchStore = (*Store)(nil)
)

// New opens the database at path and migrates the schema.
// Use ":memory:" for a private in-memory database.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS plan_snapshots (
		version INTEGER PRIMARY KEY,
		run_id TEXT NOT NULL,
		created_at TEXT NOT NULL,
		payload_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS mrp_runs (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		started_at TEXT NOT NULL,
		payload_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_mrp_runs_started
		ON mrp_runs(started_at DESC);

	CREATE TABLE IF NOT EXISTS match_lines (
		id TEXT PRIMARY KEY,
		po_id TEXT NOT NULL,
		line_number INTEGER NOT NULL,
		match_status TEXT NOT NULL,
		version INTEGER NOT NULL,
		payload_json TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_match_lines_po_line
		ON match_lines(po_id, line_number);
	CREATE INDEX IF NOT EXISTS idx_match_lines_status
		ON match_lines(match_status);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// PLAN STORE
// =============================================================================

// CommitPlan inserts the snapshot as max(version)+1 when max(version) still equals baseVersion
func (s *Store) CommitPlan(ctx context.Context, snapshot *entities.PlanSnapshot, baseVersion int) (*entities.PlanSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var current int
	if err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM plan_snapshots").Scan(&current); err != nil {
		return nil, fmt.Errorf("failed to read plan version: %w", err)
	}
	if current != baseVersion {
		return nil, &entities.ConflictError{Resource: "plan", Expected: baseVersion, Actual: current}
	}

	committed := *snapshot
	committed.Version = current + 1
	payload, err := json.Marshal(&committed)
	if err != nil {
		return nil, fmt.Errorf("failed to encode plan: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO plan_snapshots (version, run_id, created_at, payload_json) VALUES (?, ?, ?, ?)",
		committed.Version, committed.RunID, committed.CreatedAt.UTC().Format(time.RFC3339Nano), string(payload))
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, &entities.ConflictError{Resource: "plan", Expected: baseVersion, Actual: current + 1}
		}
		return nil, fmt.Errorf("failed to insert plan: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit plan: %w", err)
	}
	return &committed, nil
}

func (s *Store) LatestPlan(ctx context.Context) (*entities.PlanSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryPlan(ctx, s.db, "SELECT payload_json FROM plan_snapshots ORDER BY version DESC LIMIT 1")
}

func (s *Store) GetPlan(ctx context.Context, version int) (*entities.PlanSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	plan, err := s.queryPlan(ctx, s.db, "SELECT payload_json FROM plan_snapshots WHERE version = ?", version)
	if err != nil {
		return nil, fmt.Errorf("plan version %d: %w", version, err)
	}
	return plan, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) queryPlan(ctx context.Context, q queryer, query string, args ...any) (*entities.PlanSnapshot, error) {
	var payload string
	err := q.QueryRowContext(ctx, query, args...).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("plan: %w", entities.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query plan: %w", err)
	}
	var plan entities.PlanSnapshot
	if err := json.Unmarshal([]byte(payload), &plan); err != nil {
		return nil, fmt.Errorf("failed to decode plan: %w", err)
	}
	return &plan, nil
}

// SaveRun upserts a run record
func (s *Store) SaveRun(ctx context.Context, run *entities.MRPRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to encode run: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO mrp_runs (id, status, started_at, payload_json) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET status = excluded.status, payload_json = excluded.payload_json
	`, run.ID, string(run.Status), run.StartedAt.UTC().Format(time.RFC3339Nano), string(payload))
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

func (s *Store) GetRun(ctx context.Context, id string) (*entities.MRPRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var payload string
	err := s.db.QueryRowContext(ctx, "SELECT payload_json FROM mrp_runs WHERE id = ?", id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, entities.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	var run entities.MRPRun
	if err := json.Unmarshal([]byte(payload), &run); err != nil {
		return nil, fmt.Errorf("failed to decode run: %w", err)
	}
	return &run, nil
}

// ListRuns returns runs newest first
func (s *Store) ListRuns(ctx context.Context) ([]*entities.MRPRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT payload_json FROM mrp_runs ORDER BY started_at DESC, id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*entities.MRPRun
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		var run entities.MRPRun
		if err := json.Unmarshal([]byte(payload), &run); err != nil {
			return nil, fmt.Errorf("failed to decode run: %w", err)
		}
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}

// UpdateActionMessage rewrites the latest snapshot document with new review flags
func (s *Store) UpdateActionMessage(ctx context.Context, id string, reviewed, implemented bool) (*entities.ActionMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	plan, err := s.queryPlan(ctx, tx, "SELECT payload_json FROM plan_snapshots ORDER BY version DESC LIMIT 1")
	if err != nil {
		return nil, fmt.Errorf("action message %s: %w", id, err)
	}

	var updated *entities.ActionMessage
	for _, msg := range plan.ActionMessages {
		if msg.ID == id {
			msg.IsReviewed = msg.IsReviewed || reviewed || implemented
			msg.IsImplemented = msg.IsImplemented || implemented
			updated = msg
			break
		}
	}
	if updated == nil {
		return nil, fmt.Errorf("action message %s: %w", id, entities.ErrNotFound)
	}

	payload, err := json.Marshal(plan)
	if err != nil {
		return nil, fmt.Errorf("failed to encode plan: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "UPDATE plan_snapshots SET payload_json = ? WHERE version = ?", string(payload), plan.Version); err != nil {
		return nil, fmt.Errorf("failed to update action message: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit action message: %w", err)
	}
	return updated, nil
}

// =============================================================================
// MATCH STORE
// =============================================================================

func (s *Store) GetLine(ctx context.Context, id string) (*entities.MatchLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var payload string
	var version int
	err := s.db.QueryRowContext(ctx, "SELECT payload_json, version FROM match_lines WHERE id = ?", id).Scan(&payload, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("match line %s: %w", id, entities.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query match line: %w", err)
	}
	return decodeLine(payload, version)
}

// SaveLine inserts a new line at expectedVersion 0 or updates one whose stored version matches
func (s *Store) SaveLine(ctx context.Context, line *entities.MatchLine, expectedVersion int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	actual := 0
	err = tx.QueryRowContext(ctx, "SELECT version FROM match_lines WHERE id = ?", line.ID).Scan(&actual)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to read match line version: %w", err)
	}
	if actual != expectedVersion {
		return &entities.ConflictError{Resource: "match line " + line.ID, Expected: expectedVersion, Actual: actual}
	}

	saved := line.Clone()
	saved.Version = expectedVersion + 1
	payload, err := json.Marshal(saved)
	if err != nil {
		return fmt.Errorf("failed to encode match line: %w", err)
	}
	updatedAt := saved.UpdatedAt.UTC().Format(time.RFC3339Nano)

	if expectedVersion == 0 {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO match_lines (id, po_id, line_number, match_status, version, payload_json, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, saved.ID, saved.POID, saved.LineNumber, saved.Status.String(), saved.Version, string(payload), updatedAt)
		if isUniqueConstraintError(err) {
			return fmt.Errorf("match line %s/%d already exists: %w", saved.POID, saved.LineNumber, entities.ErrInvalidInput)
		}
	} else {
		_, err = tx.ExecContext(ctx, `
			UPDATE match_lines SET match_status = ?, version = ?, payload_json = ?, updated_at = ?
			WHERE id = ? AND version = ?
		`, saved.Status.String(), saved.Version, string(payload), updatedAt, saved.ID, expectedVersion)
	}
	if err != nil {
		return fmt.Errorf("failed to save match line: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit match line: %w", err)
	}
	line.Version = saved.Version
	return nil
}

// ListByPO returns the lines of a purchase order ordered by line number
func (s *Store) ListByPO(ctx context.Context, poID string) ([]*entities.MatchLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT payload_json, version FROM match_lines WHERE po_id = ? ORDER BY line_number ASC", poID)
	if err != nil {
		return nil, fmt.Errorf("failed to query match lines: %w", err)
	}
	defer rows.Close()

	var lines []*entities.MatchLine
	for rows.Next() {
		var payload string
		var version int
		if err := rows.Scan(&payload, &version); err != nil {
			return nil, fmt.Errorf("failed to scan match line: %w", err)
		}
		line, err := decodeLine(payload, version)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func decodeLine(payload string, version int) (*entities.MatchLine, error) {
	var line entities.MatchLine
	if err := json.Unmarshal([]byte(payload), &line); err != nil {
		return nil, fmt.Errorf("failed to decode match line: %w", err)
	}
	line.Version = version
	return &line, nil
}

func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}
