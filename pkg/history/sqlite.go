package history

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// Action is one recorded reconciliation decision.
type Action struct {
	// RunID groups all actions of a single reconciliation run
	RunID string `json:"run_id"`

	// Op is the decision kind (create, update, attach, detach, skip, noop, warn)
	Op string `json:"op"`

	// Policy is the declared policy name
	Policy string `json:"policy"`

	// Target is the attachment target or policy id, when relevant
	Target string `json:"target,omitempty"`

	// Detail is the human-readable diagnostic, when relevant
	Detail string `json:"detail,omitempty"`

	// DryRun records whether the mutation was suppressed
	DryRun bool `json:"dry_run"`

	// At is the decision timestamp
	At time.Time `json:"at"`
}

const schema = `
CREATE TABLE IF NOT EXISTS actions (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id  TEXT NOT NULL,
	op      TEXT NOT NULL,
	policy  TEXT NOT NULL,
	target  TEXT NOT NULL DEFAULT '',
	detail  TEXT NOT NULL DEFAULT '',
	dry_run INTEGER NOT NULL DEFAULT 0,
	at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_actions_run ON actions(run_id);
`

// Store is the SQLite-backed action log.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the action log at path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history database %q: %w", path, err)
	}

	// The log is written by a single process; one connection avoids
	// SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing history schema: %w", err)
	}

	return &Store{
		db:     db,
		logger: logger.With("component", "history"),
	}, nil
}

// Record appends one action to the log.
func (s *Store) Record(a Action) error {
	dryRun := 0
	if a.DryRun {
		dryRun = 1
	}

	_, err := s.db.Exec(
		`INSERT INTO actions (run_id, op, policy, target, detail, dry_run, at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.RunID, a.Op, a.Policy, a.Target, a.Detail, dryRun, a.At.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("recording action: %w", err)
	}
	return nil
}

// Recent returns the most recent limit actions in insertion order
// (oldest of the window first).
func (s *Store) Recent(limit int) ([]Action, error) {
	rows, err := s.db.Query(
		`SELECT run_id, op, policy, target, detail, dry_run, at FROM actions ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var actions []Action
	for rows.Next() {
		var a Action
		var dryRun int
		var at string
		if err := rows.Scan(&a.RunID, &a.Op, &a.Policy, &a.Target, &a.Detail, &dryRun, &at); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		a.DryRun = dryRun != 0
		if t, err := time.Parse(time.RFC3339Nano, at); err == nil {
			a.At = t
		}
		actions = append(actions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history rows: %w", err)
	}

	// Undo the DESC window selection.
	for i, j := 0, len(actions)-1; i < j; i, j = i+1, j-1 {
		actions[i], actions[j] = actions[j], actions[i]
	}
	return actions, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
