package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fyrsmithlabs/planner/internal/config"
	"github.com/fyrsmithlabs/planner/internal/plan"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS plans (
	id TEXT PRIMARY KEY,
	position INTEGER NOT NULL,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	time_horizon TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS tasks (
	id TEXT NOT NULL,
	plan_id TEXT NOT NULL REFERENCES plans(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	title TEXT NOT NULL,
	due_date TEXT NOT NULL,
	priority TEXT NOT NULL,
	notes TEXT NOT NULL DEFAULT '',
	emoji TEXT NOT NULL DEFAULT '',
	completed INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (plan_id, id)
);
CREATE INDEX IF NOT EXISTS idx_tasks_plan ON tasks(plan_id, position);
CREATE TABLE IF NOT EXISTS meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

const metaCurrentPlan = "current_plan_id"

// SQLitePersister stores state in a SQLite database.
type SQLitePersister struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (creating if needed) the database at path. A leading
// "~/" expands to the user's home directory and ":memory:" is accepted.
func OpenSQLite(path string) (*SQLitePersister, error) {
	path, err := config.ExpandPath(path)
	if err != nil {
		return nil, err
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent and
	// serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return &SQLitePersister{db: db, path: path}, nil
}

// Path returns the resolved database path.
func (p *SQLitePersister) Path() string {
	return p.path
}

// Close closes the database.
func (p *SQLitePersister) Close() error {
	return p.db.Close()
}

// Load implements Persister. Plans come back in stored order.
func (p *SQLitePersister) Load(ctx context.Context) (Persisted, error) {
	var out Persisted

	rows, err := p.db.QueryContext(ctx,
		"SELECT id, title, description, time_horizon, created_at FROM plans ORDER BY position")
	if err != nil {
		return out, fmt.Errorf("querying plans: %w", err)
	}
	byID := make(map[string]*plan.Plan)
	for rows.Next() {
		var (
			pl      plan.Plan
			horizon string
			created string
		)
		if err := rows.Scan(&pl.ID, &pl.Title, &pl.Description, &horizon, &created); err != nil {
			rows.Close()
			return out, fmt.Errorf("scanning plan: %w", err)
		}
		pl.TimeHorizon = plan.TimeHorizon(horizon)
		if pl.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			rows.Close()
			return out, fmt.Errorf("plan %s: bad created_at %q: %w", pl.ID, created, err)
		}
		pl.Tasks = []plan.Task{}
		out.Plans = append(out.Plans, &pl)
		byID[pl.ID] = &pl
	}
	if err := rows.Close(); err != nil {
		return out, err
	}

	rows, err = p.db.QueryContext(ctx,
		"SELECT plan_id, id, title, due_date, priority, notes, emoji, completed FROM tasks ORDER BY plan_id, position")
	if err != nil {
		return out, fmt.Errorf("querying tasks: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			planID   string
			t        plan.Task
			priority string
		)
		if err := rows.Scan(&planID, &t.ID, &t.Title, &t.DueDate, &priority, &t.Notes, &t.Emoji, &t.Completed); err != nil {
			return out, fmt.Errorf("scanning task: %w", err)
		}
		t.Priority = plan.Priority(priority)
		if pl, ok := byID[planID]; ok {
			pl.Tasks = append(pl.Tasks, t)
		}
	}
	if err := rows.Err(); err != nil {
		return out, err
	}
	for _, pl := range out.Plans {
		pl.RecountCompleted()
	}

	err = p.db.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = ?", metaCurrentPlan).Scan(&out.CurrentPlanID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return out, fmt.Errorf("reading current plan: %w", err)
	}
	return out, nil
}

// Save implements Persister. The whole state is rewritten in one transaction.
func (p *SQLitePersister) Save(ctx context.Context, st Persisted) (err error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, stmt := range []string{"DELETE FROM tasks", "DELETE FROM plans"} {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clearing state: %w", err)
		}
	}

	for i, pl := range st.Plans {
		if _, err = tx.ExecContext(ctx,
			"INSERT INTO plans (id, position, title, description, time_horizon, created_at) VALUES (?, ?, ?, ?, ?, ?)",
			pl.ID, i, pl.Title, pl.Description, string(pl.TimeHorizon), pl.CreatedAt.UTC().Format(time.RFC3339Nano),
		); err != nil {
			return fmt.Errorf("inserting plan %s: %w", pl.ID, err)
		}
		for j, t := range pl.Tasks {
			if _, err = tx.ExecContext(ctx,
				"INSERT INTO tasks (id, plan_id, position, title, due_date, priority, notes, emoji, completed) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
				t.ID, pl.ID, j, t.Title, t.DueDate, string(t.Priority), t.Notes, t.Emoji, t.Completed,
			); err != nil {
				return fmt.Errorf("inserting task %s: %w", t.ID, err)
			}
		}
	}

	if st.CurrentPlanID == "" {
		_, err = tx.ExecContext(ctx, "DELETE FROM meta WHERE key = ?", metaCurrentPlan)
	} else {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
			metaCurrentPlan, st.CurrentPlanID)
	}
	if err != nil {
		return fmt.Errorf("writing current plan: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
