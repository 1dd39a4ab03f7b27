package notes

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Execer is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS notes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	content TEXT DEFAULT '',
	category TEXT NOT NULL DEFAULT 'general',
	status TEXT NOT NULL DEFAULT 'todo',
	priority TEXT NOT NULL DEFAULT 'medium',
	due_date TEXT,
	is_pinned INTEGER NOT NULL DEFAULT 0,
	is_archived INTEGER NOT NULL DEFAULT 0,
	is_deleted INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

type columnAddition struct {
	name       string
	definition string
}

// Order matters: columns are added one statement at a time in this order.
var columnAdditions = []columnAddition{
	{name: "content", definition: "content TEXT DEFAULT ''"},
	{name: "category", definition: "category TEXT NOT NULL DEFAULT 'general'"},
	{name: "status", definition: "status TEXT NOT NULL DEFAULT 'todo'"},
	{name: "priority", definition: "priority TEXT NOT NULL DEFAULT 'medium'"},
	{name: "due_date", definition: "due_date TEXT"},
	{name: "is_pinned", definition: "is_pinned INTEGER NOT NULL DEFAULT 0"},
	{name: "is_archived", definition: "is_archived INTEGER NOT NULL DEFAULT 0"},
	{name: "is_deleted", definition: "is_deleted INTEGER NOT NULL DEFAULT 0"},
	{name: "created_at", definition: "created_at TIMESTAMP"},
	{name: "updated_at", definition: "updated_at TIMESTAMP"},
}

const normalizeSQL = `
UPDATE notes
SET
	category = COALESCE(NULLIF(TRIM(category), ''), 'general'),
	status = CASE WHEN status IN ('todo', 'in_progress', 'done') THEN status ELSE 'todo' END,
	priority = CASE WHEN priority IN ('low', 'medium', 'high') THEN priority ELSE 'medium' END,
	is_pinned = COALESCE(is_pinned, 0),
	is_archived = COALESCE(is_archived, 0),
	is_deleted = COALESCE(is_deleted, 0),
	created_at = COALESCE(NULLIF(created_at, ''), ?1),
	updated_at = COALESCE(NULLIF(updated_at, ''), NULLIF(created_at, ''), ?1)
`

var indexSQL = []string{
	"CREATE INDEX IF NOT EXISTS idx_notes_state ON notes(is_deleted, is_archived, is_pinned)",
	"CREATE INDEX IF NOT EXISTS idx_notes_status ON notes(status, priority)",
	"CREATE INDEX IF NOT EXISTS idx_notes_category ON notes(category)",
}

// EnsureSchema creates the notes table or upgrades a legacy layout in place.
// It only ever adds columns and is safe to run on every startup. Rows
// missing a timestamp are stamped with now.
func EnsureSchema(ctx context.Context, db Execer, now time.Time) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create notes table: %w", err)
	}

	existing, err := tableColumns(ctx, db, "notes")
	if err != nil {
		return err
	}

	for _, col := range columnAdditions {
		if existing[col.name] {
			continue
		}
		if _, err := db.ExecContext(ctx, "ALTER TABLE notes ADD COLUMN "+col.definition); err != nil {
			return fmt.Errorf("add notes.%s column: %w", col.name, err)
		}
		slog.Info("schema column added", "table", "notes", "column", col.name)
	}

	if _, err := db.ExecContext(ctx, normalizeSQL, FormatTimestamp(now)); err != nil {
		return fmt.Errorf("normalize notes: %w", err)
	}
	for _, stmt := range indexSQL {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}

func tableColumns(ctx context.Context, db Execer, table string) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, "SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return nil, fmt.Errorf("read %s columns: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	return cols, rows.Err()
}
