package notes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Repository runs note operations over a single connection or the pool.
// Each mutation is one statement whose WHERE clause carries the precondition,
// so a zero row count means the note is absent or in the wrong state.
type Repository struct {
	q           querier
	conn        *sql.Conn
	lockTimeout time.Duration
	now         func() time.Time
}

// Close releases the connection checked out by Store.Acquire.
func (r *Repository) Close() error {
	if r.conn == nil {
		return nil
	}
	return r.conn.Close()
}

func (r *Repository) timestamp() string {
	return FormatTimestamp(r.now())
}

func (r *Repository) Create(ctx context.Context, in Input) (int64, error) {
	fields, err := in.Validate()
	if err != nil {
		return 0, err
	}
	now := r.timestamp()
	res, err := r.execContext(ctx, `
		INSERT INTO notes (title, content, category, status, priority, due_date, is_pinned, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		fields.Title,
		fields.Content,
		fields.Category,
		string(fields.Status),
		string(fields.Priority),
		dueDateArg(fields.DueDate),
		boolArg(fields.Pinned),
		now,
		now,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *Repository) List(ctx context.Context, f Filter) ([]Note, error) {
	q := BuildQuery(f)
	rows, err := r.queryContext(ctx, q.SQL(), q.Args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *Repository) Get(ctx context.Context, id int64) (Note, error) {
	n, err := scanNote(r.queryRowContext(ctx, "SELECT "+noteColumns+" FROM notes WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return Note{}, ErrNotFound
	}
	if err != nil {
		return Note{}, err
	}
	return n, nil
}

// GetEditable returns the note only when it is not in trash; trashed notes
// must be restored before they can be edited.
func (r *Repository) GetEditable(ctx context.Context, id int64) (Note, error) {
	n, err := r.Get(ctx, id)
	if err != nil {
		return Note{}, err
	}
	if n.Deleted {
		return Note{}, ErrNotFound
	}
	return n, nil
}

func (r *Repository) Update(ctx context.Context, id int64, in Input) error {
	fields, err := in.Validate()
	if err != nil {
		return err
	}
	res, err := r.execContext(ctx, `
		UPDATE notes
		SET title = ?, content = ?, category = ?, status = ?, priority = ?, due_date = ?, is_pinned = ?, updated_at = ?
		WHERE id = ? AND is_deleted = 0`,
		fields.Title,
		fields.Content,
		fields.Category,
		string(fields.Status),
		string(fields.Priority),
		dueDateArg(fields.DueDate),
		boolArg(fields.Pinned),
		r.timestamp(),
		id,
	)
	if err != nil {
		return err
	}
	return requireOne(res)
}

func (r *Repository) TogglePin(ctx context.Context, id int64) (Note, error) {
	return r.toggle(ctx, id, "is_pinned")
}

func (r *Repository) ToggleArchive(ctx context.Context, id int64) (Note, error) {
	return r.toggle(ctx, id, "is_archived")
}

func (r *Repository) toggle(ctx context.Context, id int64, column string) (Note, error) {
	res, err := r.execContext(ctx,
		"UPDATE notes SET "+column+" = 1 - "+column+", updated_at = ? WHERE id = ? AND is_deleted = 0",
		r.timestamp(), id)
	if err != nil {
		return Note{}, err
	}
	if err := requireOne(res); err != nil {
		return Note{}, err
	}
	return r.Get(ctx, id)
}

func (r *Repository) Trash(ctx context.Context, id int64) error {
	return r.setDeleted(ctx, id, true)
}

func (r *Repository) Restore(ctx context.Context, id int64) error {
	return r.setDeleted(ctx, id, false)
}

func (r *Repository) setDeleted(ctx context.Context, id int64, deleted bool) error {
	res, err := r.execContext(ctx,
		"UPDATE notes SET is_deleted = ?, updated_at = ? WHERE id = ? AND is_deleted = ?",
		boolArg(deleted), r.timestamp(), id, boolArg(!deleted))
	if err != nil {
		return err
	}
	return requireOne(res)
}

// Purge permanently removes a note that is already in trash.
func (r *Repository) Purge(ctx context.Context, id int64) error {
	res, err := r.execContext(ctx, "DELETE FROM notes WHERE id = ? AND is_deleted = 1", id)
	if err != nil {
		return err
	}
	return requireOne(res)
}

// EmptyTrash purges every trashed note and reports how many were removed.
func (r *Repository) EmptyTrash(ctx context.Context) (int64, error) {
	res, err := r.execContext(ctx, "DELETE FROM notes WHERE is_deleted = 1")
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *Repository) Counts(ctx context.Context) (ViewCounts, error) {
	var c ViewCounts
	if err := r.queryRowContext(ctx, CountsQuery).Scan(&c.Active, &c.Archived, &c.Trash); err != nil {
		return ViewCounts{}, err
	}
	return c, nil
}

func (r *Repository) Categories(ctx context.Context) ([]string, error) {
	rows, err := r.queryContext(ctx, `
		SELECT DISTINCT category
		FROM notes
		WHERE category IS NOT NULL AND TRIM(category) != ''
		ORDER BY category COLLATE NOCASE ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// All returns every note regardless of view, oldest first.
func (r *Repository) All(ctx context.Context) ([]Note, error) {
	rows, err := r.queryContext(ctx, "SELECT "+noteColumns+" FROM notes ORDER BY id ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func scanNote(row rowScanner) (Note, error) {
	var (
		n         Note
		content   sql.NullString
		status    string
		priority  string
		dueDate   sql.NullString
		createdAt sql.NullString
		updatedAt sql.NullString
	)
	err := row.Scan(
		&n.ID,
		&n.Title,
		&content,
		&n.Category,
		&status,
		&priority,
		&dueDate,
		&n.Pinned,
		&n.Archived,
		&n.Deleted,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return Note{}, err
	}
	n.Content = content.String
	n.Status = Status(status)
	n.Priority = Priority(priority)

	if dueDate.Valid && dueDate.String != "" {
		d, err := time.Parse(DateLayout, dueDate.String)
		if err != nil {
			return Note{}, fmt.Errorf("note %d: due_date %q: %w", n.ID, dueDate.String, err)
		}
		n.DueDate = &d
	}
	if createdAt.Valid {
		if n.CreatedAt, err = parseTimestamp(createdAt.String); err != nil {
			return Note{}, fmt.Errorf("note %d: created_at: %w", n.ID, err)
		}
	}
	if updatedAt.Valid {
		if n.UpdatedAt, err = parseTimestamp(updatedAt.String); err != nil {
			return Note{}, fmt.Errorf("note %d: updated_at: %w", n.ID, err)
		}
	}
	return n, nil
}

func requireOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func dueDateArg(d *time.Time) any {
	if d == nil {
		return nil
	}
	return d.Format(DateLayout)
}

func boolArg(b bool) int {
	if b {
		return 1
	}
	return 0
}
