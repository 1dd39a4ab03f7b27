package notes

import "strings"

type Query struct {
	Where   string
	Args    []any
	OrderBy string
}

const noteColumns = `id, title, content, category, status, priority, due_date,
	is_pinned, is_archived, is_deleted,
	CAST(created_at AS TEXT), CAST(updated_at AS TEXT)`

// listOrder puts pinned, urgent and soon-due notes first; recency and id
// break the remaining ties so the order is deterministic.
const listOrder = `is_pinned DESC,
	CASE priority WHEN 'high' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END,
	CASE WHEN due_date IS NULL OR due_date = '' THEN 1 ELSE 0 END,
	due_date ASC,
	updated_at DESC,
	id DESC`

// CountsQuery counts each view partition, ignoring every other filter.
const CountsQuery = `SELECT
	COALESCE(SUM(CASE WHEN is_deleted = 0 AND is_archived = 0 THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN is_deleted = 0 AND is_archived = 1 THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN is_deleted = 1 THEN 1 ELSE 0 END), 0)
FROM notes`

func BuildQuery(f Filter) Query {
	clauses := viewClauses(f.View)
	var args []any

	if f.Query != "" {
		clauses = append(clauses, `(title LIKE ? ESCAPE '\' OR content LIKE ? ESCAPE '\' OR category LIKE ? ESCAPE '\')`)
		pattern := "%" + escapeLike(f.Query) + "%"
		args = append(args, pattern, pattern, pattern)
	}
	if f.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.Priority != "" {
		clauses = append(clauses, "priority = ?")
		args = append(args, string(f.Priority))
	}
	if f.Category != "" {
		clauses = append(clauses, "category = ?")
		args = append(args, f.Category)
	}

	return Query{
		Where:   strings.Join(clauses, " AND "),
		Args:    args,
		OrderBy: listOrder,
	}
}

// SQL renders the full SELECT for the query.
func (q Query) SQL() string {
	return "SELECT " + noteColumns + " FROM notes WHERE " + q.Where + " ORDER BY " + q.OrderBy
}

func viewClauses(v View) []string {
	switch v {
	case ViewTrash:
		return []string{"is_deleted = 1"}
	case ViewArchived:
		return []string{"is_deleted = 0", "is_archived = 1"}
	default:
		return []string{"is_deleted = 0", "is_archived = 0"}
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
