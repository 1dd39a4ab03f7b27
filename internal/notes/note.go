package notes

import (
	"strings"
	"time"
)

const (
	DefaultCategory = "general"
	DateLayout      = "2006-01-02"
	TimestampLayout = "2006-01-02 15:04:05"

	// All is the filter value that disables a filter.
	All = "all"
)

type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

var Statuses = []Status{StatusTodo, StatusInProgress, StatusDone}

func ParseStatus(raw string) (Status, bool) {
	for _, s := range Statuses {
		if string(s) == raw {
			return s, true
		}
	}
	return "", false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

func ParsePriority(raw string) (Priority, bool) {
	for _, p := range Priorities {
		if string(p) == raw {
			return p, true
		}
	}
	return "", false
}

// Rank orders priorities for listing: high first.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

type View string

const (
	ViewActive   View = "active"
	ViewArchived View = "archived"
	ViewTrash    View = "trash"
)

var Views = []View{ViewActive, ViewArchived, ViewTrash}

func ParseView(raw string) (View, bool) {
	for _, v := range Views {
		if string(v) == raw {
			return v, true
		}
	}
	return "", false
}

type Note struct {
	ID        int64
	Title     string
	Content   string
	Category  string
	Status    Status
	Priority  Priority
	DueDate   *time.Time
	Pinned    bool
	Archived  bool
	Deleted   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// View reports which partition the note is listed under.
func (n Note) View() View {
	switch {
	case n.Deleted:
		return ViewTrash
	case n.Archived:
		return ViewArchived
	default:
		return ViewActive
	}
}

func (n Note) DueDateString() string {
	if n.DueDate == nil {
		return ""
	}
	return n.DueDate.Format(DateLayout)
}

type ViewCounts struct {
	Active   int `json:"active"`
	Archived int `json:"archived"`
	Trash    int `json:"trash"`
}

// FormatLabel turns an enum value like in_progress into "In Progress".
func FormatLabel(value string) string {
	words := strings.Fields(strings.ReplaceAll(value, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{TimestampLayout, time.RFC3339Nano, "2006-01-02T15:04:05", DateLayout} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Parse(TimestampLayout, raw)
}
