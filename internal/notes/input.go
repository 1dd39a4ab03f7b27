package notes

import (
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned when a note does not exist or is in a state that
// makes the requested operation inapplicable.
var ErrNotFound = errors.New("note not found")

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Input carries raw, user-submitted note fields.
type Input struct {
	Title    string
	Content  string
	Category string
	Status   string
	Priority string
	DueDate  string
	Pinned   bool
}

// Fields is a validated Input, ready to be written.
type Fields struct {
	Title    string
	Content  string
	Category string
	Status   Status
	Priority Priority
	DueDate  *time.Time
	Pinned   bool
}

// Validate normalises the input and reports the first failing field.
// Empty status and priority take their defaults.
func (in Input) Validate() (Fields, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return Fields{}, &ValidationError{Field: "title", Message: "Title is required."}
	}

	rawStatus := strings.TrimSpace(in.Status)
	if rawStatus == "" {
		rawStatus = string(StatusTodo)
	}
	status, ok := ParseStatus(rawStatus)
	if !ok {
		return Fields{}, &ValidationError{Field: "status", Message: "Status is invalid."}
	}

	rawPriority := strings.TrimSpace(in.Priority)
	if rawPriority == "" {
		rawPriority = string(PriorityMedium)
	}
	priority, ok := ParsePriority(rawPriority)
	if !ok {
		return Fields{}, &ValidationError{Field: "priority", Message: "Priority is invalid."}
	}

	dueDate, err := parseDueDate(in.DueDate)
	if err != nil {
		return Fields{}, &ValidationError{Field: "due_date", Message: "Due date must be a valid date in YYYY-MM-DD format."}
	}

	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = DefaultCategory
	}

	return Fields{
		Title:    title,
		Content:  strings.TrimSpace(in.Content),
		Category: category,
		Status:   status,
		Priority: priority,
		DueDate:  dueDate,
		Pinned:   in.Pinned,
	}, nil
}

func parseDueDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(DateLayout, raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
