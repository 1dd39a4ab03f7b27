package web

import (
	"html/template"

	"notes/internal/notes"
)

type ViewData struct {
	Title           string
	ContentTemplate string
	ContentHTML     template.HTML
	Flash           string
	Error           string
	CurrentURL      string

	Filter     notes.Filter
	Counts     notes.ViewCounts
	Categories []string
	Notes      []NoteCard
	Form       FormData

	NoteID  int64
	NextURL string

	Statuses   []notes.Status
	Priorities []notes.Priority
	Views      []notes.View
}

// NoteCard is a note prepared for the dashboard.
type NoteCard struct {
	notes.Note
	RenderedHTML template.HTML
}

// FormData holds create/edit form values exactly as submitted, so a failed
// submission can be shown again.
type FormData struct {
	Title    string
	Content  string
	Category string
	Status   string
	Priority string
	DueDate  string
	Pinned   bool
}

func (f FormData) Input() notes.Input {
	return notes.Input{
		Title:    f.Title,
		Content:  f.Content,
		Category: f.Category,
		Status:   f.Status,
		Priority: f.Priority,
		DueDate:  f.DueDate,
		Pinned:   f.Pinned,
	}
}

func defaultForm() FormData {
	return FormData{
		Category: notes.DefaultCategory,
		Status:   string(notes.StatusTodo),
		Priority: string(notes.PriorityMedium),
	}
}

func formFromNote(n notes.Note) FormData {
	return FormData{
		Title:    n.Title,
		Content:  n.Content,
		Category: n.Category,
		Status:   string(n.Status),
		Priority: string(n.Priority),
		DueDate:  n.DueDateString(),
		Pinned:   n.Pinned,
	}
}
