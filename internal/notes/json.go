package notes

// NoteJSON is the wire form of a note, shared by the API and exports.
type NoteJSON struct {
	ID         int64   `json:"id"`
	Title      string  `json:"title"`
	Content    string  `json:"content"`
	Category   string  `json:"category"`
	Status     string  `json:"status"`
	Priority   string  `json:"priority"`
	DueDate    *string `json:"due_date"`
	IsPinned   bool    `json:"is_pinned"`
	IsArchived bool    `json:"is_archived"`
	IsDeleted  bool    `json:"is_deleted"`
	CreatedAt  string  `json:"created_at"`
	UpdatedAt  string  `json:"updated_at"`
}

func (n Note) JSON() NoteJSON {
	out := NoteJSON{
		ID:         n.ID,
		Title:      n.Title,
		Content:    n.Content,
		Category:   n.Category,
		Status:     string(n.Status),
		Priority:   string(n.Priority),
		IsPinned:   n.Pinned,
		IsArchived: n.Archived,
		IsDeleted:  n.Deleted,
		CreatedAt:  FormatTimestamp(n.CreatedAt),
		UpdatedAt:  FormatTimestamp(n.UpdatedAt),
	}
	if n.DueDate != nil {
		due := n.DueDateString()
		out.DueDate = &due
	}
	return out
}
