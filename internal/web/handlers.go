package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"notes/internal/notes"
)

// repoHandler receives the repository bound to the request's connection.
type repoHandler func(w http.ResponseWriter, r *http.Request, repo *notes.Repository)

// withRepo checks out one connection per request and releases it when the
// handler returns.
func (s *Server) withRepo(h repoHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		repo, err := s.store.Acquire(r.Context())
		if err != nil {
			s.serverError(w, r, err)
			return
		}
		defer func() {
			if err := repo.Close(); err != nil {
				slog.Warn("release connection", "err", err, "request_id", RequestID(r.Context()))
			}
		}()
		h(w, r, repo)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request, repo *notes.Repository) {
	s.renderIndex(w, r, repo, http.StatusOK, defaultForm(), "")
}

func (s *Server) renderIndex(w http.ResponseWriter, r *http.Request, repo *notes.Repository, status int, form FormData, errMsg string) {
	ctx := r.Context()
	filter := notes.ParseFilter(r.URL.Query())

	list, err := repo.List(ctx, filter)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	counts, err := repo.Counts(ctx)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	categories, err := repo.Categories(ctx)
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	cards := make([]NoteCard, 0, len(list))
	for _, n := range list {
		cards = append(cards, NoteCard{Note: n, RenderedHTML: renderMarkdown(n.Content)})
	}

	s.views.RenderPage(w, status, ViewData{
		Title:           "Notes",
		ContentTemplate: "index",
		Flash:           s.flash.Pop(w, r),
		Error:           errMsg,
		CurrentURL:      currentURL(r),
		Filter:          filter,
		Counts:          counts,
		Categories:      categories,
		Notes:           cards,
		Form:            form,
		Statuses:        notes.Statuses,
		Priorities:      notes.Priorities,
		Views:           notes.Views,
	})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request, repo *notes.Repository) {
	form, err := readForm(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	id, err := repo.Create(r.Context(), form.Input())
	var verr *notes.ValidationError
	if errors.As(err, &verr) {
		slog.Debug("create rejected", "field", verr.Field, "err", verr, "request_id", RequestID(r.Context()))
		s.renderIndex(w, r, repo, http.StatusBadRequest, form, verr.Message)
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	slog.Debug("note created", "id", id)
	s.flash.Set(w, "Note created.")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request, repo *notes.Repository) {
	id, ok := parseID(r)
	if !ok {
		s.notFound(w, r)
		return
	}
	n, err := repo.GetEditable(r.Context(), id)
	if errors.Is(err, notes.ErrNotFound) {
		s.notFound(w, r)
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.renderEdit(w, r, http.StatusOK, id, formFromNote(n), sanitizeNext(r.URL.Query().Get("next"), "/"), "")
}

func (s *Server) renderEdit(w http.ResponseWriter, r *http.Request, status int, id int64, form FormData, next, errMsg string) {
	s.views.RenderPage(w, status, ViewData{
		Title:           "Edit note",
		ContentTemplate: "edit",
		Flash:           s.flash.Pop(w, r),
		Error:           errMsg,
		NoteID:          id,
		NextURL:         next,
		Form:            form,
	})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request, repo *notes.Repository) {
	id, ok := parseID(r)
	if !ok {
		s.notFound(w, r)
		return
	}
	form, err := readForm(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	next := sanitizeNext(r.PostForm.Get("next"), "/")

	err = repo.Update(r.Context(), id, form.Input())
	var verr *notes.ValidationError
	switch {
	case errors.As(err, &verr):
		if _, getErr := repo.GetEditable(r.Context(), id); getErr != nil {
			s.handleLookupError(w, r, getErr)
			return
		}
		slog.Debug("update rejected", "id", id, "field", verr.Field, "request_id", RequestID(r.Context()))
		s.renderEdit(w, r, http.StatusBadRequest, id, form, next, verr.Message)
	case err != nil:
		s.handleLookupError(w, r, err)
	default:
		s.flash.Set(w, "Note updated.")
		http.Redirect(w, r, next, http.StatusSeeOther)
	}
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request, repo *notes.Repository) {
	id, ok := parseID(r)
	if !ok {
		s.notFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	next := sanitizeNext(r.PostForm.Get("next"), "/")
	ctx := r.Context()

	var (
		msg string
		err error
	)
	switch r.PathValue("action") {
	case "pin":
		var n notes.Note
		if n, err = repo.TogglePin(ctx, id); err == nil {
			msg = "Note unpinned."
			if n.Pinned {
				msg = "Note pinned."
			}
		}
	case "archive":
		var n notes.Note
		if n, err = repo.ToggleArchive(ctx, id); err == nil {
			msg = "Note unarchived."
			if n.Archived {
				msg = "Note archived."
			}
		}
	case "trash":
		err = repo.Trash(ctx, id)
		msg = "Note moved to trash."
	case "restore":
		err = repo.Restore(ctx, id)
		msg = "Note restored."
	case "purge":
		err = repo.Purge(ctx, id)
		msg = "Note deleted permanently."
	default:
		s.notFound(w, r)
		return
	}
	if err != nil {
		s.handleLookupError(w, r, err)
		return
	}
	s.flash.Set(w, msg)
	http.Redirect(w, r, next, http.StatusSeeOther)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.notFound(w, r)
}

func (s *Server) handleLookupError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, notes.ErrNotFound) {
		slog.Debug("note not found", "path", r.URL.Path, "request_id", RequestID(r.Context()))
		s.notFound(w, r)
		return
	}
	s.serverError(w, r, err)
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	s.views.RenderPage(w, http.StatusNotFound, ViewData{Title: "Not found", ContentTemplate: "not_found"})
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err, "request_id", RequestID(r.Context()))
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func readForm(r *http.Request) (FormData, error) {
	if err := r.ParseForm(); err != nil {
		return FormData{}, err
	}
	return FormData{
		Title:    r.PostForm.Get("title"),
		Content:  r.PostForm.Get("content"),
		Category: r.PostForm.Get("category"),
		Status:   r.PostForm.Get("status"),
		Priority: r.PostForm.Get("priority"),
		DueDate:  r.PostForm.Get("due_date"),
		Pinned:   r.PostForm.Get("is_pinned") != "",
	}, nil
}

func parseID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// sanitizeNext only accepts local absolute paths so redirects cannot leave
// the site. Browsers drop tabs and newlines from URLs, so any control
// character is refused outright.
func sanitizeNext(raw, fallback string) string {
	next := strings.TrimSpace(raw)
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, `/\`) {
		return fallback
	}
	if strings.IndexFunc(next, isControl) >= 0 {
		return fallback
	}
	return next
}

func isControl(r rune) bool {
	return r < 0x20 || r == 0x7f
}

// currentURL is the dashboard address that action forms return to.
func currentURL(r *http.Request) string {
	if r.Method != http.MethodGet || r.URL.Path != "/" {
		return "/"
	}
	return r.URL.RequestURI()
}
