package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"notes/internal/notes"
)

type listResponse struct {
	Filters notes.Filter     `json:"filters"`
	Counts  notes.ViewCounts `json:"counts"`
	Notes   []notes.NoteJSON `json:"notes"`
}

func (s *Server) handleAPIList(w http.ResponseWriter, r *http.Request, repo *notes.Repository) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	filter := notes.ParseFilter(r.URL.Query())
	list, err := repo.List(r.Context(), filter)
	if err != nil {
		s.apiError(w, r, err)
		return
	}
	counts, err := repo.Counts(r.Context())
	if err != nil {
		s.apiError(w, r, err)
		return
	}
	resp := listResponse{Filters: filter, Counts: counts, Notes: make([]notes.NoteJSON, 0, len(list))}
	for _, n := range list {
		resp.Notes = append(resp.Notes, n.JSON())
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAPIGet(w http.ResponseWriter, r *http.Request, repo *notes.Repository) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id, ok := parseID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	n, err := repo.Get(r.Context(), id)
	if errors.Is(err, notes.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		s.apiError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, n.JSON())
}

func (s *Server) apiError(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("api request failed", "path", r.URL.Path, "err", err, "request_id", RequestID(r.Context()))
	writeError(w, http.StatusInternalServerError, "internal server error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("write json", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
