package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"notes/internal/config"
	"notes/internal/notes"
)

func newTestServer(t *testing.T, mutate ...func(*config.Config)) (*Server, *notes.Store) {
	t.Helper()
	store, err := notes.Open(filepath.Join(t.TempDir(), "notes.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("init store: %v", err)
	}
	cfg := config.Config{
		SecretKey:      "test-secret",
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
		CORSOrigins:    []string{"https://app.example"},
	}
	for _, fn := range mutate {
		fn(&cfg)
	}
	srv, err := NewServer(cfg, store)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return srv, store
}

func serve(srv *Server, method, target string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func mustCreate(t *testing.T, store *notes.Store, in notes.Input) int64 {
	t.Helper()
	id, err := store.Repository().Create(context.Background(), in)
	if err != nil {
		t.Fatalf("create note: %v", err)
	}
	return id
}

func flashCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == flashCookieName {
			return c
		}
	}
	return nil
}

func noteURL(id int64, suffix string) string {
	return "/notes/" + strconv.FormatInt(id, 10) + suffix
}

func TestIndexRendersNotesAndCounts(t *testing.T) {
	srv, store := newTestServer(t)
	mustCreate(t, store, notes.Input{Title: "Greeting", Content: "Hello **world**", Status: "in_progress"})
	archived := mustCreate(t, store, notes.Input{Title: "Old stuff"})
	if _, err := store.Repository().ToggleArchive(context.Background(), archived); err != nil {
		t.Fatalf("archive: %v", err)
	}

	rec := serve(srv, http.MethodGet, "/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"<strong>world</strong>", "Active (1)", "Archived (1)", "Trash (0)", "In Progress"} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected body to contain %q", want)
		}
	}
	if strings.Contains(body, "Old stuff") {
		t.Fatalf("archived note leaked into active view")
	}

	rec = serve(srv, http.MethodGet, "/?view=archived", nil)
	if !strings.Contains(rec.Body.String(), "Old stuff") {
		t.Fatalf("expected archived note in archived view")
	}
}

func TestIndexEscapesRawHTML(t *testing.T) {
	srv, store := newTestServer(t)
	mustCreate(t, store, notes.Input{Title: "<b>bold</b>", Content: "<script>alert(1)</script>"})

	body := serve(srv, http.MethodGet, "/", nil).Body.String()
	if strings.Contains(body, "<script>alert(1)</script>") || strings.Contains(body, "<b>bold</b>") {
		t.Fatalf("raw html was not escaped")
	}
}

func TestCreateRedirectsWithFlash(t *testing.T) {
	srv, store := newTestServer(t)

	rec := serve(srv, http.MethodPost, "/notes", url.Values{"title": {"Buy milk"}, "priority": {"high"}, "is_pinned": {"1"}})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/" {
		t.Fatalf("expected redirect to /, got %q", loc)
	}
	cookie := flashCookie(rec)
	if cookie == nil {
		t.Fatalf("expected flash cookie")
	}

	list, err := store.Repository().List(context.Background(), notes.Filter{View: notes.ViewActive})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Title != "Buy milk" || list[0].Priority != notes.PriorityHigh || !list[0].Pinned {
		t.Fatalf("unexpected notes %+v", list)
	}

	rec = serve(srv, http.MethodGet, "/", nil, cookie)
	if !strings.Contains(rec.Body.String(), "Note created.") {
		t.Fatalf("expected flash message on dashboard")
	}
	cleared := flashCookie(rec)
	if cleared == nil || cleared.MaxAge >= 0 {
		t.Fatalf("expected flash cookie to be cleared, got %+v", cleared)
	}
}

func TestCreateValidationRerenders(t *testing.T) {
	srv, store := newTestServer(t)

	rec := serve(srv, http.MethodPost, "/notes", url.Values{"title": {"   "}, "content": {"keep this text"}, "category": {"errands"}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"Title is required.", "keep this text", `value="errands"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected body to contain %q", want)
		}
	}

	counts, err := store.Repository().Counts(context.Background())
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts != (notes.ViewCounts{}) {
		t.Fatalf("expected no notes, got %+v", counts)
	}
}

func TestEditPage(t *testing.T) {
	srv, store := newTestServer(t)
	id := mustCreate(t, store, notes.Input{Title: "Draft", DueDate: "2026-04-01"})

	rec := serve(srv, http.MethodGet, noteURL(id, "/edit?next=/%3Fview%3Darchived"), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `value="Draft"`) || !strings.Contains(body, `value="2026-04-01"`) {
		t.Fatalf("expected note values in edit form")
	}
	if !strings.Contains(body, `name="next" value="/?view=archived"`) {
		t.Fatalf("expected next url in edit form")
	}

	if rec := serve(srv, http.MethodGet, "/notes/999/edit", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing note, got %d", rec.Code)
	}
	if rec := serve(srv, http.MethodGet, "/notes/abc/edit", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for bad id, got %d", rec.Code)
	}

	if err := store.Repository().Trash(context.Background(), id); err != nil {
		t.Fatalf("trash: %v", err)
	}
	rec = serve(srv, http.MethodGet, noteURL(id, "/edit"), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for trashed note, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Not found") {
		t.Fatalf("expected not found page")
	}
}

func TestUpdate(t *testing.T) {
	srv, store := newTestServer(t)
	id := mustCreate(t, store, notes.Input{Title: "Draft"})

	rec := serve(srv, http.MethodPost, noteURL(id, "/edit"), url.Values{
		"title": {"Final"}, "status": {"done"}, "next": {"/?view=active&q=fin"},
	})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/?view=active&q=fin" {
		t.Fatalf("unexpected redirect %q", loc)
	}
	n, err := store.Repository().Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if n.Title != "Final" || n.Status != notes.StatusDone {
		t.Fatalf("update not applied: %+v", n)
	}

	rec = serve(srv, http.MethodPost, noteURL(id, "/edit"), url.Values{"title": {"Changed"}, "due_date": {"tomorrow"}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Due date must be a valid date in YYYY-MM-DD format.") || !strings.Contains(body, `value="Changed"`) {
		t.Fatalf("expected error and submitted values in body")
	}

	if rec := serve(srv, http.MethodPost, "/notes/404/edit", url.Values{"title": {"x"}}); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestActionsRedirectToSanitizedNext(t *testing.T) {
	srv, store := newTestServer(t)
	id := mustCreate(t, store, notes.Input{Title: "Act"})

	cases := []struct {
		action string
		next   string
		want   string
	}{
		{"pin", "/?view=active", "/?view=active"},
		{"pin", "//evil.example", "/"},
		{"archive", "https://evil.example/", "/"},
		{"archive", `/\evil.example`, "/"},
		{"pin", "/\t/evil.example", "/"},
		{"pin", "/\n/evil.example", "/"},
		{"trash", "", "/"},
		{"restore", "/?view=trash", "/?view=trash"},
	}
	for _, tc := range cases {
		rec := serve(srv, http.MethodPost, noteURL(id, "/"+tc.action), url.Values{"next": {tc.next}})
		if rec.Code != http.StatusSeeOther {
			t.Fatalf("%s: expected 303, got %d", tc.action, rec.Code)
		}
		if loc := rec.Header().Get("Location"); loc != tc.want {
			t.Fatalf("%s next=%q: expected %q, got %q", tc.action, tc.next, tc.want, loc)
		}
	}

	n, err := store.Repository().Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if n.Pinned || n.Archived || n.Deleted {
		t.Fatalf("expected toggles to cancel out, got %+v", n)
	}
}

func TestActionPreconditions(t *testing.T) {
	srv, store := newTestServer(t)
	id := mustCreate(t, store, notes.Input{Title: "Guarded"})

	if rec := serve(srv, http.MethodPost, noteURL(id, "/purge"), url.Values{}); rec.Code != http.StatusNotFound {
		t.Fatalf("purge of active note: expected 404, got %d", rec.Code)
	}
	if rec := serve(srv, http.MethodPost, noteURL(id, "/restore"), url.Values{}); rec.Code != http.StatusNotFound {
		t.Fatalf("restore of active note: expected 404, got %d", rec.Code)
	}
	if rec := serve(srv, http.MethodPost, noteURL(id, "/explode"), url.Values{}); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown action: expected 404, got %d", rec.Code)
	}

	if rec := serve(srv, http.MethodPost, noteURL(id, "/trash"), url.Values{}); rec.Code != http.StatusSeeOther {
		t.Fatalf("trash: expected 303, got %d", rec.Code)
	}
	if rec := serve(srv, http.MethodPost, noteURL(id, "/pin"), url.Values{}); rec.Code != http.StatusNotFound {
		t.Fatalf("pin of trashed note: expected 404, got %d", rec.Code)
	}
	if rec := serve(srv, http.MethodPost, noteURL(id, "/purge"), url.Values{}); rec.Code != http.StatusSeeOther {
		t.Fatalf("purge: expected 303, got %d", rec.Code)
	}
	if _, err := store.Repository().Get(context.Background(), id); err != notes.ErrNotFound {
		t.Fatalf("expected ErrNotFound after purge, got %v", err)
	}
}

func TestUnknownRouteRendersNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := serve(srv, http.MethodGet, "/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Back to notes") {
		t.Fatalf("expected not found page")
	}
}

func TestRateLimitOnWrites(t *testing.T) {
	srv, _ := newTestServer(t, func(cfg *config.Config) {
		cfg.RateLimitRPS = 0.001
		cfg.RateLimitBurst = 1
	})
	form := url.Values{"title": {"one"}}
	if rec := serve(srv, http.MethodPost, "/notes", form); rec.Code != http.StatusSeeOther {
		t.Fatalf("first post: expected 303, got %d", rec.Code)
	}
	if rec := serve(srv, http.MethodPost, "/notes", form); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second post: expected 429, got %d", rec.Code)
	}
	if rec := serve(srv, http.MethodGet, "/", nil); rec.Code != http.StatusOK {
		t.Fatalf("reads are not limited, got %d", rec.Code)
	}
}

func TestRequestIDHeader(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := serve(srv, http.MethodGet, "/", nil)
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected generated request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if got := rec.Header().Get(requestIDHeader); got != "abc-123" {
		t.Fatalf("expected propagated request id, got %q", got)
	}
}

func TestHighlightCSS(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := serve(srv, http.MethodGet, "/static/highlight.css", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/css") {
		t.Fatalf("unexpected content type %q", ct)
	}
	if !strings.Contains(rec.Body.String(), ".chroma") {
		t.Fatalf("expected chroma classes in stylesheet")
	}
}

func TestSanitizeNext(t *testing.T) {
	cases := map[string]string{
		"/":                "/",
		"/?view=trash":     "/?view=trash",
		"  /notes/1/edit ": "/notes/1/edit",
		"":                 "/fallback",
		"//evil.example":   "/fallback",
		`/\evil.example`:   "/fallback",
		"javascript:x":     "/fallback",
		"notes":            "/fallback",
		"/\t/evil.example": "/fallback",
		"/\n/evil.example": "/fallback",
		"/\r/evil.example": "/fallback",
		"/notes\x00":       "/fallback",
		"/\x7f":            "/fallback",
	}
	for in, want := range cases {
		if got := sanitizeNext(in, "/fallback"); got != want {
			t.Fatalf("sanitizeNext(%q) = %q, want %q", in, got, want)
		}
	}
}
