package notes

import (
	"encoding/json"
	"strings"
)

// Values is the read side of url.Values.
type Values interface {
	Get(key string) string
}

// Filter is a normalised listing filter. Zero values of Status, Priority and
// Category match everything.
type Filter struct {
	Query    string
	Status   Status
	Priority Priority
	Category string
	View     View
}

// ParseFilter never fails: unknown or malformed values fall back to "all"
// (or the active view) so that bad input still shows results.
func ParseFilter(values Values) Filter {
	f := Filter{View: ViewActive}
	if values == nil {
		return f
	}

	f.Query = strings.TrimSpace(values.Get("q"))
	if s, ok := ParseStatus(strings.TrimSpace(values.Get("status"))); ok {
		f.Status = s
	}
	if p, ok := ParsePriority(strings.TrimSpace(values.Get("priority"))); ok {
		f.Priority = p
	}
	if c := strings.TrimSpace(values.Get("category")); c != All {
		f.Category = c
	}
	if v, ok := ParseView(strings.TrimSpace(values.Get("view"))); ok {
		f.View = v
	}
	return f
}

func (f Filter) StatusValue() string {
	return orAll(string(f.Status))
}

func (f Filter) PriorityValue() string {
	return orAll(string(f.Priority))
}

func (f Filter) CategoryValue() string {
	return orAll(f.Category)
}

func (f Filter) ViewValue() View {
	if f.View == "" {
		return ViewActive
	}
	return f.View
}

// Matches evaluates the filter against a note in memory, mirroring BuildQuery.
// Like SQLite LIKE, search folds case for ASCII letters only.
func (f Filter) Matches(n Note) bool {
	if n.View() != f.ViewValue() {
		return false
	}
	if f.Query != "" {
		q := foldASCII(f.Query)
		if !strings.Contains(foldASCII(n.Title), q) &&
			!strings.Contains(foldASCII(n.Content), q) &&
			!strings.Contains(foldASCII(n.Category), q) {
			return false
		}
	}
	if f.Status != "" && n.Status != f.Status {
		return false
	}
	if f.Priority != "" && n.Priority != f.Priority {
		return false
	}
	if f.Category != "" && n.Category != f.Category {
		return false
	}
	return true
}

func foldASCII(s string) string {
	return strings.Map(func(r rune) rune {
		if 'A' <= r && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, s)
}

func (f Filter) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Query    string `json:"q"`
		Status   string `json:"status"`
		Priority string `json:"priority"`
		Category string `json:"category"`
		View     View   `json:"view"`
	}{
		Query:    f.Query,
		Status:   f.StatusValue(),
		Priority: f.PriorityValue(),
		Category: f.CategoryValue(),
		View:     f.ViewValue(),
	})
}

func orAll(v string) string {
	if v == "" {
		return All
	}
	return v
}
