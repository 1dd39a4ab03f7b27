package notes

import (
	"context"
	"testing"

	"pgregory.net/rapid"
)

var (
	wordGen     = rapid.StringMatching(`[a-cA-CéÉüÜ]{1,4}`)
	categoryGen = rapid.SampledFrom([]string{"", "work", "home", "Work"})
	statusGen   = rapid.SampledFrom([]string{"", "todo", "in_progress", "done"})
	priorityGen = rapid.SampledFrom([]string{"", "low", "medium", "high"})
	dueGen      = rapid.SampledFrom([]string{"", "2026-01-01", "2026-01-02", "2026-02-01"})
)

// listedBefore reports whether a must be listed ahead of b.
func listedBefore(a, b Note) bool {
	if a.Pinned != b.Pinned {
		return a.Pinned
	}
	if a.Priority.Rank() != b.Priority.Rank() {
		return a.Priority.Rank() < b.Priority.Rank()
	}
	if (a.DueDate == nil) != (b.DueDate == nil) {
		return a.DueDate != nil
	}
	if a.DueDate != nil && !a.DueDate.Equal(*b.DueDate) {
		return a.DueDate.Before(*b.DueDate)
	}
	if !a.UpdatedAt.Equal(b.UpdatedAt) {
		return a.UpdatedAt.After(b.UpdatedAt)
	}
	return a.ID > b.ID
}

func TestListMatchesFilterAndOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	repo := store.Repository()

	rapid.Check(t, func(rt *rapid.T) {
		if _, err := store.db.ExecContext(ctx, "DELETE FROM notes"); err != nil {
			rt.Fatalf("wipe: %v", err)
		}

		count := rapid.IntRange(0, 12).Draw(rt, "count")
		for i := 0; i < count; i++ {
			id, err := repo.Create(ctx, Input{
				Title:    wordGen.Draw(rt, "title"),
				Content:  wordGen.Draw(rt, "content"),
				Category: categoryGen.Draw(rt, "category"),
				Status:   statusGen.Draw(rt, "status"),
				Priority: priorityGen.Draw(rt, "priority"),
				DueDate:  dueGen.Draw(rt, "due"),
				Pinned:   rapid.Bool().Draw(rt, "pinned"),
			})
			if err != nil {
				rt.Fatalf("create: %v", err)
			}
			if rapid.Bool().Draw(rt, "archive") {
				if _, err := repo.ToggleArchive(ctx, id); err != nil {
					rt.Fatalf("archive: %v", err)
				}
			}
			if rapid.Bool().Draw(rt, "trash") {
				if err := repo.Trash(ctx, id); err != nil {
					rt.Fatalf("trash: %v", err)
				}
			}
		}

		f := Filter{
			Query:    rapid.SampledFrom([]string{"", "a", "B", "ab", "work", "é", "Ü", "aü"}).Draw(rt, "q"),
			Status:   Status(rapid.SampledFrom([]string{"", "todo", "done"}).Draw(rt, "f-status")),
			Priority: Priority(rapid.SampledFrom([]string{"", "low", "high"}).Draw(rt, "f-priority")),
			Category: rapid.SampledFrom([]string{"", "work", "general"}).Draw(rt, "f-category"),
			View:     rapid.SampledFrom(Views).Draw(rt, "view"),
		}

		listed, err := repo.List(ctx, f)
		if err != nil {
			rt.Fatalf("list: %v", err)
		}
		all, err := repo.All(ctx)
		if err != nil {
			rt.Fatalf("all: %v", err)
		}

		want := map[int64]bool{}
		for _, n := range all {
			if f.Matches(n) {
				want[n.ID] = true
			}
		}
		if len(listed) != len(want) {
			rt.Fatalf("expected %d notes, listed %d", len(want), len(listed))
		}
		for i, n := range listed {
			if !want[n.ID] {
				rt.Fatalf("note %d listed but does not match %+v", n.ID, f)
			}
			if n.View() != f.View {
				rt.Fatalf("note %d in view %s listed under %s", n.ID, n.View(), f.View)
			}
			if i > 0 && listedBefore(n, listed[i-1]) {
				rt.Fatalf("note %d listed after %d out of order", n.ID, listed[i-1].ID)
			}
		}
	})
}
