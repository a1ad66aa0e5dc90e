package app

import (
	"testing"
	"time"

	"github.com/webherbas/taskflow/internal/domain"
)

func TestRenderBoardColumnsAndPager(t *testing.T) {
	created := time.Date(2024, 3, 5, 14, 7, 0, 0, time.UTC)
	items := make([]domain.TaskItem, 0, 6)
	for i, id := range []string{"t1", "t2", "t3", "t4", "t5"} {
		items = append(items, domain.TaskItem{
			ID:        id,
			Title:     "todo " + id,
			Status:    domain.StatusTodo,
			CreatedAt: created.Add(time.Duration(i) * time.Minute),
		})
	}
	items = append(items, domain.TaskItem{ID: "p1", Title: "prog", Status: domain.StatusProgress, CreatedAt: created})

	view := RenderBoard(BoardSnapshot{
		Items:    items,
		Pages:    map[domain.Status]int{domain.StatusTodo: 2, domain.StatusProgress: 1, domain.StatusDone: 1},
		PageSize: 4,
	}, time.UTC)

	if view.Total != 6 || len(view.Columns) != 3 {
		t.Fatalf("unexpected board view %#v", view)
	}
	todo, ok := view.Column(domain.StatusTodo)
	if !ok {
		t.Fatal("expected todo column")
	}
	if todo.Name != "Pendientes" || todo.Count != 5 || todo.TotalPages != 2 || !todo.ShowPager {
		t.Fatalf("unexpected todo column %#v", todo)
	}
	if !todo.HasPrev || todo.HasNext {
		t.Fatalf("expected prev only on last page, got prev=%t next=%t", todo.HasPrev, todo.HasNext)
	}
	if len(todo.Items) != 1 || todo.Items[0].ID != "t5" {
		t.Fatalf("unexpected todo page items %#v", todo.Items)
	}

	progress, _ := view.Column(domain.StatusProgress)
	if progress.ShowPager {
		t.Fatal("expected no pager for a single page")
	}
	card := progress.Items[0]
	if card.CreatedLabel != "5/3/2024, 14:07" {
		t.Fatalf("unexpected created label %q", card.CreatedLabel)
	}
	if len(card.Targets) != 2 || card.Targets[0] != domain.StatusTodo || card.Targets[1] != domain.StatusDone {
		t.Fatalf("unexpected move targets %#v", card.Targets)
	}

	done, _ := view.Column(domain.StatusDone)
	if done.Count != 0 || done.TotalPages != 0 || done.ShowPager || len(done.Items) != 0 {
		t.Fatalf("unexpected empty column %#v", done)
	}
}

func TestShortID(t *testing.T) {
	cases := map[string]string{
		"":                     "",
		"abc":                  "abc",
		"1718000000123":        "000123",
		"9f8e7d6c-5b4a-aaaa-b": "aaaa-b",
	}
	for in, want := range cases {
		if got := ShortID(in); got != want {
			t.Fatalf("ShortID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatDueDate(t *testing.T) {
	cases := map[string]string{
		"":           "",
		"2024-01-01": "1 de enero de 2024",
		"2023-12-31": "31 de diciembre de 2023",
		"tomorrow":   "tomorrow",
	}
	for in, want := range cases {
		if got := FormatDueDate(in); got != want {
			t.Fatalf("FormatDueDate(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatTimestampUsesLocation(t *testing.T) {
	ts := time.Date(2024, 1, 1, 23, 30, 0, 0, time.UTC)
	loc := time.FixedZone("plus2", 2*60*60)
	if got := FormatTimestamp(ts, loc); got != "2/1/2024, 01:30" {
		t.Fatalf("FormatTimestamp() = %q", got)
	}
	if got := FormatTimestamp(time.Time{}, nil); got != "" {
		t.Fatalf("expected empty label for zero time, got %q", got)
	}
}
