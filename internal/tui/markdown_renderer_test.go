package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/webherbas/taskflow/internal/domain"
)

func TestMarkdownRendererCachesUntilItemChanges(t *testing.T) {
	created := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	item := domain.TaskItem{
		ID:          "task-1",
		Title:       "Comprar pan",
		Description: "integral, **dos** barras",
		DueDate:     "2024-01-05",
		Status:      domain.StatusTodo,
		CreatedAt:   created,
	}
	r := &markdownRenderer{}

	first := r.renderTask(item, time.UTC, 60)
	plain := stripANSI(first)
	for _, want := range []string{"Comprar pan", "Pendientes", "5 de enero de 2024", "dos"} {
		if !strings.Contains(plain, want) {
			t.Fatalf("expected %q in rendered task, got %q", want, plain)
		}
	}
	key := r.cacheKey
	if again := r.renderTask(item, time.UTC, 60); again != first || r.cacheKey != key {
		t.Fatal("expected cached render for an unchanged item")
	}

	updated := created.Add(time.Hour)
	item.Status = domain.StatusDone
	item.UpdatedAt = &updated
	moved := stripANSI(r.renderTask(item, time.UTC, 60))
	if r.cacheKey == key || !strings.Contains(moved, "Completados") {
		t.Fatalf("expected a fresh render after a status change, got %q", moved)
	}

	r.renderTask(item, time.UTC, 5)
	if r.width != minWrapWidth {
		t.Fatalf("expected wrap width floor %d, got %d", minWrapWidth, r.width)
	}
}
