package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/webherbas/taskflow/internal/domain"
)

func TestExportFilename(t *testing.T) {
	got := ExportFilename(time.Date(2024, 2, 29, 23, 0, 0, 0, time.UTC))
	if got != "taskflow_backup_2024-02-29.json" {
		t.Fatalf("ExportFilename() = %q", got)
	}
}

func TestBoardExportIsPrettyJSONArray(t *testing.T) {
	board := newTestBoard(t, newFakeKV(), 4)
	mustAdd(t, board, "export me")
	file, err := board.Export()
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if !strings.HasPrefix(file.Name, "taskflow_backup_2024-01-01") {
		t.Fatalf("unexpected file name %q", file.Name)
	}
	text := string(file.Data)
	if !strings.HasPrefix(text, "[\n  {") || !strings.Contains(text, `"titulo": "export me"`) {
		t.Fatalf("expected pretty json array, got %s", text)
	}
}

func TestBoardImportRejectsNonArray(t *testing.T) {
	kv := newFakeKV()
	board := newTestBoard(t, kv, 4)
	keep := mustAdd(t, board, "keep")
	writes := kv.sets

	for _, payload := range []string{`{"id":"x"}`, `"text"`, ``, `42`} {
		if _, err := board.Import(context.Background(), []byte(payload), true); !errors.Is(err, ErrInvalidImport) {
			t.Fatalf("Import(%q) error = %v, want ErrInvalidImport", payload, err)
		}
	}
	items := board.Items()
	if len(items) != 1 || items[0].ID != keep.ID || kv.sets != writes {
		t.Fatalf("expected list untouched, got %#v", items)
	}
}

func TestBoardImportRequiresConfirmation(t *testing.T) {
	board := newTestBoard(t, newFakeKV(), 4)
	mustAdd(t, board, "keep")
	_, err := board.Import(context.Background(), []byte(`[{"id":"n1","titulo":"new"}]`), false)
	if !errors.Is(err, ErrImportNotConfirmed) {
		t.Fatalf("expected ErrImportNotConfirmed, got %v", err)
	}
	if items := board.Items(); len(items) != 1 || items[0].Title != "keep" {
		t.Fatalf("expected list untouched, got %#v", items)
	}
}

func TestBoardImportReplacesListAndResetsPages(t *testing.T) {
	kv := newFakeKV()
	board := newTestBoard(t, kv, 1)
	mustAdd(t, board, "a")
	mustAdd(t, board, "b")
	if !board.ChangePage(domain.StatusTodo, 2) {
		t.Fatal("expected page 2")
	}

	payload := `[
		{"id":"n1","titulo":"new one","status":"done"},
		{"id":"n2","titulo":"new two","status":"progress"},
		{"id":"n3","titulo":"new three"}
	]`
	count, err := board.Import(context.Background(), []byte(payload), true)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 imported, got %d", count)
	}
	for _, status := range domain.Statuses() {
		if got := board.CurrentPage(status); got != 1 {
			t.Fatalf("page for %q = %d, want 1", status, got)
		}
	}
	reloaded := NewStorage(kv, nil).Load(context.Background())
	if len(reloaded) != 3 || reloaded[0].ID != "n1" {
		t.Fatalf("expected imported list persisted, got %#v", reloaded)
	}
}
