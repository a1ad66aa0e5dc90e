package common

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/webherbas/taskflow/internal/adapters/storage/sqlite"
	"github.com/webherbas/taskflow/internal/app"
	"github.com/webherbas/taskflow/internal/domain"
)

// newTestAdapter builds an adapter over a board backed by in-memory sqlite.
func newTestAdapter(t *testing.T, pageSize int) (*BoardAdapter, *app.Board) {
	t.Helper()
	store, err := sqlite.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	n := 0
	board := app.NewBoard(app.NewStorage(store, nil), func() string {
		n++
		return fmt.Sprintf("task-%d", n)
	}, func() time.Time {
		return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	}, app.BoardConfig{PageSize: pageSize})
	board.Reload(context.Background())
	return NewBoardAdapter(board), board
}

// TestBoardStateHashTracksChanges verifies the hash moves only with the list.
func TestBoardStateHashTracksChanges(t *testing.T) {
	ctx := context.Background()
	adapter, _ := newTestAdapter(t, 4)

	empty, err := adapter.BoardState(ctx)
	if err != nil {
		t.Fatalf("BoardState() error = %v", err)
	}
	again, _ := adapter.BoardState(ctx)
	if empty.StateHash != again.StateHash {
		t.Fatalf("hash changed without mutation: %q != %q", empty.StateHash, again.StateHash)
	}
	if len(empty.Columns) != 3 || empty.Columns[0].Status != "todo" {
		t.Fatalf("unexpected columns %#v", empty.Columns)
	}

	if _, err := adapter.AddTask(ctx, AddTaskRequest{Title: "hash me"}); err != nil {
		t.Fatalf("AddTask() error = %v", err)
	}
	changed, _ := adapter.BoardState(ctx)
	if changed.StateHash == empty.StateHash {
		t.Fatal("expected hash to change after add")
	}
	if changed.Total != 1 || changed.Columns[0].Count != 1 {
		t.Fatalf("unexpected state %#v", changed)
	}
}

// TestBoardStateHashTracksPageChanges verifies a page change alone moves
// the hash and the reported column.
func TestBoardStateHashTracksPageChanges(t *testing.T) {
	ctx := context.Background()
	adapter, _ := newTestAdapter(t, 2)
	for _, title := range []string{"uno", "dos", "tres"} {
		if _, err := adapter.AddTask(ctx, AddTaskRequest{Title: title}); err != nil {
			t.Fatalf("AddTask() error = %v", err)
		}
	}
	before, _ := adapter.BoardState(ctx)
	if _, changed, err := adapter.ChangePage(ctx, "todo", 2); err != nil || !changed {
		t.Fatalf("ChangePage() = %t, %v", changed, err)
	}
	after, _ := adapter.BoardState(ctx)
	if after.StateHash == before.StateHash {
		t.Fatal("expected hash to change with the page")
	}
	if after.Columns[0].Page != 2 || len(after.Columns[0].Items) != 1 {
		t.Fatalf("unexpected todo column %+v", after.Columns[0])
	}
}

// TestBoardStateIsConsistentUnderWrites verifies each state is built from
// one snapshot while another goroutine mutates the board.
func TestBoardStateIsConsistentUnderWrites(t *testing.T) {
	ctx := context.Background()
	adapter, _ := newTestAdapter(t, 2)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := range 20 {
			if _, err := adapter.AddTask(ctx, AddTaskRequest{Title: fmt.Sprintf("t%d", i)}); err != nil {
				t.Errorf("AddTask() error = %v", err)
				return
			}
		}
	}()
	for {
		state, err := adapter.BoardState(ctx)
		if err != nil {
			t.Fatalf("BoardState() error = %v", err)
		}
		sum := 0
		for _, col := range state.Columns {
			sum += col.Count
			if want := (col.Count + col.PageSize - 1) / col.PageSize; col.TotalPages != want {
				t.Fatalf("column %s total pages %d, want %d", col.Status, col.TotalPages, want)
			}
		}
		if sum != state.Total {
			t.Fatalf("column counts %d disagree with total %d", sum, state.Total)
		}
		select {
		case <-done:
			return
		default:
		}
	}
}

// TestBoardAdapterErrorMapping verifies app errors map to transport sentinels.
func TestBoardAdapterErrorMapping(t *testing.T) {
	ctx := context.Background()
	adapter, _ := newTestAdapter(t, 4)

	if _, err := adapter.AddTask(ctx, AddTaskRequest{Title: "  "}); !errors.Is(err, ErrInvalidRequest) || !errors.Is(err, domain.ErrInvalidTitle) {
		t.Fatalf("AddTask(blank) error = %v", err)
	}
	if err := adapter.DeleteTask(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("DeleteTask(missing) error = %v", err)
	}
	if _, err := adapter.SetStatus(ctx, "task-1", SetStatusRequest{Status: "later"}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("SetStatus(bad status) error = %v", err)
	}
	if _, err := adapter.GetTask(ctx, " "); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("GetTask(blank) error = %v", err)
	}
	if _, err := adapter.Import(ctx, []byte(`{}`), true); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("Import(object) error = %v", err)
	}
	if _, err := adapter.Import(ctx, []byte(`[]`), false); !errors.Is(err, ErrConfirmationRequired) {
		t.Fatalf("Import(unconfirmed) error = %v", err)
	}
	var nilAdapter *BoardAdapter
	if _, err := nilAdapter.ListTasks(ctx, ""); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("nil adapter error = %v", err)
	}
}

// TestBoardAdapterPaging verifies read-only paging and current-page changes.
func TestBoardAdapterPaging(t *testing.T) {
	ctx := context.Background()
	adapter, board := newTestAdapter(t, 2)
	for i := 0; i < 5; i++ {
		if _, err := adapter.AddTask(ctx, AddTaskRequest{Title: fmt.Sprintf("t%d", i)}); err != nil {
			t.Fatalf("AddTask() error = %v", err)
		}
	}

	page, err := adapter.ColumnPage(ctx, "todo", 3)
	if err != nil {
		t.Fatalf("ColumnPage() error = %v", err)
	}
	if page.Page != 3 || len(page.Items) != 1 || page.TotalPages != 3 {
		t.Fatalf("unexpected page %#v", page)
	}
	if board.CurrentPage(domain.StatusTodo) != 1 {
		t.Fatal("expected read-only paging to keep current page")
	}

	fallback, _ := adapter.ColumnPage(ctx, "todo", 9)
	if fallback.Page != 1 {
		t.Fatalf("expected out-of-range read to show current page, got %d", fallback.Page)
	}

	moved, ok, err := adapter.ChangePage(ctx, "todo", 2)
	if err != nil || !ok || moved.Page != 2 {
		t.Fatalf("ChangePage(2) = %#v %t %v", moved, ok, err)
	}
	stay, ok, err := adapter.ChangePage(ctx, "todo", 7)
	if err != nil || ok || stay.Page != 2 {
		t.Fatalf("ChangePage(7) = %#v %t %v", stay, ok, err)
	}
}

// TestBoardAdapterListFiltersByStatus verifies the status filter.
func TestBoardAdapterListFiltersByStatus(t *testing.T) {
	ctx := context.Background()
	adapter, _ := newTestAdapter(t, 4)
	first, _ := adapter.AddTask(ctx, AddTaskRequest{Title: "one"})
	_, _ = adapter.AddTask(ctx, AddTaskRequest{Title: "two"})
	change, err := adapter.SetStatus(ctx, first.ID, SetStatusRequest{Status: "DONE"})
	if err != nil || !change.Changed {
		t.Fatalf("SetStatus() = %#v %v", change, err)
	}
	done, err := adapter.ListTasks(ctx, "done")
	if err != nil {
		t.Fatalf("ListTasks(done) error = %v", err)
	}
	if len(done) != 1 || done[0].ID != first.ID {
		t.Fatalf("unexpected done list %#v", done)
	}
	all, _ := adapter.ListTasks(ctx, "")
	if len(all) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(all))
	}
}
