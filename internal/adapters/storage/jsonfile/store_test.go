package jsonfile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/webherbas/taskflow/internal/app"
)

func TestStoreSetGetRemove(t *testing.T) {
	ctx := context.Background()
	store, err := Open(filepath.Join(t.TempDir(), "store", "taskflow.json"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, ok, err := store.Get(ctx, "k"); err != nil || ok {
		t.Fatalf("Get(missing) = ok %t err %v", ok, err)
	}
	if err := store.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	value, ok, err := store.Get(ctx, "k")
	if err != nil || !ok || value != "v" {
		t.Fatalf("Get() = %q %t %v", value, ok, err)
	}
	if err := store.Remove(ctx, "k"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if err := store.Remove(ctx, "k"); err != nil {
		t.Fatalf("Remove(absent) error = %v", err)
	}
	if _, ok, _ := store.Get(ctx, "k"); ok {
		t.Fatal("expected key removed")
	}
}

func TestStoreBacksBoardStorage(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "taskflow.json")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	board := app.NewBoard(app.NewStorage(store, nil), func() string { return "fixed-id" }, nil, app.BoardConfig{})
	if _, err := board.Add(ctx, app.AddInput{Title: "on disk"}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("Open(reopen) error = %v", err)
	}
	items := app.NewStorage(reopened, nil).Load(ctx)
	if len(items) != 1 || items[0].ID != "fixed-id" {
		t.Fatalf("unexpected items %#v", items)
	}
}

func TestStoreCorruptFileSurfacesReadError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskflow.json")
	if err := os.WriteFile(path, []byte("{broken"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, _, err := store.Get(context.Background(), app.ItemsKey); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
	if items := app.NewStorage(store, nil).Load(context.Background()); len(items) != 0 {
		t.Fatalf("expected empty list on corrupt store, got %#v", items)
	}
}

type warnLog struct{ warns []string }

func (l *warnLog) Debug(string, ...any)      {}
func (l *warnLog) Warn(msg string, _ ...any) { l.warns = append(l.warns, msg) }

func TestStoreWritesRecoverFromCorruptFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "taskflow.json")
	if err := os.WriteFile(path, []byte("{broken"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	logs := &warnLog{}
	store, err := Open(path, WithLogger(logs))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	board := app.NewBoard(app.NewStorage(store, nil), func() string { return "after-corruption" }, nil, app.BoardConfig{})
	board.Reload(ctx)
	if _, err := board.Add(ctx, app.AddInput{Title: "Buy milk"}); err != nil {
		t.Fatalf("Add() after corruption error = %v", err)
	}
	if len(board.Items()) != 1 {
		t.Fatalf("expected one item, got %d", len(board.Items()))
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("Open(reopen) error = %v", err)
	}
	items := app.NewStorage(reopened, nil).Load(ctx)
	if len(items) != 1 || items[0].ID != "after-corruption" {
		t.Fatalf("unexpected items after recovery %#v", items)
	}
	aside, err := os.ReadFile(path + CorruptSuffix)
	if err != nil || string(aside) != "{broken" {
		t.Fatalf("expected corrupt bytes kept aside, got %q %v", aside, err)
	}
	if len(logs.warns) == 0 {
		t.Fatal("expected a warning about the corrupt store")
	}
}

func TestOpenValidation(t *testing.T) {
	if _, err := Open(" "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestWatchReportsExternalWritesOnly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	path := filepath.Join(t.TempDir(), "taskflow.json")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := store.Set(ctx, "seed", "1"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	changed := make(chan struct{}, 4)
	done := make(chan error, 1)
	go func() {
		done <- store.Watch(ctx, func() { changed <- struct{}{} }, WatchOptions{Debounce: 20 * time.Millisecond})
	}()
	// Let the watcher register before writing.
	time.Sleep(100 * time.Millisecond)

	if err := store.Set(ctx, "self", "2"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	select {
	case <-changed:
		t.Fatal("expected own write to be ignored")
	case <-time.After(300 * time.Millisecond):
	}

	if err := os.WriteFile(path, []byte(`{"other":"3"}`), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("expected external write to be reported")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Watch() error = %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("expected watcher to stop on cancel")
	}
}
