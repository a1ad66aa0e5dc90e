package app

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/webherbas/taskflow/internal/domain"
)

// DefaultPageSize is the number of items shown per column page.
const DefaultPageSize = 4

// BoardConfig holds configuration for a board.
type BoardConfig struct {
	PageSize int
	Logger   Logger
}

// Board owns the task list and the per-column page state. All mutations
// persist through the ItemStore before returning.
type Board struct {
	mu       sync.Mutex
	store    ItemStore
	idGen    IDGenerator
	clock    Clock
	logger   Logger
	pageSize int
	items    []domain.TaskItem
	pages    map[domain.Status]int
}

// AddInput holds the values for a new task item.
type AddInput struct {
	Title       string
	Description string
	DueDate     string
}

// NewBoard constructs an empty board. Call Reload to read persisted items.
func NewBoard(store ItemStore, idGen IDGenerator, clock Clock, cfg BoardConfig) *Board {
	if idGen == nil {
		idGen = func() string { return "" }
	}
	if clock == nil {
		clock = time.Now
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.Logger == nil {
		cfg.Logger = NopLogger()
	}
	return &Board{
		store:    store,
		idGen:    idGen,
		clock:    clock,
		logger:   cfg.Logger,
		pageSize: cfg.PageSize,
		items:    []domain.TaskItem{},
		pages:    firstPages(),
	}
}

// Reload replaces the in-memory list with the persisted one. Items that
// needed repair (missing or duplicate ids, missing createdAt, unknown
// status) are written back so every process sees the same ids.
func (b *Board) Reload(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	items, repaired := b.normalizeItems(b.store.Load(ctx))
	b.items = items
	for _, status := range domain.Statuses() {
		b.clampPage(status)
	}
	if repaired {
		if err := b.store.Save(ctx, b.items); err != nil {
			b.logger.Warn("repaired task list not saved", "err", err)
		} else {
			b.logger.Info("repaired task list saved", "items", len(b.items))
		}
	}
	b.logger.Debug("board loaded", "items", len(b.items))
}

// Add appends a new todo item and shows the first todo page.
func (b *Board) Add(ctx context.Context, in AddInput) (domain.TaskItem, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	item, err := domain.NewTaskItem(domain.TaskInput{
		ID:          b.uniqueID(),
		Title:       in.Title,
		Description: in.Description,
		DueDate:     in.DueDate,
	}, b.clock())
	if err != nil {
		return domain.TaskItem{}, err
	}
	err = b.mutate(ctx, func() {
		b.items = append(b.items, item)
		b.pages[domain.StatusTodo] = 1
	})
	if err != nil {
		return domain.TaskItem{}, err
	}
	b.logger.Info("task added", "id", item.ID, "title", item.Title)
	return item, nil
}

// Remove deletes one item. When its column's current page runs past the
// last page, the page steps back by one.
func (b *Board) Remove(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx := b.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("task %q: %w", id, ErrNotFound)
	}
	status := b.items[idx].Status
	err := b.mutate(ctx, func() {
		b.items = slices.Delete(b.items, idx, idx+1)
		if current := b.pages[status]; current > 1 && current > b.totalPagesLocked(status) {
			b.pages[status] = current - 1
		}
		b.clampPage(status)
	})
	if err != nil {
		return err
	}
	b.logger.Info("task removed", "id", id, "status", status)
	return nil
}

// SetStatus moves one item to status. It reports false when the item was
// already there, in which case nothing is persisted.
func (b *Board) SetStatus(ctx context.Context, id string, status domain.Status) (domain.TaskItem, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.setStatusLocked(ctx, id, status)
}

// AdvanceStatus cycles one item forward through todo, progress, done.
func (b *Board) AdvanceStatus(ctx context.Context, id string) (domain.TaskItem, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx := b.indexOf(id)
	if idx < 0 {
		return domain.TaskItem{}, fmt.Errorf("task %q: %w", id, ErrNotFound)
	}
	item, _, err := b.setStatusLocked(ctx, id, b.items[idx].Status.Next())
	return item, err
}

// ReplaceAll swaps the whole list and resets every column to page 1.
func (b *Board) ReplaceAll(ctx context.Context, items []domain.TaskItem) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	normalized, _ := b.normalizeItems(items)
	err := b.mutate(ctx, func() {
		b.items = normalized
		b.pages = firstPages()
	})
	if err != nil {
		return err
	}
	b.logger.Info("task list replaced", "items", len(normalized))
	return nil
}

// ClearAll removes every persisted key and empties the board.
func (b *Board) ClearAll(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear storage: %w", err)
	}
	b.items = []domain.TaskItem{}
	b.pages = firstPages()
	b.logger.Info("task list cleared")
	return nil
}

// Get returns one item by id.
func (b *Board) Get(id string) (domain.TaskItem, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	idx := b.indexOf(id)
	if idx < 0 {
		return domain.TaskItem{}, false
	}
	return b.items[idx], true
}

// Items returns a copy of the list in insertion order.
func (b *Board) Items() []domain.TaskItem {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.items)
}

// Count returns the number of items with status.
func (b *Board) Count(status domain.Status) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.countLocked(status)
}

// setStatusLocked applies a status change; b.mu must be held.
func (b *Board) setStatusLocked(ctx context.Context, id string, status domain.Status) (domain.TaskItem, bool, error) {
	idx := b.indexOf(id)
	if idx < 0 {
		return domain.TaskItem{}, false, fmt.Errorf("task %q: %w", id, ErrNotFound)
	}
	if !status.Valid() {
		return domain.TaskItem{}, false, domain.ErrInvalidStatus
	}
	item := b.items[idx]
	from := item.Status
	changed, err := item.SetStatus(status, b.clock())
	if err != nil {
		return domain.TaskItem{}, false, err
	}
	if !changed {
		return item, false, nil
	}
	err = b.mutate(ctx, func() {
		b.items[idx] = item
		b.pages[status] = 1
		b.clampPage(from)
	})
	if err != nil {
		return domain.TaskItem{}, false, err
	}
	b.logger.Info("task status changed", "id", id, "from", from, "to", status)
	return item, true, nil
}

// mutate applies fn and persists, restoring prior state when the save fails.
func (b *Board) mutate(ctx context.Context, fn func()) error {
	prevItems := slices.Clone(b.items)
	prevPages := clonePages(b.pages)
	fn()
	if err := b.store.Save(ctx, b.items); err != nil {
		b.items = prevItems
		b.pages = prevPages
		b.logger.Error("task list save failed", "err", err)
		return fmt.Errorf("persist task list: %w", err)
	}
	return nil
}

// normalizeItems fills missing ids and timestamps and regenerates duplicate
// ids. repaired reports whether any item changed.
func (b *Board) normalizeItems(items []domain.TaskItem) (out []domain.TaskItem, repaired bool) {
	out = make([]domain.TaskItem, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	now := b.clock().UTC()
	for _, item := range items {
		if _, dup := seen[item.ID]; item.ID == "" || dup {
			item.ID = b.freshID(seen)
			repaired = true
		}
		seen[item.ID] = struct{}{}
		if status := domain.NormalizeStatus(string(item.Status)); status != item.Status {
			item.Status = status
			repaired = true
		}
		if item.CreatedAt.IsZero() {
			item.CreatedAt = now
			repaired = true
		}
		out = append(out, item)
	}
	return out, repaired
}

// uniqueID returns an id not present in the list; b.mu must be held.
func (b *Board) uniqueID() string {
	seen := make(map[string]struct{}, len(b.items))
	for _, item := range b.items {
		seen[item.ID] = struct{}{}
	}
	return b.freshID(seen)
}

// freshID draws ids until one is unused. When the generator keeps failing
// it counts up from the clock's UnixNano until a free id turns up.
func (b *Board) freshID(seen map[string]struct{}) string {
	for attempt := 0; attempt < 8; attempt++ {
		id := b.idGen()
		if _, taken := seen[id]; id != "" && !taken {
			return id
		}
	}
	base := b.clock().UnixNano()
	for n := int64(0); ; n++ {
		id := strconv.FormatInt(base+n, 10)
		if _, taken := seen[id]; !taken {
			return id
		}
	}
}

// indexOf returns the list index of id or -1.
func (b *Board) indexOf(id string) int {
	return slices.IndexFunc(b.items, func(item domain.TaskItem) bool {
		return item.ID == id
	})
}

// firstPages returns page 1 for every column.
func firstPages() map[domain.Status]int {
	pages := make(map[domain.Status]int, 3)
	for _, status := range domain.Statuses() {
		pages[status] = 1
	}
	return pages
}

// clonePages copies a page map.
func clonePages(in map[domain.Status]int) map[domain.Status]int {
	out := make(map[domain.Status]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
