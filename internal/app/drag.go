package app

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/webherbas/taskflow/internal/domain"
)

// DragState represents the drag controller state.
type DragState int

// DragIdle and related constants define drag states.
const (
	DragIdle DragState = iota
	DragDragging
)

// String returns the state label.
func (s DragState) String() string {
	if s == DragDragging {
		return "dragging"
	}
	return "idle"
}

// DropResult describes the outcome of a drop.
type DropResult struct {
	Moved bool
	Item  domain.TaskItem
}

// DragController carries one item id from drag start to drop. The drag
// state is guarded so a drop can finish on another goroutine while the UI
// reads State.
type DragController struct {
	board     *Board
	announcer Announcer

	mu     sync.Mutex
	state  DragState
	itemID string
}

// NewDragController constructs an idle controller.
func NewDragController(board *Board, announcer Announcer) *DragController {
	if announcer == nil {
		announcer = AnnouncerFunc(nil)
	}
	return &DragController{board: board, announcer: announcer}
}

// Start begins dragging itemID.
func (c *DragController) Start(itemID string) error {
	itemID = strings.TrimSpace(itemID)
	if _, ok := c.board.Get(itemID); !ok {
		return fmt.Errorf("drag task %q: %w", itemID, ErrNotFound)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = DragDragging
	c.itemID = itemID
	return nil
}

// Release ends the drag and returns the carried id. ok is false when idle.
func (c *DragController) Release() (id string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok = c.itemID, c.state == DragDragging
	c.state = DragIdle
	c.itemID = ""
	return id, ok
}

// Drop ends the drag over the column for status. Dropping on the item's
// own column, or while idle, changes nothing.
func (c *DragController) Drop(ctx context.Context, status domain.Status) (DropResult, error) {
	id, ok := c.Release()
	if !ok {
		return DropResult{}, nil
	}
	return c.Move(ctx, id, status)
}

// Move applies a released drop of id onto status. It does not touch the
// drag state.
func (c *DragController) Move(ctx context.Context, id string, status domain.Status) (DropResult, error) {
	item, ok := c.board.Get(id)
	if !ok {
		return DropResult{}, fmt.Errorf("drop task %q: %w", id, ErrNotFound)
	}
	if item.Status == status {
		return DropResult{Item: item}, nil
	}
	updated, changed, err := c.board.SetStatus(ctx, id, status)
	if err != nil {
		return DropResult{}, err
	}
	if changed {
		c.announcer.Announce("Elemento movido a " + status.DisplayName())
	}
	return DropResult{Moved: changed, Item: updated}, nil
}

// End returns the controller to idle without changing anything.
func (c *DragController) End() {
	c.Release()
}

// State returns the current drag state.
func (c *DragController) State() DragState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ItemID returns the dragged item id, empty when idle.
func (c *DragController) ItemID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.itemID
}
