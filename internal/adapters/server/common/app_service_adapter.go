package common

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/webherbas/taskflow/internal/app"
	"github.com/webherbas/taskflow/internal/domain"
)

// BoardAdapter maps transport contracts onto one app.Board.
type BoardAdapter struct {
	board *app.Board
	clock func() time.Time
}

// NewBoardAdapter builds one common adapter over an app.Board.
func NewBoardAdapter(board *app.Board) *BoardAdapter {
	return &BoardAdapter{board: board, clock: time.Now}
}

// BoardState returns the current page of every column plus a state hash.
func (a *BoardAdapter) BoardState(_ context.Context) (BoardState, error) {
	if err := a.ready(); err != nil {
		return BoardState{}, err
	}
	snap := a.board.Snapshot()
	hash, err := computeStateHash(snap)
	if err != nil {
		return BoardState{}, err
	}
	out := BoardState{
		CapturedAt: a.clock().UTC(),
		StateHash:  hash,
		Total:      len(snap.Items),
		Columns:    make([]ColumnPage, 0, 3),
	}
	for _, status := range domain.Statuses() {
		out.Columns = append(out.Columns, columnPage(snap, status, snap.Pages[status]))
	}
	return out, nil
}

// ListTasks lists every task, optionally filtered by status.
func (a *BoardAdapter) ListTasks(_ context.Context, status string) ([]domain.TaskItem, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	items := a.board.Items()
	status = strings.TrimSpace(status)
	if status == "" {
		return items, nil
	}
	parsed, err := parseStatus(status)
	if err != nil {
		return nil, err
	}
	out := make([]domain.TaskItem, 0, len(items))
	for _, item := range items {
		if item.Status == parsed {
			out = append(out, item)
		}
	}
	return out, nil
}

// GetTask returns one task by id.
func (a *BoardAdapter) GetTask(_ context.Context, id string) (domain.TaskItem, error) {
	if err := a.ready(); err != nil {
		return domain.TaskItem{}, err
	}
	id, err := requireID(id)
	if err != nil {
		return domain.TaskItem{}, err
	}
	item, ok := a.board.Get(id)
	if !ok {
		return domain.TaskItem{}, fmt.Errorf("task %q: %w", id, ErrNotFound)
	}
	return item, nil
}

// AddTask creates one todo task.
func (a *BoardAdapter) AddTask(ctx context.Context, in AddTaskRequest) (domain.TaskItem, error) {
	if err := a.ready(); err != nil {
		return domain.TaskItem{}, err
	}
	item, err := a.board.Add(ctx, app.AddInput{
		Title:       in.Title,
		Description: in.Description,
		DueDate:     in.DueDate,
	})
	if err != nil {
		return domain.TaskItem{}, mapAppError("add task", err)
	}
	return item, nil
}

// DeleteTask removes one task.
func (a *BoardAdapter) DeleteTask(ctx context.Context, id string) error {
	if err := a.ready(); err != nil {
		return err
	}
	id, err := requireID(id)
	if err != nil {
		return err
	}
	return mapAppError("delete task", a.board.Remove(ctx, id))
}

// SetStatus moves one task to a column.
func (a *BoardAdapter) SetStatus(ctx context.Context, id string, in SetStatusRequest) (StatusChange, error) {
	if err := a.ready(); err != nil {
		return StatusChange{}, err
	}
	id, err := requireID(id)
	if err != nil {
		return StatusChange{}, err
	}
	status, err := parseStatus(in.Status)
	if err != nil {
		return StatusChange{}, err
	}
	item, changed, err := a.board.SetStatus(ctx, id, status)
	if err != nil {
		return StatusChange{}, mapAppError("set status", err)
	}
	return StatusChange{Task: item, Changed: changed}, nil
}

// AdvanceStatus cycles one task to the next column.
func (a *BoardAdapter) AdvanceStatus(ctx context.Context, id string) (domain.TaskItem, error) {
	if err := a.ready(); err != nil {
		return domain.TaskItem{}, err
	}
	id, err := requireID(id)
	if err != nil {
		return domain.TaskItem{}, err
	}
	item, err := a.board.AdvanceStatus(ctx, id)
	if err != nil {
		return domain.TaskItem{}, mapAppError("advance status", err)
	}
	return item, nil
}

// ColumnPage reads one page without changing the board's current page.
// Page zero, or a page out of range, reads the current page.
func (a *BoardAdapter) ColumnPage(_ context.Context, status string, page int) (ColumnPage, error) {
	if err := a.ready(); err != nil {
		return ColumnPage{}, err
	}
	parsed, err := parseStatus(status)
	if err != nil {
		return ColumnPage{}, err
	}
	snap := a.board.Snapshot()
	if page < 1 || page > snap.TotalPages(parsed) {
		page = snap.Pages[parsed]
	}
	return columnPage(snap, parsed, page), nil
}

// ChangePage moves a column's current page. Out-of-range requests are
// ignored and reported as false.
func (a *BoardAdapter) ChangePage(_ context.Context, status string, page int) (ColumnPage, bool, error) {
	if err := a.ready(); err != nil {
		return ColumnPage{}, false, err
	}
	parsed, err := parseStatus(status)
	if err != nil {
		return ColumnPage{}, false, err
	}
	changed := a.board.ChangePage(parsed, page)
	snap := a.board.Snapshot()
	return columnPage(snap, parsed, snap.Pages[parsed]), changed, nil
}

// Export returns the backup file for the current list.
func (a *BoardAdapter) Export(_ context.Context) (app.ExportFile, error) {
	if err := a.ready(); err != nil {
		return app.ExportFile{}, err
	}
	file, err := a.board.Export()
	if err != nil {
		return app.ExportFile{}, mapAppError("export", err)
	}
	return file, nil
}

// Import replaces the list with payload after confirmation.
func (a *BoardAdapter) Import(ctx context.Context, payload []byte, confirmed bool) (ImportResult, error) {
	if err := a.ready(); err != nil {
		return ImportResult{}, err
	}
	count, err := a.board.Import(ctx, payload, confirmed)
	if err != nil {
		return ImportResult{}, mapAppError("import", err)
	}
	return ImportResult{Imported: count}, nil
}

// ready reports a missing board.
func (a *BoardAdapter) ready() error {
	if a == nil || a.board == nil {
		return fmt.Errorf("board adapter is not configured: %w", ErrInvalidRequest)
	}
	return nil
}

// columnPage builds one column page view from snap.
func columnPage(snap app.BoardSnapshot, status domain.Status, page int) ColumnPage {
	if page < 1 {
		page = 1
	}
	return ColumnPage{
		Status:     string(status),
		Name:       status.DisplayName(),
		Count:      snap.Count(status),
		Page:       page,
		TotalPages: snap.TotalPages(status),
		PageSize:   snap.PageSize,
		Items:      snap.PageItems(status, page),
	}
}

// parseStatus validates one transport status value.
func parseStatus(raw string) (domain.Status, error) {
	status, err := domain.ParseStatus(raw)
	if err != nil {
		return "", fmt.Errorf("status %q: %w", raw, errors.Join(ErrInvalidRequest, err))
	}
	return status, nil
}

// requireID trims and validates one task id.
func requireID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("id is required: %w", ErrInvalidRequest)
	}
	return id, nil
}

// computeStateHash hashes the persisted encoding of the items together with
// the page size and each column's current page, so a page change alters it.
func computeStateHash(snap app.BoardSnapshot) (string, error) {
	encoded, err := domain.EncodeItems(snap.Items, false)
	if err != nil {
		return "", fmt.Errorf("marshal board state: %w", err)
	}
	h := sha256.New()
	h.Write(encoded)
	fmt.Fprintf(h, "|size=%d", snap.PageSize)
	for _, status := range domain.Statuses() {
		fmt.Fprintf(h, "|%s=%d", status, snap.Pages[status])
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// mapAppError maps app/domain errors into transport-layer error sentinels.
func mapAppError(operation string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, app.ErrNotFound):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrNotFound, err))
	case errors.Is(err, app.ErrImportNotConfirmed), errors.Is(err, app.ErrClearNotConfirmed):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrConfirmationRequired, err))
	case errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidTitle),
		errors.Is(err, domain.ErrTitleTooLong),
		errors.Is(err, domain.ErrDescriptionTooLong),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrInvalidDueDate),
		errors.Is(err, app.ErrInvalidImport):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrInvalidRequest, err))
	default:
		return fmt.Errorf("%s: %w", operation, err)
	}
}
