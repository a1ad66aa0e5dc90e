package app

import (
	"context"
	"fmt"
	"time"

	"github.com/webherbas/taskflow/internal/domain"
)

// ExportFile is a downloadable backup of the task list.
type ExportFile struct {
	Name string
	Data []byte
}

// ExportFilename returns taskflow_backup_<YYYY-MM-DD>.json for now.
func ExportFilename(now time.Time) string {
	return fmt.Sprintf("taskflow_backup_%s.json", now.UTC().Format(domain.DueDateLayout))
}

// Export serializes the full list as pretty-printed JSON.
func (b *Board) Export() (ExportFile, error) {
	items := b.Items()
	data, err := domain.EncodeItems(items, true)
	if err != nil {
		return ExportFile{}, fmt.Errorf("encode export: %w", err)
	}
	return ExportFile{Name: ExportFilename(b.clock()), Data: data}, nil
}

// Import replaces the list with payload. A payload that is not a JSON array
// fails with ErrInvalidImport; an unconfirmed valid payload fails with
// ErrImportNotConfirmed. Neither touches the current list.
func (b *Board) Import(ctx context.Context, payload []byte, confirmed bool) (int, error) {
	items, err := domain.DecodeItems(payload)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidImport, err)
	}
	if !confirmed {
		return 0, ErrImportNotConfirmed
	}
	if err := b.ReplaceAll(ctx, items); err != nil {
		return 0, err
	}
	return len(items), nil
}
