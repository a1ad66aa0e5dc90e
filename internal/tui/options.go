package tui

import (
	"time"

	"github.com/webherbas/taskflow/internal/app"
)

// Option configures a Model.
type Option func(*Model)

// WithLocation sets the zone used for card timestamps.
func WithLocation(loc *time.Location) Option {
	return func(m *Model) {
		if loc != nil {
			m.loc = loc
		}
	}
}

// WithExportDir sets where x writes backup files.
func WithExportDir(dir string) Option {
	return func(m *Model) {
		if dir != "" {
			m.exportDir = dir
		}
	}
}

// WithClipboard replaces the clipboard writer used by y.
func WithClipboard(write func(string) error) Option {
	return func(m *Model) {
		if write != nil {
			m.copyToClipboard = write
		}
	}
}

// WithConfirmDelete toggles the delete confirmation overlay.
func WithConfirmDelete(confirm bool) Option {
	return func(m *Model) {
		m.confirmDelete = confirm
	}
}

// WithLogger sets the logger that receives announcements.
func WithLogger(logger app.Logger) Option {
	return func(m *Model) {
		if logger != nil {
			m.notes.logger = logger
		}
	}
}
