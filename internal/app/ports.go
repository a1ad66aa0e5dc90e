package app

import (
	"context"
	"time"

	"github.com/webherbas/taskflow/internal/domain"
)

// KeyValueStore is the per-profile string store the task list lives in.
// Get reports false when the key is absent.
type KeyValueStore interface {
	Get(context.Context, string) (string, bool, error)
	Set(context.Context, string, string) error
	Remove(context.Context, string) error
}

// ItemStore loads and saves the whole task list.
type ItemStore interface {
	Load(context.Context) []domain.TaskItem
	Save(context.Context, []domain.TaskItem) error
	Clear(context.Context) error
}

// Logger receives structured runtime events.
type Logger interface {
	Debug(msg string, keyvals ...any)
	Info(msg string, keyvals ...any)
	Warn(msg string, keyvals ...any)
	Error(msg string, keyvals ...any)
}

// Announcer delivers short user-facing status messages.
type Announcer interface {
	Announce(message string)
}

// AnnouncerFunc adapts a function to Announcer.
type AnnouncerFunc func(message string)

// Announce calls f.
func (f AnnouncerFunc) Announce(message string) {
	if f != nil {
		f(message)
	}
}

// IDGenerator returns unique identifiers for new items.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

// nopLogger discards every event.
type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// NopLogger returns a Logger that drops all events.
func NopLogger() Logger {
	return nopLogger{}
}
