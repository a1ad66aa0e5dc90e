// Package common provides transport-agnostic server contracts used by the web, HTTP and MCP adapters.
package common

import (
	"context"
	"errors"
	"time"

	"github.com/webherbas/taskflow/internal/app"
	"github.com/webherbas/taskflow/internal/domain"
)

// ErrInvalidRequest reports malformed or invalid transport input.
var ErrInvalidRequest = errors.New("invalid request")

// ErrNotFound reports missing transport-visible resources.
var ErrNotFound = errors.New("not found")

// ErrConfirmationRequired reports a destructive call made without confirmation.
var ErrConfirmationRequired = errors.New("confirmation required")

// AddTaskRequest carries one create-task call. Field names match the
// persisted item layout.
type AddTaskRequest struct {
	Title       string `json:"titulo"`
	Description string `json:"descripcion,omitempty"`
	DueDate     string `json:"fechaVencimiento,omitempty"`
}

// SetStatusRequest carries one status change.
type SetStatusRequest struct {
	Status string `json:"status"`
}

// ColumnPage is one page of one status column.
type ColumnPage struct {
	Status     string            `json:"status"`
	Name       string            `json:"name"`
	Count      int               `json:"count"`
	Page       int               `json:"page"`
	TotalPages int               `json:"total_pages"`
	PageSize   int               `json:"page_size"`
	Items      []domain.TaskItem `json:"items"`
}

// BoardState summarizes the whole board as of one snapshot. StateHash
// changes whenever the list or a column's current page changes.
type BoardState struct {
	CapturedAt time.Time    `json:"captured_at"`
	StateHash  string       `json:"state_hash"`
	Total      int          `json:"total"`
	Columns    []ColumnPage `json:"columns"`
}

// StatusChange reports the result of a status mutation.
type StatusChange struct {
	Task    domain.TaskItem `json:"task"`
	Changed bool            `json:"changed"`
}

// ImportResult reports a completed import.
type ImportResult struct {
	Imported int `json:"imported"`
}

// BoardService is the board surface shared by the transports.
type BoardService interface {
	BoardState(context.Context) (BoardState, error)
	ListTasks(context.Context, string) ([]domain.TaskItem, error)
	GetTask(context.Context, string) (domain.TaskItem, error)
	AddTask(context.Context, AddTaskRequest) (domain.TaskItem, error)
	DeleteTask(context.Context, string) error
	SetStatus(context.Context, string, SetStatusRequest) (StatusChange, error)
	AdvanceStatus(context.Context, string) (domain.TaskItem, error)
	ColumnPage(context.Context, string, int) (ColumnPage, error)
	ChangePage(context.Context, string, int) (ColumnPage, bool, error)
	Export(context.Context) (app.ExportFile, error)
	Import(context.Context, []byte, bool) (ImportResult, error)
}
