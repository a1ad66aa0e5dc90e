package domain

import (
	"slices"
	"strings"
)

// Status identifies the board column a task item belongs to.
type Status string

// StatusTodo and related constants define the fixed column order.
const (
	StatusTodo     Status = "todo"
	StatusProgress Status = "progress"
	StatusDone     Status = "done"
)

// statusOrder is the forward cycle used by keyboard advance.
var statusOrder = []Status{StatusTodo, StatusProgress, StatusDone}

// Statuses returns every valid status in board order.
func Statuses() []Status {
	return slices.Clone(statusOrder)
}

// ParseStatus validates one raw status value.
func ParseStatus(raw string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !slices.Contains(statusOrder, status) {
		return "", ErrInvalidStatus
	}
	return status, nil
}

// NormalizeStatus maps unknown values to todo.
func NormalizeStatus(raw string) Status {
	status, err := ParseStatus(raw)
	if err != nil {
		return StatusTodo
	}
	return status
}

// Valid reports whether s is one of the board statuses.
func (s Status) Valid() bool {
	return slices.Contains(statusOrder, s)
}

// Next returns the following status, wrapping done back to todo.
func (s Status) Next() Status {
	idx := slices.Index(statusOrder, s)
	if idx < 0 {
		return StatusTodo
	}
	return statusOrder[(idx+1)%len(statusOrder)]
}

// DisplayName returns the column heading used by the board views.
func (s Status) DisplayName() string {
	switch s {
	case StatusTodo:
		return "Pendientes"
	case StatusProgress:
		return "En Progreso"
	case StatusDone:
		return "Completados"
	default:
		return string(s)
	}
}
