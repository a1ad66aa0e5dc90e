package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// MaxTitleLength and MaxDescriptionLength bound the form fields in runes.
const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 500
)

// DueDateLayout is the calendar-date layout used for due dates.
const DueDateLayout = "2006-01-02"

// TaskItem is one board entry. JSON field names match the persisted layout.
type TaskItem struct {
	ID          string     `json:"id"`
	Title       string     `json:"titulo"`
	Description string     `json:"descripcion"`
	DueDate     string     `json:"fechaVencimiento"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// TaskInput holds the values needed to create a task item.
type TaskInput struct {
	ID          string
	Title       string
	Description string
	DueDate     string
}

// NewTaskItem validates input and returns a todo item stamped with now.
func NewTaskItem(in TaskInput, now time.Time) (TaskItem, error) {
	in.ID = strings.TrimSpace(in.ID)
	if in.ID == "" {
		return TaskItem{}, ErrInvalidID
	}
	title, err := NormalizeTitle(in.Title)
	if err != nil {
		return TaskItem{}, err
	}
	description, err := NormalizeDescription(in.Description)
	if err != nil {
		return TaskItem{}, err
	}
	due, err := NormalizeDueDate(in.DueDate)
	if err != nil {
		return TaskItem{}, err
	}
	return TaskItem{
		ID:          in.ID,
		Title:       title,
		Description: description,
		DueDate:     due,
		Status:      StatusTodo,
		CreatedAt:   now.UTC(),
	}, nil
}

// SetStatus moves the item to status. It reports false when nothing changed.
func (t *TaskItem) SetStatus(status Status, now time.Time) (bool, error) {
	if !status.Valid() {
		return false, ErrInvalidStatus
	}
	if t.Status == status {
		return false, nil
	}
	t.Status = status
	ts := now.UTC()
	t.UpdatedAt = &ts
	return true, nil
}

// Advance cycles the item to the next status.
func (t *TaskItem) Advance(now time.Time) {
	_, _ = t.SetStatus(t.Status.Next(), now)
}

// Due returns the parsed due date, if any.
func (t TaskItem) Due() (time.Time, bool) {
	if t.DueDate == "" {
		return time.Time{}, false
	}
	ts, err := time.Parse(DueDateLayout, t.DueDate)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// NormalizeTitle trims and validates a title.
func NormalizeTitle(raw string) (string, error) {
	title := strings.TrimSpace(raw)
	if title == "" {
		return "", ErrInvalidTitle
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return "", ErrTitleTooLong
	}
	return title, nil
}

// NormalizeDescription trims and validates an optional description.
func NormalizeDescription(raw string) (string, error) {
	description := strings.TrimSpace(raw)
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return "", ErrDescriptionTooLong
	}
	return description, nil
}

// NormalizeDueDate accepts YYYY-MM-DD or an RFC 3339 timestamp and returns
// the calendar date. Empty input is allowed.
func NormalizeDueDate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	if ts, err := time.Parse(DueDateLayout, raw); err == nil {
		return ts.Format(DueDateLayout), nil
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts.UTC().Format(DueDateLayout), nil
	}
	return "", ErrInvalidDueDate
}
