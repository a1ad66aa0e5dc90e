package app

import (
	"fmt"
	"time"

	"github.com/webherbas/taskflow/internal/domain"
)

// shortIDLength is how many trailing id characters are shown on a card.
const shortIDLength = 6

// spanishMonths names months the way the board displays dates.
var spanishMonths = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// BoardView is the render model for the whole board.
type BoardView struct {
	Columns []ColumnView
	Total   int
}

// ColumnView is the render model for one status column's current page.
type ColumnView struct {
	Status     domain.Status
	Name       string
	Count      int
	Page       int
	TotalPages int
	ShowPager  bool
	HasPrev    bool
	HasNext    bool
	Items      []ItemView
}

// ItemView is the render model for one card.
type ItemView struct {
	ID           string
	ShortID      string
	Title        string
	Description  string
	DueLabel     string
	CreatedLabel string
	UpdatedLabel string
	Status       domain.Status
	Targets      []domain.Status
}

// Column returns the column view for status.
func (v BoardView) Column(status domain.Status) (ColumnView, bool) {
	for _, col := range v.Columns {
		if col.Status == status {
			return col, true
		}
	}
	return ColumnView{}, false
}

// RenderBoard projects a snapshot into column views. Timestamps are shown
// in loc; nil means UTC.
func RenderBoard(snap BoardSnapshot, loc *time.Location) BoardView {
	if loc == nil {
		loc = time.UTC
	}
	view := BoardView{
		Columns: make([]ColumnView, 0, 3),
		Total:   len(snap.Items),
	}
	for _, status := range domain.Statuses() {
		items := filterByStatus(snap.Items, status)
		total := totalPages(len(items), snap.PageSize)
		page := clampPageNumber(snap.Pages[status], total)
		col := ColumnView{
			Status:     status,
			Name:       status.DisplayName(),
			Count:      len(items),
			Page:       page,
			TotalPages: total,
			ShowPager:  total > 1,
			HasPrev:    page > 1,
			HasNext:    page < total,
		}
		pageItems := paginate(items, page, snap.PageSize)
		col.Items = make([]ItemView, 0, len(pageItems))
		for _, item := range pageItems {
			col.Items = append(col.Items, renderItem(item, loc))
		}
		view.Columns = append(view.Columns, col)
	}
	return view
}

// renderItem builds the card view for one item.
func renderItem(item domain.TaskItem, loc *time.Location) ItemView {
	out := ItemView{
		ID:           item.ID,
		ShortID:      ShortID(item.ID),
		Title:        item.Title,
		Description:  item.Description,
		DueLabel:     FormatDueDate(item.DueDate),
		CreatedLabel: FormatTimestamp(item.CreatedAt, loc),
		Status:       item.Status,
	}
	if item.UpdatedAt != nil {
		out.UpdatedLabel = FormatTimestamp(*item.UpdatedAt, loc)
	}
	for _, status := range domain.Statuses() {
		if status != item.Status {
			out.Targets = append(out.Targets, status)
		}
	}
	return out
}

// ShortID returns the trailing characters of id used for display.
func ShortID(id string) string {
	rs := []rune(id)
	if len(rs) <= shortIDLength {
		return id
	}
	return string(rs[len(rs)-shortIDLength:])
}

// FormatDueDate renders a YYYY-MM-DD date as "1 de enero de 2024".
func FormatDueDate(date string) string {
	if date == "" {
		return ""
	}
	ts, err := time.Parse(domain.DueDateLayout, date)
	if err != nil {
		return date
	}
	return fmt.Sprintf("%d de %s de %d", ts.Day(), spanishMonths[ts.Month()-1], ts.Year())
}

// FormatTimestamp renders ts as "2/1/2024, 15:04".
func FormatTimestamp(ts time.Time, loc *time.Location) string {
	if ts.IsZero() {
		return ""
	}
	if loc == nil {
		loc = time.UTC
	}
	return ts.In(loc).Format("2/1/2006, 15:04")
}
