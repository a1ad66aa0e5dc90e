package app

import "github.com/webherbas/taskflow/internal/domain"

// BoardSnapshot is an immutable copy of the list and page state used by
// renderers.
type BoardSnapshot struct {
	Items    []domain.TaskItem
	Pages    map[domain.Status]int
	PageSize int
}

// Count returns the number of snapshot items with status.
func (s BoardSnapshot) Count(status domain.Status) int {
	return len(filterByStatus(s.Items, status))
}

// TotalPages returns ceil(Count/PageSize) for status.
func (s BoardSnapshot) TotalPages(status domain.Status) int {
	return totalPages(s.Count(status), s.PageSize)
}

// PageItems returns page n of status as captured.
func (s BoardSnapshot) PageItems(status domain.Status, n int) []domain.TaskItem {
	return paginate(filterByStatus(s.Items, status), n, s.PageSize)
}

// PageSize returns the configured items per page.
func (b *Board) PageSize() int {
	return b.pageSize
}

// Page returns the items of status on 1-based page n, in insertion order.
// Out-of-range pages yield an empty slice.
func (b *Board) Page(status domain.Status, n int) []domain.TaskItem {
	b.mu.Lock()
	defer b.mu.Unlock()
	return paginate(filterByStatus(b.items, status), n, b.pageSize)
}

// TotalPages returns ceil(count/pageSize), zero for an empty column.
func (b *Board) TotalPages(status domain.Status) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.totalPagesLocked(status)
}

// CurrentPage returns the page currently shown for status.
func (b *Board) CurrentPage(status domain.Status) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pages[status]
}

// CurrentPageItems returns the items on the current page of status.
func (b *Board) CurrentPageItems(status domain.Status) []domain.TaskItem {
	b.mu.Lock()
	defer b.mu.Unlock()
	return paginate(filterByStatus(b.items, status), b.pages[status], b.pageSize)
}

// ChangePage shows page n of status. Requests outside [1, TotalPages] are
// ignored and reported as false.
func (b *Board) ChangePage(status domain.Status, n int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !status.Valid() {
		return false
	}
	if n < 1 || n > b.totalPagesLocked(status) {
		return false
	}
	b.pages[status] = n
	return true
}

// Snapshot copies the current list and page state.
func (b *Board) Snapshot() BoardSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	items := make([]domain.TaskItem, len(b.items))
	copy(items, b.items)
	return BoardSnapshot{
		Items:    items,
		Pages:    clonePages(b.pages),
		PageSize: b.pageSize,
	}
}

// totalPagesLocked computes page count; b.mu must be held.
func (b *Board) totalPagesLocked(status domain.Status) int {
	return totalPages(b.countLocked(status), b.pageSize)
}

// countLocked counts items with status; b.mu must be held.
func (b *Board) countLocked(status domain.Status) int {
	count := 0
	for _, item := range b.items {
		if item.Status == status {
			count++
		}
	}
	return count
}

// clampPage pulls the current page of status back into [1, max(1,total)].
func (b *Board) clampPage(status domain.Status) {
	b.pages[status] = clampPageNumber(b.pages[status], b.totalPagesLocked(status))
}

// filterByStatus keeps items with status, preserving order.
func filterByStatus(items []domain.TaskItem, status domain.Status) []domain.TaskItem {
	out := make([]domain.TaskItem, 0, len(items))
	for _, item := range items {
		if item.Status == status {
			out = append(out, item)
		}
	}
	return out
}

// paginate returns the 1-based page n of items.
func paginate(items []domain.TaskItem, n, size int) []domain.TaskItem {
	if n < 1 || size <= 0 {
		return []domain.TaskItem{}
	}
	start := (n - 1) * size
	if start >= len(items) {
		return []domain.TaskItem{}
	}
	end := min(start+size, len(items))
	return append([]domain.TaskItem(nil), items[start:end]...)
}

// totalPages returns ceil(count/size).
func totalPages(count, size int) int {
	if count <= 0 || size <= 0 {
		return 0
	}
	return (count + size - 1) / size
}

// clampPageNumber keeps page within [1, max(1,total)].
func clampPageNumber(page, total int) int {
	if total < 1 {
		return 1
	}
	if page < 1 {
		return 1
	}
	if page > total {
		return total
	}
	return page
}
