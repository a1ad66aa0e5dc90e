package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"

	"github.com/webherbas/taskflow/internal/app"
	"github.com/webherbas/taskflow/internal/domain"
)

// minWrapWidth keeps glamour from wrapping headings into single words.
const minWrapWidth = 24

// markdownRenderer turns a task into styled terminal text for the info
// overlay. View runs on every frame, so the last document is cached until
// the item, its timestamps, or the wrap width change.
type markdownRenderer struct {
	width    int
	renderer *glamour.TermRenderer

	cacheKey string
	cached   string
}

// renderTask renders item wrapped at width. Glamour failures fall back to
// the plain markdown.
func (r *markdownRenderer) renderTask(item domain.TaskItem, loc *time.Location, width int) string {
	width = max(width, minWrapWidth)
	key := taskCacheKey(item, width)
	if key == r.cacheKey && r.cached != "" {
		return r.cached
	}

	doc := taskMarkdown(item, loc)
	if r.renderer == nil || r.width != width {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return doc
		}
		r.renderer = renderer
		r.width = width
	}
	rendered, err := r.renderer.Render(doc)
	if err != nil {
		return doc
	}
	r.cacheKey = key
	r.cached = strings.TrimRight(rendered, "\n")
	return r.cached
}

func taskCacheKey(item domain.TaskItem, width int) string {
	updated := ""
	if item.UpdatedAt != nil {
		updated = item.UpdatedAt.Format(time.RFC3339Nano)
	}
	return fmt.Sprintf("%s|%s|%s|%s|%s|%d", item.ID, item.Status, updated, item.Title, item.Description, width)
}

// taskMarkdown builds the info document for one item.
func taskMarkdown(item domain.TaskItem, loc *time.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", item.Title)
	fmt.Fprintf(&b, "- **Estado:** %s\n", item.Status.DisplayName())
	fmt.Fprintf(&b, "- **ID:** `%s`\n", item.ID)
	if item.DueDate != "" {
		fmt.Fprintf(&b, "- **Vence:** %s\n", app.FormatDueDate(item.DueDate))
	}
	fmt.Fprintf(&b, "- **Creado:** %s\n", app.FormatTimestamp(item.CreatedAt, loc))
	if item.UpdatedAt != nil {
		fmt.Fprintf(&b, "- **Actualizado:** %s\n", app.FormatTimestamp(*item.UpdatedAt, loc))
	}
	if desc := strings.TrimSpace(item.Description); desc != "" {
		b.WriteString("\n" + desc + "\n")
	}
	return b.String()
}
