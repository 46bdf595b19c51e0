package listview

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/boostify/internal/theme"
)

const (
	NoDataText  = "No data found"
	LoadingText = "Loading…"
)

// Config is what varies between list screens.
type Config[T any] struct {
	Title string
	// RenderItem draws one record. index is its position in the visible set.
	RenderItem func(item T, index int, th theme.Theme) string
	// Header, when set, is drawn above the records once a page is loaded.
	Header func(page Page[T], filtering bool, th theme.Theme) string
	// ErrorText turns a fetch error into the inline message.
	ErrorText func(error) string
	EmptyText string
}

func (c Config[T]) withDefaults() Config[T] {
	if c.RenderItem == nil {
		c.RenderItem = func(item T, _ int, th theme.Theme) string {
			return th.Text.Render(fmt.Sprint(item))
		}
	}
	if c.ErrorText == nil {
		c.ErrorText = func(err error) string { return err.Error() }
	}
	if strings.TrimSpace(c.EmptyText) == "" {
		c.EmptyText = NoDataText
	}
	return c
}

// View renders title, body and pager. Exactly one of the loading
// indicator, the error line and the empty message can appear.
func (v *View[T]) View() string {
	sections := []string{}
	if v.cfg.Title != "" {
		sections = append(sections, v.theme.Title.Render(v.cfg.Title))
	}
	sections = append(sections, v.Body())
	sections = append(sections, v.Pager())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// Body renders the records, or the status line that replaces them.
func (v *View[T]) Body() string {
	switch {
	case v.state == Idle:
		return ""
	case v.state == Loading:
		return fmt.Sprintf("%s %s", v.spinner.View(), v.theme.Muted.Render(LoadingText))
	case v.err != nil:
		// stale rows stay visible under the error
		lines := []string{v.theme.Error.Render(v.cfg.ErrorText(v.err))}
		if rows := v.renderRows(); rows != "" {
			lines = append(lines, rows)
		}
		return strings.Join(lines, "\n")
	}
	visible := v.Visible()
	if len(visible) == 0 {
		return v.theme.Muted.Render(v.cfg.EmptyText)
	}
	var parts []string
	if v.cfg.Header != nil {
		if head := v.cfg.Header(v.page, v.Filtering(), v.theme); head != "" {
			parts = append(parts, head)
		}
	}
	parts = append(parts, v.renderRows())
	return strings.Join(parts, "\n")
}

func (v *View[T]) renderRows() string {
	visible := v.Visible()
	rows := make([]string, 0, len(visible))
	for i, item := range visible {
		rows = append(rows, v.cfg.RenderItem(item, i, v.theme))
	}
	return strings.Join(rows, "\n")
}

// Pager renders "◀ PAGE n ▶", leaving out the arrow that cannot be used.
func (v *View[T]) Pager() string {
	parts := make([]string, 0, 3)
	if v.CanPrev() {
		parts = append(parts, "◀")
	}
	parts = append(parts, fmt.Sprintf("PAGE %d", v.page.PageIndex))
	if v.CanNext() {
		parts = append(parts, "▶")
	}
	return v.theme.Pager.Render(strings.Join(parts, " "))
}
