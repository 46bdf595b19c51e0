package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/boostify/internal/api"
	"github.com/kingrea/boostify/internal/attendance"
	"github.com/kingrea/boostify/internal/listview"
	"github.com/kingrea/boostify/internal/theme"
)

var errBadDate = errors.New("Use DD/MM/YYYY or YYYY-MM-DD.")

// AttendanceSource adapts the client to a live report fetcher.
func AttendanceSource(client *api.Client) listview.Fetcher[attendance.Attendance] {
	return listview.FetchFunc[attendance.Attendance](func(ctx context.Context, token string, page int) (listview.Page[attendance.Attendance], error) {
		resp, err := client.Attendances(ctx, token, api.AttendanceQuery{Page: page})
		if err != nil {
			return listview.Page[attendance.Attendance]{}, err
		}
		return listview.Page[attendance.Attendance]{Items: resp.Items, PageIndex: resp.CurrentPage, TotalPages: resp.TotalPages}, nil
	})
}

// RecapSource adapts the client to a recap fetcher.
func RecapSource(client *api.Client) listview.Fetcher[attendance.RecapEntry] {
	return listview.FetchFunc[attendance.RecapEntry](func(ctx context.Context, token string, page int) (listview.Page[attendance.RecapEntry], error) {
		resp, err := client.Recap(ctx, token, page)
		if err != nil {
			return listview.Page[attendance.RecapEntry]{}, err
		}
		return listview.Page[attendance.RecapEntry]{Items: resp.Items, PageIndex: resp.CurrentPage, TotalPages: resp.TotalPages}, nil
	})
}

// LiveConfig renders attendance cards with formatted date and time.
func LiveConfig(f attendance.Formatter) listview.Config[attendance.Attendance] {
	return listview.Config[attendance.Attendance]{
		Title: "Live Report",
		RenderItem: func(a attendance.Attendance, i int, th theme.Theme) string {
			at := a.At()
			head := th.Subtitle.Render(fmt.Sprintf("%s · %s", a.AssistantCode, f.DisplayName(a.Name)))
			when := fmt.Sprintf("%s · %s", f.FormatDate(at), f.FormatTime(at))
			if age := f.Age(at); age != "" {
				when += th.Muted.Render(" (" + age + ")")
			}
			style := th.Card
			if i%2 == 1 {
				style = th.CardAlt
			}
			return style.Render(head + "\n" + when)
		},
		ErrorText: api.UserMessage,
	}
}

// RecapConfig renders per-assistant totals, with a podium on page 1.
func RecapConfig(f attendance.Formatter) listview.Config[attendance.RecapEntry] {
	return listview.Config[attendance.RecapEntry]{
		Title: "Recap",
		RenderItem: func(r attendance.RecapEntry, i int, th theme.Theme) string {
			line := fmt.Sprintf("%s · %s  %s", r.AssistantCode, f.DisplayName(r.Name),
				th.Muted.Render(fmt.Sprintf("%s attendance(s)", f.Count(r.TotalAttendance))))
			style := th.Card
			if i%2 == 1 {
				style = th.CardAlt
			}
			return style.Render(line)
		},
		Header: func(p listview.Page[attendance.RecapEntry], filtering bool, th theme.Theme) string {
			if p.PageIndex != 1 || filtering {
				return ""
			}
			return renderPodium(p.Items, f, th)
		},
		ErrorText: api.UserMessage,
	}
}

// renderPodium draws the top three side by side.
func renderPodium(items []attendance.RecapEntry, f attendance.Formatter, th theme.Theme) string {
	n := min(3, len(items))
	if n == 0 {
		return ""
	}
	boxes := make([]string, 0, n)
	for i := 0; i < n; i++ {
		r := items[i]
		body := fmt.Sprintf("%s #%d\n%s\n%s\n%s total", attendance.Medal(i+1), i+1,
			f.DisplayName(r.Name), r.AssistantCode, f.Count(r.TotalAttendance))
		boxes = append(boxes, th.Podium[i].Width(18).Render(body))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, boxes...)
}

// listScreen wraps a listview with a filter input.
type listScreen[T any] struct {
	app     *App
	list    *listview.View[T]
	input   textinput.Model
	editing bool
	label   string
	active  string
	note    string
	parse   func(string) (listview.Predicate[T], error)
}

func newLiveScreen(app *App) *listScreen[attendance.Attendance] {
	opts := []listview.Option[attendance.Attendance]{}
	if app.config.PreserveLiveFilter() {
		opts = append(opts, listview.WithPreserveFilter[attendance.Attendance]())
	}
	view := listview.New(AttendanceSource(app.client), app.theme, LiveConfig(app.formatter), opts...)
	f := app.formatter
	return newListScreen(app, view, "Date", "DD/MM/YYYY", func(value string) (listview.Predicate[attendance.Attendance], error) {
		if strings.TrimSpace(value) == "" {
			return nil, nil
		}
		day, ok := f.ParseDay(value)
		if !ok {
			return nil, errBadDate
		}
		return DateFilter(day, f.Location()), nil
	})
}

// DateFilter keeps attendances on day in loc.
func DateFilter(day time.Time, loc *time.Location) listview.Predicate[attendance.Attendance] {
	return listview.ByDate(day, loc, func(a attendance.Attendance) time.Time { return a.At() })
}

// SearchFilter keeps recap entries whose code or name contains query.
func SearchFilter(query string) listview.Predicate[attendance.RecapEntry] {
	return listview.ByText(query, func(r attendance.RecapEntry) []string {
		return []string{r.AssistantCode, r.Name}
	})
}

func newRecapScreen(app *App) *listScreen[attendance.RecapEntry] {
	view := listview.New(RecapSource(app.client), app.theme, RecapConfig(app.formatter))
	return newListScreen(app, view, "Search", "code or name", func(value string) (listview.Predicate[attendance.RecapEntry], error) {
		return SearchFilter(value), nil
	})
}

func newListScreen[T any](app *App, view *listview.View[T], label, placeholder string, parse func(string) (listview.Predicate[T], error)) *listScreen[T] {
	input := textinput.New()
	input.Placeholder = placeholder
	input.Prompt = label + " › "
	input.CharLimit = 64
	return &listScreen[T]{app: app, list: view, input: input, label: label, parse: parse}
}

// open loads page 1 the first time and reloads afterwards.
func (s *listScreen[T]) open(token string) tea.Cmd {
	if s.list.State() == listview.Idle {
		return s.list.Load(1, token)
	}
	return s.list.Load(s.list.Page().PageIndex, token)
}

func (s *listScreen[T]) capturing() bool { return s.editing }

func (s *listScreen[T]) Update(msg tea.Msg) tea.Cmd {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		cmd := s.list.Update(msg)
		if m, ok := msg.(listview.PageMsg[T]); ok && m.ViewID == s.list.ID() {
			s.afterLoad(m)
		}
		return cmd
	}
	if s.editing {
		switch key.String() {
		case "enter":
			s.commit()
			return nil
		case "esc":
			s.editing = false
			s.input.Blur()
			return nil
		}
		var cmd tea.Cmd
		s.input, cmd = s.input.Update(msg)
		return cmd
	}
	switch key.String() {
	case "left", "h", "pgup":
		return s.list.PreviousPage()
	case "right", "l", "pgdown":
		return s.list.NextPage()
	case "r":
		return s.list.Load(s.list.Page().PageIndex, s.app.token())
	case "/":
		s.editing = true
		s.note = ""
		return s.input.Focus()
	case "c":
		s.clearFilter()
	}
	return nil
}

func (s *listScreen[T]) commit() {
	pred, err := s.parse(s.input.Value())
	if err != nil {
		s.note = err.Error()
		return
	}
	s.editing = false
	s.input.Blur()
	s.note = ""
	s.list.ApplyFilter(pred)
	if pred == nil {
		s.active = ""
		return
	}
	s.active = strings.TrimSpace(s.input.Value())
	s.app.logInfo("%s filter %q on page %d (%d of %d)", s.label, s.active, s.list.Page().PageIndex, len(s.list.Visible()), len(s.list.Page().Items))
}

func (s *listScreen[T]) clearFilter() {
	s.list.ApplyFilter(nil)
	s.input.Reset()
	s.active = ""
	s.note = ""
}

// afterLoad keeps the filter caption in step with the view.
func (s *listScreen[T]) afterLoad(m listview.PageMsg[T]) {
	if m.Generation != s.list.Generation() {
		return
	}
	if m.Err != nil {
		s.app.logWarn("Page %d failed: %v", m.PageIndex, m.Err)
		return
	}
	if !s.list.Filtering() {
		s.active = ""
	}
	s.app.logInfo("Page %d/%d loaded (%d rows)", s.list.Page().PageIndex, s.list.Page().TotalPages, len(s.list.Page().Items))
}

func (s *listScreen[T]) View() string {
	th := s.app.theme
	filterLine := th.Muted.Render(fmt.Sprintf("%s: none (press / to filter this page)", s.label))
	if s.editing {
		filterLine = th.Input.Render(s.input.View())
	} else if s.active != "" {
		filterLine = th.Input.Render(fmt.Sprintf("%s: %s", s.label, s.active)) + th.Muted.Render("  (c to clear)")
	}
	lines := []string{filterLine}
	if s.note != "" {
		lines = append(lines, th.Error.Render(s.note))
	}
	lines = append(lines, "", s.list.View())
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
