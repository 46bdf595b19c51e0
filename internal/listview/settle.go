package listview

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Updater is anything that consumes messages the way a View does.
type Updater interface {
	Update(tea.Msg) tea.Cmd
}

// Settle runs cmd and every command it produces synchronously, feeding
// each message to u. Spinner ticks are skipped so it never blocks on
// animation. AuthRequiredMsg values are collected and returned instead of
// being delivered.
func Settle(u Updater, cmd tea.Cmd) []tea.Msg {
	var unhandled []tea.Msg
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		msg := next()
		switch m := msg.(type) {
		case nil:
		case tea.BatchMsg:
			queue = append(queue, m...)
		case spinner.TickMsg:
		case AuthRequiredMsg:
			unhandled = append(unhandled, m)
		default:
			if follow := u.Update(m); follow != nil {
				queue = append(queue, follow)
			}
		}
	}
	return unhandled
}
