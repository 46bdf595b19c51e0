package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/boostify/internal/account"
	"github.com/kingrea/boostify/internal/api"
)

type passwordChangedMsg struct {
	err error
}

type passwordView struct {
	app    *App
	inputs []textinput.Model
	focus  int
	saving bool
	err    string
}

func newPasswordView(app *App) *passwordView {
	prompts := []string{"Current  › ", "New      › ", "Confirm  › "}
	placeholders := []string{"Current password", "New password", "Confirm new password"}
	inputs := make([]textinput.Model, len(prompts))
	for i := range prompts {
		in := textinput.New()
		in.Prompt = prompts[i]
		in.Placeholder = placeholders[i]
		in.EchoMode = textinput.EchoPassword
		in.EchoCharacter = '•'
		inputs[i] = in
	}
	inputs[0].Focus()
	return &passwordView{app: app, inputs: inputs}
}

func (v *passwordView) capturing() bool { return false }

func (v *passwordView) Update(msg tea.Msg) tea.Cmd {
	switch m := msg.(type) {
	case passwordChangedMsg:
		v.saving = false
		if m.err != nil {
			v.err = api.UserMessage(m.err)
			v.app.logWarn("Password change failed: %v", m.err)
			if api.IsUnauthorized(m.err) {
				return v.app.handleAPIError("password", m.err)
			}
			return nil
		}
		v.app.logInfo("Password changed for %s", v.app.user.AssistantCode)
		v.app.returnHome()
		v.app.statusMsg = "Password updated."
		return nil
	case tea.KeyMsg:
		switch m.String() {
		case "tab", "down":
			v.setFocus(v.focus + 1)
			return nil
		case "shift+tab", "up":
			v.setFocus(v.focus - 1)
			return nil
		case "enter":
			if v.focus < len(v.inputs)-1 {
				v.setFocus(v.focus + 1)
				return nil
			}
			return v.submit()
		}
	}
	var cmd tea.Cmd
	v.inputs[v.focus], cmd = v.inputs[v.focus].Update(msg)
	return cmd
}

func (v *passwordView) setFocus(idx int) {
	n := len(v.inputs)
	v.focus = ((idx % n) + n) % n
	for i := range v.inputs {
		if i == v.focus {
			v.inputs[i].Focus()
		} else {
			v.inputs[i].Blur()
		}
	}
}

func (v *passwordView) submit() tea.Cmd {
	if v.saving {
		return nil
	}
	form := account.PasswordForm{
		Current: v.inputs[0].Value(),
		New:     v.inputs[1].Value(),
		Confirm: v.inputs[2].Value(),
	}
	if err := form.Validate(); err != nil {
		v.err = err.Error()
		return nil
	}
	v.err = ""
	v.saving = true
	client, token := v.app.client, v.app.token()
	return func() tea.Msg {
		err := client.UpdatePassword(context.Background(), token, api.PasswordChange{
			Current: form.Current,
			New:     form.New,
			Confirm: form.Confirm,
		})
		return passwordChangedMsg{err: err}
	}
}

func (v *passwordView) View() string {
	th := v.app.theme
	lines := []string{th.Title.Render("Change password")}
	for _, in := range v.inputs {
		lines = append(lines, th.Input.Render(in.View()))
	}
	switch {
	case v.saving:
		lines = append(lines, "", th.Muted.Render("Saving…"))
	case v.err != "":
		lines = append(lines, "", th.Error.Render(v.err))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
