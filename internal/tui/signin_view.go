package tui

import (
	"context"
	"net/http"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/boostify/internal/account"
	"github.com/kingrea/boostify/internal/api"
	"github.com/kingrea/boostify/internal/session"
)

const wrongPasswordText = "Wrong password!"

type signInResultMsg struct {
	result api.SignInResult
	err    error
}

type signInView struct {
	app        *App
	inputs     []textinput.Model
	focus      int
	submitting bool
	err        string
}

func newSignInView(app *App) *signInView {
	code := textinput.New()
	code.Placeholder = "Assistant code"
	code.CharLimit = 16
	code.Prompt = "Code     › "
	code.Focus()

	password := textinput.New()
	password.Placeholder = "Password"
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	password.Prompt = "Password › "

	return &signInView{app: app, inputs: []textinput.Model{code, password}}
}

func (v *signInView) capturing() bool { return true }

func (v *signInView) Update(msg tea.Msg) tea.Cmd {
	switch m := msg.(type) {
	case signInResultMsg:
		v.submitting = false
		if m.err != nil {
			v.err = signInErrorText(m.err)
			v.app.logWarn("Sign in failed: %v", m.err)
			return nil
		}
		cred := session.Credential{
			ID:            m.result.ID,
			Name:          m.result.Name,
			AssistantCode: m.result.AssistantCode,
			Token:         m.result.Token,
		}
		if err := v.app.sessions.Save(cred); err != nil {
			v.err = err.Error()
			v.app.logError("Store credential: %v", err)
			return nil
		}
		v.app.signedIn(cred)
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
			if v.focus == 0 {
				v.setFocus(1)
				return nil
			}
			return v.submit()
		}
	}
	var cmd tea.Cmd
	v.inputs[v.focus], cmd = v.inputs[v.focus].Update(msg)
	if v.focus == 0 {
		// codes are upper case; normalize while typing
		if value := v.inputs[0].Value(); value != strings.ToUpper(value) {
			v.inputs[0].SetValue(strings.ToUpper(value))
		}
	}
	return cmd
}

func (v *signInView) setFocus(idx int) {
	n := len(v.inputs)
	idx = ((idx % n) + n) % n
	v.focus = idx
	for i := range v.inputs {
		if i == idx {
			v.inputs[i].Focus()
		} else {
			v.inputs[i].Blur()
		}
	}
}

func (v *signInView) submit() tea.Cmd {
	if v.submitting {
		return nil
	}
	form := account.SignInForm{
		AssistantCode: v.inputs[0].Value(),
		Password:      v.inputs[1].Value(),
	}
	if err := form.Validate(); err != nil {
		v.err = err.Error()
		return nil
	}
	v.err = ""
	v.submitting = true
	client := v.app.client
	return func() tea.Msg {
		result, err := client.SignIn(context.Background(), form.AssistantCode, form.Password)
		return signInResultMsg{result: result, err: err}
	}
}

// signInErrorText maps rejected credentials to one message and shows
// everything else as is.
func signInErrorText(err error) string {
	switch api.StatusOf(err) {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return wrongPasswordText
	}
	return api.UserMessage(err)
}

func (v *signInView) View() string {
	th := v.app.theme
	lines := []string{
		th.Title.Render("Sign in"),
		th.Muted.Render("Use your assistant code and password."),
		"",
	}
	for _, input := range v.inputs {
		lines = append(lines, th.Input.Render(input.View()))
	}
	switch {
	case v.submitting:
		lines = append(lines, "", th.Muted.Render("Signing in…"))
	case v.err != "":
		lines = append(lines, "", th.Error.Render(v.err))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
