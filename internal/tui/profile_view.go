package tui

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"

	"github.com/kingrea/boostify/internal/account"
	"github.com/kingrea/boostify/internal/api"
	"github.com/kingrea/boostify/internal/attendance"
)

type profileLoadedMsg struct {
	profile attendance.Profile
	records []attendance.PersonalRecord
	err     error
}

type imageChangedMsg struct {
	url     string
	deleted bool
	err     error
}

type copiedMsg struct {
	value string
	err   error
}

type profileView struct {
	app     *App
	loading bool
	loaded  bool
	err     string
	note    string
	profile attendance.Profile
	records []attendance.PersonalRecord
	history viewport.Model
	path    textinput.Model
	editing bool
	busy    bool
}

func newProfileView(app *App) *profileView {
	path := textinput.New()
	path.Placeholder = "/path/to/picture.jpg"
	path.Prompt = "Picture › "
	path.CharLimit = 512
	return &profileView{
		app:     app,
		history: viewport.New(60, 10),
		path:    path,
	}
}

func (v *profileView) capturing() bool { return v.editing }

func (v *profileView) resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	v.history.Width = max(20, width-8)
	v.history.Height = max(3, height-20)
}

// load fetches the profile and the attendance history in parallel.
func (v *profileView) load() tea.Cmd {
	v.loading = true
	client, token := v.app.client, v.app.token()
	return func() tea.Msg {
		var (
			profile attendance.Profile
			records []attendance.PersonalRecord
		)
		g, ctx := errgroup.WithContext(context.Background())
		g.Go(func() error {
			p, err := client.WhoAmI(ctx, token)
			profile = p
			return err
		})
		g.Go(func() error {
			r, err := client.PersonalRecords(ctx, token)
			records = r
			return err
		})
		err := g.Wait()
		return profileLoadedMsg{profile: profile, records: records, err: err}
	}
}

func (v *profileView) Update(msg tea.Msg) tea.Cmd {
	switch m := msg.(type) {
	case profileLoadedMsg:
		v.loading = false
		if m.err != nil {
			v.err = api.UserMessage(m.err)
			return v.app.handleAPIError("profile", m.err)
		}
		v.err = ""
		v.loaded = true
		v.profile = m.profile
		v.records = m.records
		v.app.user = m.profile
		v.history.SetContent(v.renderHistory())
		v.history.GotoTop()
		return nil
	case imageChangedMsg:
		v.busy = false
		if m.err != nil {
			v.note = api.UserMessage(m.err)
			return v.app.handleAPIError("profile picture", m.err)
		}
		if m.deleted {
			v.profile.ImageURL = attendance.DefaultAvatar
			v.note = "Picture removed."
		} else {
			v.profile.ImageURL = m.url
			v.note = "Picture updated."
		}
		v.app.logInfo("Profile picture · %s", v.note)
		return nil
	case copiedMsg:
		if m.err != nil {
			v.note = fmt.Sprintf("Copy failed: %v", m.err)
			return nil
		}
		v.note = fmt.Sprintf("Copied %s to the clipboard.", m.value)
		return nil
	case tea.KeyMsg:
		return v.handleKey(m)
	}
	return nil
}

func (v *profileView) handleKey(msg tea.KeyMsg) tea.Cmd {
	if v.editing {
		switch msg.String() {
		case "enter":
			return v.upload()
		case "esc":
			v.editing = false
			v.path.Blur()
			return nil
		}
		var cmd tea.Cmd
		v.path, cmd = v.path.Update(msg)
		return cmd
	}
	switch msg.String() {
	case "u":
		if v.busy {
			return nil
		}
		v.editing = true
		v.note = ""
		return v.path.Focus()
	case "d":
		return v.deleteImage()
	case "y":
		return v.copyCode()
	case "r":
		return v.load()
	}
	var cmd tea.Cmd
	v.history, cmd = v.history.Update(msg)
	return cmd
}

func (v *profileView) upload() tea.Cmd {
	img, err := account.CheckImage(v.path.Value())
	if err != nil {
		v.note = err.Error()
		return nil
	}
	v.editing = false
	v.path.Blur()
	v.busy = true
	v.note = "Uploading…"
	client, token := v.app.client, v.app.token()
	return func() tea.Msg {
		f, err := os.Open(img.Path)
		if err != nil {
			return imageChangedMsg{err: fmt.Errorf("tui: open picture: %w", err)}
		}
		defer f.Close()
		url, err := client.UploadImage(context.Background(), token, api.Image{
			Filename:    img.Filename,
			ContentType: img.ContentType,
			Data:        f,
		})
		return imageChangedMsg{url: url, err: err}
	}
}

func (v *profileView) deleteImage() tea.Cmd {
	if v.busy || !v.profile.HasImage() {
		return nil
	}
	v.busy = true
	v.note = "Removing picture…"
	client, token := v.app.client, v.app.token()
	return func() tea.Msg {
		err := client.DeleteImage(context.Background(), token)
		return imageChangedMsg{deleted: true, err: err}
	}
}

func (v *profileView) copyCode() tea.Cmd {
	code := strings.TrimSpace(v.profile.AssistantCode)
	if code == "" {
		return nil
	}
	write := v.app.copy
	return func() tea.Msg {
		return copiedMsg{value: code, err: write(code)}
	}
}

func (v *profileView) renderHistory() string {
	if len(v.records) == 0 {
		return "No attendance recorded yet."
	}
	rows := make([]string, 0, len(v.records))
	for i, rec := range v.records {
		rows = append(rows, fmt.Sprintf("%3d. %s · %s", i+1, rec.Time, attendance.TimeOnly(rec.RawTime)))
	}
	return strings.Join(rows, "\n")
}

func (v *profileView) View() string {
	th := v.app.theme
	lines := []string{th.Title.Render("Profile")}
	switch {
	case v.loading:
		lines = append(lines, th.Muted.Render("Loading profile…"))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	case v.err != "":
		lines = append(lines, th.Error.Render(v.err))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	case !v.loaded:
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	picture := "default avatar"
	if v.profile.HasImage() {
		picture = v.profile.ImageURL
	}
	card := th.Card.Render(strings.Join([]string{
		th.Subtitle.Render(v.app.formatter.DisplayName(v.profile.Name)),
		fmt.Sprintf("Code    %s", v.profile.AssistantCode),
		fmt.Sprintf("Picture %s", picture),
		fmt.Sprintf("Check-ins %s", v.app.formatter.Count(len(v.records))),
	}, "\n"))
	lines = append(lines, card)
	if v.editing {
		lines = append(lines, th.Input.Render(v.path.View()))
	}
	if v.note != "" {
		lines = append(lines, th.Hint.Render(v.note))
	}
	lines = append(lines, "", th.Subtitle.Render("Attendance history"), v.history.View())
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
