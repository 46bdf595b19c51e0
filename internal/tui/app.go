// internal/tui/app.go
//
// The Boostify terminal client. One App model owns every screen; the
// screens are small sub-models that share the App's client, session store,
// theme and logbook. bubbletea calls Update for every message in order, so
// none of this needs locking.

package tui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/boostify/internal/api"
	"github.com/kingrea/boostify/internal/attendance"
	"github.com/kingrea/boostify/internal/config"
	"github.com/kingrea/boostify/internal/listview"
	"github.com/kingrea/boostify/internal/logbook"
	"github.com/kingrea/boostify/internal/session"
	"github.com/kingrea/boostify/internal/theme"
)

// appState represents which screen is showing
type appState int

const (
	stateSignIn   appState = iota // assistant code + password
	stateHome                     // main menu
	stateLive                     // live attendance report
	stateRecap                    // per-assistant totals
	stateProfile                  // whoami, history, picture
	statePassword                 // change password form
)

func (s appState) String() string {
	switch s {
	case stateSignIn:
		return "sign-in"
	case stateHome:
		return "home"
	case stateLive:
		return "live report"
	case stateRecap:
		return "recap"
	case stateProfile:
		return "profile"
	case statePassword:
		return "change password"
	}
	return "unknown"
}

const (
	menuLive     = "Live Report"
	menuRecap    = "Recap"
	menuProfile  = "Profile"
	menuPassword = "Change Password"
	menuSignOut  = "Sign Out"
	menuExit     = "Exit"

	logPanelLines = 5
)

// screen is a sub-model shown inside the App frame.
type screen interface {
	Update(tea.Msg) tea.Cmd
	View() string
	// capturing reports whether esc belongs to the screen (an input is
	// being edited) rather than meaning "back to home".
	capturing() bool
}

// AppOption customizes App construction for tests and alternate runtimes.
type AppOption func(*App)

// WithClient overrides the API client built from the config.
func WithClient(client *api.Client) AppOption {
	return func(a *App) {
		if client != nil {
			a.client = client
		}
	}
}

// WithSessionStore overrides the credential store.
func WithSessionStore(store *session.Store) AppOption {
	return func(a *App) {
		if store != nil {
			a.sessions = store
		}
	}
}

// WithLogbook overrides the logbook opened from the config.
func WithLogbook(lb *logbook.Logbook) AppOption {
	return func(a *App) {
		if lb != nil {
			a.logbook = lb
		}
	}
}

// WithClipboard replaces the system clipboard writer.
func WithClipboard(write func(string) error) AppOption {
	return func(a *App) {
		if write != nil {
			a.copy = write
		}
	}
}

// WithClock fixes "now" for relative times.
func WithClock(now func() time.Time) AppOption {
	return func(a *App) {
		if now != nil {
			a.now = now
		}
	}
}

type whoAmIMsg struct {
	profile attendance.Profile
	err     error
}

// App is the main application model.
type App struct {
	state     appState
	config    *config.Config
	client    *api.Client
	sessions  *session.Store
	logbook   *logbook.Logbook
	theme     theme.Theme
	formatter attendance.Formatter
	copy      func(string) error
	now       func() time.Time

	user attendance.Profile

	menu     list.Model
	signIn   *signInView
	live     *listScreen[attendance.Attendance]
	recap    *listScreen[attendance.RecapEntry]
	profile  *profileView
	password *passwordView

	statusMsg string
	width     int
	height    int
}

// menuItem implements list.Item for the home menu
type menuItem struct {
	title string
	desc  string
}

func (i menuItem) Title() string       { return i.title }
func (i menuItem) Description() string { return i.desc }
func (i menuItem) FilterValue() string { return i.title }

// NewApp builds the App from cfg. A stored credential opens the home
// screen; otherwise the App starts on sign-in.
func NewApp(cfg *config.Config, opts ...AppOption) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("tui: config is required")
	}
	app := &App{
		config: cfg,
		theme:  theme.For(cfg.Theme()),
		copy:   clipboard.WriteAll,
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}
	if app.client == nil {
		app.client = api.New(cfg.BaseURL(), cfg.Timeout())
	}
	if app.sessions == nil {
		app.sessions = session.NewStore(cfg.SessionPath())
	}
	if app.logbook == nil {
		lb, err := logbook.New(cfg.LogPath())
		if err == nil {
			app.logbook = lb
		}
	}
	app.formatter = attendance.NewFormatter(cfg.Location(), cfg.Locale(), app.now)
	app.menu = newHomeMenu(app.theme)

	cred, err := app.sessions.Load()
	switch {
	case err == nil:
		app.user = attendance.Profile{ID: cred.ID, Name: cred.Name, AssistantCode: cred.AssistantCode}
		app.state = stateHome
		app.logInfo("Session opened · signed in as %s", cred.AssistantCode)
	case errors.Is(err, session.ErrNoCredential):
		app.state = stateSignIn
		app.signIn = newSignInView(app)
		app.logInfo("Session opened · signed out")
	default:
		return nil, err
	}
	return app, nil
}

func newHomeMenu(th theme.Theme) list.Model {
	items := []list.Item{
		menuItem{title: menuLive, desc: "Today's check-ins as they arrive"},
		menuItem{title: menuRecap, desc: "Attendance totals per assistant"},
		menuItem{title: menuProfile, desc: "Your picture and attendance history"},
		menuItem{title: menuPassword, desc: "Update your password"},
		menuItem{title: menuSignOut, desc: "Forget the stored credential"},
		menuItem{title: menuExit, desc: "Quit Boostify"},
	}
	menu := list.New(items, list.NewDefaultDelegate(), 0, 0)
	menu.Title = "⬢ BOOSTIFY"
	menu.SetShowStatusBar(false)
	menu.SetFilteringEnabled(false)
	menu.DisableQuitKeybindings()
	styleMenu(&menu, th)
	return menu
}

func styleMenu(menu *list.Model, th theme.Theme) {
	menu.Styles.Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(th.Palette.Background).
		Background(th.Palette.Primary).
		Padding(0, 1)
}

func (a *App) logInfo(format string, args ...any) {
	if a.logbook == nil {
		return
	}
	a.logbook.Info(format, args...)
}

func (a *App) logWarn(format string, args ...any) {
	if a.logbook == nil {
		return
	}
	a.logbook.Warn(format, args...)
}

func (a *App) logError(format string, args ...any) {
	if a.logbook == nil {
		return
	}
	a.logbook.Error(format, args...)
}

// token returns the stored bearer token, or "" when signed out.
func (a *App) token() string {
	return a.sessions.Token()
}

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	if a.state == stateHome {
		return a.fetchWhoAmI()
	}
	return nil
}

func (a *App) fetchWhoAmI() tea.Cmd {
	client, token := a.client, a.token()
	return func() tea.Msg {
		profile, err := client.WhoAmI(context.Background(), token)
		return whoAmIMsg{profile: profile, err: err}
	}
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.menu.SetSize(max(0, msg.Width-6), max(0, msg.Height-12))
		if a.profile != nil {
			a.profile.resize(msg.Width, msg.Height)
		}
		return a, nil

	case whoAmIMsg:
		if msg.err != nil {
			return a, a.handleAPIError("whoami", msg.err)
		}
		a.user = msg.profile
		return a, nil

	case listview.AuthRequiredMsg:
		return a, a.expireSession("No authentication token found")

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return a, tea.Quit
		case "ctrl+t":
			a.toggleTheme()
			return a, nil
		}
		current := a.current()
		switch msg.String() {
		case "q":
			if a.state == stateHome {
				return a, tea.Quit
			}
		case "esc":
			if a.state != stateHome && a.state != stateSignIn && (current == nil || !current.capturing()) {
				return a.returnHome()
			}
		case "enter":
			if a.state == stateHome {
				return a.handleHomeSelection()
			}
		}
	}

	if unauthorized(msg) {
		if current := a.current(); current != nil {
			current.Update(msg)
		}
		return a, a.expireSession("Session expired. Please sign in again.")
	}

	if a.state == stateHome {
		var cmd tea.Cmd
		a.menu, cmd = a.menu.Update(msg)
		return a, cmd
	}
	if current := a.current(); current != nil {
		return a, current.Update(msg)
	}
	return a, nil
}

// unauthorized spots a 401 in a list page result.
func unauthorized(msg tea.Msg) bool {
	switch m := msg.(type) {
	case listview.PageMsg[attendance.Attendance]:
		return api.IsUnauthorized(m.Err)
	case listview.PageMsg[attendance.RecapEntry]:
		return api.IsUnauthorized(m.Err)
	}
	return false
}

func (a *App) current() screen {
	switch a.state {
	case stateSignIn:
		if a.signIn != nil {
			return a.signIn
		}
	case stateLive:
		if a.live != nil {
			return a.live
		}
	case stateRecap:
		if a.recap != nil {
			return a.recap
		}
	case stateProfile:
		if a.profile != nil {
			return a.profile
		}
	case statePassword:
		if a.password != nil {
			return a.password
		}
	}
	return nil
}

// handleHomeSelection processes menu item selection
func (a *App) handleHomeSelection() (tea.Model, tea.Cmd) {
	item, ok := a.menu.SelectedItem().(menuItem)
	if !ok {
		return a, nil
	}
	a.logInfo("Menu · %s selected", item.title)
	a.statusMsg = ""

	switch item.title {
	case menuLive:
		a.state = stateLive
		if a.live == nil {
			a.live = newLiveScreen(a)
		}
		return a, a.live.open(a.token())

	case menuRecap:
		a.state = stateRecap
		if a.recap == nil {
			a.recap = newRecapScreen(a)
		}
		return a, a.recap.open(a.token())

	case menuProfile:
		a.state = stateProfile
		a.profile = newProfileView(a)
		a.profile.resize(a.width, a.height)
		return a, a.profile.load()

	case menuPassword:
		a.state = statePassword
		a.password = newPasswordView(a)
		return a, nil

	case menuSignOut:
		if err := a.sessions.Clear(); err != nil {
			a.logError("Sign out failed: %v", err)
			a.statusMsg = fmt.Sprintf("Sign out failed: %v", err)
			return a, nil
		}
		a.logInfo("Signed out %s", a.user.AssistantCode)
		a.toSignIn("Signed out.")
		return a, nil

	case menuExit:
		return a, tea.Quit
	}
	return a, nil
}

// returnHome transitions back to the main menu
func (a *App) returnHome() (tea.Model, tea.Cmd) {
	a.logInfo("Returned to home from %s", a.state)
	a.state = stateHome
	a.profile = nil
	a.password = nil
	return a, nil
}

// signedIn is called by the sign-in screen once the credential is stored.
func (a *App) signedIn(cred session.Credential) {
	a.user = attendance.Profile{ID: cred.ID, Name: cred.Name, AssistantCode: cred.AssistantCode}
	a.signIn = nil
	a.live = nil
	a.recap = nil
	a.state = stateHome
	a.menu.Select(0)
	a.statusMsg = fmt.Sprintf("Welcome, %s.", a.formatter.DisplayName(cred.Name))
	a.logInfo("Signed in as %s", cred.AssistantCode)
}

// handleAPIError routes a 401 to sign-in and shows anything else.
func (a *App) handleAPIError(action string, err error) tea.Cmd {
	if err == nil {
		return nil
	}
	if api.IsUnauthorized(err) || api.KindOf(err) == api.KindAuthMissing {
		return a.expireSession("Session expired. Please sign in again.")
	}
	a.logError("%s failed: %v", action, err)
	a.statusMsg = api.UserMessage(err)
	return nil
}

// expireSession drops the stored credential and shows sign-in.
func (a *App) expireSession(reason string) tea.Cmd {
	if err := a.sessions.Clear(); err != nil {
		a.logError("Clear session: %v", err)
	}
	a.logWarn("Auth · %s (from %s)", reason, a.state)
	a.toSignIn(reason)
	return nil
}

func (a *App) toSignIn(status string) {
	a.user = attendance.Profile{}
	a.state = stateSignIn
	a.signIn = newSignInView(a)
	a.live = nil
	a.recap = nil
	a.profile = nil
	a.password = nil
	a.statusMsg = status
}

func (a *App) toggleTheme() {
	next := a.theme.Toggle()
	if err := a.config.SetTheme(next.Name); err != nil {
		a.logError("Persist theme: %v", err)
		a.statusMsg = fmt.Sprintf("Theme not saved: %v", err)
	}
	a.theme = next
	styleMenu(&a.menu, next)
	if a.live != nil {
		a.live.list.SetTheme(next)
	}
	if a.recap != nil {
		a.recap.list.SetTheme(next)
	}
	a.logInfo("Theme · %s", next.Name)
}

// View renders the current state to a string.
func (a *App) View() string {
	width := a.width
	if width <= 0 {
		width = 100
	}
	var content string
	if a.state == stateHome {
		a.menu.SetSize(max(20, width-6), max(10, a.height-12))
		content = a.menu.View()
	} else if current := a.current(); current != nil {
		content = current.View()
	}
	return a.renderFrame(content, width)
}

func (a *App) renderFrame(content string, width int) string {
	sections := []string{a.renderHeader()}
	frame := a.theme.Frame.Width(max(20, width-2)).Render(content)
	sections = append(sections, frame)
	if a.state == stateHome {
		if panel := a.renderLogPanel(width); panel != "" {
			sections = append(sections, panel)
		}
	}
	if a.statusMsg != "" {
		sections = append(sections, a.theme.Hint.Render(a.statusMsg))
	}
	sections = append(sections, a.theme.Muted.Render(a.keyHints()))
	return strings.Join(sections, "\n")
}

func (a *App) renderHeader() string {
	left := a.theme.Subtitle.Render("BOOSTIFY · " + strings.ToUpper(a.state.String()))
	who := "not signed in"
	if code := strings.TrimSpace(a.user.AssistantCode); code != "" {
		who = code
		if name := strings.TrimSpace(a.user.Name); name != "" {
			who = fmt.Sprintf("%s (%s)", a.formatter.DisplayName(name), code)
		}
	}
	right := a.theme.Muted.Render(fmt.Sprintf("%s · %s theme", who, a.theme.Name))
	return lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right)
}

func (a *App) renderLogPanel(width int) string {
	if a.logbook == nil {
		return ""
	}
	lines, total := a.logbook.Tail(logPanelLines)
	if len(lines) == 0 {
		return ""
	}
	fileName := filepath.Base(a.logbook.Path())
	head := a.theme.Subtitle.Render(fmt.Sprintf("LOG · %s (%s entries)", fileName, a.formatter.Count(total)))
	body := a.theme.Muted.Render(strings.Join(lines, "\n"))
	return a.theme.Frame.Width(max(20, width-2)).Render(head + "\n" + body)
}

func (a *App) keyHints() string {
	switch a.state {
	case stateSignIn:
		return "tab → next field    enter → sign in    ctrl+t → theme    ctrl+c → quit"
	case stateHome:
		return "enter → open    q → quit    ctrl+t → theme"
	case stateLive:
		return "←/→ → page    / → date filter    c → clear    r → reload    esc → back"
	case stateRecap:
		return "←/→ → page    / → search    c → clear    r → reload    esc → back"
	case stateProfile:
		return "u → upload picture    d → delete picture    y → copy code    ↑/↓ → scroll    esc → back"
	case statePassword:
		return "tab → next field    enter → save    esc → back"
	}
	return ""
}
