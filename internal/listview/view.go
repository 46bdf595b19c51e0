// Package listview is the paginated, filterable remote list used by the
// live report and recap screens.
//
// A View fetches one page at a time through a Fetcher, keeps the page it
// last received, and narrows it on demand with a Predicate. Filtering never
// touches the network and only ever covers the page in hand. Each Load bumps
// a generation counter; responses from older generations are dropped, so a
// slow reply for page 2 cannot overwrite a newer reply for page 3.
package listview

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/kingrea/boostify/internal/theme"
)

// DefaultTimeout bounds a single page fetch.
const DefaultTimeout = 30 * time.Second

// Page is one server-side batch of records.
type Page[T any] struct {
	Items      []T
	PageIndex  int
	TotalPages int
}

// Fetcher loads one page. Implementations must honour ctx.
type Fetcher[T any] interface {
	Fetch(ctx context.Context, token string, pageIndex int) (Page[T], error)
}

// FetchFunc adapts a function to Fetcher.
type FetchFunc[T any] func(ctx context.Context, token string, pageIndex int) (Page[T], error)

// Fetch calls f.
func (f FetchFunc[T]) Fetch(ctx context.Context, token string, pageIndex int) (Page[T], error) {
	return f(ctx, token, pageIndex)
}

// Predicate selects records. A nil Predicate means no filter.
type Predicate[T any] func(T) bool

// State is the fetch lifecycle of a View.
type State int

const (
	Idle State = iota
	Loading
	Loaded
	Errored
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Errored:
		return "errored"
	}
	return "unknown"
}

// AuthRequiredMsg is emitted instead of a fetch when no token is
// available. It is not an error; the host routes to sign-in.
type AuthRequiredMsg struct {
	ViewID string
}

// PageMsg carries a finished fetch back into Update.
type PageMsg[T any] struct {
	ViewID     string
	Generation uint64
	PageIndex  int
	Page       Page[T]
	Err        error
}

// View is the list state plus its rendering. It is not safe for concurrent
// use; bubbletea serialises Update calls.
type View[T any] struct {
	id       string
	fetcher  Fetcher[T]
	cfg      Config[T]
	theme    theme.Theme
	ctx      context.Context
	timeout  time.Duration
	preserve bool

	page      Page[T]
	filtered  []T
	predicate Predicate[T]
	state     State
	err       error
	token     string
	gen       uint64
	pending   int
	spinner   spinner.Model
}

// Option customizes a View.
type Option[T any] func(*View[T])

// WithPreserveFilter keeps the active predicate across page loads instead
// of clearing it.
func WithPreserveFilter[T any]() Option[T] {
	return func(v *View[T]) {
		v.preserve = true
	}
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout[T any](d time.Duration) Option[T] {
	return func(v *View[T]) {
		if d > 0 {
			v.timeout = d
		}
	}
}

// WithContext sets the parent context for fetches.
func WithContext[T any](ctx context.Context) Option[T] {
	return func(v *View[T]) {
		if ctx != nil {
			v.ctx = ctx
		}
	}
}

// WithID fixes the view id, which otherwise is random.
func WithID[T any](id string) Option[T] {
	return func(v *View[T]) {
		if id = strings.TrimSpace(id); id != "" {
			v.id = id
		}
	}
}

// New returns an Idle view on page 1 of 1.
func New[T any](fetcher Fetcher[T], th theme.Theme, cfg Config[T], opts ...Option[T]) *View[T] {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	v := &View[T]{
		id:      uuid.NewString(),
		fetcher: fetcher,
		cfg:     cfg.withDefaults(),
		theme:   th,
		ctx:     context.Background(),
		timeout: DefaultTimeout,
		page:    Page[T]{PageIndex: 1, TotalPages: 1},
		state:   Idle,
		spinner: sp,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	v.spinner.Style = th.Input
	return v
}

// Load requests pageIndex (clamped to at least 1) with token. An empty
// token issues no request and yields AuthRequiredMsg with no state change.
func (v *View[T]) Load(pageIndex int, token string) tea.Cmd {
	token = strings.TrimSpace(token)
	if token == "" {
		id := v.id
		return func() tea.Msg { return AuthRequiredMsg{ViewID: id} }
	}
	if pageIndex < 1 {
		pageIndex = 1
	}
	v.gen++
	v.state = Loading
	v.token = token
	v.pending = pageIndex

	id, gen, fetcher := v.id, v.gen, v.fetcher
	parent, timeout := v.ctx, v.timeout
	fetch := func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()
		page, err := fetcher.Fetch(ctx, token, pageIndex)
		return PageMsg[T]{ViewID: id, Generation: gen, PageIndex: pageIndex, Page: page, Err: err}
	}
	return tea.Batch(fetch, v.spinner.Tick)
}

// Reload fetches the current page again with the last token.
func (v *View[T]) Reload() tea.Cmd {
	return v.Load(v.page.PageIndex, v.token)
}

// NextPage loads the following page, or does nothing on the last page.
func (v *View[T]) NextPage() tea.Cmd {
	if !v.CanNext() {
		return nil
	}
	return v.Load(v.page.PageIndex+1, v.token)
}

// PreviousPage loads the preceding page, or does nothing on page 1.
func (v *View[T]) PreviousPage() tea.Cmd {
	if !v.CanPrev() {
		return nil
	}
	return v.Load(v.page.PageIndex-1, v.token)
}

// ApplyFilter narrows the current page to the records matching pred. A nil
// pred clears the filter.
func (v *View[T]) ApplyFilter(pred Predicate[T]) {
	v.predicate = pred
	v.refilter()
}

// Update applies fetch results addressed to this view. Responses from an
// older Load are ignored.
func (v *View[T]) Update(msg tea.Msg) tea.Cmd {
	switch m := msg.(type) {
	case PageMsg[T]:
		if m.ViewID != v.id || m.Generation != v.gen {
			return nil
		}
		v.pending = 0
		if m.Err != nil {
			v.err = m.Err
			v.state = Errored
			return nil
		}
		v.page = normalize(m.Page, m.PageIndex)
		v.err = nil
		v.state = Loaded
		if !v.preserve {
			v.predicate = nil
		}
		v.refilter()
		return nil
	case spinner.TickMsg:
		if v.state != Loading {
			return nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(m)
		return cmd
	}
	return nil
}

func (v *View[T]) refilter() {
	if v.predicate == nil {
		v.filtered = nil
		return
	}
	out := make([]T, 0, len(v.page.Items))
	for _, item := range v.page.Items {
		if v.predicate(item) {
			out = append(out, item)
		}
	}
	v.filtered = out
}

func normalize[T any](p Page[T], requested int) Page[T] {
	p.PageIndex = requested
	if p.TotalPages < 1 {
		p.TotalPages = 1
	}
	if p.Items == nil {
		p.Items = []T{}
	}
	return p
}

// ID identifies the view in messages it emits.
func (v *View[T]) ID() string { return v.id }

// State reports the fetch lifecycle.
func (v *View[T]) State() State { return v.state }

// Loading reports whether a fetch is outstanding.
func (v *View[T]) Loading() bool { return v.state == Loading }

// Err is the last fetch error, cleared by the next successful fetch.
func (v *View[T]) Err() error { return v.err }

// Page is the last successfully fetched page.
func (v *View[T]) Page() Page[T] { return v.page }

// Filtered is the filtered subset, or nil when no filter is active.
func (v *View[T]) Filtered() []T { return v.filtered }

// Filtering reports whether a predicate is active.
func (v *View[T]) Filtering() bool { return v.filtered != nil }

// Visible is what gets rendered: the filtered subset when a filter is
// active, otherwise the whole page.
func (v *View[T]) Visible() []T {
	if v.filtered != nil {
		return v.filtered
	}
	return v.page.Items
}

// PendingPage is the page index in flight, or 0.
func (v *View[T]) PendingPage() int { return v.pending }

// Generation counts Load calls that issued a request.
func (v *View[T]) Generation() uint64 { return v.gen }

// CanNext reports whether a later page exists.
func (v *View[T]) CanNext() bool { return v.page.PageIndex < v.page.TotalPages }

// CanPrev reports whether an earlier page exists.
func (v *View[T]) CanPrev() bool { return v.page.PageIndex > 1 }

// SetTheme swaps the styles used by View.
func (v *View[T]) SetTheme(th theme.Theme) {
	v.theme = th
	v.spinner.Style = th.Input
}
