package listview

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/boostify/internal/api"
	"github.com/kingrea/boostify/internal/attendance"
	"github.com/kingrea/boostify/internal/theme"
)

type stubFetcher struct {
	totalPages int
	pages      map[int][]attendance.Attendance
	calls      []int
	tokens     []string
}

func (s *stubFetcher) Fetch(_ context.Context, token string, pageIndex int) (Page[attendance.Attendance], error) {
	s.calls = append(s.calls, pageIndex)
	s.tokens = append(s.tokens, token)
	items, ok := s.pages[pageIndex]
	if !ok {
		items = []attendance.Attendance{{ID: pageIndex, AssistantCode: fmt.Sprintf("P%d", pageIndex), Name: "Row"}}
	}
	return Page[attendance.Attendance]{Items: items, PageIndex: pageIndex, TotalPages: s.totalPages}, nil
}

func renderRecord(a attendance.Attendance, _ int, _ theme.Theme) string {
	return a.AssistantCode + " " + a.Name
}

func newTestView(f Fetcher[attendance.Attendance], opts ...Option[attendance.Attendance]) *View[attendance.Attendance] {
	return New[attendance.Attendance](f, theme.For(theme.Light), Config[attendance.Attendance]{
		Title:      "Live Report",
		RenderItem: renderRecord,
		ErrorText:  api.UserMessage,
	}, opts...)
}

// fetchMsg runs cmd and returns the page result it produced, discarding
// spinner ticks.
func fetchMsg(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	require.NotNil(t, cmd)
	msg := cmd()
	batch, ok := msg.(tea.BatchMsg)
	if !ok {
		return msg
	}
	for _, c := range batch {
		if c == nil {
			continue
		}
		if m, ok := c().(PageMsg[attendance.Attendance]); ok {
			return m
		}
	}
	t.Fatalf("batch carried no page message")
	return nil
}

func aliceAndBob() []attendance.Attendance {
	return []attendance.Attendance{
		{ID: 1, AssistantCode: "A1", Name: "Alice", Time: "2024-01-05T10:00:00Z"},
		{ID: 2, AssistantCode: "A2", Name: "Bob", Time: "2024-01-06T10:00:00Z"},
	}
}

func TestLoadYieldsRequestedPageIndex(t *testing.T) {
	const total = 4
	f := &stubFetcher{totalPages: total}
	v := newTestView(f)
	for p := 1; p <= total; p++ {
		Settle(v, v.Load(p, "tok"))
		assert.Equal(t, p, v.Page().PageIndex)
		assert.Equal(t, total, v.Page().TotalPages)
		assert.Equal(t, Loaded, v.State())
	}
	assert.Equal(t, []int{1, 2, 3, 4}, f.calls)
}

func TestLoadClampsPageIndexBelowOne(t *testing.T) {
	f := &stubFetcher{totalPages: 2}
	v := newTestView(f)
	Settle(v, v.Load(-3, "tok"))
	assert.Equal(t, []int{1}, f.calls)
	assert.Equal(t, 1, v.Page().PageIndex)
}

func TestLoadWithoutTokenAsksForSignIn(t *testing.T) {
	f := &stubFetcher{totalPages: 2}
	v := newTestView(f)
	msgs := Settle(v, v.Load(1, "   "))
	require.Len(t, msgs, 1)
	assert.Equal(t, AuthRequiredMsg{ViewID: v.ID()}, msgs[0])
	assert.Empty(t, f.calls)
	assert.Equal(t, Idle, v.State())
	assert.Nil(t, v.Err())
	assert.Zero(t, v.Generation())
}

func TestNextPageAtLastPageIsNoOp(t *testing.T) {
	f := &stubFetcher{totalPages: 3}
	v := newTestView(f)
	Settle(v, v.Load(3, "tok"))
	before := *v

	assert.Nil(t, v.NextPage())
	assert.Equal(t, before.page, v.page)
	assert.Equal(t, before.state, v.state)
	assert.Equal(t, before.gen, v.gen)
	assert.Equal(t, []int{3}, f.calls)
}

func TestPreviousPageAtFirstPageIsNoOp(t *testing.T) {
	f := &stubFetcher{totalPages: 3}
	v := newTestView(f)
	Settle(v, v.Load(1, "tok"))
	before := *v

	assert.Nil(t, v.PreviousPage())
	assert.Equal(t, before.page, v.page)
	assert.Equal(t, before.state, v.state)
	assert.Equal(t, before.gen, v.gen)
	assert.Equal(t, []int{1}, f.calls)
}

func TestNextAndPreviousReuseToken(t *testing.T) {
	f := &stubFetcher{totalPages: 3}
	v := newTestView(f)
	Settle(v, v.Load(1, "tok"))
	Settle(v, v.NextPage())
	assert.Equal(t, 2, v.Page().PageIndex)
	Settle(v, v.NextPage())
	assert.Equal(t, 3, v.Page().PageIndex)
	Settle(v, v.PreviousPage())
	assert.Equal(t, 2, v.Page().PageIndex)
	assert.Equal(t, []int{1, 2, 3, 2}, f.calls)
	assert.Equal(t, []string{"tok", "tok", "tok", "tok"}, f.tokens)
}

func TestApplyFilterIsIdempotent(t *testing.T) {
	f := &stubFetcher{totalPages: 1, pages: map[int][]attendance.Attendance{1: aliceAndBob()}}
	v := newTestView(f)
	Settle(v, v.Load(1, "tok"))

	pred := ByText("ali", func(a attendance.Attendance) []string { return []string{a.Name} })
	v.ApplyFilter(pred)
	once := append([]attendance.Attendance(nil), v.Filtered()...)
	v.ApplyFilter(pred)
	assert.Equal(t, once, v.Filtered())
	require.Len(t, once, 1)
	assert.Equal(t, "A1", once[0].AssistantCode)
}

func TestApplyNilFilterClears(t *testing.T) {
	f := &stubFetcher{totalPages: 1, pages: map[int][]attendance.Attendance{1: aliceAndBob()}}
	v := newTestView(f)
	Settle(v, v.Load(1, "tok"))
	v.ApplyFilter(func(attendance.Attendance) bool { return false })
	assert.True(t, v.Filtering())
	assert.NotNil(t, v.Filtered())
	assert.Empty(t, v.Filtered())

	v.ApplyFilter(nil)
	assert.False(t, v.Filtering())
	assert.Nil(t, v.Filtered())
	assert.Len(t, v.Visible(), 2)
}

func TestFilterIsSubsetOfPage(t *testing.T) {
	f := &stubFetcher{totalPages: 1, pages: map[int][]attendance.Attendance{1: aliceAndBob()}}
	v := newTestView(f)
	Settle(v, v.Load(1, "tok"))
	v.ApplyFilter(func(attendance.Attendance) bool { return true })
	assert.Subset(t, v.Page().Items, v.Filtered())
}

func TestNotFoundPreservesStalePage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			http.Error(w, "page not found", http.StatusNotFound)
			return
		}
		fmt.Fprint(w, `{"assistances":[{"id":1,"assisstant_code":"A1","name":"Alice","time":"2024-01-05T10:00:00Z"}],"currentPage":1,"totalPages":2}`)
	}))
	t.Cleanup(ts.Close)
	client := api.New(ts.URL, time.Second)
	fetcher := FetchFunc[attendance.Attendance](func(ctx context.Context, token string, page int) (Page[attendance.Attendance], error) {
		resp, err := client.Attendances(ctx, token, api.AttendanceQuery{Page: page})
		return Page[attendance.Attendance]{Items: resp.Items, PageIndex: resp.CurrentPage, TotalPages: resp.TotalPages}, err
	})
	v := newTestView(fetcher)
	Settle(v, v.Load(1, "tok"))
	require.Equal(t, Loaded, v.State())
	before := v.Page()

	Settle(v, v.NextPage())
	require.Error(t, v.Err())
	assert.Equal(t, Errored, v.State())
	assert.Equal(t, http.StatusNotFound, api.StatusOf(v.Err()))
	assert.Equal(t, before, v.Page())

	body := v.Body()
	assert.Contains(t, body, "Network response was not ok: 404 Not Found")
	assert.Contains(t, body, "Alice", "stale rows remain visible")
	assert.NotContains(t, body, NoDataText)
	assert.NotContains(t, body, LoadingText)

	Settle(v, v.Reload())
	assert.Nil(t, v.Err(), "a later success clears the error")
	assert.Equal(t, Loaded, v.State())
}

func TestStaleResponseIsDropped(t *testing.T) {
	f := &stubFetcher{totalPages: 5}
	v := newTestView(f)
	Settle(v, v.Load(1, "tok"))

	slow := v.Load(2, "tok")
	fast := v.Load(3, "tok")
	assert.Equal(t, 3, v.PendingPage())

	v.Update(fetchMsg(t, fast))
	assert.Equal(t, 3, v.Page().PageIndex)
	v.Update(fetchMsg(t, slow))
	assert.Equal(t, 3, v.Page().PageIndex, "older generation must not overwrite newer page")
	assert.Equal(t, Loaded, v.State())
}

func TestStaleErrorIsDropped(t *testing.T) {
	f := &stubFetcher{totalPages: 5}
	v := newTestView(f)
	old := v.Load(1, "tok")
	Settle(v, v.Load(2, "tok"))
	oldMsg := fetchMsg(t, old).(PageMsg[attendance.Attendance])
	oldMsg.Err = fmt.Errorf("boom")
	v.Update(oldMsg)
	assert.Nil(t, v.Err())
	assert.Equal(t, 2, v.Page().PageIndex)
}

func TestMessagesForOtherViewsAreIgnored(t *testing.T) {
	f := &stubFetcher{totalPages: 2}
	a := newTestView(f)
	b := newTestView(f)
	msg := fetchMsg(t, a.Load(2, "tok"))
	b.Update(msg)
	assert.Equal(t, Idle, b.State())
	a.Update(msg)
	assert.Equal(t, 2, a.Page().PageIndex)
}

func TestLoadClearsFilterByDefault(t *testing.T) {
	f := &stubFetcher{totalPages: 2, pages: map[int][]attendance.Attendance{1: aliceAndBob(), 2: aliceAndBob()}}
	v := newTestView(f)
	Settle(v, v.Load(1, "tok"))
	v.ApplyFilter(func(a attendance.Attendance) bool { return a.Name == "Bob" })
	require.Len(t, v.Filtered(), 1)

	Settle(v, v.NextPage())
	assert.Nil(t, v.Filtered())
	assert.Len(t, v.Visible(), 2)
}

func TestPreserveFilterReappliesOnLoad(t *testing.T) {
	page2 := []attendance.Attendance{
		{ID: 3, AssistantCode: "B9", Name: "Bob", Time: "2024-01-07T08:00:00Z"},
		{ID: 4, AssistantCode: "C3", Name: "Cahya", Time: "2024-01-07T09:00:00Z"},
	}
	f := &stubFetcher{totalPages: 2, pages: map[int][]attendance.Attendance{1: aliceAndBob(), 2: page2}}
	v := newTestView(f, WithPreserveFilter[attendance.Attendance]())
	Settle(v, v.Load(1, "tok"))
	v.ApplyFilter(func(a attendance.Attendance) bool { return a.Name == "Bob" })

	Settle(v, v.NextPage())
	require.Len(t, v.Filtered(), 1)
	assert.Equal(t, "B9", v.Filtered()[0].AssistantCode)
}

func TestDateFilterScenario(t *testing.T) {
	f := &stubFetcher{totalPages: 1, pages: map[int][]attendance.Attendance{1: aliceAndBob()}}
	v := newTestView(f)
	Settle(v, v.Load(1, "tok"))
	at := func(a attendance.Attendance) time.Time { return a.At() }

	v.ApplyFilter(ByDate(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), time.UTC, at))
	require.Len(t, v.Filtered(), 1)
	assert.Equal(t, "A1", v.Filtered()[0].AssistantCode)
	assert.Contains(t, v.View(), "Alice")
	assert.NotContains(t, v.View(), "Bob")

	v.ApplyFilter(ByDate(time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC), time.UTC, at))
	assert.NotNil(t, v.Filtered())
	assert.Empty(t, v.Filtered())
	out := v.View()
	assert.Contains(t, out, NoDataText)
	assert.NotContains(t, out, "Alice")
	assert.NotContains(t, out, LoadingText)
}

func TestByDateUsesLocation(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*3600)
	pred := ByDate(time.Date(2024, 1, 6, 0, 0, 0, 0, jakarta), jakarta, func(a attendance.Attendance) time.Time { return a.At() })
	late := attendance.Attendance{Time: "2024-01-05T20:00:00Z"}
	assert.True(t, pred(late), "20:00 UTC on the 5th is the 6th in UTC+7")
	assert.Nil(t, ByDate(time.Time{}, time.UTC, func(a attendance.Attendance) time.Time { return a.At() }))
}

func TestByTextFoldsCase(t *testing.T) {
	fields := func(a attendance.Attendance) []string { return []string{a.AssistantCode, a.Name} }
	assert.Nil(t, ByText("  ", fields))
	pred := ByText("BO", fields)
	assert.True(t, pred(attendance.Attendance{Name: "Bob"}))
	assert.True(t, pred(attendance.Attendance{AssistantCode: "bo"}))
	assert.False(t, pred(attendance.Attendance{Name: "Alice", AssistantCode: "A1"}))
}

func TestRenderStatesAreExclusive(t *testing.T) {
	f := &stubFetcher{totalPages: 1, pages: map[int][]attendance.Attendance{1: {}}}
	v := newTestView(f)
	assert.Equal(t, "", v.Body())

	cmd := v.Load(1, "tok")
	loading := v.Body()
	assert.Contains(t, loading, LoadingText)
	assert.NotContains(t, loading, NoDataText)

	Settle(v, cmd)
	empty := v.Body()
	assert.Contains(t, empty, NoDataText)
	assert.NotContains(t, empty, LoadingText)
}

func TestPagerOmitsDisabledArrows(t *testing.T) {
	f := &stubFetcher{totalPages: 3}
	v := newTestView(f)
	Settle(v, v.Load(1, "tok"))
	pager := v.Pager()
	assert.Contains(t, pager, "PAGE 1")
	assert.NotContains(t, pager, "◀")
	assert.Contains(t, pager, "▶")

	Settle(v, v.Load(2, "tok"))
	pager = v.Pager()
	assert.Contains(t, pager, "◀ PAGE 2 ▶")

	Settle(v, v.Load(3, "tok"))
	pager = v.Pager()
	assert.Contains(t, pager, "◀")
	assert.NotContains(t, pager, "▶")

	single := newTestView(&stubFetcher{totalPages: 1})
	Settle(single, single.Load(1, "tok"))
	assert.Equal(t, "PAGE 1", strings.TrimSpace(single.Pager()))
}

func TestHeaderOnlyWithRows(t *testing.T) {
	f := &stubFetcher{totalPages: 1, pages: map[int][]attendance.Attendance{1: aliceAndBob()}}
	v := New[attendance.Attendance](f, theme.For(theme.Dark), Config[attendance.Attendance]{
		RenderItem: renderRecord,
		Header: func(p Page[attendance.Attendance], filtering bool, _ theme.Theme) string {
			if filtering {
				return ""
			}
			return fmt.Sprintf("TOP of %d", len(p.Items))
		},
	})
	Settle(v, v.Load(1, "tok"))
	assert.Contains(t, v.Body(), "TOP of 2")
	v.ApplyFilter(func(attendance.Attendance) bool { return true })
	assert.NotContains(t, v.Body(), "TOP")
}
