package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/boostify/internal/devserver"
)

var seedNow = time.Date(2024, 1, 14, 18, 0, 0, 0, time.UTC)

func newDevBackend(t *testing.T) (*Client, *devserver.Store) {
	t.Helper()
	srv := devserver.NewServer(devserver.Settings{PageSize: 5, RecapPageSize: 4},
		devserver.WithClock(func() time.Time { return seedNow }))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return New(ts.URL, time.Second), srv.Store()
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	body := strings.Repeat("é", 150)
	got := truncate(body, 201)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("é", 100)+"…", got)

	assert.Equal(t, "short", truncate("short", 200))
	assert.Equal(t, "ab…", truncate("abc", 2))

	err := &Error{Kind: KindNetwork, Method: http.MethodGet, Path: "/api/recap", Status: http.StatusBadGateway, Body: "x" + body}
	assert.True(t, utf8.ValidString(err.Error()))
}

func TestSignInAndWhoAmI(t *testing.T) {
	client, _ := newDevBackend(t)
	ctx := context.Background()

	res, err := client.SignIn(ctx, "AL", devserver.DevPassword)
	require.NoError(t, err)
	assert.Equal(t, "AL", res.AssistantCode)
	assert.Equal(t, "Alice Lestari", res.Name)
	require.NotEmpty(t, res.Token)

	profile, err := client.WhoAmI(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, "AL", profile.AssistantCode)
	assert.False(t, profile.HasImage())
}

func TestSignInWrongPasswordIsUnauthorized(t *testing.T) {
	client, _ := newDevBackend(t)
	_, err := client.SignIn(context.Background(), "AL", "wrong")
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, KindNetwork, KindOf(err))
}

func TestAttendancesPage(t *testing.T) {
	client, store := newDevBackend(t)
	token, _ := store.IssueToken("AL")

	page, err := client.Attendances(context.Background(), token, AttendanceQuery{Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, page.CurrentPage)
	assert.Len(t, page.Items, 5)
	assert.GreaterOrEqual(t, page.TotalPages, 2)
	assert.NotEmpty(t, page.Items[0].AssistantCode)
	assert.False(t, page.Items[0].At().IsZero())
}

func TestAttendancesRequiresToken(t *testing.T) {
	client, _ := newDevBackend(t)
	_, err := client.Attendances(context.Background(), "  ", AttendanceQuery{Page: 1})
	require.Error(t, err)
	assert.Equal(t, KindAuthMissing, KindOf(err))
	assert.Equal(t, "No authentication token found", UserMessage(err))
}

func TestRecapPage(t *testing.T) {
	client, store := newDevBackend(t)
	token, _ := store.IssueToken("BO")
	page, err := client.Recap(context.Background(), token, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.CurrentPage, "page below 1 is clamped")
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Items, 4)
	assert.GreaterOrEqual(t, page.Items[0].TotalAttendance, page.Items[3].TotalAttendance)
}

func TestNon2xxCarriesStatusAndBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("no such page"))
	}))
	t.Cleanup(ts.Close)
	client := New(ts.URL, time.Second)

	_, err := client.Attendances(context.Background(), "tok", AttendanceQuery{Page: 3})
	require.Error(t, err)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindNetwork, apiErr.Kind)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "no such page", apiErr.Body)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "GET /api/attendances: 404 Not Found: no such page")
}

func TestMalformedBodyIsParseError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"assistances": [`))
	}))
	t.Cleanup(ts.Close)
	_, err := New(ts.URL, time.Second).Attendances(context.Background(), "tok", AttendanceQuery{Page: 1})
	require.Error(t, err)
	assert.Equal(t, KindParse, KindOf(err))
	assert.Contains(t, UserMessage(err), "Network response was not ok")
}

func TestRequestHeadersAndQuery(t *testing.T) {
	var got *http.Request
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		_ = json.NewEncoder(w).Encode(map[string]any{"assistances": []any{}, "totalPages": 0})
	}))
	t.Cleanup(ts.Close)
	client := New(ts.URL+"/", time.Second, WithRequestIDs(func() string { return "req-1" }))

	page, err := client.Attendances(context.Background(), "tok", AttendanceQuery{
		Page: 4,
		Date: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, 4, page.CurrentPage, "missing currentPage falls back to the requested page")
	assert.Equal(t, 1, page.TotalPages, "totalPages is at least one")
	assert.NotNil(t, page.Items)

	require.NotNil(t, got)
	assert.Equal(t, "/api/attendances", got.URL.Path)
	assert.Equal(t, "4", got.URL.Query().Get("page"))
	assert.Equal(t, "2024-01-05", got.URL.Query().Get("date"))
	assert.Equal(t, "Bearer tok", got.Header.Get("Authorization"))
	assert.Equal(t, "req-1", got.Header.Get("X-Request-ID"))
}

func TestPersonalRecordsNotFoundIsEmpty(t *testing.T) {
	client, store := newDevBackend(t)
	store.AddUser("NEW", "Newcomer", "pw")
	token, _ := store.IssueToken("NEW")
	records, err := client.PersonalRecords(context.Background(), token)
	require.NoError(t, err)
	assert.Empty(t, records)

	token, _ = store.IssueToken("AL")
	records, err = client.PersonalRecords(context.Background(), token)
	require.NoError(t, err)
	require.NotEmpty(t, records)
	assert.Len(t, records[0].RawTime, len("2006-01-02T15:04:05.000Z"))
}

func TestUploadAndDeleteImage(t *testing.T) {
	client, store := newDevBackend(t)
	token, _ := store.IssueToken("CA")
	ctx := context.Background()

	url, err := client.UploadImage(ctx, token, Image{
		Filename:    "me.png",
		ContentType: "image/png",
		Data:        bytes.NewReader([]byte("\x89PNG\r\n\x1a\n")),
	})
	require.NoError(t, err)
	assert.Contains(t, url, "me.png")

	profile, err := client.WhoAmI(ctx, token)
	require.NoError(t, err)
	assert.True(t, profile.HasImage())

	require.NoError(t, client.DeleteImage(ctx, token))
	profile, err = client.WhoAmI(ctx, token)
	require.NoError(t, err)
	assert.False(t, profile.HasImage())

	_, err = client.UploadImage(ctx, token, Image{Filename: "notes.txt", ContentType: "text/plain", Data: bytes.NewReader([]byte("hi"))})
	require.Error(t, err)
	assert.Equal(t, "Only JPG, JPEG, PNG, and HEIC formats are allowed.", UserMessage(err))
}

func TestUpdatePasswordSurfacesServerMessage(t *testing.T) {
	client, store := newDevBackend(t)
	token, _ := store.IssueToken("DW")
	ctx := context.Background()

	err := client.UpdatePassword(ctx, token, PasswordChange{Current: "bad", New: "n3w", Confirm: "n3w"})
	require.Error(t, err)
	assert.Equal(t, "Current password is incorrect.", UserMessage(err))

	require.NoError(t, client.UpdatePassword(ctx, token, PasswordChange{Current: devserver.DevPassword, New: "n3w", Confirm: "n3w"}))
	_, err = client.SignIn(ctx, "DW", "n3w")
	require.NoError(t, err)
}

func TestDecodeTokenShapes(t *testing.T) {
	flat, err := decodeToken(json.RawMessage(`"abc"`))
	require.NoError(t, err)
	assert.Equal(t, "abc", flat)

	nested, err := decodeToken(json.RawMessage(`{"token":"xyz"}`))
	require.NoError(t, err)
	assert.Equal(t, "xyz", nested)

	_, err = decodeToken(nil)
	require.Error(t, err)
	_, err = decodeToken(json.RawMessage(`{"token":""}`))
	require.Error(t, err)
}
