// Package api is the HTTP client for the Boostify attendance backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kingrea/boostify/internal/attendance"
)

const (
	// DefaultTimeout bounds a single API call.
	DefaultTimeout = 15 * time.Second

	maxErrorBody = 4 << 10
)

// Client talks to the backend. It is safe for concurrent use.
type Client struct {
	baseURL   string
	http      *http.Client
	requestID func() string
	userAgent string
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithRequestIDs overrides the X-Request-ID generator.
func WithRequestIDs(next func() string) Option {
	return func(c *Client) {
		if next != nil {
			c.requestID = next
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = strings.TrimSpace(ua)
	}
}

// New returns a client for baseURL (scheme and host, no /api suffix).
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		baseURL:   strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:      &http.Client{Timeout: timeout},
		requestID: uuid.NewString,
		userAgent: "boostify-cli",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// BaseURL returns the configured backend root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// AttendanceQuery selects one page of the live attendance log.
type AttendanceQuery struct {
	Page int
	// Date, when set, is sent as a YYYY-MM-DD hint. The backend may ignore it.
	Date time.Time
}

// AttendancePage is one page of /api/attendances.
type AttendancePage struct {
	Items       []attendance.Attendance
	Total       int
	CurrentPage int
	TotalPages  int
}

// RecapPage is one page of /api/recap.
type RecapPage struct {
	Items       []attendance.RecapEntry
	CurrentPage int
	TotalPages  int
}

// SignInResult is what the backend returns for valid credentials.
type SignInResult struct {
	ID            int
	Name          string
	AssistantCode string
	Token         string
}

// PasswordChange is the body of the update-password call.
type PasswordChange struct {
	Current string `json:"currentPassword"`
	New     string `json:"newPassword"`
	Confirm string `json:"confirmPassword"`
}

// Image is a profile picture upload.
type Image struct {
	Filename    string
	ContentType string
	Data        io.Reader
}

type attendancesResponse struct {
	Assistances []attendance.Attendance `json:"assistances"`
	Total       int                     `json:"total"`
	CurrentPage int                     `json:"currentPage"`
	TotalPages  int                     `json:"totalPages"`
}

type recapResponse struct {
	Payload    []attendance.RecapEntry `json:"payload"`
	Pagination struct {
		CurrentPage int `json:"currentPage"`
		TotalPages  int `json:"totalPages"`
	} `json:"pagination"`
}

type signInResponse struct {
	ID            int             `json:"id"`
	Name          string          `json:"name"`
	AssistantCode string          `json:"assisstant_code"`
	Email         string          `json:"email"`
	Token         json.RawMessage `json:"token"`
}

type personalRecordsResponse struct {
	Payload struct {
		AttendancesTime []attendance.PersonalRecord `json:"attendancesTime"`
	} `json:"payload"`
}

type uploadImageResponse struct {
	UpdatedUser struct {
		ImageURL string `json:"imageUrl"`
	} `json:"updatedUser"`
}

// SignIn exchanges an assistant code and password for a token.
func (c *Client) SignIn(ctx context.Context, assistantCode, password string) (SignInResult, error) {
	payload, err := json.Marshal(map[string]string{
		"username": assistantCode,
		"password": password,
	})
	if err != nil {
		return SignInResult{}, fmt.Errorf("api: encode sign-in: %w", err)
	}
	var resp signInResponse
	err = c.do(ctx, call{
		method:      http.MethodPost,
		path:        "/api/auth/login",
		body:        bytes.NewReader(payload),
		contentType: "application/json",
		out:         &resp,
	})
	if err != nil {
		return SignInResult{}, err
	}
	token, err := decodeToken(resp.Token)
	if err != nil {
		return SignInResult{}, &Error{Kind: KindParse, Method: http.MethodPost, Path: "/api/auth/login", Err: err}
	}
	code := resp.AssistantCode
	if code == "" {
		code = resp.Email
	}
	return SignInResult{ID: resp.ID, Name: resp.Name, AssistantCode: code, Token: token}, nil
}

// Attendances fetches one page of the live attendance log.
func (c *Client) Attendances(ctx context.Context, token string, q AttendanceQuery) (AttendancePage, error) {
	page := normalizePage(q.Page)
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	if !q.Date.IsZero() {
		query.Set("date", q.Date.Format("2006-01-02"))
	}
	var resp attendancesResponse
	err := c.do(ctx, call{
		method: http.MethodGet,
		path:   "/api/attendances",
		query:  query,
		token:  token,
		auth:   true,
		out:    &resp,
	})
	if err != nil {
		return AttendancePage{}, err
	}
	items := resp.Assistances
	if items == nil {
		items = []attendance.Attendance{}
	}
	return AttendancePage{
		Items:       items,
		Total:       resp.Total,
		CurrentPage: pickPage(resp.CurrentPage, page),
		TotalPages:  atLeastOne(resp.TotalPages),
	}, nil
}

// Recap fetches one page of per-assistant attendance totals.
func (c *Client) Recap(ctx context.Context, token string, page int) (RecapPage, error) {
	page = normalizePage(page)
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	var resp recapResponse
	err := c.do(ctx, call{
		method: http.MethodGet,
		path:   "/api/recap",
		query:  query,
		token:  token,
		auth:   true,
		out:    &resp,
	})
	if err != nil {
		return RecapPage{}, err
	}
	items := resp.Payload
	if items == nil {
		items = []attendance.RecapEntry{}
	}
	return RecapPage{
		Items:       items,
		CurrentPage: pickPage(resp.Pagination.CurrentPage, page),
		TotalPages:  atLeastOne(resp.Pagination.TotalPages),
	}, nil
}

// WhoAmI returns the profile behind token.
func (c *Client) WhoAmI(ctx context.Context, token string) (attendance.Profile, error) {
	var profile attendance.Profile
	err := c.do(ctx, call{
		method: http.MethodGet,
		path:   "/api/whoami",
		token:  token,
		auth:   true,
		out:    &profile,
	})
	return profile, err
}

// PersonalRecords returns the signed-in user's attendance history. A 404
// means the user has no records yet.
func (c *Client) PersonalRecords(ctx context.Context, token string) ([]attendance.PersonalRecord, error) {
	var resp personalRecordsResponse
	err := c.do(ctx, call{
		method: http.MethodGet,
		path:   "/api/personalrec",
		token:  token,
		auth:   true,
		out:    &resp,
	})
	if err != nil {
		if IsNotFound(err) {
			return []attendance.PersonalRecord{}, nil
		}
		return nil, err
	}
	if resp.Payload.AttendancesTime == nil {
		return []attendance.PersonalRecord{}, nil
	}
	return resp.Payload.AttendancesTime, nil
}

// UploadImage replaces the profile picture and returns the new image URL.
func (c *Client) UploadImage(ctx context.Context, token string, img Image) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, img.Filename))
	contentType := img.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("api: build upload: %w", err)
	}
	if img.Data != nil {
		if _, err := io.Copy(part, img.Data); err != nil {
			return "", fmt.Errorf("api: read image: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("api: build upload: %w", err)
	}
	var resp uploadImageResponse
	err = c.do(ctx, call{
		method:      http.MethodPatch,
		path:        "/api/uploadImage",
		token:       token,
		auth:        true,
		body:        &buf,
		contentType: mw.FormDataContentType(),
		out:         &resp,
	})
	if err != nil {
		return "", err
	}
	return resp.UpdatedUser.ImageURL, nil
}

// DeleteImage resets the profile picture to the default avatar.
func (c *Client) DeleteImage(ctx context.Context, token string) error {
	return c.do(ctx, call{
		method: http.MethodDelete,
		path:   "/api/deleteImage",
		token:  token,
		auth:   true,
	})
}

// UpdatePassword changes the signed-in user's password.
func (c *Client) UpdatePassword(ctx context.Context, token string, change PasswordChange) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("api: encode password change: %w", err)
	}
	return c.do(ctx, call{
		method:      http.MethodPatch,
		path:        "/api/auth/updatePassword",
		token:       token,
		auth:        true,
		body:        bytes.NewReader(payload),
		contentType: "application/json",
	})
}

type call struct {
	method      string
	path        string
	query       url.Values
	token       string
	auth        bool
	body        io.Reader
	contentType string
	out         any
}

func (c *Client) do(ctx context.Context, cl call) error {
	if cl.auth && strings.TrimSpace(cl.token) == "" {
		return &Error{Kind: KindAuthMissing, Method: cl.method, Path: cl.path}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	target := c.baseURL + cl.path
	if len(cl.query) > 0 {
		target += "?" + cl.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, cl.method, target, cl.body)
	if err != nil {
		return &Error{Kind: KindNetwork, Method: cl.method, Path: cl.path, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if cl.contentType != "" {
		req.Header.Set("Content-Type", cl.contentType)
	} else {
		req.Header.Set("Content-Type", "application/json")
	}
	if cl.auth {
		req.Header.Set("Authorization", "Bearer "+cl.token)
	}
	if c.requestID != nil {
		req.Header.Set("X-Request-ID", c.requestID())
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Kind: KindNetwork, Method: cl.method, Path: cl.path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &Error{
			Kind:   KindNetwork,
			Method: cl.method,
			Path:   cl.path,
			Status: resp.StatusCode,
			Body:   string(body),
		}
	}
	if cl.out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(cl.out); err != nil {
		return &Error{Kind: KindParse, Method: cl.method, Path: cl.path, Status: 0, Err: err}
	}
	return nil
}

// decodeToken accepts both "token": "abc" and "token": {"token": "abc"}.
func decodeToken(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", fmt.Errorf("token missing from response")
	}
	var flat string
	if err := json.Unmarshal(raw, &flat); err == nil {
		if flat = strings.TrimSpace(flat); flat != "" {
			return flat, nil
		}
		return "", fmt.Errorf("token is empty")
	}
	var nested struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(raw, &nested); err != nil {
		return "", fmt.Errorf("decode token: %w", err)
	}
	if strings.TrimSpace(nested.Token) == "" {
		return "", fmt.Errorf("token is empty")
	}
	return strings.TrimSpace(nested.Token), nil
}

// serverMessage extracts {"message": "..."} from an error body.
func serverMessage(body string) string {
	body = strings.TrimSpace(body)
	if !strings.HasPrefix(body, "{") {
		return ""
	}
	var parsed struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return ""
	}
	return strings.TrimSpace(parsed.Message)
}

func normalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

func pickPage(reported, requested int) int {
	if reported >= 1 {
		return reported
	}
	return requested
}

func atLeastOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
