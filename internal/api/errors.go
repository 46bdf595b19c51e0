package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

// ErrorKind classifies failures at the fetch boundary.
type ErrorKind string

const (
	// KindAuthMissing: no credential was available for the call.
	KindAuthMissing ErrorKind = "auth_missing"
	// KindNetwork: transport failure or non-2xx response.
	KindNetwork ErrorKind = "network"
	// KindParse: the response body could not be decoded.
	KindParse ErrorKind = "parse"
)

// Error is returned by every Client call that fails.
type Error struct {
	Kind   ErrorKind
	Method string
	Path   string
	Status int
	Body   string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("api: ")
	if e.Method != "" {
		fmt.Fprintf(&b, "%s %s: ", e.Method, e.Path)
	}
	switch {
	case e.Kind == KindAuthMissing:
		b.WriteString("not signed in")
	case e.Status != 0:
		fmt.Fprintf(&b, "%d %s", e.Status, http.StatusText(e.Status))
		if body := strings.TrimSpace(e.Body); body != "" {
			fmt.Fprintf(&b, ": %s", truncate(body, 200))
		}
	case e.Err != nil:
		b.WriteString(e.Err.Error())
	default:
		b.WriteString(string(e.Kind))
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Message is the text shown to the user. Parse errors display like
// network errors.
func (e *Error) Message() string {
	switch e.Kind {
	case KindAuthMissing:
		return "No authentication token found"
	case KindParse:
		return "Network response was not ok: unexpected response from server"
	}
	if e.Status != 0 {
		if msg := serverMessage(e.Body); msg != "" {
			return msg
		}
		return fmt.Sprintf("Network response was not ok: %d %s", e.Status, http.StatusText(e.Status))
	}
	if e.Err != nil {
		return fmt.Sprintf("Network response was not ok: %v", e.Err)
	}
	return "Network response was not ok"
}

// KindOf returns the kind of err, or "" when err is not an *Error.
func KindOf(err error) ErrorKind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsUnauthorized reports a 401 from the backend, which means the stored
// token is no longer accepted.
func IsUnauthorized(err error) bool {
	return StatusOf(err) == http.StatusUnauthorized
}

// IsNotFound reports a 404 from the backend.
func IsNotFound(err error) bool {
	return StatusOf(err) == http.StatusNotFound
}

// UserMessage returns the display text for any error.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message()
	}
	return err.Error()
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "…"
}
