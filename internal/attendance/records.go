// Package attendance holds the records served by the attendance backend
// and the helpers that turn them into display strings.
package attendance

import (
	"strings"
	"time"
)

// Attendance is one face-recognition check-in.
type Attendance struct {
	ID            int    `json:"id"`
	AssistantCode string `json:"assisstant_code"`
	Name          string `json:"name"`
	// Time is an ISO-8601 timestamp in UTC.
	Time string `json:"time"`
}

// At parses Time. A malformed timestamp yields the zero time.
func (a Attendance) At() time.Time {
	return ParseTimestamp(a.Time)
}

// RecapEntry is one assistant's attendance total.
type RecapEntry struct {
	AssistantCode   string `json:"assisstant_code"`
	Name            string `json:"name"`
	TotalAttendance int    `json:"totalAttendance"`
}

// Profile is the signed-in user as reported by whoami.
type Profile struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	AssistantCode string `json:"assisstant_code"`
	ImageURL      string `json:"image_url"`
}

// HasImage reports whether a custom avatar is set.
func (p Profile) HasImage() bool {
	url := strings.TrimSpace(p.ImageURL)
	return url != "" && url != DefaultAvatar
}

// DefaultAvatar is the placeholder the backend reports after an image is deleted.
const DefaultAvatar = "/user.png"

// PersonalRecord is one entry of the signed-in user's attendance history.
type PersonalRecord struct {
	Time    string `json:"time"`
	RawTime string `json:"rawTime"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses an ISO timestamp. Timestamps without a zone are
// taken as UTC.
func ParseTimestamp(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t
		}
	}
	return time.Time{}
}
