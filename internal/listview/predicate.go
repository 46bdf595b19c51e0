package listview

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// ByDate matches records whose timestamp falls on the same calendar day as
// day, both read in loc. A zero day returns nil (no filter).
func ByDate[T any](day time.Time, loc *time.Location, at func(T) time.Time) Predicate[T] {
	if day.IsZero() || at == nil {
		return nil
	}
	if loc == nil {
		loc = time.UTC
	}
	wy, wm, wd := day.Date()
	return func(item T) bool {
		ts := at(item)
		if ts.IsZero() {
			return false
		}
		y, m, d := ts.In(loc).Date()
		return y == wy && m == wm && d == wd
	}
}

// ByText matches records where any of fields contains query, ignoring
// case. An empty query returns nil (no filter).
func ByText[T any](query string, fields func(T) []string) Predicate[T] {
	fold := cases.Fold()
	needle := fold.String(strings.TrimSpace(query))
	if needle == "" || fields == nil {
		return nil
	}
	return func(item T) bool {
		for _, field := range fields(item) {
			if strings.Contains(fold.String(field), needle) {
				return true
			}
		}
		return false
	}
}
