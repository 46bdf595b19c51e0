package attendance

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// calendar holds the date and time wording for one display language.
type calendar struct {
	weekdays [7]string
	months   [12]string
	// date receives weekday, day, month and year.
	date       func(weekday string, day int, month string, year int) string
	timeLayout string
}

var calendars = map[language.Base]calendar{
	baseOf(language.English): {
		weekdays: [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"},
		months: [12]string{"January", "February", "March", "April", "May", "June",
			"July", "August", "September", "October", "November", "December"},
		date: func(weekday string, day int, month string, year int) string {
			return fmt.Sprintf("%s, %s %d, %d", weekday, month, day, year)
		},
		timeLayout: "03:04:05 PM",
	},
	baseOf(language.Indonesian): {
		weekdays: [7]string{"Minggu", "Senin", "Selasa", "Rabu", "Kamis", "Jumat", "Sabtu"},
		months: [12]string{"Januari", "Februari", "Maret", "April", "Mei", "Juni",
			"Juli", "Agustus", "September", "Oktober", "November", "Desember"},
		date: func(weekday string, day int, month string, year int) string {
			return fmt.Sprintf("%s, %d %s %d", weekday, day, month, year)
		},
		timeLayout: "15.04.05",
	},
}

var (
	calendarTags    = []language.Tag{language.English, language.Indonesian}
	calendarMatcher = language.NewMatcher(calendarTags)
)

func baseOf(tag language.Tag) language.Base {
	base, _ := tag.Base()
	return base
}

// Formatter renders timestamps and numbers for one display location and
// locale. It is passed to the views; there is no package-level default.
type Formatter struct {
	loc     *time.Location
	tag     language.Tag
	cal     calendar
	printer *message.Printer
	title   *cases.Caser
	now     func() time.Time
}

// NewFormatter builds a Formatter. A nil location means time.Local; an
// unparsable locale falls back to English.
func NewFormatter(loc *time.Location, locale string, now func() time.Time) Formatter {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		tag = language.English
	}
	title := cases.Title(tag)
	return Formatter{
		loc:     loc,
		tag:     tag,
		cal:     calendarFor(tag),
		printer: message.NewPrinter(tag),
		title:   &title,
		now:     now,
	}
}

// calendarFor picks the closest supported wording for tag. Unsupported
// languages get English.
func calendarFor(tag language.Tag) calendar {
	_, idx, conf := calendarMatcher.Match(tag)
	if conf == language.No || idx >= len(calendarTags) {
		return calendars[baseOf(language.English)]
	}
	return calendars[baseOf(calendarTags[idx])]
}

func (f Formatter) calendar() calendar {
	if f.cal.date == nil {
		return calendars[baseOf(language.English)]
	}
	return f.cal
}

// Location returns the display location.
func (f Formatter) Location() *time.Location {
	if f.loc == nil {
		return time.Local
	}
	return f.loc
}

// FormatDate renders the long date in the display language, e.g.
// "Friday, January 5, 2024" or "Jumat, 5 Januari 2024".
func (f Formatter) FormatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	local := t.In(f.Location())
	cal := f.calendar()
	return cal.date(cal.weekdays[local.Weekday()], local.Day(), cal.months[local.Month()-1], local.Year())
}

// FormatTime renders e.g. "10:00:00 AM", or "10.00.00" for Indonesian.
func (f Formatter) FormatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.In(f.Location()).Format(f.calendar().timeLayout)
}

// Age renders how long ago t was, e.g. "3 hours ago".
func (f Formatter) Age(t time.Time) string {
	if t.IsZero() || f.now == nil {
		return ""
	}
	return humanize.RelTime(t, f.now(), "ago", "from now")
}

// Count renders n with locale digit grouping.
func (f Formatter) Count(n int) string {
	if f.printer == nil {
		return humanize.Comma(int64(n))
	}
	return f.printer.Sprintf("%d", n)
}

// DisplayName title-cases a name for headings. Codes are left alone.
func (f Formatter) DisplayName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || f.title == nil {
		return name
	}
	return f.title.String(strings.ToLower(name))
}

// Day truncates t to midnight in the display location.
func (f Formatter) Day(t time.Time) time.Time {
	local := t.In(f.Location())
	y, m, d := local.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, f.Location())
}

// TimeOnly returns the HH:MM:SS part of an ISO timestamp string, or the
// input unchanged when it has no time part.
func TimeOnly(raw string) string {
	_, after, ok := strings.Cut(strings.TrimSpace(raw), "T")
	if !ok {
		return raw
	}
	if len(after) > 8 {
		after = after[:8]
	}
	return after
}

// Medal returns the podium medal for a 1-based rank, or "".
func Medal(rank int) string {
	switch rank {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	default:
		return ""
	}
}

var dateInputLayouts = []string{"02/01/2006", "2006-01-02", "2/1/2006"}

// ParseDay parses a date typed by the user (DD/MM/YYYY or YYYY-MM-DD) as
// midnight in the display location.
func (f Formatter) ParseDay(input string) (time.Time, bool) {
	input = strings.TrimSpace(input)
	for _, layout := range dateInputLayouts {
		if t, err := time.ParseInLocation(layout, input, f.Location()); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
