// Package dates turns caller-supplied path segments into calendar days.
//
// A day is represented as a time.Time at midnight UTC. Epoch input is
// converted in UTC regardless of the host time zone, so the same request
// resolves to the same day on every machine.
package dates

import (
	"strconv"
	"strings"
	"time"
)

// Layout is the storage and wire format of a day.
const Layout = "2006-01-02"

// parseLayout also accepts single-digit months and days.
const parseLayout = "2006-1-2"

const (
	MsgDateFormat      = "please format your date as YYYY-MM-DD"
	MsgTimestampFormat = "please format your date as a POSIX-style timestamp"
)

// FormatError reports input that is neither a YYYY-MM-DD date nor a
// millisecond epoch. Error returns the user-facing guidance only.
type FormatError struct {
	Input   string
	Message string
	Err     error
}

func (e *FormatError) Error() string { return e.Message }

func (e *FormatError) Unwrap() error { return e.Err }

// Normalize parses raw as YYYY-MM-DD when it contains a hyphen, otherwise
// as an integer count of milliseconds since the Unix epoch. Surrounding
// whitespace is ignored.
func Normalize(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if strings.Contains(s, "-") {
		d, err := time.Parse(parseLayout, s)
		if err != nil {
			return time.Time{}, &FormatError{Input: raw, Message: MsgDateFormat, Err: err}
		}
		return d, nil
	}

	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, &FormatError{Input: raw, Message: MsgTimestampFormat, Err: err}
	}
	t := time.UnixMilli(ms).UTC()
	if y := t.Year(); y < 1 || y > 9999 {
		return time.Time{}, &FormatError{Input: raw, Message: MsgTimestampFormat}
	}
	return Day(t), nil
}

// Day truncates t to midnight of its UTC calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// YearBefore steps back one calendar year, clamping to the end of the
// month: 2016-02-29 becomes 2015-02-28, never 2015-03-01.
func YearBefore(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	if last := daysIn(y-1, m); d > last {
		d = last
	}
	return time.Date(y-1, m, d, 0, 0, 0, 0, time.UTC)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func Format(t time.Time) string {
	return t.UTC().Format(Layout)
}

func Parse(s string) (time.Time, error) {
	return time.Parse(Layout, s)
}
