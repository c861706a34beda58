// Package day handles calendar dates in the YYYY-MM-DD form used for
// acquisition, end and usage dates. Dates carry no time zone; they are
// represented as midnight UTC.
package day

import (
	"fmt"
	"regexp"
	"time"
)

// Layout is the only accepted date format.
const Layout = "2006-01-02"

var shape = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Parse parses a strict YYYY-MM-DD date.
func Parse(s string) (time.Time, error) {
	if !shape.MatchString(s) {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	t, err := time.Parse(Layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// Valid reports whether s is a strict YYYY-MM-DD date.
func Valid(s string) bool {
	_, err := Parse(s)
	return err == nil
}

// Format renders t as YYYY-MM-DD.
func Format(t time.Time) string {
	return t.Format(Layout)
}

// Today returns the calendar date of now in UTC.
func Today(now time.Time) string {
	return Format(now.UTC())
}

// Truncate drops the time of day, keeping the calendar date of t in UTC.
func Truncate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AddDays shifts a date by n calendar days.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// DaysBetween returns the whole number of days from from to to, negative
// when to is before from. It works on Unix seconds since time.Duration
// saturates at about 292 years.
func DaysBetween(from, to time.Time) int {
	return int((Truncate(to).Unix() - Truncate(from).Unix()) / secondsPerDay)
}

const secondsPerDay = 24 * 60 * 60
