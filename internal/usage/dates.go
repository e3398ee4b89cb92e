package usage

import (
	"fmt"
	"time"
)

// DayLayout is the fixed-width calendar day format used as the series key.
// Lexicographic order of formatted days equals chronological order.
const DayLayout = "2006-01-02"

const secondsPerDay = 24 * 60 * 60

// Day returns the UTC calendar day of t.
func Day(t time.Time) string {
	return t.UTC().Format(DayLayout)
}

// ParseDay parses a YYYY-MM-DD string as midnight UTC.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DayLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse day %q: %w", s, err)
	}
	return t, nil
}

// DateRange is an inclusive window compared by calendar day only.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// LastNDays returns the n-day window ending on the calendar day of now.
func LastNDays(now time.Time, n int) DateRange {
	if n < 1 {
		n = 1
	}
	end := startOfDay(now)
	return DateRange{Start: end.AddDate(0, 0, -(n - 1)), End: end}
}

func (r DateRange) StartDay() string { return Day(r.Start) }
func (r DateRange) EndDay() string   { return Day(r.End) }

// Contains reports whether day (YYYY-MM-DD) falls inside the range.
func (r DateRange) Contains(day string) bool {
	return day >= r.StartDay() && day <= r.EndDay()
}

// Days is the inclusive number of calendar days covered, or 0 when End
// precedes Start.
func (r DateRange) Days() int {
	start, end := startOfDay(r.Start), startOfDay(r.End)
	if end.Before(start) {
		return 0
	}
	return daysBetween(start, end) + 1
}

func (r DateRange) String() string {
	return r.StartDay() + ".." + r.EndDay()
}

// DayRange lists every calendar day from first to last inclusive. It returns
// nil if either bound is malformed or last precedes first.
func DayRange(first, last string) []string {
	from, err := ParseDay(first)
	if err != nil {
		return nil
	}
	to, err := ParseDay(last)
	if err != nil || to.Before(from) {
		return nil
	}
	days := make([]string, 0, daysBetween(from, to)+1)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		days = append(days, d.Format(DayLayout))
	}
	return days
}

// daysBetween counts whole days between two UTC midnights. Unix seconds are
// used since time.Duration overflows past about 292 years.
func daysBetween(from, to time.Time) int {
	return int((to.Unix() - from.Unix()) / secondsPerDay)
}

func startOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
