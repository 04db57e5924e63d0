package domain

import (
	"time"
)

// DateLayout is the calendar-day format used by every date field and document key.
const DateLayout = "2006-01-02"

func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, Invalid("date %q must be formatted as YYYY-MM-DD", s)
	}
	return t, nil
}

func DayKey(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// DayGap returns to - from in whole calendar days.
func DayGap(from, to string) (int, error) {
	f, err := ParseDay(from)
	if err != nil {
		return 0, err
	}
	t, err := ParseDay(to)
	if err != nil {
		return 0, err
	}
	return int(t.Sub(f).Hours() / 24), nil
}

func AddDays(day string, n int) (string, error) {
	t, err := ParseDay(day)
	if err != nil {
		return "", err
	}
	return DayKey(t.AddDate(0, 0, n)), nil
}

// IsFutureDay reports whether day lies after the UTC calendar day of now.
func IsFutureDay(day string, now time.Time) (bool, error) {
	t, err := ParseDay(day)
	if err != nil {
		return false, err
	}
	return t.After(now.UTC().Truncate(24 * time.Hour)), nil
}
