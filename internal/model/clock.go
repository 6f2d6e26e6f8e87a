package model

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// ParseClock converts "HH:MM" to minutes since midnight.
func ParseClock(s string) (int, error) {
	if len(s) != 5 {
		return 0, fmt.Errorf("%w: invalid time %q", ErrValidation, s)
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid time %q", ErrValidation, s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatClock renders minutes since midnight as "HH:MM".
func FormatClock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

// ParseDate validates a YYYY-MM-DD civil date and returns it normalized.
func ParseDate(s string) (string, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return "", fmt.Errorf("%w: invalid date %q", ErrValidation, s)
	}
	return t.Format(dateLayout), nil
}

// WeekdayOf returns the weekday (0=Sunday) of a YYYY-MM-DD date.
func WeekdayOf(date string) (int, error) {
	t, err := time.Parse(dateLayout, date)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid date %q", ErrValidation, date)
	}
	return int(t.Weekday()), nil
}
