// Package timeutil provides day and week boundary helpers for the prayer engine.
// Every function takes an explicit *time.Location: day bucketing must never
// depend on ambient local-time state, because two sessions of the same user
// can run in different server timezones.
// No external dependencies - uses only standard library.
package timeutil

import (
	"fmt"
	"time"
)

// DayKeyLayout is the canonical format for a calendar-day key.
const DayKeyLayout = "2006-01-02"

// StartOfDay returns the start of the calendar day (00:00:00) containing t
// in the given location.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}

// EndOfDay returns the last nanosecond of the calendar day containing t
// in the given location.
func EndOfDay(t time.Time, loc *time.Location) time.Time {
	return StartOfDay(t, loc).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// DayKey returns the canonical key ("YYYY-MM-DD") for the calendar day
// containing t in the given location.
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DayKeyLayout)
}

// StartOfISOWeek returns Monday 00:00:00 of the ISO week containing t in loc.
func StartOfISOWeek(t time.Time, loc *time.Location) time.Time {
	day := StartOfDay(t, loc)
	weekday := int(day.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	return day.AddDate(0, 0, -(weekday - 1))
}

// EndOfISOWeek returns the last nanosecond of the ISO week containing t in loc.
func EndOfISOWeek(t time.Time, loc *time.Location) time.Time {
	return StartOfISOWeek(t, loc).AddDate(0, 0, 7).Add(-time.Nanosecond)
}

// ISOWeekKey returns the canonical key ("YYYY-Www") for the ISO week
// containing t in loc.
func ISOWeekKey(t time.Time, loc *time.Location) string {
	year, week := t.In(loc).ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// LoadLocation resolves a timezone name, falling back to UTC for an empty name.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" || name == "UTC" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("timeutil: unknown timezone %q: %w", name, err)
	}
	return loc, nil
}
