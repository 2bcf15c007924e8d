// Package civiltime anchors every day-boundary computation to one fixed civil
// timezone so that "today" never depends on where the process runs.
package civiltime

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// DateLayout is the storage format for civil dates.
	DateLayout = "2006-01-02"
	// TimeLayout is the storage format for civil times of day.
	TimeLayout = "15:04"
	// DefaultZoneName is the product-wide reference timezone.
	DefaultZoneName = "Asia/Kolkata"
)

// ErrInvalidTimeInput is returned when a civil date or time cannot be parsed.
var ErrInvalidTimeInput = errors.New("invalid time input")

// Components holds the calendar fields of an instant in the civil zone.
type Components struct {
	Year   int
	Month  time.Month
	Day    int
	Hour   int
	Minute int
}

// Date returns the components' civil date in DateLayout form.
func (c Components) Date() string {
	return fmt.Sprintf("%04d-%02d-%02d", c.Year, int(c.Month), c.Day)
}

// Zone performs instant <-> civil conversions in a fixed location.
type Zone struct {
	loc *time.Location
	now func() time.Time
}

// NewZone loads the named location. A nil clock defaults to time.Now.
func NewZone(name string, now func() time.Time) (*Zone, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultZoneName
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown timezone %q", ErrInvalidTimeInput, name)
	}

	return NewZoneAt(loc, now), nil
}

// NewZoneAt wraps an already loaded location.
func NewZoneAt(loc *time.Location, now func() time.Time) *Zone {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Zone{loc: loc, now: now}
}

// Location exposes the civil location.
func (z *Zone) Location() *time.Location {
	return z.loc
}

// Now returns the current instant expressed in the civil zone.
func (z *Zone) Now() time.Time {
	return z.now().In(z.loc)
}

// StartOfDay returns civil midnight of the day containing t.
func (z *Zone) StartOfDay(t time.Time) time.Time {
	local := t.In(z.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, z.loc)
}

// EndOfDay returns the last representable instant of the civil day containing t.
func (z *Zone) EndOfDay(t time.Time) time.Time {
	return z.StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// Components splits t into civil calendar fields.
func (z *Zone) Components(t time.Time) Components {
	local := t.In(z.loc)
	return Components{
		Year:   local.Year(),
		Month:  local.Month(),
		Day:    local.Day(),
		Hour:   local.Hour(),
		Minute: local.Minute(),
	}
}

// DateOf returns the civil date of t in DateLayout form.
func (z *Zone) DateOf(t time.Time) string {
	return t.In(z.loc).Format(DateLayout)
}

// ClockOf returns the civil time of day of t in TimeLayout form.
func (z *Zone) ClockOf(t time.Time) string {
	return t.In(z.loc).Format(TimeLayout)
}

// Today returns the current civil date.
func (z *Zone) Today() string {
	return z.DateOf(z.now())
}

// IsToday reports whether date is the current civil date.
func (z *Zone) IsToday(date string) bool {
	return strings.TrimSpace(date) == z.Today()
}

// InstantFromCivil interprets a civil date and time of day in the zone.
func (z *Zone) InstantFromCivil(date, clock string) (time.Time, error) {
	day, err := ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}

	hour, minute, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}

	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, z.loc), nil
}

// ParseDate validates a civil date. The returned value is midnight UTC and is
// only meant for calendar arithmetic.
func ParseDate(date string) (time.Time, error) {
	parsed, err := time.Parse(DateLayout, strings.TrimSpace(date))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q", ErrInvalidTimeInput, date)
	}
	return parsed, nil
}

// ParseClock validates a civil time of day, accepting HH:MM or HH:MM:SS.
func ParseClock(clock string) (int, int, error) {
	clock = strings.TrimSpace(clock)
	for _, layout := range []string{TimeLayout, "15:04:05"} {
		if parsed, err := time.Parse(layout, clock); err == nil {
			return parsed.Hour(), parsed.Minute(), nil
		}
	}
	return 0, 0, fmt.Errorf("%w: time %q", ErrInvalidTimeInput, clock)
}

// AddDays shifts a civil date by n calendar days.
func AddDays(date string, n int) (string, error) {
	day, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return day.AddDate(0, 0, n).Format(DateLayout), nil
}

// IsWeekend reports whether a civil date falls on Saturday or Sunday.
func IsWeekend(date string) (bool, error) {
	day, err := ParseDate(date)
	if err != nil {
		return false, err
	}
	weekday := day.Weekday()
	return weekday == time.Saturday || weekday == time.Sunday, nil
}
