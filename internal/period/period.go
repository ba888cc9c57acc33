// Package period provides calendar-date arithmetic shared by the attendance
// and tuition reconciliation paths. All dates are day-precision and anchored
// to UTC so weekday derivation never drifts with the process timezone.
package period

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// Date is a timezone-free calendar date.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate builds a normalised Date (out-of-range components roll over the
// same way time.Date does).
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf truncates an instant to its UTC calendar date.
func DateOf(t time.Time) Date {
	u := t.UTC()
	return Date{Year: u.Year(), Month: u.Month(), Day: u.Day()}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// Time returns the date at midnight UTC.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Time().Format(DateLayout)
}

// Weekday returns the day of week with Sunday = 0.
func (d Date) Weekday() time.Weekday {
	return d.Time().Weekday()
}

// AddDays shifts the date by n calendar days.
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

// Before reports whether d precedes o.
func (d Date) Before(o Date) bool {
	return d.Time().Before(o.Time())
}

// After reports whether d follows o.
func (d Date) After(o Date) bool {
	return d.Time().After(o.Time())
}

// IsZero reports whether the date is the zero value.
func (d Date) IsZero() bool {
	return d == Date{}
}

// Range is an entity's validity window. A nil End means open-ended, treated
// as +infinity by every comparison below.
type Range struct {
	Start Date
	End   *Date
}

// NewRange builds a Range from a start date and an optional end instant.
func NewRange(start time.Time, end *time.Time) Range {
	r := Range{Start: DateOf(start)}
	if end != nil {
		e := DateOf(*end)
		r.End = &e
	}
	return r
}

// Contains reports whether the date falls inside the range, inclusive.
func (r Range) Contains(d Date) bool {
	if d.Before(r.Start) {
		return false
	}
	return r.End == nil || !d.After(*r.End)
}

// Overlaps reports whether the entity range intersects the closed period
// [start, end]. This predicate is single-sourced: both the schedule expander
// and the tuition reconciler must go through it.
func Overlaps(entity Range, start, end Date) bool {
	if entity.Start.After(end) {
		return false
	}
	return entity.End == nil || !entity.End.Before(start)
}

// Clamp intersects the entity range with the closed period [start, end],
// returning ok=false when they do not overlap.
func Clamp(entity Range, start, end Date) (Date, Date, bool) {
	if !Overlaps(entity, start, end) {
		return Date{}, Date{}, false
	}
	lo := start
	if entity.Start.After(lo) {
		lo = entity.Start
	}
	hi := end
	if entity.End != nil && entity.End.Before(hi) {
		hi = *entity.End
	}
	return lo, hi, true
}

// EffectiveEnd returns the earlier of two optional end dates, treating nil
// as +infinity. It is the shared helper for "enrollment leave date vs class
// lifetime end" so the attendance and tuition paths cannot diverge.
func EffectiveEnd(a, b *Date) *Date {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if a.Before(*b) {
		return a
	}
	return b
}

// MonthRange returns the first and last day of a calendar month.
func MonthRange(year int, month time.Month) (Date, Date) {
	first := NewDate(year, month, 1)
	last := DateOf(first.Time().AddDate(0, 1, -1))
	return first, last
}
