// Package timetable expands a class's weekly recurring schedule into concrete
// dated sessions bounded by the intersection of the class lifetime and a
// queried window.
package timetable

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/tutorbase/tutor-api/internal/period"
)

// ClockLayout is the wire format for session times.
const ClockLayout = "15:04"

// ClockTime is a minute-precision time of day with no timezone.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClock parses an HH:MM 24-hour string.
func ParseClock(s string) (ClockTime, error) {
	t, err := time.Parse(ClockLayout, s)
	if err != nil {
		return ClockTime{}, fmt.Errorf("parse clock %q: %w", s, err)
	}
	return ClockTime{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// String formats the time as HH:MM.
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Minutes returns minutes since midnight.
func (c ClockTime) Minutes() int {
	return c.Hour*60 + c.Minute
}

// Before reports whether c precedes o within the day.
func (c ClockTime) Before(o ClockTime) bool {
	return c.Minutes() < o.Minutes()
}

// Add shifts the time forward, capping at 23:59. Sessions never wrap past
// midnight.
func (c ClockTime) Add(d time.Duration) ClockTime {
	total := c.Minutes() + int(d.Minutes())
	if total > 23*60+59 {
		total = 23*60 + 59
	}
	return ClockTime{Hour: total / 60, Minute: total % 60}
}

// MarshalJSON encodes the clock time as an "HH:MM" string.
func (c ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON decodes an "HH:MM" string.
func (c *ClockTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// WeeklySlot is one recurring (weekday, time range) entry in a class
// schedule. Weekday uses Sunday = 0. A nil End means the session length falls
// back to the class default duration.
type WeeklySlot struct {
	Weekday int        `json:"weekday"`
	Start   ClockTime  `json:"start"`
	End     *ClockTime `json:"end,omitempty"`
}

// Valid reports whether the slot can produce sessions at all.
func (s WeeklySlot) Valid() bool {
	if s.Weekday < 0 || s.Weekday > 6 {
		return false
	}
	if s.End != nil && !s.Start.Before(*s.End) {
		return false
	}
	return true
}

// Session is one concrete dated occurrence of a class. Sessions are derived,
// never persisted; identity is (class, date, start).
type Session struct {
	ClassID string      `json:"class_id"`
	Date    period.Date `json:"date"`
	Start   ClockTime   `json:"start"`
	End     ClockTime   `json:"end"`
}

// Expand walks every date in the intersection of the class lifetime and the
// queried window, emitting one session per weekly slot whose weekday matches.
// Output is sorted by (date, start) and is fully determined by its inputs.
// An empty or entirely invalid slot list yields no sessions; callers drop
// such classes rather than treating them as errors.
func Expand(classID string, slots []WeeklySlot, lifetime period.Range, winStart, winEnd period.Date, fallback time.Duration) []Session {
	if len(slots) == 0 {
		return nil
	}

	byWeekday := make(map[int][]WeeklySlot, len(slots))
	for _, slot := range slots {
		if !slot.Valid() {
			continue
		}
		byWeekday[slot.Weekday] = append(byWeekday[slot.Weekday], slot)
	}
	if len(byWeekday) == 0 {
		return nil
	}

	lo, hi, ok := period.Clamp(lifetime, winStart, winEnd)
	if !ok {
		return nil
	}

	var sessions []Session
	for d := lo; !d.After(hi); d = d.AddDays(1) {
		for _, slot := range byWeekday[int(d.Weekday())] {
			end := slot.Start.Add(fallback)
			if slot.End != nil {
				end = *slot.End
			}
			sessions = append(sessions, Session{ClassID: classID, Date: d, Start: slot.Start, End: end})
		}
	}

	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].Date != sessions[j].Date {
			return sessions[i].Date.Before(sessions[j].Date)
		}
		return sessions[i].Start.Before(sessions[j].Start)
	})
	return sessions
}
