package timetable

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorbase/tutor-api/internal/period"
)

func mustClock(t *testing.T, s string) ClockTime {
	t.Helper()
	c, err := ParseClock(s)
	require.NoError(t, err)
	return c
}

func clockPtr(t *testing.T, s string) *ClockTime {
	c := mustClock(t, s)
	return &c
}

func TestParseClock(t *testing.T) {
	c, err := ParseClock("18:05")
	require.NoError(t, err)
	assert.Equal(t, ClockTime{Hour: 18, Minute: 5}, c)
	assert.Equal(t, "18:05", c.String())

	_, err = ParseClock("6pm")
	assert.Error(t, err)
}

func TestClockTimeAddCapsAtEndOfDay(t *testing.T) {
	c := mustClock(t, "23:30")
	assert.Equal(t, "23:59", c.Add(90*time.Minute).String())
	assert.Equal(t, "19:00", mustClock(t, "18:00").Add(time.Hour).String())
}

func TestExpandFebruary2024(t *testing.T) {
	end := period.NewDate(2024, time.March, 31)
	lifetime := period.Range{Start: period.NewDate(2024, time.January, 1), End: &end}
	slots := []WeeklySlot{
		{Weekday: 1, Start: mustClock(t, "18:00"), End: clockPtr(t, "19:00")},
		{Weekday: 4, Start: mustClock(t, "18:00"), End: clockPtr(t, "19:00")},
	}
	winStart, winEnd := period.MonthRange(2024, time.February)

	sessions := Expand("class-1", slots, lifetime, winStart, winEnd, time.Hour)
	require.Len(t, sessions, 9)

	// Mondays and Thursdays of February 2024 (Feb 1 and the leap day Feb 29
	// are both Thursdays).
	wantDates := []string{
		"2024-02-01", "2024-02-05", "2024-02-08", "2024-02-12",
		"2024-02-15", "2024-02-19", "2024-02-22", "2024-02-26",
		"2024-02-29",
	}
	for i, s := range sessions {
		assert.Equal(t, wantDates[i], s.Date.String())
		assert.Equal(t, "18:00", s.Start.String())
		assert.Equal(t, "19:00", s.End.String())
	}
}

func TestExpandBounded(t *testing.T) {
	end := period.NewDate(2024, time.February, 20)
	lifetime := period.Range{Start: period.NewDate(2024, time.February, 10), End: &end}
	slots := []WeeklySlot{{Weekday: 0, Start: mustClock(t, "09:00")}}
	winStart, winEnd := period.MonthRange(2024, time.February)

	sessions := Expand("class-1", slots, lifetime, winStart, winEnd, 90*time.Minute)
	require.NotEmpty(t, sessions)
	for _, s := range sessions {
		assert.False(t, s.Date.Before(period.NewDate(2024, time.February, 10)))
		assert.False(t, s.Date.After(end))
		assert.Equal(t, time.Sunday, s.Date.Weekday())
		assert.Equal(t, "10:30", s.End.String(), "fallback duration applied")
	}
}

func TestExpandDeterministic(t *testing.T) {
	lifetime := period.Range{Start: period.NewDate(2024, time.January, 1)}
	slots := []WeeklySlot{
		{Weekday: 3, Start: mustClock(t, "19:30")},
		{Weekday: 3, Start: mustClock(t, "08:00")},
		{Weekday: 6, Start: mustClock(t, "14:00"), End: clockPtr(t, "15:30")},
	}
	winStart, winEnd := period.MonthRange(2024, time.March)

	first := Expand("class-1", slots, lifetime, winStart, winEnd, time.Hour)
	second := Expand("class-1", slots, lifetime, winStart, winEnd, time.Hour)
	assert.Equal(t, first, second)

	for i := 1; i < len(first); i++ {
		prev, cur := first[i-1], first[i]
		ordered := prev.Date.Before(cur.Date) || (prev.Date == cur.Date && prev.Start.Before(cur.Start))
		assert.True(t, ordered, "sessions sorted by (date, start)")
	}
}

func TestExpandEmptyOrInvalidSlots(t *testing.T) {
	lifetime := period.Range{Start: period.NewDate(2024, time.January, 1)}
	winStart, winEnd := period.MonthRange(2024, time.February)

	assert.Nil(t, Expand("class-1", nil, lifetime, winStart, winEnd, time.Hour))

	badSlots := []WeeklySlot{
		{Weekday: 9, Start: mustClock(t, "10:00")},
		{Weekday: 2, Start: mustClock(t, "11:00"), End: clockPtr(t, "10:00")},
	}
	assert.Nil(t, Expand("class-1", badSlots, lifetime, winStart, winEnd, time.Hour))
}

func TestExpandOutsideLifetime(t *testing.T) {
	end := period.NewDate(2024, time.January, 31)
	lifetime := period.Range{Start: period.NewDate(2024, time.January, 1), End: &end}
	slots := []WeeklySlot{{Weekday: 1, Start: mustClock(t, "18:00")}}
	winStart, winEnd := period.MonthRange(2024, time.February)

	assert.Nil(t, Expand("class-1", slots, lifetime, winStart, winEnd, time.Hour))
}

func TestWeeklySlotJSONRoundTrip(t *testing.T) {
	var slot WeeklySlot
	err := slot.Start.UnmarshalJSON([]byte(`"18:00"`))
	require.NoError(t, err)
	assert.Equal(t, ClockTime{Hour: 18}, slot.Start)

	out, err := ClockTime{Hour: 7, Minute: 5}.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"07:05"`, string(out))
}
