package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func datePtr(y int, m time.Month, d int) *Date {
	dt := NewDate(y, m, d)
	return &dt
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, NewDate(2024, time.February, 29), d)
	assert.Equal(t, "2024-02-29", d.String())

	_, err = ParseDate("29/02/2024")
	assert.Error(t, err)
}

func TestOverlaps(t *testing.T) {
	feb1 := NewDate(2024, time.February, 1)
	feb29 := NewDate(2024, time.February, 29)

	cases := []struct {
		name   string
		entity Range
		want   bool
	}{
		{"open ended starting before", Range{Start: NewDate(2023, time.September, 1)}, true},
		{"open ended starting inside", Range{Start: NewDate(2024, time.February, 10)}, true},
		{"open ended starting after", Range{Start: NewDate(2024, time.March, 1)}, false},
		{"closed fully inside", Range{Start: NewDate(2024, time.February, 5), End: datePtr(2024, time.February, 20)}, true},
		{"closed ending before period", Range{Start: NewDate(2024, time.January, 1), End: datePtr(2024, time.January, 31)}, false},
		{"closed ending on period start", Range{Start: NewDate(2024, time.January, 1), End: datePtr(2024, time.February, 1)}, true},
		{"closed starting on period end", Range{Start: NewDate(2024, time.February, 29), End: datePtr(2024, time.April, 1)}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Overlaps(tc.entity, feb1, feb29))
		})
	}
}

// Overlaps must agree with a brute-force day-by-day intersection over a broad
// sweep of entity windows.
func TestOverlapsMatchesBruteForce(t *testing.T) {
	periodStart := NewDate(2024, time.February, 1)
	periodEnd := NewDate(2024, time.February, 29)

	base := NewDate(2024, time.January, 1)
	for startOff := 0; startOff < 90; startOff += 3 {
		start := base.AddDays(startOff)
		for _, endOff := range []int{-1, 0, 5, 30, 60} {
			var entity Range
			entity.Start = start
			if endOff >= 0 {
				end := start.AddDays(endOff)
				entity.End = &end
			}

			brute := false
			for d := periodStart; !d.After(periodEnd); d = d.AddDays(1) {
				if entity.Contains(d) {
					brute = true
					break
				}
			}
			assert.Equal(t, brute, Overlaps(entity, periodStart, periodEnd),
				"entity %s..%v", entity.Start, entity.End)
		}
	}
}

func TestClamp(t *testing.T) {
	feb1 := NewDate(2024, time.February, 1)
	feb29 := NewDate(2024, time.February, 29)

	lo, hi, ok := Clamp(Range{Start: NewDate(2024, time.January, 15), End: datePtr(2024, time.February, 10)}, feb1, feb29)
	require.True(t, ok)
	assert.Equal(t, feb1, lo)
	assert.Equal(t, NewDate(2024, time.February, 10), hi)

	lo, hi, ok = Clamp(Range{Start: NewDate(2024, time.February, 15)}, feb1, feb29)
	require.True(t, ok)
	assert.Equal(t, NewDate(2024, time.February, 15), lo)
	assert.Equal(t, feb29, hi)

	_, _, ok = Clamp(Range{Start: NewDate(2024, time.March, 1)}, feb1, feb29)
	assert.False(t, ok)
}

func TestEffectiveEnd(t *testing.T) {
	early := datePtr(2024, time.February, 10)
	late := datePtr(2024, time.March, 20)

	assert.Nil(t, EffectiveEnd(nil, nil))
	assert.Equal(t, early, EffectiveEnd(early, nil))
	assert.Equal(t, early, EffectiveEnd(nil, early))
	assert.Equal(t, early, EffectiveEnd(early, late))
	assert.Equal(t, early, EffectiveEnd(late, early))
}

func TestMonthRange(t *testing.T) {
	first, last := MonthRange(2024, time.February)
	assert.Equal(t, NewDate(2024, time.February, 1), first)
	assert.Equal(t, NewDate(2024, time.February, 29), last)

	first, last = MonthRange(2023, time.December)
	assert.Equal(t, NewDate(2023, time.December, 1), first)
	assert.Equal(t, NewDate(2023, time.December, 31), last)
}

func TestWeekdayIsUTCAnchored(t *testing.T) {
	// 2024-02-05 is a Monday regardless of the process timezone.
	loc := time.FixedZone("UTC+13", 13*3600)
	d := DateOf(time.Date(2024, time.February, 5, 0, 0, 0, 0, loc).UTC())
	assert.Equal(t, time.Sunday, d.Weekday()) // 23:00 UTC-side of the previous day

	d, err := ParseDate("2024-02-05")
	require.NoError(t, err)
	assert.Equal(t, time.Monday, d.Weekday())
}
