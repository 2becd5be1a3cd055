package helper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSumAndAverage(t *testing.T) {
	assert.Equal(t, 0, Sum([]int{}))
	assert.Equal(t, 6, Sum([]int{1, 2, 3}))
	assert.InDelta(t, 2.5, Sum([]float64{1, 1.5}), 1e-9)

	assert.Equal(t, 0.0, Average([]float64{}))
	assert.InDelta(t, 63.333, Average([]float64{100, 0, 90}), 0.001)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, Clamp(-5, 0, 100))
	assert.Equal(t, 100.0, Clamp(120, 0, 100))
	assert.Equal(t, 42.0, Clamp(42, 0, 100))
}

func TestRoundHalfUp(t *testing.T) {
	tests := []struct {
		value  float64
		places int
		want   float64
	}{
		{20.0 / 7.0, 2, 2.86},
		{190.0 / 3.0, 1, 63.3},
		{2.125, 2, 2.13},
		{0.5, 0, 1},
		{3, 2, 3},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, Round(tt.value, tt.places), 1e-9, "Round(%v, %d)", tt.value, tt.places)
	}
}

func TestNonZero(t *testing.T) {
	assert.Equal(t, 1, NonZero(0))
	assert.Equal(t, 7, NonZero(7))
	assert.Equal(t, 1.0, NonZero(0.0))
}

func TestParseDate(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)

	got, ok := ParseDate("2026-03-08", loc)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2026, time.March, 8, 0, 0, 0, 0, loc), got)
	assert.Equal(t, "2026-03-08", FormatDate(got))

	got, ok = ParseDate("2026-03-08T22:30:00-05:00", loc)
	assert.True(t, ok, "falls back to a direct parse")
	assert.Equal(t, "2026-03-08", FormatDate(got))

	got, ok = ParseDate("03/09/2026", loc)
	assert.True(t, ok)
	assert.Equal(t, "2026-03-09", FormatDate(got))

	_, ok = ParseDate("not a date", loc)
	assert.False(t, ok)

	_, ok = ParseDate("", loc)
	assert.False(t, ok)
}

func TestAddDaysCrossesMonthAndYear(t *testing.T) {
	assert.Equal(t, "2026-03-01", AddDays("2026-02-28", 1, time.UTC))
	assert.Equal(t, "2025-12-31", AddDays("2026-01-01", -1, time.UTC))
	assert.Equal(t, "garbage", AddDays("garbage", 3, time.UTC))
}

func TestDaysInMonth(t *testing.T) {
	assert.Equal(t, 28, DaysInMonth(2026, time.February))
	assert.Equal(t, 29, DaysInMonth(2028, time.February))
	assert.Equal(t, 31, DaysInMonth(2026, time.December))
}

func TestStartOfWeekIsMonday(t *testing.T) {
	sunday := time.Date(2026, time.March, 1, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Sunday, sunday.Weekday())
	assert.Equal(t, "2026-02-23", FormatDate(StartOfWeek(sunday)))

	monday := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-03-02", FormatDate(StartOfWeek(monday)))
}

func TestDayBounds(t *testing.T) {
	ts := time.Date(2026, time.May, 4, 13, 14, 15, 0, time.UTC)
	assert.Equal(t, time.Date(2026, time.May, 4, 0, 0, 0, 0, time.UTC), DayStart(ts))
	assert.Equal(t, time.Date(2026, time.May, 4, 23, 59, 59, 0, time.UTC), DayEnd(ts))
}
