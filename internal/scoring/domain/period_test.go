package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		raw    string
		period PeriodType
		err    error
	}{
		{"daily", PeriodDay, nil},
		{"day", PeriodDay, nil},
		{"WEEKLY", PeriodWeek, nil},
		{"monthly", PeriodMonth, nil},
		{"all", PeriodAllTime, nil},
		{"all-time", PeriodAllTime, nil},
		{"", PeriodAllTime, nil},
		{"fortnight", "", ErrInvalidPeriod},
	}

	for _, tt := range tests {
		period, err := ParsePeriod(tt.raw)
		if tt.err != nil {
			assert.ErrorIs(t, err, tt.err, tt.raw)
			continue
		}
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.period, period, tt.raw)
	}
}

func TestStartForDay(t *testing.T) {
	at := time.Date(2024, 3, 15, 17, 42, 3, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), PeriodDay.StartFor(at, time.UTC))
}

func TestStartForWeekIsMondayAnchored(t *testing.T) {
	// 2024-03-15 is a Friday; the ISO week starts Monday 2024-03-11.
	monday := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	for day := 11; day <= 17; day++ {
		at := time.Date(2024, 3, day, 12, 0, 0, 0, time.UTC)
		assert.Equal(t, monday, PeriodWeek.StartFor(at, time.UTC), "day %d", day)
	}

	// Sunday belongs to the week that started six days earlier.
	sunday := time.Date(2024, 3, 17, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, monday, PeriodWeek.StartFor(sunday, time.UTC))

	// The following Monday opens a new week.
	next := time.Date(2024, 3, 18, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, next, PeriodWeek.StartFor(next, time.UTC))
}

func TestStartForMonth(t *testing.T) {
	at := time.Date(2024, 2, 29, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), PeriodMonth.StartFor(at, time.UTC))
}

func TestStartForAllTimeSentinel(t *testing.T) {
	a := PeriodAllTime.StartFor(time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC), time.UTC)
	b := PeriodAllTime.StartFor(time.Date(2031, 6, 6, 6, 6, 6, 0, time.UTC), time.UTC)
	assert.Equal(t, AllTimeStart, a)
	assert.Equal(t, a, b)
}

func TestStartForRespectsReferenceTimezone(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 01:30 UTC is still the previous calendar day in New York.
	at := time.Date(2024, 3, 15, 1, 30, 0, 0, time.UTC)
	start := PeriodDay.StartFor(at, loc)
	assert.Equal(t, time.Date(2024, 3, 14, 0, 0, 0, 0, loc).UTC(), start)
}

func TestStartForNilLocationDefaultsUTC(t *testing.T) {
	at := time.Date(2024, 3, 15, 17, 0, 0, 0, time.UTC)
	assert.Equal(t, PeriodDay.StartFor(at, time.UTC), PeriodDay.StartFor(at, nil))
}
