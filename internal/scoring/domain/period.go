package domain

import (
	"errors"
	"strings"
	"time"
)

// PeriodType identifies one of the fixed calendar bucket granularities.
type PeriodType string

const (
	PeriodDay     PeriodType = "day"
	PeriodWeek    PeriodType = "week"
	PeriodMonth   PeriodType = "month"
	PeriodAllTime PeriodType = "all_time"
)

// AllTimeStart is the single sentinel period start for all-time buckets.
var AllTimeStart = time.Unix(0, 0).UTC()

var ErrInvalidPeriod = errors.New("invalid_period")

// AllPeriods lists every bucket granularity maintained per event.
func AllPeriods() []PeriodType {
	return []PeriodType{PeriodDay, PeriodWeek, PeriodMonth, PeriodAllTime}
}

// ParsePeriod maps user-facing period names onto PeriodType. The empty
// string defaults to all-time.
func ParsePeriod(raw string) (PeriodType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "all", "alltime", "all-time", "all_time":
		return PeriodAllTime, nil
	case "day", "daily", "today":
		return PeriodDay, nil
	case "week", "weekly":
		return PeriodWeek, nil
	case "month", "monthly":
		return PeriodMonth, nil
	default:
		return "", ErrInvalidPeriod
	}
}

// StartFor normalizes an instant to the start of the period containing it,
// computed at the reference timezone. Weeks are Monday-anchored ISO weeks.
func (p PeriodType) StartFor(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)

	switch p {
	case PeriodDay:
		return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc).UTC()
	case PeriodWeek:
		daysSinceMonday := (int(local.Weekday()) + 6) % 7
		monday := local.AddDate(0, 0, -daysSinceMonday)
		return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, loc).UTC()
	case PeriodMonth:
		return time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc).UTC()
	default:
		return AllTimeStart
	}
}
