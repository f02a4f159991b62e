package models

import (
	"time"

	"github.com/jinzhu/now"
)

// Frequency is how often a recurring template produces a transaction.
type Frequency string

const (
	FrequencyDaily   Frequency = "DAILY"
	FrequencyWeekly  Frequency = "WEEKLY"
	FrequencyMonthly Frequency = "MONTHLY"
)

// Valid reports whether f is one of the known frequencies.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}

// Next adds exactly one calendar unit of f to from. Unknown values advance
// monthly.
func (f Frequency) Next(from time.Time) time.Time {
	switch f {
	case FrequencyDaily:
		return from.AddDate(0, 0, 1)
	case FrequencyWeekly:
		return from.AddDate(0, 0, 7)
	case FrequencyMonthly:
		return addCalendarMonth(from)
	default:
		return addCalendarMonth(from)
	}
}

// addCalendarMonth moves t into the following month keeping the wall-clock
// time. The day clamps to the last day of that month, so Jan 31 becomes
// Feb 28 (or 29) instead of overflowing into March the way time.AddDate does.
func addCalendarMonth(t time.Time) time.Time {
	first := time.Date(t.Year(), t.Month()+1, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	lastDay := now.With(first).EndOfMonth().Day()

	day := t.Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(first.Year(), first.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// CycleType is the window over which a budget accumulates spend.
type CycleType string

const (
	CycleDaily   CycleType = "DAILY"
	CycleWeekly  CycleType = "WEEKLY"
	CycleMonthly CycleType = "MONTHLY"
)

// Valid reports whether c is one of the known cycle types.
func (c CycleType) Valid() bool {
	switch c {
	case CycleDaily, CycleWeekly, CycleMonthly:
		return true
	}
	return false
}

// Duration is the fixed-length approximation of the cycle used for reset
// checks. Months count as 30 days. Unknown values use the monthly length.
func (c CycleType) Duration() time.Duration {
	const day = 24 * time.Hour
	switch c {
	case CycleDaily:
		return day
	case CycleWeekly:
		return 7 * day
	case CycleMonthly:
		return 30 * day
	default:
		return 30 * day
	}
}
