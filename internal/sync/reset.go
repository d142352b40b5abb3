package sync

import "time"

// Destiny reset boundaries: daily at 17:00 UTC, weekly on Tuesday 17:00 UTC.
const (
	resetHourUTC       = 17
	weeklyResetWeekday = time.Tuesday
)

// NextWeeklyReset returns the next weekly reset strictly after now. A
// timestamp exactly at the boundary rolls to the following week.
func NextWeeklyReset(now time.Time) time.Time {
	now = now.UTC()
	daysAhead := (int(weeklyResetWeekday) - int(now.Weekday()) + 7) % 7
	reset := time.Date(now.Year(), now.Month(), now.Day(), resetHourUTC, 0, 0, 0, time.UTC).
		AddDate(0, 0, daysAhead)
	if !reset.After(now) {
		reset = reset.AddDate(0, 0, 7)
	}
	return reset
}

// NextDailyReset returns the next daily reset strictly after now.
func NextDailyReset(now time.Time) time.Time {
	now = now.UTC()
	reset := time.Date(now.Year(), now.Month(), now.Day(), resetHourUTC, 0, 0, 0, time.UTC)
	if !reset.After(now) {
		reset = reset.AddDate(0, 0, 1)
	}
	return reset
}
