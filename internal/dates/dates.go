// Package dates holds the calendar arithmetic used by the recurring
// generator, late fee engine and aging reporter: end-of-month day clamping,
// next-weekday resolution and whole-day deltas.
package dates

import "time"

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	// Day zero of the following month normalizes to the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ClampDay resolves day against the month's length, so day 31 in February
// becomes the 28th or 29th.
func ClampDay(year int, month time.Month, day int) int {
	if last := DaysInMonth(year, month); day > last {
		return last
	}
	return day
}

// AddMonthsClamped advances t by the given number of calendar months,
// landing on day when given (>0) or t's own day otherwise, clamped to the
// target month's length. Unlike time.AddDate this never spills into the
// following month.
func AddMonthsClamped(t time.Time, months, day int) time.Time {
	year, month, _ := t.Date()
	month += time.Month(months)
	for month > 12 {
		month -= 12
		year++
	}
	for month < 1 {
		month += 12
		year--
	}
	if day <= 0 {
		day = t.Day()
	}
	day = ClampDay(year, month, day)
	return time.Date(year, month, day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// NextWeekday shifts t forward 0-6 days to land exactly on the requested
// weekday. A t already on that weekday is returned unchanged.
func NextWeekday(t time.Time, weekday time.Weekday) time.Time {
	delta := (int(weekday) - int(t.Weekday()) + 7) % 7
	return t.AddDate(0, 0, delta)
}

// Truncate strips the time-of-day component.
func Truncate(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// DaysBetween returns the whole calendar days from a to b, negative when b
// precedes a.
func DaysBetween(a, b time.Time) int {
	return int(Truncate(b).Sub(Truncate(a)).Hours() / 24)
}

// DaysOverdue returns how many whole days today is past due; zero or
// negative means not yet overdue.
func DaysOverdue(due, today time.Time) int {
	return DaysBetween(due, today)
}
