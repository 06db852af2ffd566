// Package dates holds the date-only calendar arithmetic used across the module:
// clamped month/year shifts, ISO-8601 week coordinates, ages and birthdays.
//
// A "date" here is a time.Time at UTC midnight. DateOnly converts any instant
// to that form using the calendar fields of the instant's own location, so two
// dates compare correctly with Before/After/Equal regardless of where they came from.
package dates

import (
	"time"

	"github.com/tartampluch/go-attendance/internal/apperr"
	"github.com/tartampluch/go-attendance/internal/config"
)

// DateOnly drops the time-of-day and location of t.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// New builds a date. Out-of-range fields are normalized the way time.Date does.
func New(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Valid reports whether year/month/day name an existing calendar date.
func Valid(year int, month time.Month, day int) bool {
	if month < time.January || month > time.December || day < 1 {
		return false
	}
	return day <= DaysInMonth(year, month)
}

// IsLeapYear reports whether year is a Gregorian leap year.
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// DaysInMonth returns the number of days of month in year.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DaysInYear returns 366 for leap years, 365 otherwise.
func DaysInYear(year int) int {
	if IsLeapYear(year) {
		return 366
	}
	return 365
}

func FirstOfMonth(t time.Time) time.Time {
	return New(t.Year(), t.Month(), 1)
}

func LastDateOfMonth(t time.Time) time.Time {
	return New(t.Year(), t.Month(), DaysInMonth(t.Year(), t.Month()))
}

func FirstOfYear(t time.Time) time.Time {
	return New(t.Year(), time.January, 1)
}

func LastDateOfYear(t time.Time) time.Time {
	return New(t.Year(), time.December, 31)
}

func Tomorrow(t time.Time) time.Time {
	return t.AddDate(0, 0, 1)
}

func Yesterday(t time.Time) time.Time {
	return t.AddDate(0, 0, -1)
}

// MonthContainsDay reports whether day exists in the month of t.
func MonthContainsDay(t time.Time, day int) bool {
	return day >= 1 && day <= DaysInMonth(t.Year(), t.Month())
}

// YearContainsDay reports whether dayOfYear exists in the year of t.
func YearContainsDay(t time.Time, dayOfYear int) bool {
	return dayOfYear >= 1 && dayOfYear <= DaysInYear(t.Year())
}

// DateFromDayOfYear returns the date of the 1-based dayOfYear in the year of t.
func DateFromDayOfYear(t time.Time, dayOfYear int) time.Time {
	return FirstOfYear(t).AddDate(0, 0, dayOfYear-1)
}

// AddMonthsClamped shifts t by n months, clamping the day to the end of the
// target month (Jan 31 + 1 month = Feb 28/29) instead of overflowing into
// the next month like time.AddDate.
func AddMonthsClamped(t time.Time, n int) time.Time {
	total := int(t.Month()) - 1 + n
	year := t.Year() + floorDiv(total, 12)
	month := time.Month(total-floorDiv(total, 12)*12 + 1)

	day := t.Day()
	if last := DaysInMonth(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// AddYearsClamped shifts t by n years; Feb 29 lands on Feb 28 in common years.
func AddYearsClamped(t time.Time, n int) time.Time {
	return AddMonthsClamped(t, 12*n)
}

// SetYear moves t to year, keeping month and day (clamped).
func SetYear(t time.Time, year int) (time.Time, error) {
	if year < 1 || year > 9999 {
		return time.Time{}, apperr.New(apperr.KindOutOfRange, config.ErrYearRange)
	}
	return AddYearsClamped(t, year-t.Year()), nil
}

// SetMonth moves t to month, keeping year and day (clamped).
func SetMonth(t time.Time, month int) (time.Time, error) {
	if month < 1 || month > 12 {
		return time.Time{}, apperr.New(apperr.KindOutOfRange, config.ErrMonthRange)
	}
	return AddMonthsClamped(t, month-int(t.Month())), nil
}

// SetDay moves t to day within its month. When the month has no such day the
// result is the last date of the month, or the first date of the following
// month if nextMonth is set.
func SetDay(t time.Time, day int, nextMonth bool) (time.Time, error) {
	if day < 1 || day > 31 {
		return time.Time{}, apperr.New(apperr.KindOutOfRange, config.ErrDayRange)
	}
	moved := t.AddDate(0, 0, day-t.Day())
	if moved.Month() == t.Month() {
		return moved, nil
	}
	if nextMonth {
		return time.Date(moved.Year(), moved.Month(), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location()), nil
	}
	last := DaysInMonth(t.Year(), t.Month())
	return time.Date(t.Year(), t.Month(), last, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location()), nil
}

// ParseCompact parses a "20060102" date, returning def when value is malformed.
func ParseCompact(value string, def time.Time) time.Time {
	t, err := time.Parse(config.DateFormatFullBasic, value)
	if err != nil {
		return def
	}
	return t
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
